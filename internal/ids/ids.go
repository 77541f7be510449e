package ids

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	reInvalid     = regexp.MustCompile(`[^a-z0-9-]+`)
	reDashes      = regexp.MustCompile(`-+`)
	reWorkspaceID = regexp.MustCompile(`^workspace-[0-9]{8}-[0-9]{6}-[a-z0-9-]{1,40}$`)
)

const workspaceSlugMaxLen = 40

// NewEventID returns a fresh random v4 UUID for one events.jsonl entry.
func NewEventID() string {
	return uuid.NewString()
}

// NewWorkspaceID builds a workspace id of the form
// workspace-<date>-<time>-<title-slug>, with the slug truncated to at
// most 40 characters after sanitization.
func NewWorkspaceID(now time.Time, title string) string {
	prefix := now.UTC().Format("20060102-150405")
	slug := SanitizeComponent(title)
	if slug == "" {
		slug = "workspace"
	}
	if len(slug) > workspaceSlugMaxLen {
		slug = strings.Trim(slug[:workspaceSlugMaxLen], "-")
	}
	return "workspace-" + prefix + "-" + slug
}

func IsValidWorkspaceID(s string) bool {
	return reWorkspaceID.MatchString(strings.TrimSpace(s))
}

// SanitizeComponent lowercases s and keeps only [a-z0-9-], collapsing
// repeated dashes. Used for workspace slugs, redaction rule ids and any
// other identifier derived from free-form operator input.
func SanitizeComponent(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "_", "-")
	v = strings.ReplaceAll(v, " ", "-")
	v = reInvalid.ReplaceAllString(v, "-")
	v = reDashes.ReplaceAllString(v, "-")
	v = strings.Trim(v, "-")
	return v
}
