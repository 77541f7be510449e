// Package events implements the append-only, per-triad event log: one
// events.jsonl file holding RDF-triple-shaped entries (subject/predicate/
// object), guarded by a token-bucket rate limiter and rotated once it
// grows past a size/line-count threshold.
package events

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/marcohefti/triadctl/internal/contract"
	"github.com/marcohefti/triadctl/internal/ids"
	"github.com/marcohefti/triadctl/internal/redact"
	"github.com/marcohefti/triadctl/internal/retention"
	"github.com/marcohefti/triadctl/internal/schema"
	"github.com/marcohefti/triadctl/internal/store"
)

const (
	// RotateAtLines triggers a rotation once events.jsonl accumulates this
	// many entries, keeping per-read scans cheap.
	RotateAtLines = 10000
	// RotateAtBytes is a secondary rotation trigger for unusually large
	// individual entries (large objectData payloads).
	RotateAtBytes = 10 * 1024 * 1024
	// KeepBackups is how many rotated events.jsonl.bak.<n> files survive
	// a retention sweep.
	KeepBackups = 10
)

// Limits configures the per-triad rate limiter. Zero values disable
// limiting (used by tests and offline tooling).
type Limits struct {
	EventsPerSecond float64
	Burst           int
}

type Store struct {
	outRoot string
	limits  Limits

	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
	extraRules []redact.Rule
}

func NewStore(outRoot string, limits Limits) *Store {
	return &Store{outRoot: outRoot, limits: limits, limiters: map[string]*rate.Limiter{}}
}

// SetExtraRules installs project/global-configured redaction rules
// (internal/config.LoadRedactionMerged) to run after the built-in secret
// patterns on every captured event.
func (s *Store) SetExtraRules(rules []redact.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extraRules = rules
}

func (s *Store) triadDir(triadID string) string {
	return filepath.Join(s.outRoot, "knowledge", triadID)
}

func (s *Store) eventsPath(triadID string) string {
	return filepath.Join(s.triadDir(triadID), "events.jsonl")
}

func (s *Store) securityAuditPath(triadID string) string {
	return filepath.Join(s.triadDir(triadID), "security-audit.jsonl")
}

func (s *Store) currentExtraRules() []redact.Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extraRules
}

func (s *Store) limiterFor(triadID string) *rate.Limiter {
	if s.limits.EventsPerSecond <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[triadID]
	if !ok {
		burst := s.limits.Burst
		if burst < 1 {
			burst = 1
		}
		l = rate.NewLimiter(rate.Limit(s.limits.EventsPerSecond), burst)
		s.limiters[triadID] = l
	}
	return l
}

// Capture appends one event after validation, redaction and rate-limit
// enforcement. EventID and Timestamp are filled in when empty.
func (s *Store) Capture(ctx context.Context, ev schema.EventV1) (schema.EventV1, error) {
	if strings.TrimSpace(ev.TriadID) == "" {
		return ev, contract.NewError(contract.CodeValidation, "event is missing triadId")
	}
	if strings.TrimSpace(ev.Subject) == "" || strings.TrimSpace(ev.Predicate) == "" {
		return ev, contract.NewError(contract.CodeValidation, "event requires subject and predicate")
	}

	if l := s.limiterFor(ev.TriadID); l != nil && !l.Allow() {
		s.recordRateLimitViolation(ev.TriadID, ev.Subject, ev.Predicate)
		return ev, contract.NewError(contract.CodeRateLimit, fmt.Sprintf("event rate limit exceeded for triad %q", ev.TriadID))
	}

	if ev.SchemaVersion == 0 {
		ev.SchemaVersion = schema.EventSchemaV1
	}
	if ev.EventID == "" {
		ev.EventID = ids.NewEventID()
	}
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if ev.WorkspaceID == "" {
		if v, ok := ev.Context["workspaceId"].(string); ok {
			ev.WorkspaceID = v
		}
	}
	ev.Object, _ = redact.Text(ev.Object)
	ev.ObjectData = redactMap(ev.ObjectData)
	if rules := s.currentExtraRules(); len(rules) > 0 {
		ev.Object, _ = redact.ApplyExtra(ev.Object, rules)
	}

	path := s.eventsPath(ev.TriadID)
	if err := store.AppendJSONL(path, ev); err != nil {
		return ev, contract.NewError(contract.CodeIO, err.Error()).WithPath(path)
	}

	if err := s.rotateIfNeeded(ev.TriadID); err != nil {
		return ev, err
	}
	return ev, nil
}

// CaptureExecution is a convenience wrapper for a successful tool
// execution: subject=tool name, predicate="executed", object=outcome.
func (s *Store) CaptureExecution(ctx context.Context, triadID, sessionID, tool, outcome string, evContext map[string]any) (schema.EventV1, error) {
	return s.Capture(ctx, schema.EventV1{
		TriadID:   triadID,
		SessionID: sessionID,
		Subject:   tool,
		Predicate: "executed",
		Object:    outcome,
		Context:   evContext,
	})
}

// CaptureError records a failed tool execution or hook error so the
// experience tracker can later correlate it against open injections.
func (s *Store) CaptureError(ctx context.Context, triadID, sessionID, tool, errMsg string, evContext map[string]any) (schema.EventV1, error) {
	return s.Capture(ctx, schema.EventV1{
		TriadID:   triadID,
		SessionID: sessionID,
		Subject:   tool,
		Predicate: "failed",
		Object:    errMsg,
		Context:   evContext,
	})
}

func (s *Store) recordRateLimitViolation(triadID, subject, predicate string) {
	entry := schema.AuditEntryV1{
		SchemaVersion: schema.AuditEntrySchemaV1,
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		TriadID:       triadID,
		Actor:         "events.Store",
		Action:        "rate_limit_violation",
		Details: map[string]any{
			"subject":   subject,
			"predicate": predicate,
		},
	}
	_ = store.AppendJSONL(s.securityAuditPath(triadID), entry)
}

func redactMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return in
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok {
			redacted, _ := redact.Text(s)
			out[k] = redacted
			continue
		}
		out[k] = v
	}
	return out
}

// rotateIfNeeded archives events.jsonl to events.jsonl.bak.<unixnano> once
// it crosses RotateAtLines or RotateAtBytes, then prunes old backups down
// to KeepBackups.
func (s *Store) rotateIfNeeded(triadID string) error {
	path := s.eventsPath(triadID)
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	needsRotation := info.Size() >= RotateAtBytes
	if !needsRotation {
		lines, err := countLines(path)
		if err != nil {
			return nil
		}
		needsRotation = lines >= RotateAtLines
	}
	if !needsRotation {
		return nil
	}

	backup := fmt.Sprintf("%s.bak.%d", path, time.Now().UnixNano())
	if err := os.Rename(path, backup); err != nil {
		return contract.NewError(contract.CodeIO, err.Error()).WithPath(path)
	}

	if _, err := retention.Prune(retention.Opts{
		Dir:     s.triadDir(triadID),
		Pattern: "events.jsonl.bak.*",
		KeepN:   KeepBackups,
	}); err != nil {
		return err
	}
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	return n, sc.Err()
}

// Query scans a triad's event log, applies filters (workspace, subject,
// predicate, time range, search - AND semantics), sorts by
// filters.SortBy/SortOrder (default timestamp/desc), then paginates via
// Offset/Limit. Limit <= 0 means unlimited.
func (s *Store) Query(triadID string, filters schema.EventFiltersV1) ([]schema.EventV1, error) {
	path := s.eventsPath(triadID)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	predicateSet := map[string]bool{}
	for _, p := range filters.Predicates {
		predicateSet[p] = true
	}
	if filters.Predicate != "" {
		predicateSet[filters.Predicate] = true
	}

	var out []schema.EventV1
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var ev schema.EventV1
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		if !matches(ev, filters, predicateSet) {
			continue
		}
		out = append(out, ev)
	}
	if err := sc.Err(); err != nil {
		return out, err
	}

	sortOrder := filters.SortOrder
	if sortOrder == "" {
		sortOrder = "desc"
	}
	sort.SliceStable(out, func(i, j int) bool {
		vi, vj := sortValue(out[i], filters.SortBy), sortValue(out[j], filters.SortBy)
		if sortOrder == "asc" {
			return vi < vj
		}
		return vi > vj
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			return nil, nil
		}
		out = out[filters.Offset:]
	}
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

// GetByID returns the single event matching id within triadID's log, or
// ok=false if no such event exists.
func (s *Store) GetByID(triadID, id string) (schema.EventV1, bool, error) {
	evs, err := s.Query(triadID, schema.EventFiltersV1{})
	if err != nil {
		return schema.EventV1{}, false, err
	}
	for _, ev := range evs {
		if ev.EventID == id {
			return ev, true, nil
		}
	}
	return schema.EventV1{}, false, nil
}

func (s *Store) Count(triadID string, filters schema.EventFiltersV1) (int, error) {
	// Count ignores Offset/Limit so callers can compare total vs returned page.
	unbounded := filters
	unbounded.Offset = 0
	unbounded.Limit = 0
	evs, err := s.Query(triadID, unbounded)
	return len(evs), err
}

func matches(ev schema.EventV1, f schema.EventFiltersV1, predicateSet map[string]bool) bool {
	if f.SessionID != "" && ev.SessionID != f.SessionID {
		return false
	}
	if f.WorkspaceID != "" && ev.WorkspaceID != f.WorkspaceID {
		return false
	}
	if f.Subject != "" && ev.Subject != f.Subject {
		return false
	}
	if len(predicateSet) > 0 && !predicateSet[ev.Predicate] {
		return false
	}
	if f.Since != "" && ev.Timestamp < f.Since {
		return false
	}
	if f.Until != "" && ev.Timestamp > f.Until {
		return false
	}
	if f.Search != "" && !searchMatches(ev, f.Search) {
		return false
	}
	return true
}

// searchMatches reports whether needle (case-insensitive) occurs in any of
// subject, predicate, object (which carries error text for "failed"
// events) or the stringified object_data.
func searchMatches(ev schema.EventV1, needle string) bool {
	needle = strings.ToLower(needle)
	if strings.Contains(strings.ToLower(ev.Subject), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(ev.Predicate), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(ev.Object), needle) {
		return true
	}
	if len(ev.ObjectData) > 0 {
		if b, err := json.Marshal(ev.ObjectData); err == nil {
			if strings.Contains(strings.ToLower(string(b)), needle) {
				return true
			}
		}
	}
	return false
}

// sortValue extracts the field named by sortBy for comparison, falling
// back to Timestamp when the field is unknown or missing.
func sortValue(ev schema.EventV1, sortBy string) string {
	switch sortBy {
	case "subject":
		return ev.Subject
	case "predicate":
		return ev.Predicate
	case "eventId", "event_id":
		return ev.EventID
	case "sessionId", "session_id":
		return ev.SessionID
	case "workspaceId", "workspace_id":
		return ev.WorkspaceID
	case "timestamp", "":
		return ev.Timestamp
	default:
		return ev.Timestamp
	}
}
