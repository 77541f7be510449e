// Package experience implements the relevance-scored lookup of process
// knowledge (C4): given a tool-call context and the set of active
// process-knowledge items across a session's graphs, rank the items
// worth surfacing and decide whether to inject them as context or block
// the call outright.
package experience

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/marcohefti/triadctl/internal/keywords"
	"github.com/marcohefti/triadctl/internal/schema"
)

// Sub-score weights. Fixed by configuration decision; must sum to 1.
const (
	WeightTool    = 0.40
	WeightFile    = 0.40
	WeightAction  = 0.10
	WeightContext = 0.10

	// ScoreThreshold is the minimum weighted*multiplier score to keep an
	// item in the ranked result at all.
	ScoreThreshold = 0.4

	// DefaultBlockThreshold is the confidence floor for the block path
	// when Options.BlockThreshold is unset.
	DefaultBlockThreshold = 0.85
)

// PriorityMultipliers scales the weighted sub-score sum by urgency.
var PriorityMultipliers = map[string]float64{
	"CRITICAL": 2.0,
	"HIGH":     1.5,
	"MEDIUM":   1.0,
	"LOW":      0.5,
}

// DefaultRiskyCommandGlobs are point-of-no-return shell commands the
// block decision treats as risky even without a file-path match.
var DefaultRiskyCommandGlobs = []string{
	"git commit*", "git push*", "git reset --hard*",
	"rm -rf*", "rm -r*", "*publish*", "docker push*",
}

// ToolContext is what a pre-tool hook observes about the call about to
// run, plus enough session context to score context_keywords.
type ToolContext struct {
	ToolName     string
	ToolInput    map[string]any
	Cwd          string
	RecentInputs []string
}

// Options are the only recognized cancellation knobs.
type Options struct {
	DisableBlock      bool
	DisableExperience bool
	BlockThreshold    float64
	RiskyCommandGlobs []string
}

// ScoredItem pairs a process-knowledge item with its computed score.
type ScoredItem struct {
	Item  schema.ProcessKnowledgeV1 `json:"item"`
	Score float64                   `json:"score"`
}

// Rank scores every non-deprecated item against ctx and returns the ones
// at or above ScoreThreshold, sorted by score descending.
func Rank(items []schema.ProcessKnowledgeV1, ctx ToolContext) []ScoredItem {
	var out []ScoredItem
	for _, item := range items {
		if item.Status == "deprecated" {
			continue
		}
		if s := score(item, ctx); s >= ScoreThreshold {
			out = append(out, ScoredItem{Item: item, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func score(item schema.ProcessKnowledgeV1, ctx ToolContext) float64 {
	toolScore := 0.0
	for _, t := range item.Tools {
		if strings.EqualFold(t, ctx.ToolName) {
			toolScore = 1
			break
		}
	}

	fileScore := 0.0
	if path := filePathFromInput(ctx.ToolInput); path != "" && matchesAnyGlob(path, item.FilePatterns) {
		fileScore = 1
	}

	actionScore := keywords.MatchFractionWordBoundary(stringifyInput(ctx.ToolInput), item.ActionKeywords)
	contextScore := keywords.MatchFraction(contextText(ctx), item.ContextKeywords)

	weighted := toolScore*WeightTool + fileScore*WeightFile + actionScore*WeightAction + contextScore*WeightContext

	mult := PriorityMultipliers[item.Priority]
	if mult == 0 {
		mult = 1
	}
	return weighted * mult
}

func filePathFromInput(input map[string]any) string {
	for _, key := range []string{"file_path", "path", "filePath"} {
		if v, ok := input[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func matchesAnyGlob(s string, patterns []string) bool {
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			continue
		}
		if g.Match(s) {
			return true
		}
	}
	return false
}

func stringifyInput(input map[string]any) string {
	if len(input) == 0 {
		return ""
	}
	b, err := json.Marshal(input)
	if err != nil {
		return ""
	}
	return string(b)
}

func contextText(ctx ToolContext) string {
	parts := make([]string, 0, len(ctx.RecentInputs)+1)
	if ctx.Cwd != "" {
		parts = append(parts, filepath.Base(ctx.Cwd))
	}
	parts = append(parts, ctx.RecentInputs...)
	return strings.Join(parts, " ")
}

// Decision is the mode-decision output: inject everything ranked, or
// block on the single most urgent item.
type Decision struct {
	Mode  string       `json:"mode"` // inject|block
	Items []ScoredItem `json:"items"`
}

var writeClassTools = map[string]bool{"write": true, "edit": true, "bash": true, "notebookedit": true}

// Decide applies the "mostly silent, rarely block" policy: items ranked
// by Rank are injected unless the top item is CRITICAL, meets the block
// confidence threshold, and the operation looks risky.
func Decide(items []ScoredItem, ctx ToolContext, opts Options) Decision {
	if opts.DisableExperience || len(items) == 0 {
		return Decision{Mode: "inject"}
	}
	if opts.DisableBlock {
		return Decision{Mode: "inject", Items: items}
	}

	threshold := opts.BlockThreshold
	if threshold <= 0 {
		threshold = DefaultBlockThreshold
	}

	top := items[0]
	if top.Item.Priority == "CRITICAL" && top.Item.Confidence >= threshold && isRisky(top.Item, ctx, opts) {
		return Decision{Mode: "block", Items: items[:1]}
	}
	return Decision{Mode: "inject", Items: items}
}

func isRisky(item schema.ProcessKnowledgeV1, ctx ToolContext, opts Options) bool {
	if item.Confidence >= 0.95 {
		return true
	}
	if writeClassTools[strings.ToLower(ctx.ToolName)] {
		if path := filePathFromInput(ctx.ToolInput); path != "" && matchesAnyGlob(path, item.FilePatterns) {
			return true
		}
	}
	globs := opts.RiskyCommandGlobs
	if len(globs) == 0 {
		globs = DefaultRiskyCommandGlobs
	}
	if cmd, ok := ctx.ToolInput["command"].(string); ok && cmd != "" {
		return matchesAnyGlob(cmd, globs)
	}
	return false
}
