package hooks

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/marcohefti/triadctl/internal/experience"
	"github.com/marcohefti/triadctl/internal/hookenv"
	"github.com/marcohefti/triadctl/internal/schema"
)

// PreToolUseOptions mirrors experience.Options; it is the only
// configuration surface PreToolUse recognizes (spec §4.4's
// disable_block/disable_experience/block_threshold knobs).
type PreToolUseOptions = experience.Options

// OptionsFromEnv reads the three cancellation knobs spec §4.4 names as
// the only recognized switches, from the host process's environment.
func OptionsFromEnv() PreToolUseOptions {
	var opts PreToolUseOptions
	opts.DisableBlock = envBool("TRIAD_DISABLE_BLOCK")
	opts.DisableExperience = envBool("TRIAD_DISABLE_EXPERIENCE")
	if v := os.Getenv("TRIAD_BLOCK_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			opts.BlockThreshold = f
		}
	}
	return opts
}

func envBool(name string) bool {
	switch os.Getenv(name) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// RunPreToolUse implements C4's pre-tool hook. Unlike every other hook it
// does not go through hookenv.Env.Run: a block decision must exit 2
// directly, which the envelope's always-return-0 contract forbids. It
// still records execution/failure events itself so C2 stays complete.
func RunPreToolUse(ctx context.Context, c Components, stdin io.Reader, stderr io.Writer, opts PreToolUseOptions) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	in := hookenv.ReadInput(stdin)

	items, err := allProcessKnowledge(c)
	if err != nil {
		recordFailure(ctx, c, "pre_tool_use", in, err)
		return 0
	}

	recentInputs, _ := recentPrompts(c, in.TriadID(), 5)
	toolCtx := experience.ToolContext{
		ToolName:     in.ToolName(),
		ToolInput:    in.ToolInput(),
		Cwd:          in.Cwd(),
		RecentInputs: recentInputs,
	}

	ranked := experience.Rank(items, toolCtx)
	decision := experience.Decide(ranked, toolCtx, opts)

	triad := firstNonEmpty(in.TriadID(), "system")
	if decision.Mode == "block" {
		msg := blockMessage(decision)
		hookenv.WriteBlockInterjection(stderr, msg)
		if c.Events != nil {
			_, _ = c.Events.Capture(ctx, schema.EventV1{
				TriadID:   triad,
				SessionID: in.SessionID(),
				Subject:   "pre_tool_use",
				Predicate: "blocked",
				Object:    msg,
			})
		}
		return 2
	}

	if c.Tracker != nil {
		for _, scored := range decision.Items {
			_, _ = c.Tracker.RecordInjection(schema.InjectionRecordV1{
				SessionID:        in.SessionID(),
				TriadID:          scored.Item.TriadID,
				KnowledgeID:      scored.Item.ID,
				Mode:             "inject",
				Score:            scored.Score,
				ConfidenceBefore: scored.Item.Confidence,
			})
		}
	}

	if c.Events != nil {
		_, _ = c.Events.CaptureExecution(ctx, triad, in.SessionID(), "pre_tool_use", "success", map[string]any{
			"injected": len(decision.Items),
		})
	}
	if len(decision.Items) > 0 {
		_ = hookenv.WriteOutput(os.Stdout, "PreToolUse", formatInjectedContext(decision))
	}
	return 0
}

func recordFailure(ctx context.Context, c Components, hookName string, in hookenv.Input, cause error) {
	if c.Events == nil {
		return
	}
	triad := firstNonEmpty(in.TriadID(), "system")
	_, _ = c.Events.CaptureError(ctx, triad, in.SessionID(), hookName, cause.Error(), nil)
}

// allProcessKnowledge gathers every triad's active process-knowledge
// items into one pool for Rank to score against.
func allProcessKnowledge(c Components) ([]schema.ProcessKnowledgeV1, error) {
	triads, err := c.Graph.ListTriads()
	if err != nil {
		return nil, err
	}
	var all []schema.ProcessKnowledgeV1
	for _, triad := range triads {
		items, err := c.Tracker.LoadKnowledge(triad)
		if err != nil {
			continue
		}
		all = append(all, items...)
	}
	return all, nil
}

// recentPrompts returns up to limit of the most recently submitted
// prompts for triad, oldest first, as recorded by UserPromptSubmit.
func recentPrompts(c Components, triad string, limit int) ([]string, error) {
	if c.Events == nil || triad == "" {
		return nil, nil
	}
	evs, err := c.Events.Query(triad, schema.EventFiltersV1{Predicate: "submitted", Limit: limit})
	if err != nil {
		return nil, err
	}
	// Query's default order is newest-first; reverse back to oldest-first.
	out := make([]string, 0, len(evs))
	for i := len(evs) - 1; i >= 0; i-- {
		out = append(out, evs[i].Object)
	}
	return out, nil
}

func blockMessage(d experience.Decision) string {
	if len(d.Items) == 0 {
		return "triadctl: blocked"
	}
	top := d.Items[0].Item
	return fmt.Sprintf("triadctl: blocked — %s (confidence %.2f): %s", top.Title, top.Confidence, top.Content)
}

func formatInjectedContext(d experience.Decision) string {
	out := "triadctl process knowledge:\n"
	for _, scored := range d.Items {
		out += fmt.Sprintf("- [%s] %s (score %.2f)\n", scored.Item.Priority, scored.Item.Title, scored.Score)
	}
	return out
}
