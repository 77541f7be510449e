package hooks

import (
	"context"
	"fmt"

	"github.com/marcohefti/triadctl/internal/hookenv"
	"github.com/marcohefti/triadctl/internal/schema"
	"github.com/marcohefti/triadctl/internal/tracker"
)

// SessionStart is a pure observational hook: the envelope's execution
// event is the whole point, so the active workspace (if any) can be
// correlated against session starts later via C2.
func SessionStart(c Components) hookenv.Body {
	return func(ctx context.Context, in hookenv.Input, activeWorkspaceID string) (hookenv.Result, error) {
		return hookenv.Result{}, nil
	}
}

// SessionEnd auto-pauses the active workspace (C6) and, when that
// workspace's triad has pending unresolved injections, resolves their
// outcomes against the transcript before the session state disappears.
func SessionEnd(c Components) hookenv.Body {
	return func(ctx context.Context, in hookenv.Input, activeWorkspaceID string) (hookenv.Result, error) {
		paused, err := c.Workspace.AutoPauseOnSessionEnd()
		if err != nil {
			return hookenv.Result{}, err
		}
		if paused == nil || c.Tracker == nil {
			return hookenv.Result{}, nil
		}
		if err := resolveSessionOutcomes(c, paused.TriadID, in.SessionID(), in.Response()); err != nil {
			return hookenv.Result{}, err
		}
		return hookenv.Result{}, nil
	}
}

// resolveSessionOutcomes scans the session's injection records against
// responseText, applies any newly detected outcome's confidence update to
// the originating knowledge item, and persists both.
func resolveSessionOutcomes(c Components, triadID, sessionID, responseText string) error {
	if triadID == "" || sessionID == "" || responseText == "" {
		return nil
	}
	records, err := c.Tracker.BySession(triadID, sessionID)
	if err != nil || len(records) == 0 {
		return err
	}
	items, err := c.Tracker.LoadKnowledge(triadID)
	if err != nil {
		return err
	}
	labels := make(map[string]string, len(items))
	byID := make(map[string]int, len(items))
	for i, item := range items {
		labels[item.ID] = item.Title
		byID[item.ID] = i
	}

	resolved := tracker.ResolveOutcomes(records, labels, responseText)

	all, err := c.Tracker.AllInjections(triadID)
	if err != nil {
		return err
	}
	byRecordID := make(map[string]schema.InjectionRecordV1, len(resolved))
	for _, rec := range resolved {
		byRecordID[rec.ID] = rec
	}
	for i, rec := range all {
		if updated, ok := byRecordID[rec.ID]; ok {
			all[i] = updated
		}
	}
	if err := c.Tracker.RewriteInjections(triadID, all); err != nil {
		return err
	}

	changed := false
	for _, rec := range resolved {
		if rec.Outcome == "" {
			continue
		}
		idx, ok := byID[rec.KnowledgeID]
		if !ok {
			continue
		}
		items[idx] = tracker.ApplyOutcomeToItem(items[idx], tracker.Outcome(rec.Outcome))
		changed = true
	}
	if changed {
		if err := c.Tracker.SaveKnowledge(triadID, items); err != nil {
			return err
		}
	}
	return nil
}

// UserPromptSubmit records the prompt so PreToolUse's context-keyword
// scoring has recent inputs to draw on; it never blocks or injects.
func UserPromptSubmit(c Components) hookenv.Body {
	return func(ctx context.Context, in hookenv.Input, activeWorkspaceID string) (hookenv.Result, error) {
		if c.Events == nil || in.Prompt() == "" {
			return hookenv.Result{}, nil
		}
		triad := firstNonEmpty(in.TriadID(), "system")
		_, err := c.Events.Capture(ctx, schema.EventV1{
			TriadID:   triad,
			SessionID: in.SessionID(),
			Subject:   "prompt",
			Predicate: "submitted",
			Object:    in.Prompt(),
		})
		return hookenv.Result{SuppressExecutionEvent: true}, err
	}
}

// PostToolUse is observational: the execution event alone is the signal
// downstream reporting (workflow metrics, tracker reports) reads.
func PostToolUse(c Components) hookenv.Body {
	return func(ctx context.Context, in hookenv.Input, activeWorkspaceID string) (hookenv.Result, error) {
		return hookenv.Result{}, nil
	}
}

// PermissionRequest is observational only; triadctl has no veto over the
// host's own permission prompt.
func PermissionRequest(c Components) hookenv.Body {
	return func(ctx context.Context, in hookenv.Input, activeWorkspaceID string) (hookenv.Result, error) {
		return hookenv.Result{}, nil
	}
}

// Stop dispatches the assistant's final response text to the stop-hook
// orchestrator (C8), which extracts and applies every recognized block.
func Stop(c Components) hookenv.Body {
	return func(ctx context.Context, in hookenv.Input, activeWorkspaceID string) (hookenv.Result, error) {
		if c.Orchestrator == nil {
			return hookenv.Result{}, nil
		}
		results := c.Orchestrator.Process(ctx, in.SessionID(), in.TriadID(), in.Response())
		total, applied := 0, 0
		for _, res := range results {
			total += res.Count
			applied += res.Applied
		}
		if total == 0 {
			return hookenv.Result{SuppressExecutionEvent: true}, nil
		}
		return hookenv.Result{AdditionalContext: fmt.Sprintf("triadctl: applied %d/%d blocks", applied, total)}, nil
	}
}

// SubagentStop is observational; StopHookActive tells the orchestrator
// nothing it doesn't already get from the response text, so this is a
// thin execution-event marker.
func SubagentStop(c Components) hookenv.Body {
	return func(ctx context.Context, in hookenv.Input, activeWorkspaceID string) (hookenv.Result, error) {
		return hookenv.Result{}, nil
	}
}

// PreCompact is observational; a future enrichment could snapshot
// workflow/graph summaries into CustomInstructions before a compaction,
// but nothing in SPEC_FULL.md requires it today.
func PreCompact(c Components) hookenv.Body {
	return func(ctx context.Context, in hookenv.Input, activeWorkspaceID string) (hookenv.Result, error) {
		return hookenv.Result{}, nil
	}
}

// Notification is observational.
func Notification(c Components) hookenv.Body {
	return func(ctx context.Context, in hookenv.Input, activeWorkspaceID string) (hookenv.Result, error) {
		return hookenv.Result{}, nil
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
