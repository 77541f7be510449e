package hookenv

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/marcohefti/triadctl/internal/events"
	"github.com/marcohefti/triadctl/internal/logx"
	"github.com/marcohefti/triadctl/internal/workspace"
)

// Env wires the dependencies every hook entry point shares.
type Env struct {
	Events    *events.Store
	Workspace *workspace.Store
	Stderr    io.Writer
}

// Body is one hook's actual work. activeWorkspaceID is "" when no
// workspace is currently active. AdditionalContext, when non-empty, is
// written to stdout per the non-blocking hook protocol after Run
// records its execution event.
type Body func(ctx context.Context, in Input, activeWorkspaceID string) (Result, error)

// Result is what a hook body hands back to Run.
type Result struct {
	AdditionalContext      string
	SuppressExecutionEvent bool
}

// Run is the standard hook envelope (C9):
//  1. read stdin as tolerant JSON,
//  2. look up the active workspace,
//  3. call body inside a recover-guarded wrapper — any panic or returned
//     error is downgraded to a logged failure event, never a crash,
//  4. record an execution event unless body suppressed it,
//  5. print the non-blocking stdout protocol line if body produced
//     additional context.
//
// Run always returns 0. The one exception to "hooks always exit 0" is
// C4's pre-tool blocking path, which does not go through Run at all —
// it writes to stderr and calls os.Exit(2) itself.
func (e *Env) Run(ctx context.Context, eventName, hookName string, stdin io.Reader, body Body) int {
	in := ReadInput(stdin)

	var activeWorkspaceID string
	if e.Workspace != nil {
		if id, err := e.Workspace.GetActive(); err == nil {
			activeWorkspaceID = id
		}
	}

	start := time.Now()
	result, err := e.safeCall(ctx, in, activeWorkspaceID, body)
	if err != nil {
		e.recordFailure(ctx, hookName, in, activeWorkspaceID, err)
		e.log().Error().Str("hook", hookName).Err(err).Msg("hook body failed")
		return 0
	}

	if !result.SuppressExecutionEvent {
		e.recordExecution(ctx, hookName, in, activeWorkspaceID, start)
	}
	if result.AdditionalContext != "" {
		_ = WriteOutput(os.Stdout, eventName, result.AdditionalContext)
	}
	return 0
}

func (e *Env) safeCall(ctx context.Context, in Input, activeWorkspaceID string, body Body) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panic: %v", r)
		}
	}()
	return body(ctx, in, activeWorkspaceID)
}

func (e *Env) recordFailure(ctx context.Context, hookName string, in Input, workspaceID string, cause error) {
	if e.Events == nil {
		return
	}
	triad := firstNonEmpty(in.TriadID(), "system")
	_, _ = e.Events.CaptureError(ctx, triad, in.SessionID(), hookName, cause.Error(), map[string]any{"workspaceId": workspaceID})
}

func (e *Env) recordExecution(ctx context.Context, hookName string, in Input, workspaceID string, start time.Time) {
	if e.Events == nil {
		return
	}
	triad := firstNonEmpty(in.TriadID(), "system")
	_, _ = e.Events.CaptureExecution(ctx, triad, in.SessionID(), hookName, "success", map[string]any{
		"workspaceId":     workspaceID,
		"executionTimeMs": time.Since(start).Milliseconds(),
	})
}

// log builds the advisory logger for this hook invocation; diagnostics
// here go to a channel the host does not capture (spec §4.9) and never
// affect the exit code.
func (e *Env) log() zerolog.Logger {
	w := e.Stderr
	if w == nil {
		w = os.Stderr
	}
	return logx.New(w, "hookenv")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
