package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/marcohefti/triadctl/internal/contract"
	"github.com/marcohefti/triadctl/internal/events"
	"github.com/marcohefti/triadctl/internal/graph"
	"github.com/marcohefti/triadctl/internal/schema"
	"github.com/marcohefti/triadctl/internal/tracker"
	"github.com/marcohefti/triadctl/internal/workflow"
	"github.com/marcohefti/triadctl/internal/workspace"
)

// DefaultHandoffExpiryHours is stamped on a queued handoff when the block
// did not specify one.
const DefaultHandoffExpiryHours = 72

// Orchestrator wires the five block handlers to the component stores
// that own their effects.
type Orchestrator struct {
	outRoot   string
	Graph     *graph.Store
	Tracker   *tracker.Store
	Workspace *workspace.Store
	Workflow  *workflow.Store
	Events    *events.Store
}

func New(outRoot string, g *graph.Store, tr *tracker.Store, ws *workspace.Store, wf *workflow.Store, ev *events.Store) *Orchestrator {
	return &Orchestrator{outRoot: outRoot, Graph: g, Tracker: tr, Workspace: ws, Workflow: wf, Events: ev}
}

func (o *Orchestrator) pendingHandoffPath() string {
	return filepath.Join(o.outRoot, ".pending_handoff.json")
}

func (o *Orchestrator) kmQueuePath() string {
	return filepath.Join(o.outRoot, "km_queue.json")
}

// Results aggregates one BlockResult per dispatched tag.
type Results map[string]*contract.BlockResult

func (r Results) forTag(tag string) *contract.BlockResult {
	res, ok := r[tag]
	if !ok {
		res = &contract.BlockResult{}
		r[tag] = res
	}
	return res
}

// Process extracts every recognized block from text and dispatches each
// to its handler. Pre-flight checks run first so vetoed triads can be
// excluded from the graph-update pass; every other block type is
// independent — one handler's error is recorded on its own BlockResult
// and never stops the others. sessionID/triadHint are used when a block
// omits an explicit "triad" field and the caller can supply a fallback
// (offline tooling may pass "").
func (o *Orchestrator) Process(ctx context.Context, sessionID, triadHint, text string) Results {
	blocks := ExtractBlocks(text)
	results := Results{}

	vetoed := map[string]bool{}
	var pendingGraphUpdates []RawBlock

	for _, b := range blocks {
		switch b.Tag {
		case TagPreFlightCheck:
			o.dispatchPreFlightCheck(b, triadHint, results, vetoed)
		case TagGraphUpdate:
			// Deferred until every PRE_FLIGHT_CHECK block in this batch
			// has been evaluated.
			pendingGraphUpdates = append(pendingGraphUpdates, b)
		case TagProcessKnowledge:
			o.dispatchProcessKnowledge(b, triadHint, results)
		case TagHandoffRequest:
			o.dispatchHandoffRequest(b, triadHint, results)
		case TagWorkflowComplete:
			o.dispatchWorkflowComplete(b, triadHint, results)
		}
	}

	for _, b := range pendingGraphUpdates {
		o.dispatchGraphUpdate(b, triadHint, results, vetoed)
	}

	if o.Events != nil {
		total, applied := 0, 0
		for _, res := range results {
			total += res.Count
			applied += res.Applied
		}
		_, _ = o.Events.Capture(ctx, schema.EventV1{
			TriadID:   firstNonEmpty(triadHint, "system"),
			SessionID: sessionID,
			Subject:   "stop_hook",
			Predicate: "stop_hook.dispatched",
			Object:    fmt.Sprintf("%d/%d applied", applied, total),
			ObjectData: map[string]any{
				"blockCount": len(blocks),
			},
		})
	}

	return results
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
