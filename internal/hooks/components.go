// Package hooks implements the per-event bodies cmd/hooks/* entry points
// call through internal/hookenv.Env.Run: the part of each Claude Code
// lifecycle hook that is specific to triadctl, as opposed to the shared
// stdin-read/recover/event-recording envelope.
package hooks

import (
	"github.com/marcohefti/triadctl/internal/config"
	"github.com/marcohefti/triadctl/internal/events"
	"github.com/marcohefti/triadctl/internal/graph"
	"github.com/marcohefti/triadctl/internal/hookenv"
	"github.com/marcohefti/triadctl/internal/orchestrator"
	"github.com/marcohefti/triadctl/internal/providers"
	"github.com/marcohefti/triadctl/internal/tracker"
	"github.com/marcohefti/triadctl/internal/workflow"
	"github.com/marcohefti/triadctl/internal/workspace"
)

// Components wires every store a hook body might need, built once per
// process invocation from the resolved output root.
type Components struct {
	OutRoot      string
	Events       *events.Store
	Graph        *graph.Store
	Tracker      *tracker.Store
	Workspace    *workspace.Store
	Workflow     *workflow.Store
	Orchestrator *orchestrator.Orchestrator
}

// NewComponents resolves the output root (flag/env/project/global/default,
// per internal/config.LoadMerged) and constructs every store against it.
func NewComponents(flagOutRoot string) (Components, error) {
	m, err := config.LoadMerged(flagOutRoot)
	if err != nil {
		return Components{}, err
	}

	ev := events.NewStore(m.OutRoot, events.Limits{EventsPerSecond: 20, Burst: 40})
	if rules, err := config.LoadRedactionMerged(); err == nil {
		ev.SetExtraRules(config.CompileRedactionRules(rules))
	}
	g := graph.NewStore(m.OutRoot)
	tr := tracker.NewStore(m.OutRoot)
	ws := workspace.NewStore(m.OutRoot, ev)

	registry := providers.NewRegistry()
	registry.MustRegister(providers.NewVCSProvider(m.OutRoot))
	wf := workflow.NewStore(m.OutRoot, registry)

	orch := orchestrator.New(m.OutRoot, g, tr, ws, wf, ev)

	return Components{
		OutRoot:      m.OutRoot,
		Events:       ev,
		Graph:        g,
		Tracker:      tr,
		Workspace:    ws,
		Workflow:     wf,
		Orchestrator: orch,
	}, nil
}

// Env builds the hookenv.Env every cmd/hooks binary runs its body
// through.
func (c Components) Env() *hookenv.Env {
	return &hookenv.Env{Events: c.Events, Workspace: c.Workspace}
}
