// Package cli implements triadctl's operator-facing command surface: the
// subset of C2-C8 operations useful outside the hook lifecycle itself
// (init, doctor, querying events/graphs/workspaces, workflow status and
// emergency bypass, tracker reports, retention gc) plus `contract`, the
// machine-readable description of the whole surface.
package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/marcohefti/triadctl/internal/config"
	"github.com/marcohefti/triadctl/internal/contract"
	"github.com/marcohefti/triadctl/internal/events"
	"github.com/marcohefti/triadctl/internal/graph"
	"github.com/marcohefti/triadctl/internal/pin"
	"github.com/marcohefti/triadctl/internal/providers"
	"github.com/marcohefti/triadctl/internal/retention"
	"github.com/marcohefti/triadctl/internal/schema"
	"github.com/marcohefti/triadctl/internal/tracker"
	"github.com/marcohefti/triadctl/internal/workflow"
	"github.com/marcohefti/triadctl/internal/workspace"
)

// Runner is the entry point a thin cmd/triadctl/main.go delegates to.
type Runner struct {
	Version string
	Now     func() time.Time
	Stdout  io.Writer
	Stderr  io.Writer
}

func (r Runner) Run(args []string) int {
	if r.Stdout == nil {
		r.Stdout = os.Stdout
	}
	if r.Stderr == nil {
		r.Stderr = os.Stderr
	}
	if r.Now == nil {
		r.Now = time.Now
	}

	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printRootHelp(r.Stdout)
		return 0
	}

	switch args[0] {
	case "contract":
		return r.runContract(args[1:])
	case "init":
		return r.runInit(args[1:])
	case "doctor":
		return r.runDoctor(args[1:])
	case "events":
		return r.runEvents(args[1:])
	case "graph":
		return r.runGraph(args[1:])
	case "workflow":
		return r.runWorkflow(args[1:])
	case "workspace":
		return r.runWorkspace(args[1:])
	case "tracker":
		return r.runTracker(args[1:])
	case "gc":
		return r.runGC(args[1:])
	case "version":
		fmt.Fprintf(r.Stdout, "%s\n", r.Version)
		return 0
	default:
		fmt.Fprintf(r.Stderr, "E_USAGE: unknown command %q\n", args[0])
		printRootHelp(r.Stderr)
		return 2
	}
}

func (r Runner) runContract(args []string) int {
	fs := flag.NewFlagSet("contract", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	jsonOut := fs.Bool("json", false, "print JSON output")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("contract: invalid flags")
	}
	if *help {
		printContractHelp(r.Stdout)
		return 0
	}
	if !*jsonOut {
		printContractHelp(r.Stderr)
		return r.failUsage("contract: require --json for stable output")
	}
	return r.writeJSON(contract.Build(r.Version))
}

func (r Runner) runInit(args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outRoot := fs.String("out-root", "", "project output root (default from config/env, else .triads)")
	configPath := fs.String("config", config.DefaultProjectConfigPath, "project config path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("init: invalid flags")
	}
	if *help {
		printInitHelp(r.Stdout)
		return 0
	}

	m, err := config.LoadMerged(*outRoot)
	if err != nil {
		return r.failIO(err)
	}
	res, err := config.InitProject(*configPath, m.OutRoot)
	if err != nil {
		return r.failIO(err)
	}
	if *jsonOut {
		return r.writeJSON(res)
	}
	fmt.Fprintf(r.Stdout, "init: OK outRoot=%s config=%s created=%v\n", res.OutRoot, res.ConfigPath, res.Created)
	return 0
}

type doctorCheck struct {
	ID      string `json:"id"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type doctorResult struct {
	OK      bool          `json:"ok"`
	OutRoot string        `json:"outRoot"`
	Checks  []doctorCheck `json:"checks"`
}

func (r Runner) runDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outRoot := fs.String("out-root", "", "project output root")
	jsonOut := fs.Bool("json", false, "print JSON output")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("doctor: invalid flags")
	}
	if *help {
		printDoctorHelp(r.Stdout)
		return 0
	}

	m, err := config.LoadMerged(*outRoot)
	if err != nil {
		return r.failIO(err)
	}
	res := doctorResult{OutRoot: m.OutRoot, OK: true}

	if err := os.MkdirAll(m.OutRoot, 0o755); err != nil {
		res.Checks = append(res.Checks, doctorCheck{ID: "out-root-writable", OK: false, Message: err.Error()})
		res.OK = false
	} else {
		probe := m.OutRoot + "/.doctor-probe"
		if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
			res.Checks = append(res.Checks, doctorCheck{ID: "out-root-writable", OK: false, Message: err.Error()})
			res.OK = false
		} else {
			_ = os.Remove(probe)
			res.Checks = append(res.Checks, doctorCheck{ID: "out-root-writable", OK: true})
		}
	}

	if _, err := config.LoadRedactionMerged(); err != nil {
		res.Checks = append(res.Checks, doctorCheck{ID: "redaction-config-parse", OK: false, Message: err.Error()})
		res.OK = false
	} else {
		res.Checks = append(res.Checks, doctorCheck{ID: "redaction-config-parse", OK: true})
	}

	if *jsonOut {
		return r.writeJSON(res)
	}
	if res.OK {
		fmt.Fprintf(r.Stdout, "doctor: OK outRoot=%s\n", res.OutRoot)
		return 0
	}
	fmt.Fprintf(r.Stderr, "doctor: FAIL outRoot=%s\n", res.OutRoot)
	for _, c := range res.Checks {
		if !c.OK {
			fmt.Fprintf(r.Stderr, "  FAIL %s: %s\n", c.ID, c.Message)
		}
	}
	return 1
}

func (r Runner) runEvents(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		printEventsHelp(r.Stdout)
		return 0
	}
	switch args[0] {
	case "query":
		return r.runEventsQuery(args[1:])
	case "get-by-id":
		return r.runEventsGetByID(args[1:])
	default:
		fmt.Fprintf(r.Stderr, "E_USAGE: unknown events subcommand %q\n", args[0])
		printEventsHelp(r.Stderr)
		return 2
	}
}

func (r Runner) runEventsQuery(args []string) int {
	fs := flag.NewFlagSet("events query", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outRoot := fs.String("out-root", "", "project output root")
	triad := fs.String("triad", "", "triad id (required)")
	workspaceID := fs.String("workspace-id", "", "filter by workspace id")
	subject := fs.String("subject", "", "filter by subject")
	predicate := fs.String("predicate", "", "filter by predicate")
	since := fs.String("since", "", "RFC3339 lower bound (inclusive)")
	until := fs.String("until", "", "RFC3339 upper bound (exclusive)")
	search := fs.String("search", "", "case-insensitive full-text search (subject/predicate/object/objectData)")
	sortBy := fs.String("sort-by", "", "sort field (default timestamp)")
	sortOrder := fs.String("sort-order", "", "asc|desc (default desc)")
	offset := fs.Int("offset", 0, "skip this many matching events before paginating")
	limit := fs.Int("limit", 0, "max events returned, newest first (0 = no limit)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("events query: invalid flags")
	}
	if *help {
		printEventsQueryHelp(r.Stdout)
		return 0
	}
	if strings.TrimSpace(*triad) == "" {
		printEventsQueryHelp(r.Stderr)
		return r.failUsage("events query: missing --triad")
	}

	m, err := config.LoadMerged(*outRoot)
	if err != nil {
		return r.failIO(err)
	}
	store := events.NewStore(m.OutRoot, events.Limits{})
	evs, err := store.Query(*triad, schema.EventFiltersV1{
		WorkspaceID: *workspaceID,
		Subject:     *subject,
		Predicate:   *predicate,
		Since:       *since,
		Until:       *until,
		Search:      *search,
		SortBy:      *sortBy,
		SortOrder:   *sortOrder,
		Offset:      *offset,
		Limit:       *limit,
	})
	if err != nil {
		return r.failIO(err)
	}
	if *jsonOut {
		return r.writeJSON(evs)
	}
	for _, ev := range evs {
		fmt.Fprintf(r.Stdout, "%s %s %s %s\n", ev.Timestamp, ev.TriadID, ev.Predicate, ev.Object)
	}
	return 0
}

func (r Runner) runEventsGetByID(args []string) int {
	fs := flag.NewFlagSet("events get-by-id", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outRoot := fs.String("out-root", "", "project output root")
	triad := fs.String("triad", "", "triad id (required)")
	id := fs.String("id", "", "event id (required)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("events get-by-id: invalid flags")
	}
	if *help {
		printEventsGetByIDHelp(r.Stdout)
		return 0
	}
	if strings.TrimSpace(*triad) == "" || strings.TrimSpace(*id) == "" {
		printEventsGetByIDHelp(r.Stderr)
		return r.failUsage("events get-by-id: missing --triad or --id")
	}

	m, err := config.LoadMerged(*outRoot)
	if err != nil {
		return r.failIO(err)
	}
	store := events.NewStore(m.OutRoot, events.Limits{})
	ev, ok, err := store.GetByID(*triad, *id)
	if err != nil {
		return r.failIO(err)
	}
	if !ok {
		return r.failNotFound(fmt.Sprintf("event %q not found", *id))
	}
	if *jsonOut {
		return r.writeJSON(ev)
	}
	fmt.Fprintf(r.Stdout, "%s %s %s %s\n", ev.Timestamp, ev.TriadID, ev.Predicate, ev.Object)
	return 0
}

func (r Runner) runGraph(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		printGraphHelp(r.Stdout)
		return 0
	}
	switch args[0] {
	case "show":
		return r.runGraphShow(args[1:])
	case "repair":
		return r.runGraphRepair(args[1:])
	case "watch":
		return r.runGraphWatch(args[1:])
	default:
		fmt.Fprintf(r.Stderr, "E_USAGE: unknown graph subcommand %q\n", args[0])
		printGraphHelp(r.Stderr)
		return 2
	}
}

func (r Runner) runGraphShow(args []string) int {
	fs := flag.NewFlagSet("graph show", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outRoot := fs.String("out-root", "", "project output root")
	triad := fs.String("triad", "", "triad id (required)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("graph show: invalid flags")
	}
	if *help {
		printGraphShowHelp(r.Stdout)
		return 0
	}
	if strings.TrimSpace(*triad) == "" {
		printGraphShowHelp(r.Stderr)
		return r.failUsage("graph show: missing --triad")
	}

	m, err := config.LoadMerged(*outRoot)
	if err != nil {
		return r.failIO(err)
	}
	store := graph.NewStore(m.OutRoot)
	g, err := store.Load(*triad)
	if err != nil {
		return r.failIO(err)
	}
	if *jsonOut {
		return r.writeJSON(g)
	}
	fmt.Fprintf(r.Stdout, "triad=%s nodes=%d edges=%d updatedAt=%s\n", g.TriadID, len(g.Nodes), len(g.Edges), g.UpdatedAt)
	return 0
}

func (r Runner) runGraphRepair(args []string) int {
	fs := flag.NewFlagSet("graph repair", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outRoot := fs.String("out-root", "", "project output root")
	triad := fs.String("triad", "", "triad id (required)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("graph repair: invalid flags")
	}
	if *help {
		printGraphRepairHelp(r.Stdout)
		return 0
	}
	if strings.TrimSpace(*triad) == "" {
		printGraphRepairHelp(r.Stderr)
		return r.failUsage("graph repair: missing --triad")
	}

	m, err := config.LoadMerged(*outRoot)
	if err != nil {
		return r.failIO(err)
	}
	store := graph.NewStore(m.OutRoot)
	res, err := store.Repair(*triad)
	if err != nil {
		return r.failIO(err)
	}
	if *jsonOut {
		return r.writeJSON(res)
	}
	fmt.Fprintf(r.Stdout, "graph repair: removedNodes=%d removedEdges=%d\n", len(res.RemovedNodes), len(res.RemovedEdges))
	return 0
}

// runGraphWatch blocks, invalidating the in-process graph cache whenever
// another process writes triad's graph.json, until interrupted. Useful
// for a long-lived operator shell alongside hook-driven writers.
func (r Runner) runGraphWatch(args []string) int {
	fs := flag.NewFlagSet("graph watch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outRoot := fs.String("out-root", "", "project output root")
	triad := fs.String("triad", "", "triad id (required)")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("graph watch: invalid flags")
	}
	if *help {
		printGraphWatchHelp(r.Stdout)
		return 0
	}
	if strings.TrimSpace(*triad) == "" {
		printGraphWatchHelp(r.Stderr)
		return r.failUsage("graph watch: missing --triad")
	}

	m, err := config.LoadMerged(*outRoot)
	if err != nil {
		return r.failIO(err)
	}
	store := graph.NewStore(m.OutRoot)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(r.Stdout, "watching triad=%s (ctrl-c to stop)\n", *triad)
	if err := store.Watch(ctx, *triad); err != nil {
		return r.failIO(err)
	}
	return 0
}

func (r Runner) runWorkflow(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		printWorkflowHelp(r.Stdout)
		return 0
	}
	switch args[0] {
	case "status":
		return r.runWorkflowStatus(args[1:])
	case "bypass":
		return r.runWorkflowBypass(args[1:])
	default:
		fmt.Fprintf(r.Stderr, "E_USAGE: unknown workflow subcommand %q\n", args[0])
		printWorkflowHelp(r.Stderr)
		return 2
	}
}

func (r Runner) newWorkflowStore(outRoot string) *workflow.Store {
	registry := providers.NewRegistry()
	registry.MustRegister(providers.NewVCSProvider("."))
	return workflow.NewStore(outRoot, registry)
}

func (r Runner) runWorkflowStatus(args []string) int {
	fs := flag.NewFlagSet("workflow status", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outRoot := fs.String("out-root", "", "project output root")
	triad := fs.String("triad", "", "triad id (required)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("workflow status: invalid flags")
	}
	if *help {
		printWorkflowStatusHelp(r.Stdout)
		return 0
	}
	if strings.TrimSpace(*triad) == "" {
		printWorkflowStatusHelp(r.Stderr)
		return r.failUsage("workflow status: missing --triad")
	}

	m, err := config.LoadMerged(*outRoot)
	if err != nil {
		return r.failIO(err)
	}
	state, err := r.newWorkflowStore(m.OutRoot).Load(*triad)
	if err != nil {
		return r.failIO(err)
	}
	if *jsonOut {
		return r.writeJSON(state)
	}
	fmt.Fprintf(r.Stdout, "triad=%s phase=%s updatedAt=%s\n", state.TriadID, state.Phase, state.UpdatedAt)
	return 0
}

func (r Runner) runWorkflowBypass(args []string) int {
	fs := flag.NewFlagSet("workflow bypass", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outRoot := fs.String("out-root", "", "project output root")
	triad := fs.String("triad", "", "triad id (required)")
	target := fs.String("to", workflow.PhaseDeployment, "target phase for the bypassed transition")
	justification := fs.String("justification", "", "mandatory audit justification (required)")
	actor := fs.String("actor", "operator", "actor recorded in the audit entry")
	jsonOut := fs.Bool("json", false, "print JSON output")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("workflow bypass: invalid flags")
	}
	if *help {
		printWorkflowBypassHelp(r.Stdout)
		return 0
	}
	if strings.TrimSpace(*triad) == "" {
		printWorkflowBypassHelp(r.Stderr)
		return r.failUsage("workflow bypass: missing --triad")
	}
	if err := workflow.ValidateJustification(*justification); err != nil {
		printWorkflowBypassHelp(r.Stderr)
		return r.failUsage("workflow bypass: " + err.Error())
	}

	m, err := config.LoadMerged(*outRoot)
	if err != nil {
		return r.failIO(err)
	}
	bypass := &schema.AuditEntryV1{
		Timestamp:     r.Now().UTC().Format(time.RFC3339),
		TriadID:       *triad,
		Actor:         *actor,
		Action:        "emergency_bypass",
		Justification: *justification,
	}
	state, err := r.newWorkflowStore(m.OutRoot).Transition(*triad, *target, nil, workflow.Flags{}, bypass)
	if err != nil {
		return r.failIO(err)
	}
	if *jsonOut {
		return r.writeJSON(state)
	}
	fmt.Fprintf(r.Stdout, "workflow bypass: OK triad=%s phase=%s\n", state.TriadID, state.Phase)
	return 0
}

func (r Runner) runWorkspace(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		printWorkspaceHelp(r.Stdout)
		return 0
	}
	switch args[0] {
	case "list":
		return r.runWorkspaceList(args[1:])
	case "pin":
		return r.runWorkspacePin(args[1:])
	default:
		fmt.Fprintf(r.Stderr, "E_USAGE: unknown workspace subcommand %q\n", args[0])
		printWorkspaceHelp(r.Stderr)
		return 2
	}
}

func (r Runner) runWorkspacePin(args []string) int {
	fs := flag.NewFlagSet("workspace pin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outRoot := fs.String("out-root", "", "project output root")
	workspaceID := fs.String("workspace-id", "", "workspace id (required)")
	unpin := fs.Bool("unpin", false, "clear the pin instead of setting it")
	jsonOut := fs.Bool("json", false, "print JSON output")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("workspace pin: invalid flags")
	}
	if *help {
		printWorkspacePinHelp(r.Stdout)
		return 0
	}
	if strings.TrimSpace(*workspaceID) == "" {
		printWorkspacePinHelp(r.Stderr)
		return r.failUsage("workspace pin: missing --workspace-id")
	}

	m, err := config.LoadMerged(*outRoot)
	if err != nil {
		return r.failIO(err)
	}
	res, err := pin.Set(pin.Opts{OutRoot: m.OutRoot, WorkspaceID: *workspaceID, Pinned: !*unpin})
	if err != nil {
		return r.failIO(err)
	}
	if *jsonOut {
		return r.writeJSON(res)
	}
	fmt.Fprintf(r.Stdout, "workspace pin: OK workspaceId=%s pinned=%v\n", res.WorkspaceID, res.Pinned)
	return 0
}

func (r Runner) runWorkspaceList(args []string) int {
	fs := flag.NewFlagSet("workspace list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outRoot := fs.String("out-root", "", "project output root")
	triad := fs.String("triad", "", "optional triad filter")
	jsonOut := fs.Bool("json", false, "print JSON output")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("workspace list: invalid flags")
	}
	if *help {
		printWorkspaceListHelp(r.Stdout)
		return 0
	}

	m, err := config.LoadMerged(*outRoot)
	if err != nil {
		return r.failIO(err)
	}
	ev := events.NewStore(m.OutRoot, events.Limits{})
	ws := workspace.NewStore(m.OutRoot, ev)
	list, err := ws.List(*triad)
	if err != nil {
		return r.failIO(err)
	}
	if *jsonOut {
		return r.writeJSON(list)
	}
	for _, w := range list {
		fmt.Fprintf(r.Stdout, "%s %s %s %s\n", w.ID, w.TriadID, w.Status, w.Title)
	}
	return 0
}

func (r Runner) runTracker(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		printTrackerHelp(r.Stdout)
		return 0
	}
	switch args[0] {
	case "report":
		return r.runTrackerReport(args[1:])
	default:
		fmt.Fprintf(r.Stderr, "E_USAGE: unknown tracker subcommand %q\n", args[0])
		printTrackerHelp(r.Stderr)
		return 2
	}
}

type trackerBandCount struct {
	Band  string `json:"band"`
	Count int    `json:"count"`
}

type trackerReport struct {
	TriadID       string              `json:"triadId"`
	KnowledgeItems int                `json:"knowledgeItems"`
	Active        int                 `json:"active"`
	Deprecated    int                 `json:"deprecated"`
	NeedsValidation int               `json:"needsValidation"`
	ConfidenceBands []trackerBandCount `json:"confidenceBands"`
}

func (r Runner) runTrackerReport(args []string) int {
	fs := flag.NewFlagSet("tracker report", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outRoot := fs.String("out-root", "", "project output root")
	triad := fs.String("triad", "", "triad id (required)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("tracker report: invalid flags")
	}
	if *help {
		printTrackerReportHelp(r.Stdout)
		return 0
	}
	if strings.TrimSpace(*triad) == "" {
		printTrackerReportHelp(r.Stderr)
		return r.failUsage("tracker report: missing --triad")
	}

	m, err := config.LoadMerged(*outRoot)
	if err != nil {
		return r.failIO(err)
	}
	store := tracker.NewStore(m.OutRoot)
	items, err := store.LoadKnowledge(*triad)
	if err != nil {
		return r.failIO(err)
	}

	report := trackerReport{TriadID: *triad, KnowledgeItems: len(items)}
	bands := map[string]int{}
	for _, item := range items {
		if item.Deprecated {
			report.Deprecated++
		} else {
			report.Active++
		}
		if item.NeedsValidation {
			report.NeedsValidation++
		}
		bands[tracker.ConfidenceBand(item.Confidence)]++
	}
	for _, band := range []string{"0.90-1.00", "0.80-0.90", "0.70-0.80", "0.60-0.70"} {
		if n, ok := bands[band]; ok {
			report.ConfidenceBands = append(report.ConfidenceBands, trackerBandCount{Band: band, Count: n})
		}
	}

	if *jsonOut {
		return r.writeJSON(report)
	}
	fmt.Fprintf(r.Stdout, "triad=%s items=%d active=%d deprecated=%d needsValidation=%d\n",
		report.TriadID, report.KnowledgeItems, report.Active, report.Deprecated, report.NeedsValidation)
	return 0
}

func (r Runner) runGC(args []string) int {
	fs := flag.NewFlagSet("gc", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outRoot := fs.String("out-root", "", "project output root")
	maxAgeDays := fs.Int("max-age-days", 30, "delete backups older than N days beyond --keep-n; 0 disables age pruning")
	keepN := fs.Int("keep-n", 5, "always keep the newest N backups per triad artifact")
	dryRun := fs.Bool("dry-run", false, "print what would be deleted without deleting")
	jsonOut := fs.Bool("json", false, "print JSON output")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("gc: invalid flags")
	}
	if *help {
		printGCHelp(r.Stdout)
		return 0
	}

	m, err := config.LoadMerged(*outRoot)
	if err != nil {
		return r.failIO(err)
	}

	gstore := graph.NewStore(m.OutRoot)
	triads, err := gstore.ListTriads()
	if err != nil {
		return r.failIO(err)
	}

	var results []retention.Result
	for _, triad := range triads {
		for _, pattern := range []string{"events.jsonl.bak.*", "graph.json.bak.*"} {
			res, err := retention.Prune(retention.Opts{
				Dir:        m.OutRoot + "/knowledge/" + triad,
				Pattern:    pattern,
				KeepN:      *keepN,
				MaxAgeDays: *maxAgeDays,
				DryRun:     *dryRun,
				Now:        r.Now(),
			})
			if err != nil {
				return r.failIO(err)
			}
			results = append(results, res)
		}
	}

	if *jsonOut {
		return r.writeJSON(results)
	}
	deleted := 0
	for _, res := range results {
		deleted += len(res.Deleted)
	}
	fmt.Fprintf(r.Stdout, "gc: OK triads=%d deleted=%d dryRun=%v\n", len(triads), deleted, *dryRun)
	return 0
}

func (r Runner) failIO(err error) int {
	fmt.Fprintf(r.Stderr, "E_IO: %s\n", err.Error())
	return 1
}

func (r Runner) failUsage(msg string) int {
	fmt.Fprintf(r.Stderr, "E_USAGE: %s\n", msg)
	return 2
}

func (r Runner) failNotFound(msg string) int {
	fmt.Fprintf(r.Stderr, "%s: %s\n", contract.CodeNotFound, msg)
	return 1
}

func (r Runner) writeJSON(v any) int {
	enc := json.NewEncoder(r.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(r.Stderr, "E_IO: failed to encode json\n")
		return 1
	}
	return 0
}

func printRootHelp(w io.Writer) {
	fmt.Fprint(w, `triadctl

Usage:
  triadctl init [--out-root .triads] [--config triad.config.json] [--json]
  triadctl doctor [--out-root .triads] [--json]
  triadctl events query --triad <id> [--subject s] [--predicate p] [--since ts] [--until ts] [--limit N] --json
  triadctl graph show --triad <id> [--json]
  triadctl graph repair --triad <id> [--json]
  triadctl workflow status --triad <id> [--json]
  triadctl workflow bypass --triad <id> --justification <text> [--to <phase>] [--json]
  triadctl workspace list [--triad <id>] [--json]
  triadctl workspace pin --workspace-id <id> [--unpin] [--json]
  triadctl tracker report --triad <id> [--json]
  triadctl gc [--out-root .triads] [--max-age-days 30] [--keep-n 5] [--dry-run] [--json]
  triadctl contract --json
  triadctl version

Commands:
  init             Initialize the project output root and write the minimal project config.
  doctor           Check environment/config sanity (write access, config parse).
  events query     Query a triad's event log with filters.
  graph show       Print a triad's current knowledge graph.
  graph repair     Restore the latest graph backup after a corrupted write.
  workflow status  Print the current workflow phase and last computed metrics.
  workflow bypass  Emergency-bypass a blocking workflow transition, with mandatory audit justification.
  workspace list   List known workspaces and their status.
  workspace pin    Protect (or unprotect) a workspace from retention sweeps.
  tracker report   Summarize injection outcomes and confidence bands for a triad.
  gc               Retention cleanup of rotated event/graph backups.
  contract         Print the triadctl surface contract.
`)
}

func printContractHelp(w io.Writer) {
	fmt.Fprint(w, "Usage: triadctl contract --json\n")
}

func printInitHelp(w io.Writer) {
	fmt.Fprint(w, "Usage: triadctl init [--out-root .triads] [--config triad.config.json] [--json]\n")
}

func printDoctorHelp(w io.Writer) {
	fmt.Fprint(w, "Usage: triadctl doctor [--out-root .triads] [--json]\n")
}

func printEventsHelp(w io.Writer) {
	fmt.Fprint(w, "Usage: triadctl events query|get-by-id --triad <id> [...] --json\n")
}

func printEventsQueryHelp(w io.Writer) {
	fmt.Fprint(w, "Usage: triadctl events query --triad <id> [--workspace-id w] [--subject s] [--predicate p] [--since ts] [--until ts] [--search q] [--sort-by field] [--sort-order asc|desc] [--offset N] [--limit N] --json\n")
}

func printEventsGetByIDHelp(w io.Writer) {
	fmt.Fprint(w, "Usage: triadctl events get-by-id --triad <id> --id <eventId> --json\n")
}

func printGraphHelp(w io.Writer) {
	fmt.Fprint(w, "Usage: triadctl graph show|repair|watch --triad <id> [--json]\n")
}

func printGraphShowHelp(w io.Writer) {
	fmt.Fprint(w, "Usage: triadctl graph show --triad <id> [--json]\n")
}

func printGraphRepairHelp(w io.Writer) {
	fmt.Fprint(w, "Usage: triadctl graph repair --triad <id> [--json]\n")
}

func printGraphWatchHelp(w io.Writer) {
	fmt.Fprint(w, "Usage: triadctl graph watch --triad <id>\n")
}

func printWorkflowHelp(w io.Writer) {
	fmt.Fprint(w, "Usage: triadctl workflow status|bypass --triad <id> [--json]\n")
}

func printWorkflowStatusHelp(w io.Writer) {
	fmt.Fprint(w, "Usage: triadctl workflow status --triad <id> [--json]\n")
}

func printWorkflowBypassHelp(w io.Writer) {
	fmt.Fprint(w, "Usage: triadctl workflow bypass --triad <id> --justification <text> [--to <phase>] [--actor <name>] [--json]\n")
}

func printWorkspaceHelp(w io.Writer) {
	fmt.Fprint(w, "Usage: triadctl workspace list|pin [--json]\n")
}

func printWorkspaceListHelp(w io.Writer) {
	fmt.Fprint(w, "Usage: triadctl workspace list [--triad <id>] [--json]\n")
}

func printWorkspacePinHelp(w io.Writer) {
	fmt.Fprint(w, "Usage: triadctl workspace pin --workspace-id <id> [--unpin] [--json]\n")
}

func printTrackerHelp(w io.Writer) {
	fmt.Fprint(w, "Usage: triadctl tracker report --triad <id> [--json]\n")
}

func printTrackerReportHelp(w io.Writer) {
	fmt.Fprint(w, "Usage: triadctl tracker report --triad <id> [--json]\n")
}

func printGCHelp(w io.Writer) {
	fmt.Fprint(w, "Usage: triadctl gc [--out-root .triads] [--max-age-days 30] [--keep-n 5] [--dry-run] [--json]\n")
}
