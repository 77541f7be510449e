// Package contract describes the stable on-disk/CLI surface of triadctl:
// which artifacts exist, which hook block types are recognized, and which
// commands are exposed. `triadctl contract --json` prints this structure so
// integrators can detect drift without reading source.
package contract

const (
	ArtifactLayoutVersion = 1
	EventSchemaVersion    = 1
	GraphSchemaVersion    = 1
)

type Contract struct {
	Name                  string     `json:"name"`
	Version               string     `json:"version"`
	ArtifactLayoutVersion int        `json:"artifactLayoutVersion"`
	Artifacts             []Artifact `json:"artifacts"`
	BlockTypes            []Block    `json:"blockTypes"`
	Commands               []Command `json:"commands"`
	Errors                []ErrorCode `json:"errors"`
}

type Artifact struct {
	ID             string   `json:"id"`
	Kind           string   `json:"kind"` // json|jsonl
	SchemaVersions []int    `json:"schemaVersions"`
	Required       bool     `json:"required"`
	PathPattern    string   `json:"pathPattern"`
	RequiredFields []string `json:"requiredFields"`
}

// Block describes one of the five block types the stop-hook orchestrator
// parses out of assistant output.
type Block struct {
	Tag            string   `json:"tag"`
	Dispatch       string   `json:"dispatch"` // which component handles it
	RequiredFields []string `json:"requiredFields"`
}

type Command struct {
	ID      string `json:"id"`
	Usage   string `json:"usage"`
	Summary string `json:"summary"`
}

// ErrorCode documents one member of the error taxonomy (see internal/contract.Error).
type ErrorCode struct {
	Code      string `json:"code"`
	Summary   string `json:"summary"`
	Retryable bool   `json:"retryable"`
}

func Build(version string) Contract {
	return Contract{
		Name:                  "triadctl",
		Version:               version,
		ArtifactLayoutVersion: ArtifactLayoutVersion,
		Artifacts: []Artifact{
			{
				ID:             "events.jsonl",
				Kind:           "jsonl",
				SchemaVersions: []int{EventSchemaVersion},
				Required:       true,
				PathPattern:    "knowledge/<triadId>/events.jsonl",
				RequiredFields: []string{"schemaVersion", "eventId", "timestamp", "triadId", "subject", "predicate", "object"},
			},
			{
				ID:             "graph.json",
				Kind:           "json",
				SchemaVersions: []int{GraphSchemaVersion},
				Required:       true,
				PathPattern:    "knowledge/<triadId>/graph.json",
				RequiredFields: []string{"schemaVersion", "triadId", "nodes", "edges", "updatedAt"},
			},
			{
				ID:             "knowledge.json",
				Kind:           "json",
				SchemaVersions: []int{1},
				Required:       false,
				PathPattern:    "knowledge/<triadId>/process-knowledge.json",
				RequiredFields: []string{"schemaVersion", "id", "triadId", "title", "priority", "confidence"},
			},
			{
				ID:             "injections.jsonl",
				Kind:           "jsonl",
				SchemaVersions: []int{1},
				Required:       false,
				PathPattern:    "knowledge/<triadId>/injections.jsonl",
				RequiredFields: []string{"schemaVersion", "id", "sessionId", "knowledgeId", "mode"},
			},
			{
				ID:             "workspace.json",
				Kind:           "json",
				SchemaVersions: []int{1},
				Required:       false,
				PathPattern:    "workspaces/<workspaceId>/workspace.json",
				RequiredFields: []string{"schemaVersion", "id", "triadId", "status", "createdAt"},
			},
			{
				ID:             "workflow.json",
				Kind:           "json",
				SchemaVersions: []int{1},
				Required:       false,
				PathPattern:    "workflow/<triadId>/workflow.json",
				RequiredFields: []string{"schemaVersion", "triadId", "phase", "updatedAt"},
			},
			{
				ID:             "audit.jsonl",
				Kind:           "jsonl",
				SchemaVersions: []int{1},
				Required:       false,
				PathPattern:    "workflow/<triadId>/audit.jsonl",
				RequiredFields: []string{"schemaVersion", "timestamp", "triadId", "actor", "action"},
			},
		},
		BlockTypes: []Block{
			{Tag: "GRAPH_UPDATE", Dispatch: "graph", RequiredFields: []string{"triad", "operation"}},
			{Tag: "HANDOFF_REQUEST", Dispatch: "orchestrator", RequiredFields: []string{"next_triad"}},
			{Tag: "WORKFLOW_COMPLETE", Dispatch: "workflow", RequiredFields: []string{"triad", "phase"}},
			{Tag: "PROCESS_KNOWLEDGE", Dispatch: "tracker", RequiredFields: []string{"triad", "title", "content"}},
			{Tag: "PRE_FLIGHT_CHECK", Dispatch: "preflight", RequiredFields: []string{"triad"}},
		},
		Commands: []Command{
			{ID: "init", Usage: "triadctl init [--out-root .triads] [--config triad.config.json] [--json]", Summary: "Initialize the project output root and write the minimal project config."},
			{ID: "doctor", Usage: "triadctl doctor [--out-root .triads] [--json]", Summary: "Check environment/config sanity (write access, config parse, lock state)."},
			{ID: "events query", Usage: "triadctl events query --triad <id> [--workspace-id w] [--subject s] [--predicate p] [--since ts] [--search q] [--sort-by field] [--sort-order asc|desc] [--offset N] [--limit N] --json", Summary: "Query a triad's event log with filters, sort and pagination."},
			{ID: "events get-by-id", Usage: "triadctl events get-by-id --triad <id> --id <eventId> --json", Summary: "Fetch a single event by id."},
			{ID: "graph show", Usage: "triadctl graph show --triad <id> [--json]", Summary: "Print a triad's current knowledge graph."},
			{ID: "graph repair", Usage: "triadctl graph repair --triad <id> [--json]", Summary: "Restore the latest graph backup after a corrupted write."},
			{ID: "graph watch", Usage: "triadctl graph watch --triad <id>", Summary: "Block, invalidating the cached graph whenever another process writes it."},
			{ID: "workflow status", Usage: "triadctl workflow status --triad <id> [--json]", Summary: "Print the current workflow phase and last computed metrics."},
			{ID: "workflow bypass", Usage: "triadctl workflow bypass --triad <id> --justification <text> [--json]", Summary: "Emergency-bypass a blocking workflow transition, with mandatory audit justification."},
			{ID: "workspace list", Usage: "triadctl workspace list [--triad <id>] [--json]", Summary: "List known workspaces and their status."},
			{ID: "workspace pin", Usage: "triadctl workspace pin --workspace-id <id> [--unpin] [--json]", Summary: "Protect (or unprotect) a workspace from retention sweeps."},
			{ID: "tracker report", Usage: "triadctl tracker report --triad <id> [--json]", Summary: "Summarize injection outcomes and confidence bands for a triad."},
			{ID: "gc", Usage: "triadctl gc [--out-root .triads] [--max-age-days 30] [--dry-run] [--json]", Summary: "Retention cleanup of rotated event/graph backups."},
			{ID: "contract", Usage: "triadctl contract --json", Summary: "Print the triadctl surface contract."},
		},
		Errors: []ErrorCode{
			{Code: "E_IO", Summary: "filesystem read/write failure", Retryable: true},
			{Code: "E_LOCK_TIMEOUT", Summary: "directory lock could not be acquired in time", Retryable: true},
			{Code: "E_SCHEMA", Summary: "persisted JSON does not match the expected schema version/shape", Retryable: false},
			{Code: "E_VALIDATION", Summary: "graph/knowledge payload failed validation (closed node types, confidence range, referential integrity)", Retryable: false},
			{Code: "E_RATE_LIMIT", Summary: "event capture exceeded the configured rate limit", Retryable: true},
			{Code: "E_BLOCKED", Summary: "workflow transition blocked pending required phase/garden-tending", Retryable: false},
			{Code: "E_NOT_FOUND", Summary: "referenced triad/workspace/node/edge does not exist", Retryable: false},
			{Code: "E_CONFLICT", Summary: "concurrent write lost a first-writer-wins race", Retryable: false},
		},
	}
}
