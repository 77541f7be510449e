// Package workflow implements the workflow state machine and validator
// (C7): a closed phase-transition graph, domain-agnostic metrics via the
// provider registry, garden-tending enforcement before deployment, and
// an audited emergency bypass for when that enforcement must be
// overridden.
package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/marcohefti/triadctl/internal/contract"
	"github.com/marcohefti/triadctl/internal/providers"
	"github.com/marcohefti/triadctl/internal/schema"
	"github.com/marcohefti/triadctl/internal/store"
)

const (
	PhaseNone           = ""
	PhaseIdeaValidation = "idea-validation"
	PhaseDesign         = "design"
	PhaseImplementation = "implementation"
	PhaseGardenTending  = "garden-tending"
	PhaseDeployment     = "deployment"
)

// Transitions is the closed transition graph: current phase -> allowed
// next phases. Anything not listed here is rejected.
var Transitions = map[string][]string{
	PhaseNone:           {PhaseIdeaValidation},
	PhaseIdeaValidation: {PhaseDesign},
	PhaseDesign:         {PhaseImplementation},
	PhaseImplementation: {PhaseGardenTending, PhaseDeployment},
	PhaseGardenTending:  {PhaseDeployment},
}

// IsValidTransition reports whether moving from phase "from" to phase
// "to" is a member of the closed Transitions graph.
func IsValidTransition(from, to string) bool {
	for _, allowed := range Transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Flags are the only recognized garden-tending override switches.
type Flags struct {
	Require           bool
	Skip              bool
	NewFeaturesSignal bool
}

// RequiresGardenTending is true iff Require is set, or (Skip is not set
// and either the metrics band is substantial or NewFeaturesSignal is
// present).
func RequiresGardenTending(metrics *schema.MetricsResultV1, flags Flags) bool {
	if flags.Require {
		return true
	}
	if flags.Skip {
		return false
	}
	if flags.NewFeaturesSignal {
		return true
	}
	if metrics == nil {
		return false
	}
	return metrics.Band == "substantial"
}

var (
	shellDangerousChars = []string{"$", "`", ";", "|", "&", ">", "<", "(", ")", "{", "}"}
	suspiciousPatterns  = []string{"rm -rf", "sudo ", "$("}
)

// ValidateJustification enforces the emergency-bypass justification
// rules: at least 10 characters, no shell-dangerous characters, and no
// known-suspicious substrings (command substitution, privilege escalation).
func ValidateJustification(j string) error {
	trimmed := strings.TrimSpace(j)
	if len(trimmed) < 10 {
		return fmt.Errorf("justification must be at least 10 characters")
	}
	for _, c := range shellDangerousChars {
		if strings.Contains(j, c) {
			return fmt.Errorf("justification contains disallowed character %q", c)
		}
	}
	lower := strings.ToLower(j)
	for _, p := range suspiciousPatterns {
		if strings.Contains(lower, p) {
			return fmt.Errorf("justification contains a suspicious pattern %q", p)
		}
	}
	return nil
}

// Store persists one WorkflowState per triad under
// <outRoot>/workflow/<triad>/workflow.json, with a parallel audit.jsonl
// for emergency bypasses.
type Store struct {
	outRoot   string
	providers *providers.Registry
}

func NewStore(outRoot string, registry *providers.Registry) *Store {
	return &Store{outRoot: outRoot, providers: registry}
}

func (s *Store) dir(triadID string) string       { return filepath.Join(s.outRoot, "workflow", triadID) }
func (s *Store) statePath(triadID string) string { return filepath.Join(s.dir(triadID), "workflow.json") }
func (s *Store) auditPath(triadID string) string { return filepath.Join(s.dir(triadID), "audit.jsonl") }

// Load returns triadID's current state, or a fresh PhaseNone state if
// none has been persisted yet.
func (s *Store) Load(triadID string) (schema.WorkflowStateV1, error) {
	var ws schema.WorkflowStateV1
	path := s.statePath(triadID)
	found, err := store.ReadJSON(path, &ws)
	if err != nil {
		return ws, contract.NewError(contract.CodeSchema, err.Error()).WithPath(path)
	}
	if !found {
		ws = schema.WorkflowStateV1{SchemaVersion: schema.WorkflowStateSchemaV1, TriadID: triadID, Phase: PhaseNone}
	}
	return ws, nil
}

// CalculateMetrics delegates to the registered provider for domain,
// pointed at triadID's working tree under the output root.
func (s *Store) CalculateMetrics(ctx context.Context, domain, triadID string) (schema.MetricsResultV1, error) {
	p, ok := s.providers.Get(domain)
	if !ok {
		return schema.MetricsResultV1{}, contract.NewError(contract.CodeNotFound, fmt.Sprintf("no metrics provider registered for domain %q", domain))
	}
	return p.Calculate(ctx, s.dir(triadID))
}

// Transition runs a locked load-mutate-save cycle moving triadID's
// workflow to targetPhase. metrics feeds RequiresGardenTending when the
// move is implementation -> deployment; bypass, when non-nil and
// carrying a non-empty Justification, overrides a blocked deployment and
// is appended to both the in-state EmergencyBypasses list and the
// triad's audit.jsonl.
func (s *Store) Transition(triadID, targetPhase string, metrics *schema.MetricsResultV1, flags Flags, bypass *schema.AuditEntryV1) (schema.WorkflowStateV1, error) {
	lockDir := s.statePath(triadID) + ".lock"
	var result schema.WorkflowStateV1

	err := store.WithDirLock(lockDir, 10*time.Second, func() error {
		ws, err := s.Load(triadID)
		if err != nil {
			return err
		}
		if !IsValidTransition(ws.Phase, targetPhase) {
			return contract.NewError(contract.CodeValidation, fmt.Sprintf("invalid workflow transition %q -> %q", ws.Phase, targetPhase))
		}

		if ws.Phase == PhaseImplementation && targetPhase == PhaseDeployment && RequiresGardenTending(metrics, flags) {
			if bypass == nil || strings.TrimSpace(bypass.Justification) == "" {
				return contract.NewError(contract.CodeBlocked, "deployment blocked: garden-tending required before deployment (or an audited bypass with justification)")
			}
			if err := ValidateJustification(bypass.Justification); err != nil {
				return contract.NewError(contract.CodeValidation, fmt.Sprintf("emergency bypass rejected: %v", err))
			}
			entry := *bypass
			entry.SchemaVersion = schema.AuditEntrySchemaV1
			entry.TriadID = triadID
			entry.Action = "emergency_bypass_garden_tending"
			if entry.Timestamp == "" {
				entry.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
			}
			ws.EmergencyBypasses = append(ws.EmergencyBypasses, entry)
			if err := store.AppendJSONL(s.auditPath(triadID), entry); err != nil {
				return contract.NewError(contract.CodeIO, err.Error()).WithPath(s.auditPath(triadID))
			}
		}

		ws.PreviousPhase = ws.Phase
		if ws.Phase != "" && !containsString(ws.CompletedPhases, ws.Phase) {
			ws.CompletedPhases = append(ws.CompletedPhases, ws.Phase)
		}
		ws.Phase = targetPhase
		if metrics != nil {
			ws.LastMetrics = metrics
		}
		ws.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)

		path := s.statePath(triadID)
		if err := store.WriteJSONAtomic(path, ws); err != nil {
			return contract.NewError(contract.CodeIO, err.Error()).WithPath(path)
		}
		result = ws
		return nil
	})
	return result, err
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
