package workflow

import (
	"testing"

	"github.com/marcohefti/triadctl/internal/providers"
	"github.com/marcohefti/triadctl/internal/schema"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), providers.NewRegistry())
}

func TestIsValidTransitionFollowsClosedGraph(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{PhaseNone, PhaseIdeaValidation, true},
		{PhaseIdeaValidation, PhaseDesign, true},
		{PhaseDesign, PhaseImplementation, true},
		{PhaseImplementation, PhaseGardenTending, true},
		{PhaseImplementation, PhaseDeployment, true},
		{PhaseGardenTending, PhaseDeployment, true},
		{PhaseNone, PhaseDeployment, false},
		{PhaseDesign, PhaseDeployment, false},
	}
	for _, c := range cases {
		if got := IsValidTransition(c.from, c.to); got != c.want {
			t.Fatalf("IsValidTransition(%q,%q)=%v want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestRequiresGardenTendingRules(t *testing.T) {
	substantial := &schema.MetricsResultV1{Band: "substantial"}
	trivial := &schema.MetricsResultV1{Band: "trivial"}

	if !RequiresGardenTending(nil, Flags{Require: true}) {
		t.Fatalf("explicit require should always trigger garden-tending")
	}
	if RequiresGardenTending(substantial, Flags{Skip: true}) {
		t.Fatalf("explicit skip should suppress even substantial metrics")
	}
	if !RequiresGardenTending(substantial, Flags{}) {
		t.Fatalf("substantial metrics should trigger garden-tending")
	}
	if RequiresGardenTending(trivial, Flags{}) {
		t.Fatalf("trivial metrics should not trigger garden-tending")
	}
	if !RequiresGardenTending(trivial, Flags{NewFeaturesSignal: true}) {
		t.Fatalf("new-features signal should trigger garden-tending regardless of band")
	}
}

func TestTransitionWalksPhasesInOrder(t *testing.T) {
	s := newTestStore(t)
	for _, phase := range []string{PhaseIdeaValidation, PhaseDesign, PhaseImplementation} {
		if _, err := s.Transition("acme", phase, nil, Flags{}, nil); err != nil {
			t.Fatalf("Transition to %s: %v", phase, err)
		}
	}
	ws, err := s.Load("acme")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ws.Phase != PhaseImplementation {
		t.Fatalf("expected phase implementation, got %s", ws.Phase)
	}
	if len(ws.CompletedPhases) != 3 {
		t.Fatalf("expected 3 completed phases, got %v", ws.CompletedPhases)
	}
}

func TestTransitionRejectsInvalidJump(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Transition("acme", PhaseDeployment, nil, Flags{}, nil); err == nil {
		t.Fatalf("expected invalid transition from PhaseNone to PhaseDeployment to fail")
	}
}

func TestTransitionBlocksDeploymentWithoutGardenTendingOrBypass(t *testing.T) {
	s := newTestStore(t)
	for _, phase := range []string{PhaseIdeaValidation, PhaseDesign, PhaseImplementation} {
		if _, err := s.Transition("acme", phase, nil, Flags{}, nil); err != nil {
			t.Fatalf("Transition to %s: %v", phase, err)
		}
	}
	substantial := &schema.MetricsResultV1{Band: "substantial"}
	if _, err := s.Transition("acme", PhaseDeployment, substantial, Flags{}, nil); err == nil {
		t.Fatalf("expected deployment to be blocked pending garden-tending")
	}
}

func TestTransitionAllowsBypassWithJustification(t *testing.T) {
	s := newTestStore(t)
	for _, phase := range []string{PhaseIdeaValidation, PhaseDesign, PhaseImplementation} {
		if _, err := s.Transition("acme", phase, nil, Flags{}, nil); err != nil {
			t.Fatalf("Transition to %s: %v", phase, err)
		}
	}
	substantial := &schema.MetricsResultV1{Band: "substantial"}
	bypass := &schema.AuditEntryV1{Actor: "alice", Justification: "hotfix, customer down"}
	ws, err := s.Transition("acme", PhaseDeployment, substantial, Flags{}, bypass)
	if err != nil {
		t.Fatalf("expected bypass to succeed: %v", err)
	}
	if len(ws.EmergencyBypasses) != 1 {
		t.Fatalf("expected one recorded bypass, got %v", ws.EmergencyBypasses)
	}
}

func TestTransitionRejectsBypassWithoutJustification(t *testing.T) {
	s := newTestStore(t)
	for _, phase := range []string{PhaseIdeaValidation, PhaseDesign, PhaseImplementation} {
		if _, err := s.Transition("acme", phase, nil, Flags{}, nil); err != nil {
			t.Fatalf("Transition to %s: %v", phase, err)
		}
	}
	substantial := &schema.MetricsResultV1{Band: "substantial"}
	bypass := &schema.AuditEntryV1{Actor: "alice"}
	if _, err := s.Transition("acme", PhaseDeployment, substantial, Flags{}, bypass); err == nil {
		t.Fatalf("expected bypass without justification to be rejected")
	}
}
