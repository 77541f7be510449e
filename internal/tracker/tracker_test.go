package tracker

import (
	"testing"

	"github.com/marcohefti/triadctl/internal/schema"
)

func TestRecordInjectionAssignsIDAndTimestamp(t *testing.T) {
	s := NewStore(t.TempDir())
	rec, err := s.RecordInjection(schema.InjectionRecordV1{TriadID: "acme", SessionID: "s1", KnowledgeID: "k1", Mode: "inject"})
	if err != nil {
		t.Fatalf("RecordInjection: %v", err)
	}
	if rec.ID == "" || rec.InjectedAt == "" {
		t.Fatalf("expected id/injectedAt to be filled: %+v", rec)
	}
}

func TestBySessionFiltersBySessionID(t *testing.T) {
	s := NewStore(t.TempDir())
	if _, err := s.RecordInjection(schema.InjectionRecordV1{TriadID: "acme", SessionID: "s1", KnowledgeID: "k1"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := s.RecordInjection(schema.InjectionRecordV1{TriadID: "acme", SessionID: "s2", KnowledgeID: "k2"}); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := s.BySession("acme", "s1")
	if err != nil {
		t.Fatalf("BySession: %v", err)
	}
	if len(got) != 1 || got[0].KnowledgeID != "k1" {
		t.Fatalf("unexpected session records: %+v", got)
	}
}

func TestDetectOutcomeFindsContradiction(t *testing.T) {
	outcome, ok := DetectOutcome("use explicit transactions", "That guidance contradicts what we saw in prod")
	if !ok || outcome != OutcomeContradiction {
		t.Fatalf("expected contradiction, got %v ok=%v", outcome, ok)
	}
}

func TestDetectOutcomeFindsSuccessWhenLabelMentionedWithoutFailure(t *testing.T) {
	outcome, ok := DetectOutcome("retry with backoff", "Applied retry with backoff and the deploy finished cleanly.")
	if !ok || outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %v ok=%v", outcome, ok)
	}
}

func TestDetectOutcomeFindsFailureSignal(t *testing.T) {
	outcome, ok := DetectOutcome("retry with backoff", "The deploy failed and had to be rolled back.")
	if !ok || outcome != OutcomeFailure {
		t.Fatalf("expected failure, got %v ok=%v", outcome, ok)
	}
}

func TestApplyOutcomeClampsToCapAndFloor(t *testing.T) {
	if got := ApplyOutcome(0.95, OutcomeSuccess); got != ConfidenceCap {
		t.Fatalf("expected cap at %v, got %v", ConfidenceCap, got)
	}
	if got := ApplyOutcome(0.1, OutcomeContradiction); got != ConfidenceFloor {
		t.Fatalf("expected floor at %v, got %v", ConfidenceFloor, got)
	}
}

func TestInitialConfidenceRepeatedMistakeBoostCapsAt15Points(t *testing.T) {
	// base = 0.75 + min(0.05*(10-1), 0.15) = 0.75 + 0.15 = 0.90
	got := InitialConfidence("repeated_mistake", 10, "MEDIUM", false)
	if got != 0.90 {
		t.Fatalf("expected boosted base 0.90, got %v", got)
	}
}

func TestInitialConfidenceClampsToRange(t *testing.T) {
	got := InitialConfidence("user_correction", 1, "CRITICAL", false)
	if got > InitialClampMax || got < InitialClampMin {
		t.Fatalf("expected clamp to [%v,%v], got %v", InitialClampMin, InitialClampMax, got)
	}
}

func TestStatusForThresholds(t *testing.T) {
	cases := []struct {
		confidence float64
		priority   string
		want       string
	}{
		{0.85, "LOW", StatusActive},
		{0.75, "HIGH", StatusActive},
		{0.75, "LOW", StatusActiveLowEmphasis},
		{0.55, "LOW", StatusNeedsValidation},
		{0.2, "LOW", StatusArchived},
	}
	for _, c := range cases {
		if got := StatusFor(c.confidence, c.priority); got != c.want {
			t.Fatalf("StatusFor(%v,%v)=%v want %v", c.confidence, c.priority, got, c.want)
		}
	}
}

func TestIsDeprecatedRules(t *testing.T) {
	if !IsDeprecated(0.2, 0, 0, 0) {
		t.Fatalf("expected low confidence to be deprecated")
	}
	if !IsDeprecated(0.9, 0, 3, 0) {
		t.Fatalf("expected 3 failures with 0 successes to be deprecated")
	}
	if !IsDeprecated(0.9, 5, 0, 2) {
		t.Fatalf("expected 2 contradictions to be deprecated")
	}
	if IsDeprecated(0.9, 5, 2, 1) {
		t.Fatalf("expected healthy item to not be deprecated")
	}
}

func TestApplyOutcomeToItemUpdatesCountersAndStatus(t *testing.T) {
	item := schema.ProcessKnowledgeV1{Confidence: 0.9, Priority: "HIGH"}
	updated := ApplyOutcomeToItem(item, OutcomeFailure)
	if updated.FailureCount != 1 {
		t.Fatalf("expected failure count to increment, got %+v", updated)
	}
	if updated.Confidence >= item.Confidence {
		t.Fatalf("expected confidence to drop after failure")
	}
}
