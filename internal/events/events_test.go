package events

import (
	"context"
	"testing"

	"github.com/marcohefti/triadctl/internal/schema"
)

func TestCaptureAssignsIDAndTimestamp(t *testing.T) {
	s := NewStore(t.TempDir(), Limits{})
	ev, err := s.Capture(context.Background(), schema.EventV1{
		TriadID:   "acme",
		Subject:   "editor",
		Predicate: "opened",
		Object:    "main.go",
	})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if ev.EventID == "" || ev.Timestamp == "" {
		t.Fatalf("expected event id/timestamp to be filled, got %+v", ev)
	}
}

func TestCaptureRejectsMissingTriad(t *testing.T) {
	s := NewStore(t.TempDir(), Limits{})
	if _, err := s.Capture(context.Background(), schema.EventV1{Subject: "x", Predicate: "y"}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestQueryFiltersByPredicateAndSession(t *testing.T) {
	s := NewStore(t.TempDir(), Limits{})
	ctx := context.Background()
	if _, err := s.CaptureExecution(ctx, "acme", "sess-1", "bash", "ok", nil); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if _, err := s.CaptureError(ctx, "acme", "sess-2", "bash", "boom", nil); err != nil {
		t.Fatalf("capture: %v", err)
	}

	got, err := s.Query("acme", schema.EventFiltersV1{Predicate: "failed"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].SessionID != "sess-2" {
		t.Fatalf("unexpected query result: %+v", got)
	}
}

func TestCaptureEnforcesRateLimit(t *testing.T) {
	s := NewStore(t.TempDir(), Limits{EventsPerSecond: 1, Burst: 1})
	ctx := context.Background()
	if _, err := s.Capture(ctx, schema.EventV1{TriadID: "acme", Subject: "a", Predicate: "b"}); err != nil {
		t.Fatalf("first capture should succeed: %v", err)
	}
	if _, err := s.Capture(ctx, schema.EventV1{TriadID: "acme", Subject: "a", Predicate: "b"}); err == nil {
		t.Fatalf("expected second capture to be rate limited")
	}
}

func TestQueryReturnsNilForUnknownTriad(t *testing.T) {
	s := NewStore(t.TempDir(), Limits{})
	got, err := s.Query("ghost", schema.EventFiltersV1{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil result for unknown triad, got %+v", got)
	}
}

func TestQueryFiltersByWorkspaceID(t *testing.T) {
	s := NewStore(t.TempDir(), Limits{})
	ctx := context.Background()
	if _, err := s.CaptureExecution(ctx, "acme", "sess-1", "bash", "ok", map[string]any{"workspaceId": "ws-a"}); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if _, err := s.CaptureExecution(ctx, "acme", "sess-1", "vim", "ok", map[string]any{"workspaceId": "ws-b"}); err != nil {
		t.Fatalf("capture: %v", err)
	}

	got, err := s.Query("acme", schema.EventFiltersV1{WorkspaceID: "ws-a"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].Subject != "bash" {
		t.Fatalf("unexpected query result: %+v", got)
	}
}

func TestQuerySearchMatchesObjectCaseInsensitively(t *testing.T) {
	s := NewStore(t.TempDir(), Limits{})
	ctx := context.Background()
	if _, err := s.CaptureError(ctx, "acme", "sess-1", "bash", "Connection TIMEOUT", nil); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if _, err := s.CaptureExecution(ctx, "acme", "sess-1", "vim", "ok", nil); err != nil {
		t.Fatalf("capture: %v", err)
	}

	got, err := s.Query("acme", schema.EventFiltersV1{Search: "timeout"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].Subject != "bash" {
		t.Fatalf("unexpected search result: %+v", got)
	}
}

func TestQuerySortsDescendingByTimestampThenPaginatesByOffset(t *testing.T) {
	s := NewStore(t.TempDir(), Limits{})
	ctx := context.Background()
	for _, tool := range []string{"first", "second", "third"} {
		if _, err := s.CaptureExecution(ctx, "acme", "sess-1", tool, "ok", nil); err != nil {
			t.Fatalf("capture %s: %v", tool, err)
		}
	}

	all, err := s.Query("acme", schema.EventFiltersV1{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(all) != 3 || all[0].Subject != "third" || all[2].Subject != "first" {
		t.Fatalf("expected newest-first default order, got %+v", all)
	}

	paged, err := s.Query("acme", schema.EventFiltersV1{Offset: 1, Limit: 1})
	if err != nil {
		t.Fatalf("Query with offset: %v", err)
	}
	if len(paged) != 1 || paged[0].Subject != "second" {
		t.Fatalf("unexpected page: %+v", paged)
	}

	asc, err := s.Query("acme", schema.EventFiltersV1{SortOrder: "asc"})
	if err != nil {
		t.Fatalf("Query asc: %v", err)
	}
	if len(asc) != 3 || asc[0].Subject != "first" || asc[2].Subject != "third" {
		t.Fatalf("expected oldest-first with asc sort order, got %+v", asc)
	}
}

func TestGetByIDFindsCapturedEvent(t *testing.T) {
	s := NewStore(t.TempDir(), Limits{})
	ctx := context.Background()
	ev, err := s.CaptureExecution(ctx, "acme", "sess-1", "bash", "ok", nil)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}

	got, ok, err := s.GetByID("acme", ev.EventID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !ok || got.EventID != ev.EventID {
		t.Fatalf("expected to find event %q, got ok=%v got=%+v", ev.EventID, ok, got)
	}

	_, ok, err = s.GetByID("acme", "does-not-exist")
	if err != nil {
		t.Fatalf("GetByID missing: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for unknown event id")
	}
}
