package graph

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/marcohefti/triadctl/internal/schema"
)

func validGraph() schema.KnowledgeGraphV1 {
	return schema.KnowledgeGraphV1{
		Nodes: []schema.NodeV1{
			{ID: "n1", Type: "concept", Label: "caching", Confidence: 0.8},
			{ID: "n2", Type: "decision", Label: "use redis", Confidence: 0.6},
		},
		Edges: []schema.EdgeV1{
			{ID: "e1", From: "n1", To: "n2", Relation: "informs"},
		},
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Save("acme", validGraph()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.Refresh("acme")

	got, err := s.Load("acme")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Nodes) != 2 || len(got.Edges) != 1 {
		t.Fatalf("unexpected graph after round trip: %+v", got)
	}
	if got.UpdatedAt == "" {
		t.Fatalf("expected UpdatedAt to be stamped")
	}
}

func TestSaveRejectsUnknownNodeType(t *testing.T) {
	s := NewStore(t.TempDir())
	g := validGraph()
	g.Nodes[0].Type = "mystery"
	if err := s.Save("acme", g); err == nil {
		t.Fatalf("expected validation error for unknown node type")
	}
}

func TestSaveRejectsDanglingEdge(t *testing.T) {
	s := NewStore(t.TempDir())
	g := validGraph()
	g.Edges[0].To = "ghost"
	if err := s.Save("acme", g); err == nil {
		t.Fatalf("expected validation error for dangling edge")
	}
}

func TestSaveRejectsOutOfRangeConfidence(t *testing.T) {
	s := NewStore(t.TempDir())
	g := validGraph()
	g.Nodes[0].Confidence = 1.5
	if err := s.Save("acme", g); err == nil {
		t.Fatalf("expected validation error for out-of-range confidence")
	}
}

func TestSaveWritesBackupOnSecondSave(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Save("acme", validGraph()); err != nil {
		t.Fatalf("first save: %v", err)
	}
	g2 := validGraph()
	g2.Nodes = append(g2.Nodes, schema.NodeV1{ID: "n3", Type: "finding", Label: "x", Confidence: 0.5})
	if err := s.Save("acme", g2); err != nil {
		t.Fatalf("second save: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(s.backupsDir("acme"), "graph.json.bak.*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected exactly one backup after second save, got %d", len(matches))
	}
}

func TestLoadAcceptsLegacyLinksKey(t *testing.T) {
	dir := t.TempDir()
	triadDir := filepath.Join(dir, "knowledge", "acme")
	if err := os.MkdirAll(triadDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	legacy := `{"schemaVersion":1,"triadId":"acme","nodes":[{"id":"n1","type":"concept","label":"x","confidence":0.5}],"links":[]}`
	if err := os.WriteFile(filepath.Join(triadDir, "graph.json"), []byte(legacy), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := NewStore(dir)
	g, err := s.Load("acme")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(g.Nodes) != 1 {
		t.Fatalf("expected legacy graph to load, got %+v", g)
	}
}

func TestRepairDropsDanglingEdgeAndBadConfidence(t *testing.T) {
	dir := t.TempDir()
	triadDir := filepath.Join(dir, "knowledge", "acme")
	if err := os.MkdirAll(triadDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	raw := `{"schemaVersion":1,"triadId":"acme","nodes":[` +
		`{"id":"n1","type":"concept","label":"ok","confidence":0.5},` +
		`{"id":"n2","type":"concept","label":"bad","confidence":2.0}` +
		`],"edges":[{"id":"e1","from":"n1","to":"n2","relation":"x"},{"id":"e2","from":"n1","to":"ghost","relation":"y"}]}`
	if err := os.WriteFile(filepath.Join(triadDir, "graph.json"), []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := NewStore(dir)
	res, err := s.Repair("acme")
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if len(res.RemovedNodes) != 1 || len(res.RemovedEdges) != 2 {
		t.Fatalf("unexpected repair result: %+v", res)
	}

	g, err := s.Load("acme")
	if err != nil {
		t.Fatalf("Load after repair: %v", err)
	}
	if len(g.Nodes) != 1 || len(g.Edges) != 0 {
		t.Fatalf("expected repaired graph to drop bad node/edges, got %+v", g)
	}
}

func TestListTriadsSortsAndFiltersInvalidNames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"acme", "zeta", "Invalid_Name"} {
		triadDir := filepath.Join(dir, "knowledge", name)
		if err := os.MkdirAll(triadDir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if name != "Invalid_Name" {
			if err := os.WriteFile(filepath.Join(triadDir, "graph.json"), []byte(`{}`), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
		}
	}

	s := NewStore(dir)
	triads, err := s.ListTriads()
	if err != nil {
		t.Fatalf("ListTriads: %v", err)
	}
	if len(triads) != 2 || triads[0] != "acme" || triads[1] != "zeta" {
		t.Fatalf("unexpected triads: %v", triads)
	}
}

func TestConcurrentSavesLeaveGraphValidAndReferentiallySound(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Save("acme", validGraph()); err != nil {
		t.Fatalf("initial save: %v", err)
	}

	const writers = 3
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g := schema.KnowledgeGraphV1{
				Nodes: []schema.NodeV1{
					{ID: fmt.Sprintf("w%d-n1", i), Type: "concept", Label: fmt.Sprintf("writer %d", i), Confidence: 0.7},
				},
			}
			errs[i] = NewStore(s.outRoot).Save("acme", g)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("writer %d Save: %v", i, err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(s.triadDir("acme"), "graph.json"))
	if err != nil {
		t.Fatalf("read graph.json after concurrent saves: %v", err)
	}

	fresh := NewStore(s.outRoot)
	got, err := fresh.Load("acme")
	if err != nil {
		t.Fatalf("Load after concurrent saves: %v", err)
	}
	if findings := ValidateGraph(got); len(findings) > 0 {
		t.Fatalf("graph.json invalid after concurrent saves: %+v (raw=%s)", findings, raw)
	}
	if len(got.Nodes) != 1 {
		t.Fatalf("expected exactly one writer's graph to have won the race, got %+v", got)
	}
}

func TestSearchFiltersByConfidenceAndSortsDescending(t *testing.T) {
	g := schema.KnowledgeGraphV1{Nodes: []schema.NodeV1{
		{ID: "n1", Label: "alpha caching", Confidence: 0.3},
		{ID: "n2", Label: "beta caching", Confidence: 0.9},
		{ID: "n3", Label: "gamma unrelated", Confidence: 0.95},
	}}
	got := Search(g, "caching", 0.5)
	if len(got) != 1 || got[0].ID != "n2" {
		t.Fatalf("unexpected search result: %+v", got)
	}
}
