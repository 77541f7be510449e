package preflight

import (
	"testing"

	"github.com/marcohefti/triadctl/internal/schema"
)

func TestEvaluatePassesCleanBatch(t *testing.T) {
	batch := Batch{
		TriadID: "acme",
		Current: schema.KnowledgeGraphV1{Nodes: []schema.NodeV1{{ID: "n1", Type: "concept"}}},
		NewNodes: []schema.NodeV1{{ID: "n2", Type: "decision"}},
		NewEdges: []schema.EdgeV1{{ID: "e1", From: "n1", To: "n2", Relation: "informs"}},
	}
	res := Evaluate(batch)
	if !res.OK {
		t.Fatalf("expected clean batch to pass, findings=%+v", res.Findings)
	}
}

func TestEvaluateCatchesUnknownNodeType(t *testing.T) {
	batch := Batch{
		TriadID:  "acme",
		NewNodes: []schema.NodeV1{{ID: "n1", Type: "mystery"}},
	}
	res := Evaluate(batch)
	if res.OK {
		t.Fatalf("expected unknown node type to fail")
	}
}

func TestEvaluateCatchesDanglingEdge(t *testing.T) {
	batch := Batch{
		TriadID:  "acme",
		NewNodes: []schema.NodeV1{{ID: "n1", Type: "concept"}},
		NewEdges: []schema.EdgeV1{{ID: "e1", From: "n1", To: "ghost", Relation: "informs"}},
	}
	res := Evaluate(batch)
	if res.OK {
		t.Fatalf("expected dangling edge to fail")
	}
}

func TestEvaluateCatchesSelfLoop(t *testing.T) {
	batch := Batch{
		TriadID:  "acme",
		NewNodes: []schema.NodeV1{{ID: "n1", Type: "concept"}},
		NewEdges: []schema.EdgeV1{{ID: "e1", From: "n1", To: "n1", Relation: "informs"}},
	}
	res := Evaluate(batch)
	if res.OK {
		t.Fatalf("expected self loop to fail")
	}
}

func TestEvaluateRejectsMissingTriadID(t *testing.T) {
	res := Evaluate(Batch{})
	if res.OK {
		t.Fatalf("expected missing triad id to fail")
	}
}
