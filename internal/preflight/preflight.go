// Package preflight implements the [PRE_FLIGHT_CHECK] rule engine: a small,
// closed set of constitutional checks run over a proposed graph-update
// batch before it is committed by the graph store. Each rule is pure and
// returns a pass/fail finding; the engine never mutates the batch.
package preflight

import (
	"fmt"
	"strings"

	"github.com/marcohefti/triadctl/internal/contract"
	"github.com/marcohefti/triadctl/internal/graph"
	"github.com/marcohefti/triadctl/internal/schema"
)

// Batch is the proposed set of graph mutations parsed from one
// [PRE_FLIGHT_CHECK] block, checked against the triad's current graph
// before the corresponding [GRAPH_UPDATE] is allowed to apply.
type Batch struct {
	TriadID    string
	NewNodes   []schema.NodeV1
	NewEdges   []schema.EdgeV1
	Current    schema.KnowledgeGraphV1
}

// Rule is one named constitutional check.
type Rule struct {
	Name string
	Eval func(Batch) contract.Finding
}

// Result aggregates every rule's finding for one batch.
type Result struct {
	OK       bool               `json:"ok"`
	TriadID  string             `json:"triadId"`
	Findings []contract.Finding `json:"findings"`
}

// Rules is the closed, ordered set of checks the engine runs. Order is
// stable so Result.Findings is deterministic for snapshot comparisons.
var Rules = []Rule{
	{Name: "triad_id_present", Eval: ruleTriadIDPresent},
	{Name: "node_ids_unique", Eval: ruleNodeIDsUnique},
	{Name: "node_types_known", Eval: ruleNodeTypesKnown},
	{Name: "edges_reference_known_nodes", Eval: ruleEdgesReferenceKnownNodes},
	{Name: "no_self_loops", Eval: ruleNoSelfLoops},
}

// Evaluate runs every rule in Rules against batch and returns the
// aggregated result. OK is true only if every rule passed.
func Evaluate(batch Batch) Result {
	res := Result{OK: true, TriadID: batch.TriadID}
	for _, r := range Rules {
		f := r.Eval(batch)
		f.Rule = r.Name
		res.Findings = append(res.Findings, f)
		if !f.Passed {
			res.OK = false
		}
	}
	return res
}

func ruleTriadIDPresent(b Batch) contract.Finding {
	if strings.TrimSpace(b.TriadID) == "" {
		return contract.Finding{Passed: false, FieldPath: "triadId", Message: "batch is missing a triad id"}
	}
	return contract.Finding{Passed: true}
}

func ruleNodeIDsUnique(b Batch) contract.Finding {
	seen := map[string]bool{}
	for _, n := range b.Current.Nodes {
		seen[n.ID] = true
	}
	for _, n := range b.NewNodes {
		if seen[n.ID] {
			return contract.Finding{Passed: false, FieldPath: fmt.Sprintf("nodes[%s]", n.ID), Message: "node id collides with an existing node"}
		}
		seen[n.ID] = true
	}
	return contract.Finding{Passed: true}
}

func ruleNodeTypesKnown(b Batch) contract.Finding {
	for _, n := range b.NewNodes {
		if !graph.NodeTypes[strings.ToLower(n.Type)] {
			return contract.Finding{Passed: false, FieldPath: fmt.Sprintf("nodes[%s].type", n.ID), Message: fmt.Sprintf("unknown node type %q", n.Type)}
		}
	}
	return contract.Finding{Passed: true}
}

func ruleEdgesReferenceKnownNodes(b Batch) contract.Finding {
	known := map[string]bool{}
	for _, n := range b.Current.Nodes {
		known[n.ID] = true
	}
	for _, n := range b.NewNodes {
		known[n.ID] = true
	}
	for _, e := range b.NewEdges {
		if !known[e.From] {
			return contract.Finding{Passed: false, FieldPath: fmt.Sprintf("edges[%s].from", e.ID), Message: fmt.Sprintf("edge references unknown node %q", e.From)}
		}
		if !known[e.To] {
			return contract.Finding{Passed: false, FieldPath: fmt.Sprintf("edges[%s].to", e.ID), Message: fmt.Sprintf("edge references unknown node %q", e.To)}
		}
	}
	return contract.Finding{Passed: true}
}

func ruleNoSelfLoops(b Batch) contract.Finding {
	for _, e := range b.NewEdges {
		if e.From == e.To {
			return contract.Finding{Passed: false, FieldPath: fmt.Sprintf("edges[%s]", e.ID), Message: "edge cannot connect a node to itself"}
		}
	}
	return contract.Finding{Passed: true}
}
