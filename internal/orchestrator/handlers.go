package orchestrator

import (
	"strconv"
	"strings"
	"time"

	"github.com/marcohefti/triadctl/internal/contract"
	"github.com/marcohefti/triadctl/internal/preflight"
	"github.com/marcohefti/triadctl/internal/schema"
	"github.com/marcohefti/triadctl/internal/store"
	"github.com/marcohefti/triadctl/internal/workflow"
)

// dispatchHandoffRequest validates next_triad is present and atomically
// writes the single pending-handoff file, overwriting any prior one.
func (o *Orchestrator) dispatchHandoffRequest(b RawBlock, triadHint string, results Results) {
	res := results.forTag(TagHandoffRequest)
	res.Count++

	p := ParsePayload(b.Body)
	nextTriad := p["next_triad"]
	if nextTriad == "" {
		res.AddError(contract.NewError(contract.CodeValidation, "HANDOFF_REQUEST missing next_triad"))
		return
	}

	expiry := DefaultHandoffExpiryHours
	if raw := p["expiry_hours"]; raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			expiry = v
		}
	}

	handoff := schema.PendingHandoffV1{
		SchemaVersion:  1,
		NextTriad:      nextTriad,
		RequestType:    firstNonEmpty(p["request_type"], "unknown"),
		Context:        p["context"],
		KnowledgeGraph: p["knowledge_graph"],
		UpdatedNodes:   splitCSV(p["updated_nodes"]),
		Timestamp:      nowRFC3339(),
		Status:         "pending",
		ExpiryHours:    expiry,
	}

	path := o.pendingHandoffPath()
	if err := store.WriteJSONAtomic(path, handoff); err != nil {
		res.AddError(contract.NewError(contract.CodeIO, err.Error()).WithPath(path))
		return
	}
	res.Applied++
}

// dispatchWorkflowComplete transitions the workflow to the requested
// phase and, on success, clears any pending handoff file (the completed
// triad's handoff has either been consumed already or is superseded).
func (o *Orchestrator) dispatchWorkflowComplete(b RawBlock, triadHint string, results Results) {
	res := results.forTag(TagWorkflowComplete)
	res.Count++

	p := ParsePayload(b.Body)
	triadID := firstNonEmpty(p["triad"], triadHint)
	phase := p["phase"]
	if triadID == "" || phase == "" {
		res.AddError(contract.NewError(contract.CodeValidation, "WORKFLOW_COMPLETE missing triad or phase"))
		return
	}

	flags := workflow.Flags{
		Require:           parseBool(p["require_garden_tending"]),
		Skip:              parseBool(p["skip_garden_tending"]),
		NewFeaturesSignal: parseBool(p["new_features"]),
	}

	var bypass *schema.AuditEntryV1
	if j := p["bypass_justification"]; j != "" {
		bypass = &schema.AuditEntryV1{Actor: firstNonEmpty(p["actor"], "assistant"), Justification: j}
	}

	if o.Workflow == nil {
		res.AddError(contract.NewError(contract.CodeNotFound, "no workflow store configured"))
		return
	}
	if _, err := o.Workflow.Transition(triadID, phase, nil, flags, bypass); err != nil {
		res.AddError(err)
		return
	}
	res.Applied++

	_ = store.RemoveIfExists(o.pendingHandoffPath())
}

// dispatchProcessKnowledge upserts one process-knowledge item into
// triadID's process-knowledge.json, assigning initial confidence per C5
// when it's a brand-new item.
func (o *Orchestrator) dispatchProcessKnowledge(b RawBlock, triadHint string, results Results) {
	res := results.forTag(TagProcessKnowledge)
	res.Count++

	p := ParsePayload(b.Body)
	triadID := firstNonEmpty(p["triad"], triadHint)
	title := p["title"]
	content := p["content"]
	if triadID == "" || title == "" || content == "" {
		res.AddError(contract.NewError(contract.CodeValidation, "PROCESS_KNOWLEDGE missing triad, title or content"))
		return
	}

	item := schema.ProcessKnowledgeV1{
		ID:              p["id"],
		Title:           title,
		Content:         content,
		Priority:        firstNonEmpty(strings.ToUpper(p["priority"]), "MEDIUM"),
		Source:          firstNonEmpty(p["source"], "process_knowledge_block"),
		Tools:           splitCSV(p["tools"]),
		FilePatterns:    splitCSV(p["file_patterns"]),
		ActionKeywords:  splitCSV(p["action_keywords"]),
		ContextKeywords: splitCSV(p["context_keywords"]),
	}
	if raw := p["confidence"]; raw != "" {
		item.Confidence = parseConfidence(raw)
	}

	if o.Tracker == nil {
		res.AddError(contract.NewError(contract.CodeNotFound, "no tracker store configured"))
		return
	}
	if _, _, err := o.Tracker.UpsertKnowledge(triadID, item); err != nil {
		res.AddError(err)
		return
	}
	res.Applied++
}

// dispatchPreFlightCheck evaluates the constitutional rule set against
// the node/edge additions proposed inline in this block (new_nodes /
// new_edges, same flat key:value shape as GRAPH_UPDATE) and, on any
// violation, marks that triad as vetoed for the rest of this batch so a
// later GRAPH_UPDATE for the same triad is rejected wholesale.
func (o *Orchestrator) dispatchPreFlightCheck(b RawBlock, triadHint string, results Results, vetoed map[string]bool) {
	res := results.forTag(TagPreFlightCheck)
	res.Count++

	p := ParsePayload(b.Body)
	triadID := firstNonEmpty(p["triad"], triadHint)
	if triadID == "" {
		res.AddError(contract.NewError(contract.CodeValidation, "PRE_FLIGHT_CHECK missing triad"))
		return
	}

	var current schema.KnowledgeGraphV1
	if o.Graph != nil {
		var err error
		current, err = o.Graph.Load(triadID)
		if err != nil {
			res.AddError(err)
			vetoed[triadID] = true
			return
		}
	}

	batch := preflight.Batch{
		TriadID:  triadID,
		Current:  current,
		NewNodes: parseInlineNodes(p),
		NewEdges: parseInlineEdges(p),
	}
	result := preflight.Evaluate(batch)
	if !result.OK {
		vetoed[triadID] = true
		var violations []string
		for _, f := range result.Findings {
			if !f.Passed {
				violations = append(violations, f.Rule+": "+f.Message)
				res.AddError(contract.NewError(contract.CodeValidation, f.Rule+": "+f.Message))
			}
		}
		o.queueKMIssue(triadID, violations)
		return
	}
	res.Applied++
}

// queueKMIssue appends a rejected pre-flight batch to km_queue.json so an
// operator has a durable list of knowledge-management issues to triage.
// A failure to append never surfaces past this: the BlockResult error
// already records the rejection itself.
func (o *Orchestrator) queueKMIssue(triadID string, violations []string) {
	if len(violations) == 0 {
		return
	}
	entry := schema.KMQueueEntryV1{
		SchemaVersion: 1,
		TriadID:       triadID,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Rule:          "pre_flight_check",
		Message:       violations[0],
		Violations:    violations,
		Status:        "open",
	}
	_ = store.AppendJSONL(o.kmQueuePath(), entry)
}

// dispatchGraphUpdate groups GRAPH_UPDATE blocks by their explicit triad
// field (no agent-name inference — an omitted triad is a hard failure
// for that block) and applies add_node/update_node/add_edge/update_edge
// mutations, saving once per triad via the graph store's own validate
// -backup-write protocol.
func (o *Orchestrator) dispatchGraphUpdate(b RawBlock, triadHint string, results Results, vetoed map[string]bool) {
	res := results.forTag(TagGraphUpdate)
	res.Count++

	if o.Graph == nil {
		res.AddError(contract.NewError(contract.CodeNotFound, "no graph store configured"))
		return
	}

	p := ParsePayload(b.Body)
	triadID := p["triad"]
	if triadID == "" {
		res.AddError(contract.NewError(contract.CodeValidation, "GRAPH_UPDATE missing explicit triad field"))
		return
	}
	if vetoed[triadID] {
		res.AddError(contract.NewError(contract.CodeBlocked, "GRAPH_UPDATE rejected: triad "+triadID+" failed its pre-flight check"))
		return
	}

	g, err := o.Graph.Load(triadID)
	if err != nil {
		res.AddError(err)
		return
	}

	if err := applyGraphOperation(&g, p); err != nil {
		res.AddError(err)
		return
	}

	if err := o.Graph.Save(triadID, g); err != nil {
		res.AddError(err)
		return
	}
	res.Applied++
}

// parseConfidence validates and sanitizes an ingested confidence score,
// mirroring validate_confidence_value's security posture: a missing or
// non-numeric value degrades to a conservative default rather than
// rejecting the whole block, and an out-of-range numeric value is
// clamped into [0.0, 1.0] rather than passed through to graph.Save's
// stricter range check.
func parseConfidence(raw string) float64 {
	if raw == "" {
		return 0.70
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0.70
	}
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

func applyGraphOperation(g *schema.KnowledgeGraphV1, p map[string]string) error {
	op := p["operation"]
	now := nowRFC3339()

	switch op {
	case "add_node":
		node := schema.NodeV1{
			ID:        p["node_id"],
			Type:      p["node_type"],
			Label:     p["label"],
			Content:   p["content"],
			Evidence:  splitCSV(p["evidence"]),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if raw := p["confidence"]; raw != "" {
			node.Confidence = parseConfidence(raw)
		}
		if node.ID == "" || node.Label == "" {
			return contract.NewError(contract.CodeValidation, "add_node missing node_id or label")
		}
		g.Nodes = append(g.Nodes, node)
	case "update_node":
		id := p["node_id"]
		found := false
		for i := range g.Nodes {
			if g.Nodes[i].ID == id {
				if v := p["label"]; v != "" {
					g.Nodes[i].Label = v
				}
				if v := p["content"]; v != "" {
					g.Nodes[i].Content = v
				}
				if raw := p["confidence"]; raw != "" {
					g.Nodes[i].Confidence = parseConfidence(raw)
				}
				g.Nodes[i].UpdatedAt = now
				found = true
				break
			}
		}
		if !found {
			return contract.NewError(contract.CodeNotFound, "update_node: unknown node "+id)
		}
	case "add_edge":
		edge := schema.EdgeV1{
			ID:        firstNonEmpty(p["edge_id"], p["from"]+"->"+p["to"]),
			From:      p["from"],
			To:        p["to"],
			Relation:  p["relation"],
			CreatedAt: now,
		}
		if edge.From == "" || edge.To == "" {
			return contract.NewError(contract.CodeValidation, "add_edge missing from or to")
		}
		g.Edges = append(g.Edges, edge)
	case "update_edge":
		id := p["edge_id"]
		found := false
		for i := range g.Edges {
			if g.Edges[i].ID == id {
				if v := p["relation"]; v != "" {
					g.Edges[i].Relation = v
				}
				found = true
				break
			}
		}
		if !found {
			return contract.NewError(contract.CodeNotFound, "update_edge: unknown edge "+id)
		}
	default:
		return contract.NewError(contract.CodeValidation, "GRAPH_UPDATE unknown operation "+op)
	}
	return nil
}

func parseInlineNodes(p map[string]string) []schema.NodeV1 {
	if p["node_id"] == "" {
		return nil
	}
	node := schema.NodeV1{ID: p["node_id"], Type: p["node_type"], Label: p["label"], Content: p["content"]}
	if raw := p["confidence"]; raw != "" {
		node.Confidence = parseConfidence(raw)
	}
	return []schema.NodeV1{node}
}

func parseInlineEdges(p map[string]string) []schema.EdgeV1 {
	if p["from"] == "" && p["to"] == "" {
		return nil
	}
	return []schema.EdgeV1{{ID: firstNonEmpty(p["edge_id"], p["from"]+"->"+p["to"]), From: p["from"], To: p["to"], Relation: p["relation"]}}
}

func parseBool(v string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(v))
	return b
}
