package experience

import (
	"testing"

	"github.com/marcohefti/triadctl/internal/schema"
)

func TestRankKeepsOnlyItemsAtOrAboveThreshold(t *testing.T) {
	items := []schema.ProcessKnowledgeV1{
		{ID: "strong", Priority: "HIGH", Tools: []string{"bash"}, Confidence: 0.9},
		{ID: "weak", Priority: "LOW", Tools: []string{"read"}, Confidence: 0.5},
	}
	ctx := ToolContext{ToolName: "bash"}
	ranked := Rank(items, ctx)
	if len(ranked) != 1 || ranked[0].Item.ID != "strong" {
		t.Fatalf("unexpected ranking: %+v", ranked)
	}
}

func TestRankSkipsDeprecatedItems(t *testing.T) {
	items := []schema.ProcessKnowledgeV1{
		{ID: "dead", Priority: "CRITICAL", Tools: []string{"bash"}, Status: "deprecated"},
	}
	ranked := Rank(items, ToolContext{ToolName: "bash"})
	if len(ranked) != 0 {
		t.Fatalf("expected deprecated item to be excluded, got %+v", ranked)
	}
}

func TestRankOrdersByScoreDescending(t *testing.T) {
	items := []schema.ProcessKnowledgeV1{
		{ID: "medium", Priority: "MEDIUM", Tools: []string{"bash"}},
		{ID: "critical", Priority: "CRITICAL", Tools: []string{"bash"}},
	}
	ranked := Rank(items, ToolContext{ToolName: "bash"})
	if len(ranked) != 2 || ranked[0].Item.ID != "critical" {
		t.Fatalf("expected critical item ranked first, got %+v", ranked)
	}
}

func TestDecideInjectsByDefault(t *testing.T) {
	items := []ScoredItem{{Item: schema.ProcessKnowledgeV1{Priority: "HIGH", Confidence: 0.9}, Score: 1.0}}
	d := Decide(items, ToolContext{ToolName: "read"}, Options{})
	if d.Mode != "inject" {
		t.Fatalf("expected inject, got %s", d.Mode)
	}
}

func TestDecideBlocksOnCriticalHighConfidenceRiskyCommand(t *testing.T) {
	items := []ScoredItem{{
		Item: schema.ProcessKnowledgeV1{Priority: "CRITICAL", Confidence: 0.9},
		Score: 2.0,
	}}
	ctx := ToolContext{ToolName: "bash", ToolInput: map[string]any{"command": "git commit -am wip"}}
	d := Decide(items, ctx, Options{})
	if d.Mode != "block" {
		t.Fatalf("expected block, got %s", d.Mode)
	}
}

func TestDecideDoesNotBlockWhenDisableBlockSet(t *testing.T) {
	items := []ScoredItem{{
		Item: schema.ProcessKnowledgeV1{Priority: "CRITICAL", Confidence: 0.99},
	}}
	ctx := ToolContext{ToolName: "bash", ToolInput: map[string]any{"command": "rm -rf /"}}
	d := Decide(items, ctx, Options{DisableBlock: true})
	if d.Mode != "inject" {
		t.Fatalf("expected inject when disable_block is set, got %s", d.Mode)
	}
}

func TestDecideTreatsVeryHighConfidenceAsRiskyEvenWithoutCommand(t *testing.T) {
	items := []ScoredItem{{
		Item: schema.ProcessKnowledgeV1{Priority: "CRITICAL", Confidence: 0.97},
	}}
	d := Decide(items, ToolContext{ToolName: "read"}, Options{})
	if d.Mode != "block" {
		t.Fatalf("expected block for confidence >= 0.95, got %s", d.Mode)
	}
}

func TestFileMatchUsesGlobPatterns(t *testing.T) {
	items := []schema.ProcessKnowledgeV1{
		{ID: "a", Priority: "MEDIUM", FilePatterns: []string{"**/*.go"}},
	}
	ctx := ToolContext{ToolName: "write", ToolInput: map[string]any{"file_path": "internal/graph/graph.go"}}
	ranked := Rank(items, ctx)
	if len(ranked) != 1 {
		t.Fatalf("expected glob file match to score the item, got %+v", ranked)
	}
}
