// Package orchestrator implements the stop-hook orchestrator (C8): it
// extracts the five recognized block kinds from an assistant's final
// response text, parses their line-oriented payloads, and dispatches each
// block to the component that owns it. One block type failing never
// prevents the others from running.
package orchestrator

import (
	"regexp"
	"strings"
)

// The five block kinds the orchestrator recognizes, in dispatch order.
// PRE_FLIGHT_CHECK runs before GRAPH_UPDATE so a vetoed triad's graph
// updates can be rejected as a batch.
const (
	TagPreFlightCheck   = "PRE_FLIGHT_CHECK"
	TagGraphUpdate      = "GRAPH_UPDATE"
	TagProcessKnowledge = "PROCESS_KNOWLEDGE"
	TagHandoffRequest   = "HANDOFF_REQUEST"
	TagWorkflowComplete = "WORKFLOW_COMPLETE"
)

var blockTags = []string{
	TagPreFlightCheck,
	TagGraphUpdate,
	TagProcessKnowledge,
	TagHandoffRequest,
	TagWorkflowComplete,
}

// RawBlock is one [TAG]...[/TAG] span extracted from assistant text,
// still in its raw line-oriented form.
type RawBlock struct {
	Tag  string
	Body string
}

func blockPattern(tag string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)\[` + tag + `\](.*?)\[/` + tag + `\]`)
}

// ExtractBlocks finds every recognized block in text, in the dispatch
// order above, preserving left-to-right order within each tag.
func ExtractBlocks(text string) []RawBlock {
	var out []RawBlock
	for _, tag := range blockTags {
		for _, m := range blockPattern(tag).FindAllStringSubmatch(text, -1) {
			out = append(out, RawBlock{Tag: tag, Body: m[1]})
		}
	}
	return out
}

// ParsePayload parses a block body of line-oriented "key: value" pairs.
// A value of "|" or empty opens a multi-line block whose continuation
// lines begin with "|"; those lines are joined with "\n" into the
// opening key's value. Unknown keys are kept as-is; the caller decides
// which are required.
func ParsePayload(body string) map[string]string {
	payload := map[string]string{}
	var currentKey string
	var multiline []string

	flush := func() {
		if currentKey != "" && len(multiline) > 0 {
			payload[currentKey] = strings.Join(multiline, "\n")
		}
		multiline = nil
	}

	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return payload
	}
	for _, line := range strings.Split(trimmed, "\n") {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "|") && currentKey != "" {
			multiline = append(multiline, strings.TrimSpace(strings.TrimPrefix(l, "|")))
			continue
		}
		idx := strings.Index(l, ":")
		if idx < 0 {
			continue
		}
		flush()
		key := strings.TrimSpace(l[:idx])
		value := strings.TrimSpace(l[idx+1:])
		if value == "" || value == "|" {
			currentKey = key
			continue
		}
		payload[key] = value
		currentKey = ""
	}
	flush()
	return payload
}

// splitCSV splits a comma-separated value into trimmed, non-empty parts.
func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
