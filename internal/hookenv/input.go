// Package hookenv implements the hook envelope (C9): the tolerant stdin
// read, active-workspace lookup and never-crash execution/failure event
// recording shared by every hook entry point in cmd/hooks.
package hookenv

import (
	"bufio"
	"encoding/json"
	"io"
)

// Input is the tolerantly-parsed stdin payload. A missing or malformed
// body yields an empty Input rather than an error — hooks must never
// fail because the host sent nothing or sent garbage.
type Input struct {
	raw map[string]any
}

// ReadInput decodes r as a single JSON object. Decode failures (empty
// stdin, truncated JSON, a non-object top level) are swallowed; the
// result is simply an Input with no fields set.
func ReadInput(r io.Reader) Input {
	raw := map[string]any{}
	_ = json.NewDecoder(bufio.NewReader(r)).Decode(&raw)
	if raw == nil {
		raw = map[string]any{}
	}
	return Input{raw: raw}
}

func (in Input) str(key string) string {
	if v, ok := in.raw[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (in Input) obj(key string) map[string]any {
	if v, ok := in.raw[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}

func (in Input) boolField(key string) bool {
	if v, ok := in.raw[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// Field-specific accessors, one per §6 stdin shape. Hooks that don't
// need a given field simply never call its accessor.
func (in Input) ToolName() string             { return in.str("tool_name") }
func (in Input) ToolInput() map[string]any    { return in.obj("tool_input") }
func (in Input) ToolResponse() map[string]any { return in.obj("tool_response") }
func (in Input) ToolUseID() string            { return in.str("tool_use_id") }
func (in Input) SessionID() string            { return in.str("session_id") }
func (in Input) Cwd() string                  { return in.str("cwd") }
func (in Input) NotificationType() string     { return in.str("notification_type") }
func (in Input) Message() string              { return in.str("message") }
func (in Input) Response() string             { return in.str("response") }
func (in Input) TranscriptPath() string       { return in.str("transcript_path") }
func (in Input) Reason() string               { return in.str("reason") }
func (in Input) Trigger() string              { return in.str("trigger") }
func (in Input) CustomInstructions() string   { return in.str("custom_instructions") }
func (in Input) Prompt() string               { return in.str("prompt") }
func (in Input) TriadID() string              { return in.str("triad_id") }
func (in Input) StopHookActive() bool         { return in.boolField("stop_hook_active") }

// Raw exposes the decoded payload for hooks that need a field this
// package doesn't name explicitly.
func (in Input) Raw() map[string]any { return in.raw }
