package config

// TriadSystemConfigV1 mirrors the "triad_system" block written into a
// project's .claude/settings.json: which hook events are registered, how
// the stop-hook orchestrator should treat unrecognized block content, and
// the rate limits/bypass flag enforced by the event store and workflow
// validator.
type TriadSystemConfigV1 struct {
	Hooks          []HookRegistrationV1 `json:"hooks"`
	BlockDispatch  BlockDispatchPolicyV1 `json:"blockDispatch"`
	RateLimits     RateLimitConfigV1     `json:"rateLimits"`
	BypassFlagName string                `json:"bypassFlagName"`
}

// HookRegistrationV1 is one entry point triadctl wires into Claude Code's
// hook system (SessionStart, PreToolUse, Stop, ...).
type HookRegistrationV1 struct {
	Event   string `json:"event"`
	Command string `json:"command"`
}

// BlockDispatchPolicyV1 controls how the stop-hook orchestrator (C8)
// reacts to parse failures and unknown tags.
type BlockDispatchPolicyV1 struct {
	IgnoreUnknownTags  bool `json:"ignoreUnknownTags"`
	FailOnParseError   bool `json:"failOnParseError"`
	MaxBlocksPerOutput int  `json:"maxBlocksPerOutput"`
}

// RateLimitConfigV1 configures the token-bucket limiter guarding event
// capture (C2) against runaway hook loops.
type RateLimitConfigV1 struct {
	EventsPerSecond float64 `json:"eventsPerSecond"`
	Burst           int     `json:"burst"`
}

// DefaultHookEvents is the fixed set of Claude Code hook lifecycle events
// triadctl's cmd/hooks binaries register against.
var DefaultHookEvents = []string{
	"SessionStart",
	"SessionEnd",
	"UserPromptSubmit",
	"PreToolUse",
	"PostToolUse",
	"PermissionRequest",
	"Stop",
	"SubagentStop",
	"PreCompact",
	"Notification",
}

func DefaultTriadSystemConfigV1() *TriadSystemConfigV1 {
	hooks := make([]HookRegistrationV1, 0, len(DefaultHookEvents))
	for _, event := range DefaultHookEvents {
		hooks = append(hooks, HookRegistrationV1{
			Event:   event,
			Command: "triadctl-hook-" + toKebab(event),
		})
	}
	return &TriadSystemConfigV1{
		Hooks: hooks,
		BlockDispatch: BlockDispatchPolicyV1{
			IgnoreUnknownTags:  true,
			FailOnParseError:   false,
			MaxBlocksPerOutput: 32,
		},
		RateLimits: RateLimitConfigV1{
			EventsPerSecond: 20,
			Burst:           40,
		},
		BypassFlagName: "TRIAD_EMERGENCY_BYPASS",
	}
}

func toKebab(event string) string {
	out := make([]byte, 0, len(event)+4)
	for i, r := range event {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				out = append(out, '-')
			}
			out = append(out, byte(r-'A'+'a'))
			continue
		}
		out = append(out, byte(r))
	}
	return string(out)
}
