package hookenv

import (
	"encoding/json"
	"fmt"
	"io"
)

// Output is the non-blocking hook stdout protocol: a single JSON object
// naming the firing event and any additional context to inject into the
// host's context window.
type hookSpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

type wireOutput struct {
	HookSpecificOutput hookSpecificOutput `json:"hookSpecificOutput"`
}

// WriteOutput prints the single JSON object non-blocking hooks must
// emit on stdout before exiting 0.
func WriteOutput(w io.Writer, eventName, additionalContext string) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(wireOutput{HookSpecificOutput: hookSpecificOutput{
		HookEventName:     eventName,
		AdditionalContext: additionalContext,
	}})
}

// WriteBlockInterjection writes the experience hook's blocking-mode
// user-style message to stderr. Callers exit 2 themselves immediately
// after — this is the only hook path permitted a non-zero exit code.
func WriteBlockInterjection(w io.Writer, message string) {
	fmt.Fprintln(w, message)
}
