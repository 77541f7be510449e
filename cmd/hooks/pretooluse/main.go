package main

import (
	"context"
	"os"

	"github.com/marcohefti/triadctl/internal/hooks"
)

// PreToolUse is the one hook that does not go through hookenv.Env.Run: a
// block decision must exit 2, which the envelope's always-0 contract
// forbids.
func main() {
	c, err := hooks.NewComponents("")
	if err != nil {
		os.Exit(0)
	}
	os.Exit(hooks.RunPreToolUse(context.Background(), c, os.Stdin, os.Stderr, hooks.OptionsFromEnv()))
}
