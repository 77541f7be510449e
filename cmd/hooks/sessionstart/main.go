package main

import (
	"context"
	"os"

	"github.com/marcohefti/triadctl/internal/hooks"
)

func main() {
	c, err := hooks.NewComponents("")
	if err != nil {
		os.Exit(0)
	}
	os.Exit(c.Env().Run(context.Background(), "SessionStart", "session_start", os.Stdin, hooks.SessionStart(c)))
}
