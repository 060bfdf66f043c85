// Command msgqa is the entry point for the member-message Q&A service.
// It provides a CLI interface (via Cobra) and an optional HTTP server with
// a small web UI for interactive use.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/msgqa-go/cmd/msgqa/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
