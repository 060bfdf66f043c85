package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/msgqa-go/internal/logging"
)

// NewAskCmd constructs the `msgqa ask` command, which answers a single
// natural language question about the member messages and exits.
func NewAskCmd() *cobra.Command {
	var effort string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about the member messages",
		Long: `Ask a natural language question about the member messages.

The messages are fetched, embedded, and ranked against the question; the
best matches are handed to the LLM as context.

Examples:
  msgqa ask "who booked the spa last weekend?"
  msgqa ask --reasoning-effort high "summarise the complaints about the pool"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			opts, err := parseEffort(effort)
			if err != nil {
				return err
			}

			svc, _, err := buildService(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("ask: question must not be empty")
			}

			text, sourcesUsed, err := svc.Answer(ctx, question, opts)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			recordHistory(ctx, log, question, text, sourcesUsed)

			fmt.Println(text)
			fmt.Printf("\n(%d messages used as context)\n", sourcesUsed)
			return nil
		},
	}

	cmd.Flags().StringVar(&effort, "reasoning-effort", "", "Reasoning effort hint for the model: minimal, low, medium, or high")

	return cmd
}
