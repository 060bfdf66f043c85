package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/msgqa-go/internal/logging"
)

// NewMessagesCmd constructs the `msgqa messages` command, which fetches the
// member messages from the feed and prints them without involving the LLM.
func NewMessagesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Fetch and print the member messages",
		Long: `Fetch the member messages from the configured feed and print them.

Useful for verifying feed connectivity and inspecting what the service
would use as answer context.

Examples:
  msgqa messages
  msgqa messages --limit 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			feedClient, err := buildFeedClient()
			if err != nil {
				return fmt.Errorf("messages: %w", err)
			}

			msgs, err := feedClient.Fetch(ctx, limit)
			if err != nil {
				return fmt.Errorf("messages: %w", err)
			}

			for _, m := range msgs {
				fmt.Printf("%s  %-20s %s\n", m.Timestamp.Format(time.RFC3339), m.UserName, m.Body)
			}
			fmt.Printf("\n%d messages\n", len(msgs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of messages to fetch (0 = feed default)")

	return cmd
}
