package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/54b3r/msgqa-go/internal/store"
)

// NewHistoryCmd constructs the `msgqa history` command, which prints the
// most recently answered questions from the local history database.
func NewHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently answered questions",
		Long: `Show the most recently answered questions and their answers.

History is written by the server and by 'msgqa ask' unless disabled via
MSGQA_HISTORY_DB=disabled.

Examples:
  msgqa history
  msgqa history --limit 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := os.Getenv("MSGQA_HISTORY_DB")
			if dbPath == "disabled" {
				return fmt.Errorf("history: disabled via MSGQA_HISTORY_DB=disabled")
			}
			if dbPath == "" {
				var err error
				dbPath, err = store.DefaultDBPath()
				if err != nil {
					return fmt.Errorf("history: %w", err)
				}
			}

			s, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			defer s.Close()

			recs, err := s.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}

			if len(recs) == 0 {
				fmt.Println("no history yet")
				return nil
			}
			for _, r := range recs {
				fmt.Printf("[%s] Q: %s\n    A: %s (%d sources)\n",
					r.CreatedAt.Format("2006-01-02 15:04"), r.Question, r.Answer, r.SourcesUsed)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of records to show")

	return cmd
}
