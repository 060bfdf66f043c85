// Package commands defines all Cobra CLI commands for the msgqa binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/msgqa-go/internal/audit"
	"github.com/54b3r/msgqa-go/internal/config"
	"github.com/54b3r/msgqa-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "msgqa",
		Short: "msgqa — answer questions about member messages, powered by LLMs",
		Long: `msgqa answers natural language questions about a feed of member messages.

It fetches the messages once, embeds them into a vectorized in-memory cache,
ranks them against each incoming question by cosine similarity, and asks an
LLM to answer using only the best-matching messages as context.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.msgqa/config.yaml).
See 'msgqa --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.msgqa/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewMessagesCmd(),
		NewServeCmd(),
		NewHistoryCmd(),
		NewVersionCmd(),
	)

	return root
}
