// Package commands defines all Cobra CLI commands for the aitutor binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ECampbell37/ai-tutor-go/internal/audit"
	"github.com/ECampbell37/ai-tutor-go/internal/config"
	"github.com/ECampbell37/ai-tutor-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "aitutor",
		Short: "AI Tutor — a personalized AI learning companion",
		Long: `AI Tutor is a backend for personalized AI-powered learning.

It teaches any subject through conversational lessons in several modes
(casual, kids, professional, free chat), runs interactive quizzes with
feedback and grading, and answers questions about uploaded PDF documents
using retrieval over a per-user vector index.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.aitutor/config.yaml).
See 'aitutor --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Local development keys live in .env; ignore if absent.
			_ = godotenv.Load()

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

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.aitutor/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewChatCmd(),
		NewVersionCmd(),
	)

	return root
}
