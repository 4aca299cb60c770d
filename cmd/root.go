package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	flagDB        string
	flagConfig    string
	flagOllama    string
	flagModel     string
	flagChatModel string
	flagLogLevel  string
	flagWorkspace string
	flagVerbose   int
	flagQuiet     bool
)

var rootCmd = &cobra.Command{
	Use:          "vybe",
	Short:        "Assemble code context for LLM prompts from a local index",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd.Context())
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagDB, "db", "", "database path (default <project>/.vybe/index.db)")
	pf.StringVar(&flagConfig, "config", "", "config file (default <project>/.vybe/config.toml)")
	pf.StringVar(&flagOllama, "ollama", "", "ollama base URL (default from config)")
	pf.StringVar(&flagModel, "model", "", "embedding model (default from config)")
	pf.StringVar(&flagChatModel, "chat-model", "", "generative model for chat (default from config)")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&flagWorkspace, "workspace", "", "workspace id (default derived from the project path)")
	pf.CountVarP(&flagVerbose, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "silence all logging")
}
