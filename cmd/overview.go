package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"vybe/internal/overview"
)

var (
	flagOverviewFormat string
	flagSummarize      bool
)

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show file, chunk and language statistics of the index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(flagOverviewFormat, "text", "markdown", "md"); err != nil {
			return err
		}
		a, err := newWorkingDirApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ov := a.aggregator(a.provider()).Overview(cmd.Context(), a.workspaceID())

		out := cmd.OutOrStdout()
		if ok, err := writeStructured(out, flagOverviewFormat, ov); ok {
			return err
		}
		switch flagOverviewFormat {
		case "markdown", "md":
			fmt.Fprint(out, overview.Markdown(ov))
		default:
			fmt.Fprint(out, overview.Text(ov))
		}

		if flagSummarize {
			summary, err := overview.Summarize(cmd.Context(), a.chat(), ov)
			if errors.Is(err, overview.ErrEmpty) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("summarize: %w", err)
			}
			fmt.Fprintf(out, "\n%s\n", summary)
		}
		return nil
	},
}

func init() {
	overviewCmd.Flags().StringVar(&flagOverviewFormat, "format", "text", "output format: text, markdown, json or yaml")
	overviewCmd.Flags().BoolVar(&flagSummarize, "summarize", false, "ask the chat model for a prose summary")
	rootCmd.AddCommand(overviewCmd)
}
