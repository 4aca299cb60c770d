package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var flagWorkers int

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Index a codebase for context assembly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		if cmd.Flags().Changed("workers") {
			a.cfg.Index.Workers = flagWorkers
		}

		st, err := a.openStore()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Indexing %s...\n", a.root)
		start := time.Now()

		stats, err := a.indexer(st, nil).Index(cmd.Context(), a.root)
		elapsed := time.Since(start)

		if stats != nil {
			fmt.Fprintf(out, "\nDone in %s\n", elapsed.Round(time.Millisecond))
			fmt.Fprintf(out, "  Files:   %d total, %d indexed, %d skipped, %d deleted\n",
				stats.FilesTotal, stats.FilesIndexed, stats.FilesSkipped, stats.FilesDeleted)
			if stats.FilesDiscovered > 0 {
				fmt.Fprintf(out, "           %d without embeddings (re-run once the embedder is reachable)\n", stats.FilesDiscovered)
			}
			fmt.Fprintf(out, "  Chunks:  %d\n", stats.ChunksTotal)
		}

		return err
	},
}

func init() {
	indexCmd.Flags().IntVar(&flagWorkers, "workers", 0, "parallel workers (default from config, 0 = NumCPU)")
	rootCmd.AddCommand(indexCmd)
}
