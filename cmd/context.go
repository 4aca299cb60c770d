package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vybe/internal/assemble"
	"vybe/internal/rag"
)

var (
	flagOpen          []string
	flagMaxChars      int
	flagMaxTokens     int
	flagPreferActive  bool
	flagPreferIndexed bool
	flagPreferRecent  bool
	flagContextFormat string
	flagContextK      int
)

var contextCmd = &cobra.Command{
	Use:   "context <query>",
	Short: "Assemble budgeted prompt context for a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(flagContextFormat, "markdown", "md"); err != nil {
			return err
		}
		a, err := newWorkingDirApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireIndex(); err != nil {
			return err
		}

		if cmd.Flags().Changed("k") {
			a.cfg.Assemble.Candidates = flagContextK
		}
		opts := a.defaultOptions()
		f := cmd.Flags()
		if f.Changed("max-chars") {
			opts.MaxChars = flagMaxChars
		}
		if f.Changed("max-tokens") {
			opts.MaxTokens = flagMaxTokens
		}
		if f.Changed("prefer-active") {
			opts.PreferActive = flagPreferActive
		}
		if f.Changed("prefer-indexed") {
			opts.PreferIndexed = flagPreferIndexed
		}
		if f.Changed("prefer-recent") {
			opts.PreferRecent = flagPreferRecent
		}

		docs := assemble.NoDocuments
		if len(flagOpen) > 0 {
			docs = assemble.StaticDocuments(assemble.PathsToURIs(flagOpen))
		}

		query := strings.Join(args, " ")
		items := a.engine(a.provider(), docs).Assemble(cmd.Context(), a.workspaceID(), query, opts)
		if items == nil {
			items = []assemble.ContextItem{}
		}

		out := cmd.OutOrStdout()
		if ok, err := writeStructured(out, flagContextFormat, items); ok {
			return err
		}
		_, err = fmt.Fprint(out, rag.FormatItems(items))
		return err
	},
}

func init() {
	f := contextCmd.Flags()
	f.StringSliceVar(&flagOpen, "open", nil, "files open in the editor (repeatable)")
	f.IntVar(&flagMaxChars, "max-chars", 0, "character budget (default from config)")
	f.IntVar(&flagMaxTokens, "max-tokens", 0, "estimated token budget, 0 for none")
	f.BoolVar(&flagPreferActive, "prefer-active", false, "rank snippets from open files first")
	f.BoolVar(&flagPreferIndexed, "prefer-indexed", false, "rank snippets from fully indexed files first")
	f.BoolVar(&flagPreferRecent, "prefer-recent", false, "rank recently indexed files first")
	f.IntVar(&flagContextK, "k", 50, "number of candidate chunks to retrieve")
	f.StringVar(&flagContextFormat, "format", "markdown", "output format: markdown, json or yaml")
	rootCmd.AddCommand(contextCmd)
}
