package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vybe/internal/llm"
	"vybe/internal/overview"
	"vybe/internal/rag"
)

var flagChatK int

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions about your indexed codebase",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newWorkingDirApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireIndex(); err != nil {
			return err
		}
		if cmd.Flags().Changed("k") {
			a.cfg.Assemble.Candidates = flagChatK
		}

		ctx := cmd.Context()
		p := a.provider()
		ws := a.workspaceID()
		answerer := &rag.Answerer{
			Assembler:   a.engine(p, nil),
			Generator:   a.chat(),
			WorkspaceID: ws,
			Options:     a.defaultOptions(),
		}
		if ov := a.aggregator(p).Overview(ctx, ws); !ov.IsZero() {
			answerer.Overview = overview.Markdown(ov)
		}

		var history []llm.Message
		scanner := bufio.NewScanner(os.Stdin)
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "vybe chat (type /help for commands, /exit to quit)")
		fmt.Fprintln(out)

		for {
			fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				break
			}
			question := strings.TrimSpace(scanner.Text())
			if question == "" {
				continue
			}

			switch question {
			case "/exit", "/quit":
				fmt.Fprintln(out, "Goodbye.")
				return nil
			case "/clear":
				history = nil
				fmt.Fprintln(out, "Conversation cleared.")
				continue
			case "/help":
				fmt.Fprintln(out, "Commands:")
				fmt.Fprintln(out, "  /clear  - clear conversation history")
				fmt.Fprintln(out, "  /exit   - quit chat")
				fmt.Fprintln(out, "  /help   - show this help")
				continue
			}

			fmt.Fprintln(out, "[Assembling context...]")

			ans, err := answerer.Ask(ctx, question, history)
			if err != nil {
				fmt.Fprintf(os.Stderr, "llm error: %v\n", err)
				if ctx.Err() != nil {
					return nil
				}
				continue
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, ans.Text)
			if sources := rag.Sources(ans.Items); len(sources) > 0 {
				fmt.Fprintf(out, "\nSources: %s\n", strings.Join(sources, ", "))
			}
			fmt.Fprintln(out)

			history = rag.AppendTurn(history, question, ans.Text)
		}

		return scanner.Err()
	},
}

func init() {
	chatCmd.Flags().IntVar(&flagChatK, "k", 50, "number of candidate chunks to retrieve per question")
	rootCmd.AddCommand(chatCmd)
}
