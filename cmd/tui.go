package cmd

import (
	"context"

	"vybe/internal/index"
	"vybe/internal/overview"
	"vybe/internal/rag"
	"vybe/internal/slogutil"
	"vybe/internal/tui"
)

func runTUI(ctx context.Context) error {
	a, err := newWorkingDirApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// Log lines would corrupt the alternate screen.
	if a.cfg.Log.File == "" {
		a.logger = slogutil.NewDiscardLogger()
	}

	p := a.provider()
	ws := a.workspaceID()
	agg := a.aggregator(p)

	return tui.Run(ctx, tui.Config{
		Root:       a.root,
		EmbedModel: a.cfg.Ollama.EmbedModel,
		ChatModel:  a.cfg.Ollama.ChatModel,
		Answerer: rag.Answerer{
			Assembler:   a.engine(p, nil),
			Generator:   a.chat(),
			WorkspaceID: ws,
			Options:     a.defaultOptions(),
		},
		Overview: func(ctx context.Context) overview.RepoOverview {
			return agg.Overview(ctx, ws)
		},
		Index: func(ctx context.Context, progress index.ProgressFunc) (*index.Stats, error) {
			st, err := a.openStore()
			if err != nil {
				return nil, err
			}
			return a.indexer(st, progress).Index(ctx, a.root)
		},
	})
}
