package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"vybe/internal/overview"
)

type indexStatus int

const (
	indexNotFound indexStatus = iota
	indexReady
	indexPartial
)

type welcomeModel struct {
	status   indexStatus
	overview overview.RepoOverview
	ready    bool // true once the check has completed
}

// overviewMsg carries a freshly computed overview.
type overviewMsg struct {
	overview overview.RepoOverview
}

func loadOverview(ctx context.Context, cfg Config) tea.Cmd {
	return func() tea.Msg {
		if cfg.Overview == nil {
			return overviewMsg{}
		}
		return overviewMsg{overview: cfg.Overview(ctx)}
	}
}

// checkIndex loads the overview for the welcome screen.
func checkIndex(ctx context.Context, cfg Config) tea.Cmd {
	return loadOverview(ctx, cfg)
}

func statusOf(ov overview.RepoOverview) indexStatus {
	switch {
	case ov.IsZero() || ov.TotalFiles == 0:
		return indexNotFound
	case ov.IndexedFiles < ov.TotalFiles:
		return indexPartial
	}
	return indexReady
}

func (m welcomeModel) Update(msg tea.Msg) (welcomeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case overviewMsg:
		m.overview = msg.overview
		m.status = statusOf(msg.overview)
		m.ready = true
	}
	return m, nil
}

func (m welcomeModel) View(cfg Config, width, height int) string {
	s := "\n"
	s += titleStyle.Render("  ◆ vybe") + "\n"
	s += subtitleStyle.Render("  Budgeted code context for local LLMs") + "\n"
	s += dimStyle.Render(fmt.Sprintf("  %s · embed %s · chat %s", cfg.Root, cfg.EmbedModel, cfg.ChatModel)) + "\n\n"

	if !m.ready {
		s += dimStyle.Render("  Checking index...") + "\n"
		return s
	}

	ov := m.overview
	switch m.status {
	case indexReady:
		s += successStyle.Render("  ✓ Index ready") + "\n"
	case indexNotFound:
		s += warnStyle.Render("  ✗ No index found") + "\n"
	case indexPartial:
		s += warnStyle.Render("  ⚠ Index incomplete") + "\n"
		s += dimStyle.Render(fmt.Sprintf("    %d of %d files have no embeddings", ov.TotalFiles-ov.IndexedFiles, ov.TotalFiles)) + "\n"
	}

	if m.status != indexNotFound {
		s += fmt.Sprintf("\n  Files:  %d (%d indexed)\n", ov.TotalFiles, ov.IndexedFiles)
		s += fmt.Sprintf("  Chunks: %d\n", ov.TotalChunks)
		if langs := overview.Languages(ov); len(langs) > 0 {
			s += fmt.Sprintf("  Langs:  %s\n", overview.LanguageSummary(langs))
		}
	}

	s += "\n"
	switch m.status {
	case indexReady:
		s += dimStyle.Render("  Enter to start chatting · r to re-index · q to quit") + "\n"
	default:
		s += dimStyle.Render("  Enter to index this project · q to quit") + "\n"
	}
	return s
}
