package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"vybe/internal/index"
)

type indexingModel struct {
	spinner        spinner.Model
	progress       progress.Model
	phase          string
	filesProcessed int
	filesTotal     int
	done           bool
	stats          *index.Stats
	err            error
}

func newIndexingModel() indexingModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return indexingModel{
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		phase:    "Indexing files...",
	}
}

// indexDoneMsg is sent when indexing completes.
type indexDoneMsg struct {
	stats *index.Stats
	err   error
}

// indexProgressMsg is sent periodically during indexing.
type indexProgressMsg struct {
	phase          string
	filesProcessed int
	filesTotal     int
}

var errNoIndexer = errors.New("indexing is not available")

func runIndex(ctx context.Context, cfg Config) tea.Cmd {
	return func() tea.Msg {
		if cfg.Index == nil {
			return indexDoneMsg{err: errNoIndexer}
		}
		stats, err := cfg.Index(ctx, func(phase string, processed, total int) {
			cfg.program.send(indexProgressMsg{
				phase:          phase,
				filesProcessed: processed,
				filesTotal:     total,
			})
		})
		return indexDoneMsg{stats: stats, err: err}
	}
}

func (m indexingModel) Update(msg tea.Msg) (indexingModel, tea.Cmd) {
	switch msg := msg.(type) {
	case indexDoneMsg:
		m.done = true
		m.stats = msg.stats
		m.err = msg.err
		return m, nil
	case indexProgressMsg:
		m.phase = msg.phase
		m.filesProcessed = msg.filesProcessed
		m.filesTotal = msg.filesTotal
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m indexingModel) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n" + titleStyle.Render("  Indexing") + "\n\n")

	switch {
	case m.done && m.err != nil:
		line(&b, errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)))
		b.WriteString("\n")
		line(&b, dimStyle.Render("  Press Enter to continue to chat anyway, or q to quit."))
	case m.done:
		line(&b, successStyle.Render("  ✓ Indexing complete!"))
		b.WriteString("\n")
		m.writeStats(&b)
		b.WriteString("\n")
		line(&b, dimStyle.Render("  Press Enter to start chatting"))
	default:
		line(&b, fmt.Sprintf("  %s %s", m.spinner.View(), m.phase))
		if m.filesTotal > 0 {
			ratio := float64(m.filesProcessed) / float64(m.filesTotal)
			line(&b, "  "+m.progress.ViewAs(min(ratio, 1)))
			line(&b, dimStyle.Render(fmt.Sprintf("  %d of %d files", m.filesProcessed, m.filesTotal)))
		}
		b.WriteString("\n")
		line(&b, dimStyle.Render("  Large repositories can take several minutes."))
	}
	return b.String()
}

func (m indexingModel) writeStats(b *strings.Builder) {
	st := m.stats
	if st == nil {
		return
	}
	line(b, fmt.Sprintf("  Files: %d total, %d indexed, %d skipped, %d deleted",
		st.FilesTotal, st.FilesIndexed, st.FilesSkipped, st.FilesDeleted))
	if st.FilesDiscovered > 0 {
		line(b, warnStyle.Render(fmt.Sprintf("  %d files could not be embedded", st.FilesDiscovered)))
	}
	line(b, fmt.Sprintf("  Chunks: %d", st.ChunksTotal))
}

func line(b *strings.Builder, s string) {
	b.WriteString(s)
	b.WriteByte('\n')
}
