// Package tui is the interactive terminal front end.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"vybe/internal/index"
	"vybe/internal/overview"
	"vybe/internal/rag"
)

// ViewState represents which screen is active.
type ViewState int

const (
	ViewWelcome ViewState = iota
	ViewIndexing
	ViewChat
)

// programRef is an indirect pointer to the tea.Program so background goroutines
// can send messages. It must be set after tea.NewProgram returns but before Run.
type programRef struct {
	p *tea.Program
}

func (r *programRef) send(msg tea.Msg) {
	if r != nil && r.p != nil {
		r.p.Send(msg)
	}
}

// Config holds the services wired by the CLI layer.
type Config struct {
	Root       string
	EmbedModel string
	ChatModel  string

	Answerer rag.Answerer
	Overview func(ctx context.Context) overview.RepoOverview
	Index    func(ctx context.Context, progress index.ProgressFunc) (*index.Stats, error)

	// program is set internally so background goroutines can send messages.
	program *programRef
}

// Model is the top-level Bubble Tea model.
type Model struct {
	ctx    context.Context
	state  ViewState
	config Config
	width  int
	height int

	welcome  welcomeModel
	indexing indexingModel
	chat     chatModel
}

// New creates a new TUI model with the given config.
func New(ctx context.Context, cfg Config) Model {
	return Model{
		ctx:    ctx,
		state:  ViewWelcome,
		config: cfg,
	}
}

func (m Model) Init() tea.Cmd {
	return checkIndex(m.ctx, m.config)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.state == ViewChat {
			var c tea.Cmd
			m.chat, c = m.chat.Update(msg)
			return m, c
		}
		return m, nil

	case tea.KeyMsg:
		// Global quit.
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.state != ViewChat {
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd

	switch m.state {
	case ViewWelcome:
		m.welcome, cmd = m.welcome.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		keyMsg, ok := msg.(tea.KeyMsg)
		if !ok || !m.welcome.ready {
			break
		}
		switch {
		case keyMsg.Type == tea.KeyEnter && m.welcome.status == indexReady:
			return m, m.transitionToChat(m.welcome.overview)
		case keyMsg.Type == tea.KeyEnter, keyMsg.String() == "r":
			return m, m.startIndexing()
		}

	case ViewIndexing:
		m.indexing, cmd = m.indexing.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if msg, ok := msg.(overviewMsg); ok {
			return m, m.transitionToChat(msg.overview)
		}
		// Handle Enter after indexing completes.
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.indexing.done {
			return m, loadOverview(m.ctx, m.config)
		}

	case ViewChat:
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) startIndexing() tea.Cmd {
	m.state = ViewIndexing
	m.indexing = newIndexingModel()
	return tea.Batch(m.indexing.spinner.Tick, runIndex(m.ctx, m.config))
}

func (m *Model) transitionToChat(ov overview.RepoOverview) tea.Cmd {
	answerer := m.config.Answerer
	if !ov.IsZero() {
		answerer.Overview = overview.Markdown(ov)
	}
	m.chat = newChatModel(m.ctx, answerer, m.config.ChatModel)
	m.chat.initViewport(m.width, m.height)
	m.state = ViewChat
	return nil
}

func (m Model) View() string {
	switch m.state {
	case ViewWelcome:
		return m.welcome.View(m.config, m.width, m.height)
	case ViewIndexing:
		return m.indexing.View(m.width, m.height)
	case ViewChat:
		return m.chat.View(m.width, m.height)
	}
	return ""
}

// Run starts the TUI program.
func Run(ctx context.Context, cfg Config) error {
	ref := &programRef{}
	cfg.program = ref
	model := New(ctx, cfg)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	ref.p = p
	_, err := p.Run()
	return err
}
