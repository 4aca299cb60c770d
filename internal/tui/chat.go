package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"vybe/internal/llm"
	"vybe/internal/rag"
)

type chatState int

const (
	chatIdle chatState = iota
	chatAsking
)

const helpText = "Commands:\n  /clear  - clear conversation history\n  /exit   - quit\n  /help   - show this help"

type chatModel struct {
	ctx         context.Context
	viewport    viewport.Model
	input       textinput.Model
	spinner     spinner.Model
	renderer    *glamour.TermRenderer
	messages    []chatMessage
	history     []llm.Message
	answerer    rag.Answerer
	modelName   string
	state       chatState
	width       int
	height      int
	initialized bool
}

type messageKind int

const (
	kindUser messageKind = iota
	kindAnswer
	kindError
	kindNote
)

type chatMessage struct {
	kind    messageKind
	content string
	sources []string
}

// answerMsg is sent when a question has been answered.
type answerMsg struct {
	question string
	answer   rag.Answer
	err      error
}

func newChatModel(ctx context.Context, answerer rag.Answerer, chatModelName string) chatModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle

	ti := textinput.New()
	ti.Placeholder = "Ask a question about your codebase..."
	ti.CharLimit = 2000
	ti.Focus()

	return chatModel{
		ctx:       ctx,
		spinner:   sp,
		input:     ti,
		answerer:  answerer,
		modelName: chatModelName,
		state:     chatIdle,
	}
}

func (m *chatModel) initViewport(width, height int) {
	m.width = width
	m.height = height

	// Layout: viewport + status bar (1 line) + input (1 line) + borders/gaps (1 line).
	vpHeight := max(height-3, 5)
	m.viewport = viewport.New(width, vpHeight)
	m.viewport.SetContent(dimStyle.Render("Ask a question about your codebase.\n\n" + helpText))

	m.input.Width = width - 4

	// Create glamour renderer matched to current width.
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width-2, 20)),
	)
	if err == nil {
		m.renderer = r
	}

	m.initialized = true
}

func askQuestion(ctx context.Context, a rag.Answerer, question string, history []llm.Message) tea.Cmd {
	return func() tea.Msg {
		ans, err := a.Ask(ctx, question, history)
		return answerMsg{question: question, answer: ans, err: err}
	}
}

func (m chatModel) Update(msg tea.Msg) (chatModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.initViewport(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case answerMsg:
		m.state = chatIdle
		if msg.err != nil {
			m.messages = append(m.messages, chatMessage{kind: kindError, content: msg.err.Error()})
		} else {
			m.messages = append(m.messages, chatMessage{
				kind:    kindAnswer,
				content: msg.answer.Text,
				sources: rag.Sources(msg.answer.Items),
			})
			m.history = rag.AppendTurn(m.history, msg.question, msg.answer.Text)
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.state != chatIdle {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			// Re-render viewport so the spinner frame updates.
			m.refresh()
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if m.state != chatIdle {
			return m, nil
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}
	}

	// Update text input.
	if m.state == chatIdle {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	// Update viewport (scrolling).
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit handles the input line: a slash command or a question.
func (m chatModel) submit() (chatModel, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return m, nil
	}
	m.input.Reset()

	switch line {
	case "/exit", "/quit":
		return m, tea.Quit
	case "/clear":
		m.messages = nil
		m.history = nil
		m.viewport.SetContent(dimStyle.Render("Conversation cleared."))
		return m, nil
	case "/help":
		m.messages = append(m.messages, chatMessage{kind: kindNote, content: helpText})
		m.refresh()
		return m, nil
	}

	m.messages = append(m.messages, chatMessage{kind: kindUser, content: line})
	m.state = chatAsking
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, askQuestion(m.ctx, m.answerer, line, m.history))
}

func (m *chatModel) refresh() {
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m chatModel) renderMarkdown(content string) string {
	if m.renderer == nil {
		return assistantMsgStyle.Render(content)
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return assistantMsgStyle.Render(content)
	}
	return strings.TrimRight(rendered, "\n")
}

func (m chatModel) renderMessage(msg chatMessage) string {
	switch msg.kind {
	case kindUser:
		return userMsgStyle.Render("You: ") + msg.content + "\n"
	case kindAnswer:
		out := m.renderMarkdown(msg.content) + "\n"
		if len(msg.sources) > 0 {
			out += sourceLabelStyle.Render("Sources:") + "\n"
			for _, src := range msg.sources {
				out += sourceStyle.Render("  • "+src) + "\n"
			}
		}
		return out
	case kindError:
		return errorStyle.Render("Error: "+msg.content) + "\n"
	default:
		return dimStyle.Render(msg.content) + "\n"
	}
}

func (m chatModel) renderMessages() string {
	parts := make([]string, 0, len(m.messages)+1)
	for _, msg := range m.messages {
		parts = append(parts, m.renderMessage(msg))
	}
	if m.state == chatAsking {
		parts = append(parts, m.spinner.View()+" "+dimStyle.Render("Assembling context and generating..."))
	}
	return strings.Join(parts, "\n")
}

func (m chatModel) View(width, height int) string {
	if !m.initialized {
		return ""
	}

	statusText := "idle"
	if m.state == chatAsking {
		statusText = "thinking..."
	}
	statusBar := statusBarStyle.
		Width(m.width).
		Render(fmt.Sprintf(" vybe chat • %s • %s", m.modelName, statusText))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewport.View(),
		statusBar,
		m.input.View(),
	)
}
