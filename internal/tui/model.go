package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docintel/internal/service"
	"docintel/internal/summarizer"
)

// ChatPort is the TUI-facing subset of the document service.
type ChatPort interface {
	ChatWithKB(ctx context.Context, sessionID, query string, topK int) (service.ChatResult, error)
}

type turn struct {
	query    string
	answer   string
	grounded bool
}

type answerMsg struct {
	query string
	res   service.ChatResult
	err   error
}

// Model is the Bubble Tea model of the knowledge-base chat screen.
type Model struct {
	ctx       context.Context
	service   ChatPort
	topK      int
	sessionID string
	input     textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	turns     []turn
	status    string
	waiting   bool
	ready     bool
}

// New creates a chat screen bound to sessionID. An empty id lets the service
// start a new session with the first question.
func New(ctx context.Context, svc ChatPort, sessionID string, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask the knowledge base and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:       ctx,
		service:   svc,
		topK:      topK,
		sessionID: sessionID,
		input:     ti,
		viewport:  viewport.New(0, 0),
		spinner:   sp,
		status:    "Ready. Ctrl+C to quit.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + qh + 1 // header, status, input box
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderTranscript())
		return m, nil
	case answerMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.sessionID = msg.res.SessionID
		m.turns = append(m.turns, turn{query: msg.query, answer: msg.res.Answer, grounded: msg.res.Grounded})
		m.status = fmt.Sprintf("Session %s, job %d", m.sessionID, msg.res.JobID)
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.waiting {
				return m, nil
			}
			m.input.SetValue("")
			m.waiting = true
			m.status = "Thinking..."
			return m, tea.Batch(m.ask(q), m.spinner.Tick)
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) tea.Cmd {
	svc, ctx, id, k := m.service, m.ctx, m.sessionID, m.topK
	return func() tea.Msg {
		res, err := svc.ChatWithKB(ctx, id, q, k)
		return answerMsg{query: q, res: res, err: err}
	}
}

// View renders the transcript, the input box and the status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Chat with Knowledge Base")
	status := m.status
	if m.waiting {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" +
		resultBoxStyle.Render(m.viewport.View()) + "\n" +
		queryBoxStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(status)
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(queryStyle.Render("You: " + t.query))
		b.WriteString("\n")
		answer := t.answer
		if t.grounded {
			answer = highlightBestSentence(answer, t.query)
		} else {
			answer = fallbackStyle.Render(answer)
		}
		b.WriteString(answer)
	}
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	queryStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	fallbackStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	sentenceRe     = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

// highlightBestSentence emphasizes the sentence of text that overlaps query
// the most.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	var sentences []string
	for _, s := range sentenceRe.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	best := summarizer.LexicalRank(query, sentences, 1)
	if len(best) == 0 {
		return strings.Join(sentences, " ")
	}
	for i, s := range sentences {
		if s == best[0] {
			sentences[i] = highlightStyle.Render(s)
			break
		}
	}
	return strings.Join(sentences, " ")
}
