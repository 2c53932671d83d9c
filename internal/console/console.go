// Package console is the terminal front end: a scrolling transcript, an
// input line and a status bar. Utterances are handled off the UI goroutine
// and the replies come back as messages.
package console

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vira/internal/assistant"
	"vira/internal/command"
)

const (
	statusReady    = "Ready"
	statusThinking = "Listening..."
	statusStopped  = "Stopped"
	headerHeight   = 3
	footerHeight   = 3
	defaultWidth   = 80
	defaultHeight  = 24
)

type styles struct {
	title  lipgloss.Style
	hint   lipgloss.Style
	user   lipgloss.Style
	bot    lipgloss.Style
	status lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#333333")),
		hint:   lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
		user:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		bot:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170")),
		status: lipgloss.NewStyle().Reverse(true).Padding(0, 1),
	}
}

type line struct {
	speaker string
	text    string
}

type replyMsg struct {
	utterance string
	reply     command.Reply
	err       error
}

type Model struct {
	ctx     context.Context
	session *assistant.Session
	speaker assistant.Speaker

	input      textinput.Model
	view       viewport.Model
	transcript []line
	status     string
	busy       bool
	styles     styles
}

// New builds the UI model for an already started session. speaker may be nil.
func New(ctx context.Context, s *assistant.Session, speaker assistant.Speaker) Model {
	in := textinput.New()
	in.Placeholder = "Say something..."
	in.Prompt = "> "
	in.CharLimit = 256
	in.Focus()

	m := Model{
		ctx:     ctx,
		session: s,
		speaker: speaker,
		input:   in,
		view:    viewport.New(defaultWidth, defaultHeight-headerHeight-footerHeight),
		status:  statusReady,
		styles:  defaultStyles(),
	}
	m.input.Width = defaultWidth - 4
	m.add(s.Name(), s.Welcome())

	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.speak(m.session.Welcome()))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.view.Width = msg.Width
		m.view.Height = max(1, msg.Height-headerHeight-footerHeight)
		m.input.Width = max(10, msg.Width-4)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.session.Stop()
			m.status = statusStopped
			return m, tea.Quit
		case tea.KeyF1:
			m.add(m.session.Name(), m.session.Engine().Help())
			return m, nil
		case tea.KeyEnter:
			return m.submit()
		}

	case replyMsg:
		m.busy = false
		if msg.err != nil {
			m.status = statusStopped
			return m, tea.Quit
		}
		m.add(m.session.Name(), msg.reply.Text)
		if msg.reply.Stop {
			m.status = statusStopped
			return m, tea.Quit
		}
		m.status = statusReady
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.view, cmd = m.view.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.busy {
		return m, nil
	}
	m.input.Reset()
	m.add("You", text)
	m.busy = true
	m.status = statusThinking

	ctx, s, speaker := m.ctx, m.session, m.speaker
	return m, func() tea.Msg {
		reply, err := s.Handle(ctx, text)
		if err == nil && speaker != nil {
			_ = speaker.Speak(ctx, reply.Text)
		}
		return replyMsg{utterance: text, reply: reply, err: err}
	}
}

func (m Model) speak(text string) tea.Cmd {
	if m.speaker == nil {
		return nil
	}
	ctx, speaker := m.ctx, m.speaker
	return func() tea.Msg {
		_ = speaker.Speak(ctx, text)
		return nil
	}
}

func (m *Model) add(speaker, text string) {
	m.transcript = append(m.transcript, line{speaker: speaker, text: text})
	m.refresh()
}

func (m *Model) refresh() {
	m.view.SetContent(m.render())
	m.view.GotoBottom()
}

func (m Model) render() string {
	var b strings.Builder
	for i, l := range m.transcript {
		if i > 0 {
			b.WriteString("\n\n")
		}
		style := m.styles.bot
		if l.speaker == "You" {
			style = m.styles.user
		}
		b.WriteString(style.Render(l.speaker + ":"))
		b.WriteString(" ")
		b.WriteString(l.text)
	}
	return b.String()
}

func (m Model) View() string {
	header := m.styles.title.Render(m.session.Name()+" Voice Assistant") + "\n" +
		m.styles.hint.Render("Say 'help' for available commands, F1 shows commands, Esc quits") + "\n"

	status := m.styles.status.Render(m.status)

	return fmt.Sprintf("%s\n%s\n\n%s\n%s", header, m.view.View(), m.input.View(), status)
}

// Transcript returns the conversation as "speaker: text" lines.
func (m Model) Transcript() []string {
	out := make([]string, len(m.transcript))
	for i, l := range m.transcript {
		out[i] = l.speaker + ": " + l.text
	}
	return out
}

func (m Model) Status() string { return m.status }

// Run starts the session and blocks until the user quits or the session
// stops.
func Run(ctx context.Context, s *assistant.Session, speaker assistant.Speaker) error {
	if err := s.Start(); err != nil {
		return err
	}
	defer s.Stop()

	p := tea.NewProgram(New(ctx, s, speaker), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run console: %w", err)
	}

	return nil
}
