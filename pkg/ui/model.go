package ui

import (
	"context"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/moodchat/pkg/client"
	"github.com/go-go-golems/moodchat/pkg/events"
	"github.com/go-go-golems/moodchat/pkg/prefs"
	"github.com/go-go-golems/moodchat/pkg/session"
	"github.com/go-go-golems/moodchat/pkg/timeline"
)

// EventMsg carries a session event into the bubbletea loop.
type EventMsg struct {
	Event events.Event
}

type actionDoneMsg struct {
	notice string
	err    error
}

const footerHeight = 4

type Model struct {
	ctx   context.Context
	ctrl  Controller
	prefs prefs.Store

	theme  prefs.Theme
	styles Styles
	md     Markdown

	input    textinput.Model
	viewport viewport.Model
	width    int
	ready    bool

	alert  string
	notice string
}

func NewModel(ctx context.Context, ctrl Controller, store prefs.Store) *Model {
	ti := textinput.New()
	ti.Placeholder = "Say something, or /help"
	ti.Prompt = "> "
	ti.CharLimit = 4000
	ti.Focus()

	if store == nil {
		store = prefs.NewMemoryStore()
	}
	theme := prefs.LoadTheme(store)
	return &Model{
		ctx:      ctx,
		ctrl:     ctrl,
		prefs:    store,
		theme:    theme,
		styles:   NewStyles(theme),
		input:    ti,
		viewport: viewport.New(80, 20),
		width:    80,
	}
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-footerHeight, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			return m, m.submit(line)
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case EventMsg:
		m.apply(msg.Event)
		return m, nil

	case actionDoneMsg:
		m.notice = msg.notice
		if text := noticeFor(msg.err); text != "" {
			m.notice = text
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) apply(e events.Event) {
	switch e.Type {
	case events.TypeAlert:
		if e.Alert != nil {
			m.alert = e.Alert.Message
		}
	case events.TypeMessageAppended, events.TypeTimelineRolledBack, events.TypeTimelineReset, events.TypeMoodChanged:
		m.refresh()
	case events.TypeSummarizationStatus:
		if e.Status == client.SummarizationIdle {
			m.notice = "summarization finished"
		}
	case events.TypeBackgroundDone:
		m.notice = e.Action + " finished"
	}
}

func (m *Model) submit(line string) tea.Cmd {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	m.notice = ""
	m.alert = ""

	cmd, ok := ParseCommand(line)
	if !ok {
		text := Unescape(line)
		return func() tea.Msg {
			return actionDoneMsg{err: m.ctrl.SendUserMessage(m.ctx, text)}
		}
	}

	switch cmd.Name {
	case CmdQuit:
		return tea.Quit
	case CmdHelp:
		m.notice = HelpText()
		return nil
	case CmdTheme:
		theme, err := prefs.ToggleTheme(m.prefs)
		if err != nil {
			log.Warn().Err(err).Str("component", "ui").Msg("failed to persist theme")
		}
		m.theme = theme
		m.styles = NewStyles(theme)
		m.refresh()
		m.notice = "theme: " + string(theme)
		return nil
	case CmdCopy:
		m.notice = m.copyLast()
		return nil
	}

	return func() tea.Msg {
		notice, _, err := Dispatch(m.ctx, m.ctrl, cmd)
		return actionDoneMsg{notice: notice, err: err}
	}
}

func (m *Model) copyLast() string {
	last, ok := m.ctrl.Timeline().Last(timeline.RoleAssistant)
	if !ok {
		return "nothing to copy"
	}
	if err := clipboard.WriteAll(last.Content); err != nil {
		return "copy failed: " + err.Error()
	}
	return "copied last reply"
}

func (m *Model) refresh() {
	render := func(content string) string { return m.md.Render(content, m.theme, m.width-2) }
	m.viewport.SetContent(FormatTimeline(m.styles, m.ctrl.Timeline().Messages(), render, m.ctrl.ImagePath))
	m.viewport.GotoBottom()
}

func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}
	pending := ""
	if a := m.ctrl.Attachments().Peek(); a != nil {
		pending = a.Filename
	}
	sending, summarizing := m.ctrl.Busy()
	status := m.styles.Status.Render(StatusLine(m.ctrl.Avatar(), pending, sending, summarizing))

	footer := []string{status}
	if m.alert != "" {
		footer = append(footer, m.styles.Alert.Render(m.alert))
	} else if m.notice != "" {
		footer = append(footer, m.styles.Notice.Render(firstLine(m.notice)))
	} else {
		footer = append(footer, "")
	}
	footer = append(footer, m.input.View())
	if m.notice != "" && strings.Contains(m.notice, "\n") {
		return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), m.styles.Notice.Render(m.notice), strings.Join(footer, "\n"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), strings.Join(footer, "\n"))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// noticeFor returns the inline notice for a failed action. Service failures are
// already reported through alert events and yield "".
func noticeFor(err error) string {
	var cerr *client.Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cerr):
		return ""
	case errors.Is(err, session.ErrBusy):
		return "still busy, try again in a moment"
	case errors.Is(err, session.ErrEmptyMessage):
		return ""
	}
	return err.Error()
}
