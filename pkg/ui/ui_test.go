package ui

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/moodchat/pkg/attachment"
	"github.com/go-go-golems/moodchat/pkg/avatar"
	"github.com/go-go-golems/moodchat/pkg/client"
	"github.com/go-go-golems/moodchat/pkg/events"
	"github.com/go-go-golems/moodchat/pkg/prefs"
	"github.com/go-go-golems/moodchat/pkg/session"
	"github.com/go-go-golems/moodchat/pkg/timeline"
)

type stubController struct {
	store       *timeline.Store
	attachments *attachment.Manager
	sent        []string
	sendErr     error
	calls       []string
	images      map[string]string
	onSend      func(text string)
}

func newStubController() *stubController {
	return &stubController{
		store:       timeline.NewStore(),
		attachments: attachment.NewManager(),
		images:      map[string]string{"a.png": "/cache/images/a.png"},
	}
}

func (c *stubController) SendUserMessage(_ context.Context, text string) error {
	c.sent = append(c.sent, text)
	if c.onSend != nil {
		c.onSend(text)
	}
	return c.sendErr
}

func (c *stubController) SendProactiveMessage(context.Context) error {
	c.calls = append(c.calls, CmdProactive)
	return nil
}

func (c *stubController) StartSummarization(context.Context) error {
	c.calls = append(c.calls, CmdSummarize)
	return nil
}

func (c *stubController) WebSearch(context.Context) error {
	c.calls = append(c.calls, CmdWebSearch)
	return nil
}

func (c *stubController) Reminisce(context.Context) error {
	c.calls = append(c.calls, CmdReminisce)
	return nil
}

func (c *stubController) AttachFile(path string) (*attachment.Attachment, error) {
	if strings.HasSuffix(path, ".txt") {
		return nil, errors.New("unsupported image type")
	}
	c.attachments.Attach("image_1.png", "AA==")
	return c.attachments.Peek(), nil
}

func (c *stubController) ClearAttachment()                 { c.attachments.Clear() }
func (c *stubController) Attachments() *attachment.Manager { return c.attachments }
func (c *stubController) Timeline() *timeline.Store        { return c.store }
func (c *stubController) Mood() string                     { return "happy" }
func (c *stubController) Avatar() avatar.Avatar {
	return avatar.Avatar{Mood: "happy", Extension: avatar.ExtMP4}
}
func (c *stubController) Busy() (bool, bool) { return false, false }
func (c *stubController) ImagePath(filename string) (string, error) {
	if p, ok := c.images[filename]; ok {
		return p, nil
	}
	return "", errors.Errorf("image not found in cache: %s", filename)
}

var _ Controller = (*session.Session)(nil)

func TestParseCommand(t *testing.T) {
	cmd, ok := ParseCommand("  /attach  ~/cat.png ")
	require.True(t, ok)
	require.Equal(t, Command{Name: CmdAttach, Arg: "~/cat.png"}, cmd)

	cmd, ok = ParseCommand("/Summarize")
	require.True(t, ok)
	require.Equal(t, CmdSummarize, cmd.Name)

	_, ok = ParseCommand("hello /there")
	require.False(t, ok)

	_, ok = ParseCommand("//not a command")
	require.False(t, ok)
	require.Equal(t, "/not a command", Unescape("//not a command"))
	require.Equal(t, "plain", Unescape("plain"))
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	c := newStubController()

	notice, handled, err := Dispatch(ctx, c, Command{Name: CmdAttach, Arg: "cat.png"})
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, "attached image_1.png", notice)

	_, _, err = Dispatch(ctx, c, Command{Name: CmdAttach})
	require.Error(t, err)

	_, _, err = Dispatch(ctx, c, Command{Name: CmdAttach, Arg: "notes.txt"})
	require.Error(t, err)

	_, handled, err = Dispatch(ctx, c, Command{Name: CmdClearAttachment})
	require.NoError(t, err)
	require.True(t, handled)
	require.Nil(t, c.attachments.Peek())

	for _, name := range []string{CmdProactive, CmdSummarize, CmdWebSearch, CmdReminisce} {
		_, handled, err = Dispatch(ctx, c, Command{Name: name})
		require.NoError(t, err)
		require.True(t, handled)
	}
	require.Equal(t, []string{CmdProactive, CmdSummarize, CmdWebSearch, CmdReminisce}, c.calls)

	_, handled, err = Dispatch(ctx, c, Command{Name: CmdTheme})
	require.NoError(t, err)
	require.False(t, handled)

	_, _, err = Dispatch(ctx, c, Command{Name: "dance"})
	require.Error(t, err)
}

func TestStatusLine(t *testing.T) {
	line := StatusLine(avatar.Avatar{Mood: "sad", Extension: avatar.ExtMP4}, "image_9.png", true, false)
	require.Equal(t, "mood: sad [video sad.mp4] | attached: image_9.png | waiting for reply...", line)

	line = StatusLine(avatar.Default, "", false, true)
	require.Equal(t, "mood: normal [image normal.png] | summarizing...", line)
}

func TestFormatMessage(t *testing.T) {
	st := Styles{}
	c := newStubController()
	out := FormatMessage(st, timeline.Message{Role: timeline.RoleAssistant, Content: "hi", Mood: "shy", ImagePath: "a.png"}, func(s string) string {
		return "<" + s + ">"
	}, c.ImagePath)
	require.Contains(t, out, "assistant")
	require.Contains(t, out, "(shy)")
	require.Contains(t, out, "[image /cache/images/a.png]")
	require.Contains(t, out, "<hi>")

	out = FormatMessage(st, timeline.Message{Role: timeline.RoleUser, Content: "*raw*"}, func(s string) string { return "rendered" }, c.ImagePath)
	require.Contains(t, out, "*raw*")
	require.NotContains(t, out, "rendered")
}

func TestImageLabel(t *testing.T) {
	c := newStubController()
	require.Equal(t, "[image /cache/images/a.png]", ImageLabel("a.png", c.ImagePath))
	require.Equal(t, "[image gone.png (not cached)]", ImageLabel("gone.png", c.ImagePath))
	require.Equal(t, "[image a.png]", ImageLabel("a.png", nil))

	out := FormatMessage(Styles{}, timeline.Message{Role: timeline.RoleUser, Content: "look", ImagePath: "gone.png"}, nil, c.ImagePath)
	require.Contains(t, out, "[image gone.png (not cached)]")
}

func TestNoticeFor(t *testing.T) {
	require.Equal(t, "", noticeFor(nil))
	require.Equal(t, "", noticeFor(&client.Error{Kind: client.KindTransport}))
	require.Equal(t, "", noticeFor(errors.Wrap(&client.Error{Kind: client.KindConflict}, "send")))
	require.NotEmpty(t, noticeFor(session.ErrBusy))
	require.Equal(t, "boom", noticeFor(errors.New("boom")))
}

func TestModelShowsAlertsAndTimeline(t *testing.T) {
	c := newStubController()
	m := NewModel(context.Background(), c, prefs.NewMemoryStore())

	_, _ = m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	c.store.Append(timeline.Message{Role: timeline.RoleUser, Content: "hello there"})
	_, _ = m.Update(EventMsg{Event: events.Event{Type: events.TypeMessageAppended}})
	require.Contains(t, m.View(), "hello there")

	e := events.New(events.TypeAlert)
	e.Alert = &events.Alert{Kind: "conflict", Message: "busy summarizing"}
	_, _ = m.Update(EventMsg{Event: e})
	require.Contains(t, m.View(), "busy summarizing")
	require.Contains(t, m.View(), "happy.mp4")
}

func TestModelAlertSurvivesLaterTimelineEvents(t *testing.T) {
	c := newStubController()
	m := NewModel(context.Background(), c, prefs.NewMemoryStore())
	_, _ = m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})

	alert := events.New(events.TypeAlert)
	alert.Alert = &events.Alert{Kind: "transport", Message: "Failed to send the message. Please try again."}
	_, _ = m.Update(EventMsg{Event: alert})

	c.store.Append(timeline.Message{Role: timeline.RoleUser, Content: "late echo"})
	appended := events.New(events.TypeMessageAppended)
	appended.Message = &timeline.Message{Role: timeline.RoleUser, Content: "late echo"}
	_, _ = m.Update(EventMsg{Event: appended})
	require.Contains(t, m.View(), "Failed to send the message")

	_ = m.submit("again")
	require.NotContains(t, m.View(), "Failed to send the message")
}

func TestModelThemeToggle(t *testing.T) {
	store := prefs.NewMemoryStore()
	m := NewModel(context.Background(), newStubController(), store)
	require.Equal(t, prefs.ThemeDark, m.theme)

	cmd := m.submit("/theme")
	require.Nil(t, cmd)
	require.Equal(t, prefs.ThemeLight, m.theme)
	require.Equal(t, prefs.ThemeLight, prefs.LoadTheme(store))
}

func TestModelSubmitSendsMessage(t *testing.T) {
	c := newStubController()
	m := NewModel(context.Background(), c, nil)

	cmd := m.submit("hi")
	require.NotNil(t, cmd)
	msg := cmd()
	require.Equal(t, actionDoneMsg{}, msg)
	require.Equal(t, []string{"hi"}, c.sent)

	require.Nil(t, m.submit("   "))
}

func TestPlainRun(t *testing.T) {
	c := newStubController()
	var out bytes.Buffer
	p := &Plain{Ctrl: c, In: strings.NewReader("hello\n/attach cat.png\n/quit\nignored\n"), Out: &out}

	require.NoError(t, p.Run(context.Background(), nil))
	require.Equal(t, []string{"hello"}, c.sent)
	require.Contains(t, out.String(), "* attached image_1.png")
}

func TestPlainRunDrainsRepliesAfterEOF(t *testing.T) {
	c := newStubController()
	evs := make(chan events.Event, 4)
	c.onSend = func(string) {
		time.AfterFunc(2*time.Millisecond, func() {
			e := events.New(events.TypeMessageAppended)
			e.Message = &timeline.Message{Role: timeline.RoleAssistant, Content: "hi back"}
			evs <- e
		})
	}
	var out syncBuffer
	p := &Plain{Ctrl: c, In: strings.NewReader("hello\n"), Out: &out, Quiet: 50 * time.Millisecond}

	require.NoError(t, p.Run(context.Background(), evs))
	require.Equal(t, []string{"hello"}, c.sent)
	require.Contains(t, out.String(), "assistant: hi back")
}

func TestPlainPrintEventResolvesImages(t *testing.T) {
	var out bytes.Buffer
	p := &Plain{Ctrl: newStubController(), Out: &out}

	e := events.New(events.TypeMessageAppended)
	e.Message = &timeline.Message{Role: timeline.RoleAssistant, Content: "look", ImagePath: "a.png"}
	p.printEvent(e)
	e = events.New(events.TypeMessageAppended)
	e.Message = &timeline.Message{Role: timeline.RoleAssistant, Content: "and this", ImagePath: "gone.png"}
	p.printEvent(e)

	require.Equal(t, "assistant: look [image /cache/images/a.png]\nassistant: and this [image gone.png (not cached)]\n", out.String())
}

// syncBuffer is a bytes.Buffer safe for the printer goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestPlainPrintEvent(t *testing.T) {
	var out bytes.Buffer
	p := &Plain{Ctrl: newStubController(), Out: &out}

	e := events.New(events.TypeMessageAppended)
	e.Message = &timeline.Message{Role: timeline.RoleAssistant, Content: "hey you"}
	p.printEvent(e)

	e = events.New(events.TypeMessageAppended)
	e.Message = &timeline.Message{Role: timeline.RoleUser, Content: "echo"}
	p.printEvent(e)

	e = events.New(events.TypeAlert)
	e.Alert = &events.Alert{Message: "try later"}
	p.printEvent(e)

	require.Equal(t, "assistant: hey you\n! try later\n", out.String())
}
