package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/pkg/errors"

	"github.com/go-go-golems/moodchat/pkg/events"
	"github.com/go-go-golems/moodchat/pkg/prefs"
	"github.com/go-go-golems/moodchat/pkg/timeline"
)

// Plain is the line-mode host used when stdout is not a terminal.
type Plain struct {
	Ctrl  Controller
	Prefs prefs.Store
	In    io.Reader
	Out   io.Writer
	// Quiet is how long the session must stay idle without events after EOF
	// before Run returns. Defaults to 250ms.
	Quiet time.Duration

	mu        sync.Mutex
	lastEvent time.Time
}

// Run prints events from evs and reads commands from In until /quit or ctx is done.
// On EOF it keeps printing until the session is idle and events have stopped arriving.
func (p *Plain) Run(ctx context.Context, evs <-chan events.Event) error {
	if p.Prefs == nil {
		p.Prefs = prefs.NewMemoryStore()
	}
	if p.Quiet <= 0 {
		p.Quiet = 250 * time.Millisecond
	}
	p.touch()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-evs:
				if !ok {
					return
				}
				p.printEvent(e)
				p.touch()
			}
		}
	}()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(p.In)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	defer func() {
		cancel()
		<-done
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err != nil {
				return errors.Wrap(err, "read input")
			}
			p.drain(ctx)
			return nil
		case line := <-lines:
			if quit := p.handle(ctx, line); quit {
				return nil
			}
			p.touch()
		}
	}
}

// drain waits until nothing is in flight and no event arrived for Quiet.
func (p *Plain) drain(ctx context.Context) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		sending, summarizing := p.Ctrl.Busy()
		if !sending && !summarizing && p.sinceLastEvent() >= p.Quiet {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Plain) touch() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastEvent = time.Now()
}

func (p *Plain) sinceLastEvent() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.lastEvent)
}

func (p *Plain) handle(ctx context.Context, line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	cmd, ok := ParseCommand(line)
	if !ok {
		p.notice(noticeFor(p.Ctrl.SendUserMessage(ctx, Unescape(line))))
		return false
	}
	switch cmd.Name {
	case CmdQuit:
		return true
	case CmdHelp:
		p.notice(HelpText())
		return false
	case CmdTheme:
		theme, err := prefs.ToggleTheme(p.Prefs)
		if err != nil {
			p.notice(err.Error())
			return false
		}
		p.notice("theme: " + string(theme))
		return false
	case CmdCopy:
		last, ok := p.Ctrl.Timeline().Last(timeline.RoleAssistant)
		if !ok {
			p.notice("nothing to copy")
			return false
		}
		if err := clipboard.WriteAll(last.Content); err != nil {
			p.notice("copy failed: " + err.Error())
			return false
		}
		p.notice("copied last reply")
		return false
	}
	notice, _, err := Dispatch(ctx, p.Ctrl, cmd)
	if text := noticeFor(err); text != "" {
		notice = text
	}
	p.notice(notice)
	return false
}

func (p *Plain) printEvent(e events.Event) {
	switch e.Type {
	case events.TypeMessageAppended:
		if e.Message == nil || e.Message.Role == timeline.RoleUser {
			return
		}
		line := "assistant: " + e.Message.Content
		if e.Message.ImagePath != "" {
			line += " " + ImageLabel(e.Message.ImagePath, p.Ctrl.ImagePath)
		}
		p.println(line)
	case events.TypeMoodChanged:
		if e.Avatar != nil {
			p.println(fmt.Sprintf("(mood: %s, %s)", e.Avatar.Mood, e.Avatar.Filename()))
		}
	case events.TypeAlert:
		if e.Alert != nil {
			p.println("! " + e.Alert.Message)
		}
	case events.TypeTimelineReset:
		for _, m := range p.Ctrl.Timeline().Messages() {
			p.println(string(m.Role) + ": " + m.Content)
		}
	case events.TypeBackgroundDone:
		p.println("(" + e.Action + " finished)")
	}
}

func (p *Plain) notice(s string) {
	if s != "" {
		p.println("* " + s)
	}
}

func (p *Plain) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.Out, s)
}
