package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/go-go-golems/moodchat/pkg/events"
	"github.com/go-go-golems/moodchat/pkg/prefs"
)

// Sender is the part of *tea.Program that Forward needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Forward injects session events into the program until ctx is done or in closes.
func Forward(ctx context.Context, p Sender, in <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-in:
			if !ok {
				return
			}
			p.Send(EventMsg{Event: e})
		}
	}
}

// Run drives ctrl with the full-screen terminal UI until the user quits or ctx is done.
func Run(ctx context.Context, ctrl Controller, store prefs.Store, in <-chan events.Event) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(ctx, ctrl, store), tea.WithAltScreen(), tea.WithContext(ctx))
	go Forward(ctx, p, in)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "run terminal ui")
	}
	return nil
}
