package session

import (
	"context"
	"time"

	"github.com/go-go-golems/moodchat/pkg/timeline"
)

// DefaultRevealDelay paces multi-bubble responses.
const DefaultRevealDelay = time.Second

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Revealer appends response bubbles one at a time, waiting Delay between them.
type Revealer struct {
	Store  *timeline.Store
	Delay  time.Duration
	Sleep  SleepFunc
	OnMood func(ctx context.Context, mood string)
}

// Reveal appends msgs in order. Moods are applied as their bubble appears.
// A cancelled ctx stops the remaining bubbles.
func (r *Revealer) Reveal(ctx context.Context, msgs []timeline.Message) error {
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	for i, m := range msgs {
		r.Store.Append(m)
		if m.Mood != "" && r.OnMood != nil {
			r.OnMood(ctx, m.Mood)
		}
		if i == len(msgs)-1 {
			break
		}
		if err := sleep(ctx, r.Delay); err != nil {
			return err
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
