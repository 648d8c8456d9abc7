package session

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/moodchat/pkg/attachment"
	"github.com/go-go-golems/moodchat/pkg/client"
	"github.com/go-go-golems/moodchat/pkg/events"
	"github.com/go-go-golems/moodchat/pkg/timeline"
)

// exchange is one guarded round trip to the service.
type exchange struct {
	op      string
	trigger trigger
	// text is echoed optimistically as a user bubble when non-empty.
	text          string
	useAttachment bool
	reveal        bool
	call          func(ctx context.Context, images []client.ImagePayload) ([]client.MessageRecord, error)
}

// SendUserMessage sends text (plus the pending attachment, if any).
// Empty text and busy sessions are rejected without side effects.
func (s *Session) SendUserMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	return s.run(ctx, exchange{
		op:            opSendMessage,
		trigger:       triggerUser,
		text:          text,
		useAttachment: true,
		reveal:        true,
		call: func(ctx context.Context, images []client.ImagePayload) ([]client.MessageRecord, error) {
			return s.conv.SendMessage(ctx, text, images)
		},
	})
}

// SendProactiveMessage asks the assistant to speak first; errors are shown to the user.
func (s *Session) SendProactiveMessage(ctx context.Context) error {
	return s.sendProactive(ctx, triggerUser)
}

func (s *Session) sendProactiveAuto(ctx context.Context) error {
	return s.sendProactive(ctx, triggerAuto)
}

func (s *Session) sendProactive(ctx context.Context, trig trigger) error {
	return s.run(ctx, exchange{
		op:      opProactiveMessage,
		trigger: trig,
		reveal:  true,
		call: func(ctx context.Context, _ []client.ImagePayload) ([]client.MessageRecord, error) {
			return s.conv.ProactiveMessage(ctx)
		},
	})
}

// WebSearch triggers the background web search. Its messages are not shown.
func (s *Session) WebSearch(ctx context.Context) error {
	return s.run(ctx, exchange{
		op:      opWebSearch,
		trigger: triggerUser,
		call: func(ctx context.Context, _ []client.ImagePayload) ([]client.MessageRecord, error) {
			return s.conv.WebSearch(ctx)
		},
	})
}

// Reminisce triggers the background reminisce action. Its messages are not shown.
func (s *Session) Reminisce(ctx context.Context) error {
	return s.run(ctx, exchange{
		op:      opReminisce,
		trigger: triggerUser,
		call: func(ctx context.Context, _ []client.ImagePayload) ([]client.MessageRecord, error) {
			return s.conv.Reminisce(ctx)
		},
	})
}

func (s *Session) run(ctx context.Context, ex exchange) error {
	if s.isClosed() {
		return ErrClosed
	}
	if !s.busy.TryBeginSend() {
		log.Debug().Str("component", "session").Str("op", ex.op).Msg("session busy, ignoring request")
		return ErrBusy
	}
	s.setState(StateSending)
	s.publishBusy()
	defer func() {
		s.busy.EndSend()
		s.setState(StateIdle)
		s.publishBusy()
	}()

	mark := s.store.Len()

	var att *attachment.Attachment
	if ex.useAttachment {
		if att = s.attachments.Consume(); att != nil {
			s.publishAttachment()
		}
	}

	if ex.text != "" {
		msg := timeline.Message{Role: timeline.RoleUser, Content: ex.text}
		if att != nil {
			msg.ImagePath = att.Filename
		}
		s.store.Append(msg)
	}

	var images []client.ImagePayload
	if att != nil {
		images = []client.ImagePayload{{Filename: att.Filename, Data: att.Data}}
	}

	recs, err := ex.call(ctx, images)
	if err != nil {
		s.setState(StateRollingBack)
		s.store.Rollback(mark)
		if att != nil {
			s.attachments.Restore(att)
			s.publishAttachment()
		}
		s.report(ex.op, ex.trigger, err)
		return err
	}

	if !ex.reveal {
		log.Info().Str("component", "session").Str("op", ex.op).Int("records", len(recs)).Msg("background action completed")
		e := events.New(events.TypeBackgroundDone)
		e.Action = ex.op
		s.sink.Publish(e)
		return nil
	}

	s.setState(StateRevealing)
	return s.revealer.Reveal(ctx, timeline.FlattenAll(recs))
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
