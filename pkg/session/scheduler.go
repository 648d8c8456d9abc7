package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/moodchat/pkg/client"
	"github.com/go-go-golems/moodchat/pkg/events"
)

func (s *Session) runProactiveLoop(ctx context.Context) {
	ticker := time.NewTicker(s.proactiveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ProactiveTickOnce(ctx)
		}
	}
}

// ProactiveTickOnce runs one proactive check. It makes no request while the session
// is busy, and swallows every failure. It reports whether a proactive send was attempted.
func (s *Session) ProactiveTickOnce(ctx context.Context) bool {
	logger := log.With().Str("component", "scheduler").Str("op", opShouldSendProactive).Logger()
	if !s.busy.Idle() {
		logger.Debug().Msg("session busy, skipping proactive check")
		return false
	}
	ok, err := s.conv.ShouldSendProactive(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("proactive check failed")
		return false
	}
	if !ok {
		return false
	}
	if err := s.sendProactiveAuto(ctx); err != nil && errors.Is(err, ErrBusy) {
		logger.Debug().Msg("session became busy before proactive send")
	}
	return true
}

// StartSummarization asks the service to compact history and polls until it is idle again.
func (s *Session) StartSummarization(ctx context.Context) error {
	tasksCtx, tasks, err := s.background()
	if err != nil {
		return err
	}
	if !s.busy.TryBeginSummarize() {
		return ErrBusy
	}
	s.publishBusy()

	st, err := s.conv.StartSummarization(ctx)
	if err != nil {
		s.endSummarize()
		s.report(opStartSummarization, triggerUser, err)
		return err
	}
	s.publishSummarization(st)
	log.Info().Str("component", "scheduler").Str("status", st.Status).Msg("summarization started")

	tasks.Go(func() error {
		s.runSummarizationPoll(tasksCtx)
		return nil
	})
	return nil
}

func (s *Session) runSummarizationPoll(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.endSummarize()
			return
		case <-ticker.C:
			if s.pollSummarizationOnce(ctx) {
				return
			}
		}
	}
}

// pollSummarizationOnce returns true when polling should stop.
func (s *Session) pollSummarizationOnce(ctx context.Context) bool {
	st, err := s.conv.SummarizationStatus(ctx)
	if err != nil {
		s.endSummarize()
		if ctx.Err() != nil {
			return true
		}
		s.report(opSummarizationStatus, triggerUser, err)
		return true
	}
	s.publishSummarization(st)
	if st.IsIdle() {
		s.endSummarize()
		log.Info().Str("component", "scheduler").Msg("summarization finished")
		return true
	}
	return false
}

func (s *Session) endSummarize() {
	if _, summarizing := s.busy.Flags(); !summarizing {
		return
	}
	s.busy.EndSummarize()
	s.publishBusy()
}

func (s *Session) publishSummarization(st client.SummarizationStatus) {
	e := events.New(events.TypeSummarizationStatus)
	e.Status = st.Status
	s.sink.Publish(e)
}
