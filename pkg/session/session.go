package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/moodchat/pkg/attachment"
	"github.com/go-go-golems/moodchat/pkg/avatar"
	"github.com/go-go-golems/moodchat/pkg/client"
	"github.com/go-go-golems/moodchat/pkg/events"
	"github.com/go-go-golems/moodchat/pkg/timeline"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("session is busy")
	ErrClosed       = errors.New("session is closed")
	ErrNotStarted   = errors.New("session is not started")
)

// State is the send orchestrator's position.
type State string

const (
	StateIdle        State = "idle"
	StateSending     State = "sending"
	StateRevealing   State = "revealing"
	StateRollingBack State = "rolling_back"
)

const (
	DefaultProactiveInterval         = 5 * time.Minute
	DefaultSummarizationPollInterval = 2 * time.Second
)

type Config struct {
	Conversation client.Conversation

	Timeline    *timeline.Store
	Attachments *attachment.Manager
	Images      *attachment.ImageCache
	Resolver    *avatar.Resolver
	Sink        events.Sink

	RevealDelay               time.Duration
	ProactiveInterval         time.Duration
	SummarizationPollInterval time.Duration

	// Sleep overrides the reveal pacing wait.
	Sleep SleepFunc
	Now   func() time.Time
}

// Session is the client-side controller of one chat: timeline, pending attachment,
// busy flags, current mood and the background tasks.
type Session struct {
	conv        client.Conversation
	store       *timeline.Store
	attachments *attachment.Manager
	images      *attachment.ImageCache
	resolver    *avatar.Resolver
	sink        events.Sink
	revealer    *Revealer
	now         func() time.Time

	proactiveInterval time.Duration
	pollInterval      time.Duration

	busy BusyState

	mu      sync.Mutex
	state   State
	mood    string
	avatar  avatar.Avatar
	started bool
	closed  bool

	cancel      context.CancelFunc
	tasks       *errgroup.Group
	tasksCtx    context.Context
	unsubscribe func()
}

func New(cfg Config) (*Session, error) {
	if cfg.Conversation == nil {
		return nil, errors.New("session: conversation client is nil")
	}
	s := &Session{
		conv:              cfg.Conversation,
		store:             cfg.Timeline,
		attachments:       cfg.Attachments,
		images:            cfg.Images,
		resolver:          cfg.Resolver,
		sink:              cfg.Sink,
		now:               cfg.Now,
		proactiveInterval: cfg.ProactiveInterval,
		pollInterval:      cfg.SummarizationPollInterval,
		state:             StateIdle,
		mood:              avatar.DefaultMood,
		avatar:            avatar.Default,
	}
	if s.store == nil {
		s.store = timeline.NewStore()
	}
	if s.attachments == nil {
		s.attachments = attachment.NewManager()
	}
	if s.resolver == nil {
		s.resolver = avatar.NewResolver(nil)
	}
	if s.sink == nil {
		s.sink = events.Discard
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.proactiveInterval <= 0 {
		s.proactiveInterval = DefaultProactiveInterval
	}
	if s.pollInterval <= 0 {
		s.pollInterval = DefaultSummarizationPollInterval
	}
	delay := cfg.RevealDelay
	if delay == 0 {
		delay = DefaultRevealDelay
	}
	s.revealer = &Revealer{
		Store:  s.store,
		Delay:  delay,
		Sleep:  cfg.Sleep,
		OnMood: s.setMood,
	}
	s.unsubscribe = s.store.Subscribe(s.forwardTimelineChange)
	return s, nil
}

// Start loads history, resolves the initial mood and starts the proactive task.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	taskCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.tasks, s.tasksCtx = errgroup.WithContext(taskCtx)
	s.mu.Unlock()

	s.loadHistory(ctx)

	mood, ok := s.store.LastMood()
	if !ok {
		mood = avatar.DefaultMood
	}
	s.setMood(ctx, mood)

	s.tasks.Go(func() error {
		s.runProactiveLoop(s.tasksCtx)
		return nil
	})
	log.Info().Str("component", "session").Int("messages", s.store.Len()).Str("mood", mood).Msg("session started")
	return nil
}

func (s *Session) loadHistory(ctx context.Context) {
	recs, err := s.conv.History(ctx)
	if err != nil {
		s.report(opHistory, triggerUser, err)
		return
	}
	s.store.Reset(timeline.FlattenAll(recs))
}

// Close stops the background tasks and waits for them. In-flight sends finish on their own.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel, tasks := s.cancel, s.tasks
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if tasks != nil {
		err = tasks.Wait()
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	log.Info().Str("component", "session").Msg("session closed")
	return err
}

func (s *Session) Timeline() *timeline.Store { return s.store }

func (s *Session) Attachments() *attachment.Manager { return s.attachments }

func (s *Session) Busy() (sending, summarizing bool) { return s.busy.Flags() }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Mood() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mood
}

func (s *Session) Avatar() avatar.Avatar {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avatar
}

// Attach replaces the pending attachment.
func (s *Session) Attach(filename, data string) {
	s.attachments.Attach(filename, data)
	s.publishAttachment()
}

// AttachFile imports a local image into the image cache and attaches it.
func (s *Session) AttachFile(path string) (*attachment.Attachment, error) {
	if s.images == nil {
		return nil, errors.New("no image cache configured")
	}
	a, err := s.images.ImportFile(path, s.now())
	if err != nil {
		return nil, err
	}
	s.Attach(a.Filename, a.Data)
	return a, nil
}

func (s *Session) ClearAttachment() {
	s.attachments.Clear()
	s.publishAttachment()
}

// ImagePath resolves a bubble's image reference to a local file.
func (s *Session) ImagePath(filename string) (string, error) {
	if s.images == nil {
		return "", errors.New("no image cache configured")
	}
	return s.images.Path(filename)
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) setMood(ctx context.Context, mood string) {
	a := s.resolver.Resolve(ctx, mood)
	s.mu.Lock()
	s.mood = mood
	s.avatar = a
	s.mu.Unlock()

	e := events.New(events.TypeMoodChanged)
	e.Avatar = &a
	e.Status = mood
	s.sink.Publish(e)
}

func (s *Session) forwardTimelineChange(c timeline.Change) {
	var e events.Event
	switch c.Kind {
	case timeline.ChangeAppended:
		e = events.New(events.TypeMessageAppended)
		m := c.Message
		e.Message = &m
	case timeline.ChangeRolledBack:
		e = events.New(events.TypeTimelineRolledBack)
		e.Removed = c.Removed
	case timeline.ChangeReset:
		e = events.New(events.TypeTimelineReset)
	default:
		return
	}
	e.Length = c.Length
	s.sink.Publish(e)
}

func (s *Session) publishBusy() {
	sending, summarizing := s.busy.Flags()
	e := events.New(events.TypeBusyChanged)
	e.Busy = &events.Busy{Sending: sending, Summarizing: summarizing}
	s.sink.Publish(e)
}

func (s *Session) publishAttachment() {
	e := events.New(events.TypeAttachmentChanged)
	if a := s.attachments.Peek(); a != nil {
		e.Attachment = a.Filename
	}
	s.sink.Publish(e)
}

func (s *Session) background() (context.Context, *errgroup.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, ErrClosed
	}
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.tasksCtx, s.tasks, nil
}
