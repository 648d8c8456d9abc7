package timeline

import (
	"sync"
)

type ChangeKind string

const (
	ChangeAppended   ChangeKind = "appended"
	ChangeRolledBack ChangeKind = "rolled_back"
	ChangeReset      ChangeKind = "reset"
)

// Change describes one mutation. Message is set for appends, Removed for rollbacks.
type Change struct {
	Kind    ChangeKind
	Message Message
	Length  int
	Removed int
}

type subscriber struct {
	id int
	fn func(Change)
}

// Store is the ordered, append-only display log. It only shrinks through Rollback.
type Store struct {
	mu     sync.Mutex
	msgs   []Message
	subs   []subscriber
	nextID int

	// notifyMu serializes notifications so subscribers see changes in mutation order.
	notifyMu sync.Mutex
}

func NewStore() *Store {
	return &Store{}
}

// Subscribe registers fn for every subsequent change. Calling the returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(Change)) func() {
	if s == nil || fn == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Append adds m at the end and returns the new length.
func (s *Store) Append(m Message) int {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.msgs = append(s.msgs, m)
	n := len(s.msgs)
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, Change{Kind: ChangeAppended, Message: m, Length: n})
	return n
}

// Rollback truncates back to toLength. Lengths at or above the current one are a no-op.
func (s *Store) Rollback(toLength int) {
	if toLength < 0 {
		toLength = 0
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if toLength >= len(s.msgs) {
		s.mu.Unlock()
		return
	}
	removed := len(s.msgs) - toLength
	clear(s.msgs[toLength:])
	s.msgs = s.msgs[:toLength]
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, Change{Kind: ChangeRolledBack, Length: toLength, Removed: removed})
}

// Reset replaces the whole log; used when history is loaded at session start.
func (s *Store) Reset(msgs []Message) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.msgs = append([]Message(nil), msgs...)
	n := len(s.msgs)
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, Change{Kind: ChangeReset, Length: n})
}

// Len is the snapshot length used as a rollback point.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// Messages returns a copy of the log.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.msgs...)
}

// Last returns the most recent message with the given role.
func (s *Store) Last(role Role) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.msgs) - 1; i >= 0; i-- {
		if s.msgs[i].Role == role {
			return s.msgs[i], true
		}
	}
	return Message{}, false
}

// LastMood returns the mood of the most recent message carrying one.
func (s *Store) LastMood() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.msgs) - 1; i >= 0; i-- {
		if s.msgs[i].Mood != "" {
			return s.msgs[i].Mood, true
		}
	}
	return "", false
}

func (s *Store) subscribersLocked() []subscriber {
	if len(s.subs) == 0 {
		return nil
	}
	return append([]subscriber(nil), s.subs...)
}

func notify(subs []subscriber, c Change) {
	for _, sub := range subs {
		sub.fn(c)
	}
}
