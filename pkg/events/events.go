package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/go-go-golems/moodchat/pkg/avatar"
	"github.com/go-go-golems/moodchat/pkg/timeline"
)

type Type string

const (
	TypeMessageAppended     Type = "message.appended"
	TypeTimelineRolledBack  Type = "timeline.rolled_back"
	TypeTimelineReset       Type = "timeline.reset"
	TypeMoodChanged         Type = "mood.changed"
	TypeAlert               Type = "alert"
	TypeBusyChanged         Type = "busy.changed"
	TypeSummarizationStatus Type = "summarization.status"
	TypeAttachmentChanged   Type = "attachment.changed"
	TypeBackgroundDone      Type = "background.done"
)

// Alert is a user-facing notice. Kind mirrors the error classification.
type Alert struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type Busy struct {
	Sending     bool `json:"sending"`
	Summarizing bool `json:"summarizing"`
}

// Event is one session notification, JSON encoded on the bus.
type Event struct {
	ID   string    `json:"id"`
	Type Type      `json:"type"`
	Time time.Time `json:"time"`

	Message    *timeline.Message `json:"message,omitempty"`
	Length     int               `json:"length,omitempty"`
	Removed    int               `json:"removed,omitempty"`
	Avatar     *avatar.Avatar    `json:"avatar,omitempty"`
	Alert      *Alert            `json:"alert,omitempty"`
	Busy       *Busy             `json:"busy,omitempty"`
	Status     string            `json:"status,omitempty"`
	Attachment string            `json:"attachment,omitempty"`
	Action     string            `json:"action,omitempty"`
}

// New stamps an event with an id and the current time.
func New(t Type) Event {
	return Event{ID: uuid.NewString(), Type: t, Time: time.Now()}
}

// Sink receives session events. Publishing never fails from the caller's view.
type Sink interface {
	Publish(e Event)
}

type SinkFunc func(e Event)

func (f SinkFunc) Publish(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Recorder keeps published events in memory; handy for hosts and tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of type t in publish order.
func (r *Recorder) OfType(t Type) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Fanout publishes to every non-nil sink.
func Fanout(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s.Publish(e)
			}
		}
	})
}
