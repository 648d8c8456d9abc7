package session

import (
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/moodchat/pkg/client"
	"github.com/go-go-golems/moodchat/pkg/events"
)

// trigger decides how failures are surfaced.
type trigger int

const (
	// triggerUser failures are logged and shown to the user.
	triggerUser trigger = iota
	// triggerAuto failures are only logged.
	triggerAuto
)

const (
	opHistory             = "history"
	opSendMessage         = "send-message"
	opProactiveMessage    = "proactive-message"
	opWebSearch           = "web-search"
	opReminisce           = "reminisce"
	opStartSummarization  = "start-summarization"
	opSummarizationStatus = "summarization-status"
	opShouldSendProactive = "should-send-proactive"
)

const (
	MessageConflict            = "Summarization is in progress. Please wait until it finishes before sending."
	MessageInsufficientHistory = "There is not enough conversation history to reminisce yet (at least 10 messages are needed)."
)

var transportMessages = map[string]string{
	opHistory:             "Failed to load the conversation history.",
	opSendMessage:         "Failed to send the message. Please try again.",
	opProactiveMessage:    "Failed to get a message from the assistant.",
	opWebSearch:           "Web search failed.",
	opReminisce:           "Reminiscing failed.",
	opStartSummarization:  "Failed to start summarization.",
	opSummarizationStatus: "Failed to check the summarization status.",
}

// UserMessage is the text shown for a failure of op classified as kind.
func UserMessage(op string, kind client.Kind) string {
	switch kind {
	case client.KindConflict:
		return MessageConflict
	case client.KindInsufficientHistory:
		return MessageInsufficientHistory
	}
	if m, ok := transportMessages[op]; ok {
		return m
	}
	return "Something went wrong. Please try again."
}

func (s *Session) report(op string, trig trigger, err error) {
	kind := client.KindOf(err)
	if trig == triggerAuto {
		log.Warn().Err(err).Str("component", "session").Str("op", op).Str("kind", kind.String()).Msg("automatic action failed")
		return
	}
	log.Error().Err(err).Str("component", "session").Str("op", op).Str("kind", kind.String()).Msg("action failed")
	s.alert(kind.String(), UserMessage(op, kind))
}

func (s *Session) alert(kind, msg string) {
	e := events.New(events.TypeAlert)
	e.Alert = &events.Alert{Kind: kind, Message: msg}
	s.sink.Publish(e)
}
