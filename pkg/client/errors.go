package client

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies failures coming back from the conversation service.
type Kind int

const (
	// KindTransport covers network failures, unexpected statuses and undecodable bodies.
	KindTransport Kind = iota
	// KindConflict means the service refused a message because summarization is running.
	KindConflict
	// KindInsufficientHistory means reminisce was requested with fewer than ten stored messages.
	KindInsufficientHistory
)

func (k Kind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindInsufficientHistory:
		return "insufficient_history"
	default:
		return "transport"
	}
}

// Machine-readable codes the service may put in an error body.
const (
	codeSummarizationInProgress = "summarization_in_progress"
	codeInsufficientHistory     = "insufficient_history"
)

// Error is returned by every Conversation operation that fails.
type Error struct {
	Op         string
	Kind       Kind
	StatusCode int
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Cause lets github.com/pkg/errors.Cause walk through the error.
func (e *Error) Cause() error { return e.Err }

// KindOf returns the kind attached to err, or KindTransport when err carries none.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindTransport
}

// IsKind reports whether err was classified as k.
func IsKind(err error, k Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == k
}
