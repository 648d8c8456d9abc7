package client

import "context"

// MessageRecord is a message as stored and returned by the conversation service.
type MessageRecord struct {
	Role        string   `json:"role"`
	Content     string   `json:"content"`
	Contents    []string `json:"contents,omitempty"`
	Mood        string   `json:"mood,omitempty"`
	ImagePath   string   `json:"image_path,omitempty"`
	MessageType string   `json:"message_type,omitempty"`
	Timestamp   string   `json:"timestamp,omitempty"`
}

// ImagePayload is an attached image sent along with a user message.
type ImagePayload struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
}

const (
	SummarizationIdle    = "idle"
	SummarizationRunning = "running"
)

// SummarizationStatus is returned by both summarization endpoints.
type SummarizationStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// IsIdle reports whether no summarization is in progress.
func (s SummarizationStatus) IsIdle() bool { return s.Status == SummarizationIdle }

// Conversation is the remote conversation service as seen by the session.
type Conversation interface {
	History(ctx context.Context) ([]MessageRecord, error)
	SendMessage(ctx context.Context, text string, images []ImagePayload) ([]MessageRecord, error)
	StartSummarization(ctx context.Context) (SummarizationStatus, error)
	SummarizationStatus(ctx context.Context) (SummarizationStatus, error)
	ShouldSendProactive(ctx context.Context) (bool, error)
	ProactiveMessage(ctx context.Context) ([]MessageRecord, error)
	WebSearch(ctx context.Context) ([]MessageRecord, error)
	Reminisce(ctx context.Context) ([]MessageRecord, error)
}

type sendMessageRequest struct {
	Text   string         `json:"text"`
	Images []ImagePayload `json:"images"`
}

type messagesResponse struct {
	Messages []MessageRecord `json:"messages"`
}

type shouldSendResponse struct {
	ShouldSend bool `json:"should_send"`
}

type errorBody struct {
	Code   string `json:"code"`
	Detail any    `json:"detail"`
	Error  string `json:"error"`
}
