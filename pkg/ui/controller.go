package ui

import (
	"context"

	"github.com/go-go-golems/moodchat/pkg/attachment"
	"github.com/go-go-golems/moodchat/pkg/avatar"
	"github.com/go-go-golems/moodchat/pkg/timeline"
)

// Controller is what the terminal hosts drive. *session.Session implements it.
type Controller interface {
	SendUserMessage(ctx context.Context, text string) error
	SendProactiveMessage(ctx context.Context) error
	StartSummarization(ctx context.Context) error
	WebSearch(ctx context.Context) error
	Reminisce(ctx context.Context) error

	AttachFile(path string) (*attachment.Attachment, error)
	ClearAttachment()
	Attachments() *attachment.Manager

	Timeline() *timeline.Store
	Mood() string
	Avatar() avatar.Avatar
	Busy() (sending, summarizing bool)
	ImagePath(filename string) (string, error)
}
