package timeline

import (
	"strings"

	"github.com/go-go-golems/moodchat/pkg/client"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one displayed bubble. Empty Mood or ImagePath mean "none".
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Mood      string `json:"mood,omitempty"`
	ImagePath string `json:"image_path,omitempty"`
}

// Flatten turns one service record into the bubbles shown for it.
//
// A record with an image and at least two segments shows only the second segment
// (the first is the image description). Otherwise each segment becomes its own bubble.
func Flatten(rec client.MessageRecord) []Message {
	role := Role(rec.Role)
	if role != RoleUser {
		role = RoleAssistant
	}

	segments := rec.Contents
	if len(segments) == 0 && strings.TrimSpace(rec.Content) != "" {
		segments = []string{rec.Content}
	}
	if len(segments) == 0 {
		return nil
	}

	if rec.ImagePath != "" && len(segments) >= 2 {
		return []Message{{Role: role, Content: segments[1], Mood: rec.Mood, ImagePath: rec.ImagePath}}
	}

	out := make([]Message, 0, len(segments))
	for _, s := range segments {
		out = append(out, Message{Role: role, Content: s, Mood: rec.Mood, ImagePath: rec.ImagePath})
	}
	return out
}

// FlattenAll flattens records in order.
func FlattenAll(recs []client.MessageRecord) []Message {
	var out []Message
	for _, r := range recs {
		out = append(out, Flatten(r)...)
	}
	return out
}
