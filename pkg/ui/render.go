package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/moodchat/pkg/avatar"
	"github.com/go-go-golems/moodchat/pkg/prefs"
	"github.com/go-go-golems/moodchat/pkg/timeline"
)

// Markdown renders assistant bubbles with glamour. Renderers are rebuilt when the
// theme or the wrap width changes.
type Markdown struct {
	theme    prefs.Theme
	width    int
	renderer *glamour.TermRenderer
}

func (m *Markdown) Render(content string, theme prefs.Theme, width int) string {
	if width <= 0 {
		width = 80
	}
	if m.renderer == nil || m.theme != theme || m.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(string(theme)),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			log.Warn().Err(err).Str("component", "ui").Msg("markdown renderer unavailable")
			return content
		}
		m.renderer, m.theme, m.width = r, theme, width
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

// RenderFunc renders one assistant bubble body.
type RenderFunc func(content string) string

// ImageResolver maps an image filename to its locally cached path.
type ImageResolver func(filename string) (string, error)

// ImageLabel names an image bubble by its local path, or notes that it is not cached.
func ImageLabel(name string, resolve ImageResolver) string {
	if resolve == nil {
		return "[image " + name + "]"
	}
	path, err := resolve(name)
	if err != nil {
		return "[image " + name + " (not cached)]"
	}
	return "[image " + path + "]"
}

// FormatMessage renders one bubble as a header line and its body.
func FormatMessage(st Styles, m timeline.Message, render RenderFunc, resolve ImageResolver) string {
	var b strings.Builder
	switch m.Role {
	case timeline.RoleUser:
		b.WriteString(st.User.Render("you"))
	default:
		b.WriteString(st.Assistant.Render("assistant"))
		if m.Mood != "" {
			b.WriteString(" ")
			b.WriteString(st.Mood.Render("(" + m.Mood + ")"))
		}
	}
	b.WriteString("\n")
	if m.ImagePath != "" {
		b.WriteString(st.Image.Render(ImageLabel(m.ImagePath, resolve)))
		b.WriteString("\n")
	}
	if m.Role != timeline.RoleUser && render != nil {
		b.WriteString(render(m.Content))
	} else {
		b.WriteString(m.Content)
	}
	return b.String()
}

// FormatTimeline renders every bubble separated by a blank line.
func FormatTimeline(st Styles, msgs []timeline.Message, render RenderFunc, resolve ImageResolver) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, FormatMessage(st, m, render, resolve))
	}
	return strings.Join(parts, "\n\n")
}

// StatusLine summarizes avatar, pending attachment and busy flags.
func StatusLine(a avatar.Avatar, pending string, sending, summarizing bool) string {
	kind := "image"
	if a.IsVideo() {
		kind = "video"
	}
	parts := []string{fmt.Sprintf("mood: %s [%s %s]", a.Mood, kind, a.Filename())}
	if pending != "" {
		parts = append(parts, "attached: "+pending)
	}
	switch {
	case sending:
		parts = append(parts, "waiting for reply...")
	case summarizing:
		parts = append(parts, "summarizing...")
	}
	return strings.Join(parts, " | ")
}
