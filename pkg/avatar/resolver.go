package avatar

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	DefaultMood = "normal"

	ExtMP4  = "mp4"
	ExtPNG  = "png"
	ExtJPG  = "jpg"
	ExtJPEG = "jpeg"
	ExtGIF  = "gif"
	ExtWEBP = "webp"
)

// Extensions is the probe order: the animated asset first, then still images.
var Extensions = []string{ExtMP4, ExtPNG, ExtJPG, ExtJPEG, ExtGIF, ExtWEBP}

// Default is returned when not even the normal mood has an asset.
var Default = Avatar{Mood: DefaultMood, Extension: ExtPNG}

// Avatar is a playable asset for a mood.
type Avatar struct {
	Mood      string `json:"mood"`
	Extension string `json:"extension"`
}

func (a Avatar) Filename() string { return a.Mood + "." + a.Extension }

func (a Avatar) IsVideo() bool { return a.Extension == ExtMP4 }

// Resolver maps moods to assets. Results are cached for the lifetime of the resolver.
type Resolver struct {
	prober Prober

	mu    sync.Mutex
	cache map[string]Avatar
}

func NewResolver(p Prober) *Resolver {
	return &Resolver{prober: p, cache: map[string]Avatar{}}
}

// Resolve never fails: it walks [mood, normal] x Extensions and falls back to Default.
func (r *Resolver) Resolve(ctx context.Context, mood string) Avatar {
	mood = strings.TrimSpace(mood)
	if mood == "" {
		mood = DefaultMood
	}

	r.mu.Lock()
	if a, ok := r.cache[mood]; ok {
		r.mu.Unlock()
		return a
	}
	r.mu.Unlock()

	a := r.walk(ctx, mood)
	if ctx.Err() != nil {
		return a
	}

	r.mu.Lock()
	r.cache[mood] = a
	r.mu.Unlock()
	return a
}

func (r *Resolver) walk(ctx context.Context, mood string) Avatar {
	candidates := []string{mood}
	if mood != DefaultMood {
		candidates = append(candidates, DefaultMood)
	}

	if r.prober != nil {
		for _, m := range candidates {
			for _, ext := range Extensions {
				if ctx.Err() != nil {
					return Default
				}
				a := Avatar{Mood: m, Extension: ext}
				if r.prober.Exists(ctx, a.Filename()) {
					if m != mood {
						log.Debug().Str("component", "avatar").Str("mood", mood).Str("asset", a.Filename()).Msg("mood has no asset, using fallback")
					}
					return a
				}
			}
		}
	}

	log.Warn().Str("component", "avatar").Str("mood", mood).Msg("no avatar asset found, using built-in default")
	return Default
}
