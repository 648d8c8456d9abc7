package prefs

import "github.com/rs/zerolog/log"

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"

	themeKey = "theme"
)

// LoadTheme returns light only when explicitly stored; anything else is dark.
func LoadTheme(s Store) Theme {
	if s == nil {
		return ThemeDark
	}
	v, ok, err := s.Get(themeKey)
	if err != nil {
		log.Warn().Err(err).Str("component", "prefs").Msg("failed to read theme preference")
		return ThemeDark
	}
	if ok && Theme(v) == ThemeLight {
		return ThemeLight
	}
	return ThemeDark
}

// ToggleTheme flips and persists the theme, returning the new value.
func ToggleTheme(s Store) (Theme, error) {
	next := ThemeLight
	if LoadTheme(s) == ThemeLight {
		next = ThemeDark
	}
	if s == nil {
		return next, nil
	}
	if err := s.Set(themeKey, string(next)); err != nil {
		return LoadTheme(s), err
	}
	return next, nil
}
