// Package language maps the language tags offered by the chat client to the
// display names used in prompts and menus.
package language

import "strings"

// Language is one selectable reply language
type Language struct {
	Tag  string
	Name string
}

// Supported lists the selectable languages in menu order
var Supported = []Language{
	{Tag: "en", Name: "English"},
	{Tag: "hi", Name: "Hindi"},
	{Tag: "ml", Name: "Malayalam"},
	{Tag: "fr", Name: "French"},
}

const defaultName = "English"

// Lookup finds a supported language by tag ("fr", "fr-FR") or name ("French").
func Lookup(value string) (Language, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Language{}, false
	}
	base, _, _ := strings.Cut(value, "-")
	for _, l := range Supported {
		if strings.EqualFold(l.Tag, base) || strings.EqualFold(l.Name, value) {
			return l, true
		}
	}
	return Language{}, false
}

// Name returns the display name for value. Unknown values are returned
// verbatim so callers can pass free-form language names; empty is English.
func Name(value string) string {
	if l, ok := Lookup(value); ok {
		return l.Name
	}
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return defaultName
}

// IsSupported reports whether value names one of the selectable languages
func IsSupported(value string) bool {
	_, ok := Lookup(value)
	return ok
}
