// Package models defines the data structures shared by the voice query pipeline.
package models

import "strings"

// Language is one of the supported answer locales.
type Language string

const (
	English   Language = "en"
	Tamil     Language = "ta"
	Malayalam Language = "ml"
)

// Languages lists the supported locales in display order.
var Languages = []Language{English, Tamil, Malayalam}

// IsSupported reports whether l is one of the supported locales.
func (l Language) IsSupported() bool {
	switch l {
	case English, Tamil, Malayalam:
		return true
	}
	return false
}

// ParseLanguage maps a short code or BCP-47 tag ("ta", "ta-IN", "ML") to a
// supported Language. Anything unrecognised maps to English.
func ParseLanguage(s string) Language {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "ta"):
		return Tamil
	case strings.HasPrefix(s, "ml"):
		return Malayalam
	default:
		return English
	}
}

// Tag returns the regional BCP-47 tag used by Indian speech providers.
func (l Language) Tag() string {
	switch l {
	case Tamil:
		return "ta-IN"
	case Malayalam:
		return "ml-IN"
	default:
		return "en-IN"
	}
}
