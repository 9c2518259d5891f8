package core

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is a display language the user can pick for translated chat.
type Language string

const (
	LanguageKorean   Language = "korean"
	LanguageEnglish  Language = "english"
	LanguageJapanese Language = "japanese"
)

var supportedLanguages = []Language{LanguageKorean, LanguageEnglish, LanguageJapanese}

// Languages lists the selectable languages in prompt order.
func Languages() []Language {
	out := make([]Language, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	for _, s := range supportedLanguages {
		if l == s {
			return true
		}
	}
	return false
}

// Tag returns the BCP 47 tag for l, or language.Und.
func (l Language) Tag() language.Tag {
	switch l {
	case LanguageKorean:
		return language.Korean
	case LanguageEnglish:
		return language.English
	case LanguageJapanese:
		return language.Japanese
	default:
		return language.Und
	}
}

// Code is the short code the server stores ("ko", "en", "ja").
func (l Language) Code() string {
	if !l.Valid() {
		return ""
	}
	return l.Tag().String()
}

// Label is the language's name in itself, e.g. "한국어".
func (l Language) Label() string {
	if !l.Valid() {
		return string(l)
	}
	return display.Self.Name(l.Tag())
}

func (l Language) String() string {
	return string(l)
}

// ParseLanguage accepts an enum name ("korean"), a short code ("ko") or any
// tag whose base language is supported ("ja-JP").
func ParseLanguage(s string) (Language, error) {
	value := strings.ToLower(strings.TrimSpace(s))
	if value == "" {
		return "", fmt.Errorf("%w: empty", ErrUnknownLanguage)
	}
	for _, l := range supportedLanguages {
		if string(l) == value {
			return l, nil
		}
	}

	tag, err := language.Parse(value)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, s)
	}
	base, _ := tag.Base()
	for _, l := range supportedLanguages {
		if b, _ := l.Tag().Base(); b == base {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, s)
}
