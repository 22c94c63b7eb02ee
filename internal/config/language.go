package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// ParseLanguage parses a BCP 47 tag such as "en", "de" or "zh-CN".
// An empty tag means English.
func ParseLanguage(tag string) (language.Tag, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return language.English, nil
	}
	t, err := language.Parse(tag)
	if err != nil {
		return language.English, fmt.Errorf("invalid language %q: %w", tag, err)
	}
	return t, nil
}

// LanguageTag returns the report language, falling back to English when the
// configured value does not parse.
func (c ReportConfig) LanguageTag() language.Tag {
	t, _ := ParseLanguage(c.Language)
	return t
}
