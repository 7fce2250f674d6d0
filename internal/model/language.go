package model

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Language is a supported diary language tag.
type Language string

const (
	English    Language = "en"
	Japanese   Language = "ja"
	Chinese    Language = "zh"
	Korean     Language = "ko"
	French     Language = "fr"
	German     Language = "de"
	Spanish    Language = "es"
	Italian    Language = "it"
	Portuguese Language = "pt"
	Turkish    Language = "tr"
)

var languageTags = map[Language]language.Tag{
	English:    language.English,
	Japanese:   language.Japanese,
	Chinese:    language.Chinese,
	Korean:     language.Korean,
	French:     language.French,
	German:     language.German,
	Spanish:    language.Spanish,
	Italian:    language.Italian,
	Portuguese: language.Portuguese,
	Turkish:    language.Turkish,
}

var languageNames = map[Language]string{
	English:    "English",
	Japanese:   "Japanese",
	Chinese:    "Chinese",
	Korean:     "Korean",
	French:     "French",
	German:     "German",
	Spanish:    "Spanish",
	Italian:    "Italian",
	Portuguese: "Portuguese",
	Turkish:    "Turkish",
}

// ParseLanguage accepts a BCP 47 tag ("ja", "ja-JP", "EN") and maps it to a supported language.
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty language")
	}

	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("parse language %q: %w", s, err)
	}

	base, _ := tag.Base()
	l := Language(base.String())
	if _, ok := languageTags[l]; !ok {
		return "", fmt.Errorf("unsupported language %q", s)
	}

	return l, nil
}

func (l Language) Valid() bool {
	_, ok := languageTags[l]
	return ok
}

// Tag returns the x/text tag used for case mapping; unknown languages map to language.Und.
func (l Language) Tag() language.Tag {
	if t, ok := languageTags[l]; ok {
		return t
	}
	return language.Und
}

// Name returns the English name of the language for prompts.
func (l Language) Name() string {
	if n, ok := languageNames[l]; ok {
		return n
	}
	return string(l)
}

// Segmentation describes how the amount of text is measured for a language.
type Segmentation int

const (
	SegmentWords Segmentation = iota
	SegmentMorphemes
	SegmentCharacters
)

func (l Language) Segmentation() Segmentation {
	switch l {
	case Japanese:
		return SegmentMorphemes
	case Chinese:
		return SegmentCharacters
	default:
		return SegmentWords
	}
}

func SupportedLanguages() []Language {
	return []Language{English, Japanese, Chinese, Korean, French, German, Spanish, Italian, Portuguese, Turkish}
}
