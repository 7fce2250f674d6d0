package model

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	rtTag   = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	rpTag   = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
	anyTag  = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// StripPronunciation removes ruby readings (<rt>) and fallback parentheses (<rp>) with their content,
// leaving the base text and the surrounding markup in place.
func StripPronunciation(s string) string {
	s = rtTag.ReplaceAllString(s, "")
	return rpTag.ReplaceAllString(s, "")
}

// NormalizeWord returns the dedup key of a vocabulary word: pronunciation annotation removed,
// remaining markup dropped, NFKC folded, whitespace collapsed and lowercased for the word's language.
func NormalizeWord(word string, lang Language) string {
	s := StripPronunciation(word)
	s = anyTag.ReplaceAllString(s, "")
	s = norm.NFKC.String(s)
	s = spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")

	// cases.Caser keeps state, so each call gets its own
	return cases.Lower(lang.Tag()).String(s)
}

// HasRuby reports whether the word already carries a pronunciation annotation.
func HasRuby(word string) bool {
	return rtTag.MatchString(word)
}

// PlainText drops pronunciation annotation and markup, keeping the readable text.
func PlainText(s string) string {
	return anyTag.ReplaceAllString(StripPronunciation(s), "")
}
