package shard

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	ErrNotFound   = errors.New("shard not found")
	ErrEmpty      = errors.New("shard has no text")
	ErrInvalidURL = errors.New("invalid shard url")

	ErrBlockedAddress = errors.New("shard url resolves to a non-public address")
)

// MaxTextRunes bounds the stored text of a shard; longer articles are cut at a sentence end when
// one is close to the limit.
const MaxTextRunes = 2000

// Shard is an ephemeral inspiration fragment a user can write about.
type Shard struct {
	ID        string `json:"id"`
	URL       string `json:"url,omitempty"`
	Title     string `json:"title,omitempty"`
	Byline    string `json:"byline,omitempty"`
	SiteName  string `json:"site_name,omitempty"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// Clip trims whitespace runs and shortens text to MaxTextRunes.
func Clip(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= MaxTextRunes {
		return text
	}

	runes := []rune(text)[:MaxTextRunes]
	for i := len(runes) - 1; i >= MaxTextRunes*3/4; i-- {
		switch runes[i] {
		case '.', '!', '?', '。', '！', '？':
			return string(runes[:i+1])
		}
	}
	return string(runes)
}
