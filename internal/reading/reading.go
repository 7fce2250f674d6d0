package reading

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// IPA feature layout: 0 part of speech, 6 base form, 7 reading (katakana).
const (
	featPOS     = 0
	featReading = 7
)

var nonContentPOS = map[string]bool{
	"記号":   true,
	"補助記号": true,
}

// Annotator measures and annotates text using the kagome IPA dictionary.
// A Tokenizer is safe for concurrent use.
type Annotator struct {
	t *tokenizer.Tokenizer
}

func New() (*Annotator, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("create tokenizer: %w", err)
	}
	return &Annotator{t: t}, nil
}

// Annotate wraps every token containing kanji in <ruby> with its hiragana reading. Trailing kana
// shared by the surface and the reading stay outside the annotation (行っ -> <ruby>行<rt>い</rt></ruby>っ).
func (a *Annotator) Annotate(text string) string {
	var sb strings.Builder
	for _, tok := range a.t.Tokenize(text) {
		if tok.Class == tokenizer.DUMMY {
			sb.WriteString(tok.Surface)
			continue
		}

		reading := feature(tok.Features(), featReading)
		if reading == "" || !hasKanji(tok.Surface) {
			sb.WriteString(tok.Surface)
			continue
		}

		sb.WriteString(ruby(tok.Surface, ToHiragana(reading)))
	}
	return sb.String()
}

// AnnotateWord annotates a single vocabulary word unless it already carries a reading.
func (a *Annotator) AnnotateWord(word string) string {
	if model.HasRuby(word) {
		return word
	}
	return a.Annotate(word)
}

// CountUnits returns how much text there is in the units used for lang: morphemes without
// punctuation for Japanese, letters for Chinese and words for everything else.
func (a *Annotator) CountUnits(text string, lang model.Language) int {
	text = model.PlainText(text)

	switch lang.Segmentation() {
	case model.SegmentMorphemes:
		n := 0
		for _, tok := range a.t.Tokenize(text) {
			if strings.TrimSpace(tok.Surface) == "" {
				continue
			}
			if tok.Class != tokenizer.DUMMY && nonContentPOS[feature(tok.Features(), featPOS)] {
				continue
			}
			n++
		}
		return n
	case model.SegmentCharacters:
		n := 0
		for _, r := range text {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				n++
			}
		}
		return n
	default:
		n := 0
		for _, f := range strings.Fields(text) {
			if strings.IndexFunc(f, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0 {
				n++
			}
		}
		return n
	}
}

// ToHiragana maps katakana to hiragana and leaves everything else untouched.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}

func ruby(surface, reading string) string {
	base, kana := []rune(surface), []rune(reading)
	suffix := 0
	for suffix < len(base)-1 && suffix < len(kana)-1 {
		b := []rune(ToHiragana(string(base[len(base)-1-suffix])))[0]
		if !isKana(b) || b != kana[len(kana)-1-suffix] {
			break
		}
		suffix++
	}

	head := string(base[:len(base)-suffix])
	rt := string(kana[:len(kana)-suffix])
	tail := string(base[len(base)-suffix:])
	return "<ruby>" + head + "<rt>" + rt + "</rt></ruby>" + tail
}

func feature(features []string, i int) string {
	if len(features) > i && features[i] != "*" {
		return features[i]
	}
	return ""
}

func hasKanji(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

func isKana(r rune) bool {
	return unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r)
}
