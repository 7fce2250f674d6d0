package model

import (
	"fmt"
	"slices"
	"strings"
)

type PracticeStatus string

const (
	PracticeSuccess PracticeStatus = "success"
	PracticePartial PracticeStatus = "partial"
	PracticeFailure PracticeStatus = "failure"
)

func ParsePracticeStatus(s string) (PracticeStatus, error) {
	switch st := PracticeStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case PracticeSuccess, PracticePartial, PracticeFailure:
		return st, nil
	}
	return "", fmt.Errorf("unknown practice status %q", s)
}

// NextMastery returns the mastery after a practice outcome. Only successes move the counter and it
// never goes down.
func NextMastery(current int, status PracticeStatus) int {
	if status == PracticeSuccess {
		return current + 1
	}
	return current
}

type PracticeRecord struct {
	ID        string         `json:"id"`
	Status    PracticeStatus `json:"status"`
	Timestamp int64          `json:"timestamp"`
	Detail    string         `json:"detail,omitempty"`
}

// LitMastery is the mastery from which a gem is displayed as mastered.
const LitMastery = 3

// Gem is a saved advanced vocabulary item.
type Gem struct {
	ID        string           `json:"id"`
	Word      string           `json:"word"`
	Meaning   string           `json:"meaning"`
	Usage     string           `json:"usage"`
	Level     string           `json:"level"`
	Language  Language         `json:"language"`
	Mastery   int              `json:"mastery"`
	Practices []PracticeRecord `json:"practices"`
	CreatedAt int64            `json:"created_at"`
}

type GemKey struct {
	Word     string
	Language Language
}

func (g Gem) Key() GemKey {
	return GemKey{Word: NormalizeWord(g.Word, g.Language), Language: g.Language}
}

func (g Gem) Lit() bool {
	return g.Mastery >= LitMastery
}

func (g Gem) Clone() Gem {
	out := g
	out.Practices = slices.Clone(g.Practices)
	if out.Practices == nil {
		out.Practices = []PracticeRecord{}
	}
	return out
}

// NewGem creates a gem for a candidate that matched nothing in the collection.
func NewGem(c VocabCandidate, lang Language, id string, now int64) Gem {
	return Gem{
		ID:        id,
		Word:      strings.TrimSpace(c.Word),
		Meaning:   strings.TrimSpace(c.Meaning),
		Usage:     strings.TrimSpace(c.Usage),
		Level:     strings.TrimSpace(c.Level),
		Language:  lang,
		Mastery:   0,
		Practices: []PracticeRecord{},
		CreatedAt: now,
	}
}

// MergeGem refreshes an existing gem from a re-extracted candidate. The existing id, word, mastery,
// practices and creation time win; non-empty incoming meaning, usage and level win.
func MergeGem(existing Gem, in VocabCandidate) Gem {
	out := existing.Clone()
	if v := strings.TrimSpace(in.Meaning); v != "" {
		out.Meaning = v
	}
	if v := strings.TrimSpace(in.Usage); v != "" {
		out.Usage = v
	}
	if v := strings.TrimSpace(in.Level); v != "" {
		out.Level = v
	}
	return out
}

// PrependPractice adds rec as the most recent practice.
func (g *Gem) PrependPractice(rec PracticeRecord) {
	g.Practices = append([]PracticeRecord{rec}, g.Practices...)
}

// SortPractices orders practices most recent first.
func SortPractices(recs []PracticeRecord) {
	slices.SortStableFunc(recs, func(a, b PracticeRecord) int {
		switch {
		case a.Timestamp > b.Timestamp:
			return -1
		case a.Timestamp < b.Timestamp:
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
}
