package model

import (
	"cmp"
	"slices"
	"time"
)

type EntryType string

const (
	EntryDiary     EntryType = "diary"
	EntryRehearsal EntryType = "rehearsal"
)

type Correction struct {
	Original    string `json:"original"`
	Corrected   string `json:"corrected"`
	Explanation string `json:"explanation"`
	Category    string `json:"category,omitempty"`
}

// VocabCandidate is an advanced vocabulary item proposed by an analysis.
type VocabCandidate struct {
	Word    string `json:"word"`
	Meaning string `json:"meaning"`
	Usage   string `json:"usage"`
	Level   string `json:"level"`
}

type Analysis struct {
	Summary       string           `json:"summary,omitempty"`
	ModifiedText  string           `json:"modified_text,omitempty"`
	Corrections   []Correction     `json:"corrections"`
	AdvancedVocab []VocabCandidate `json:"advanced_vocab"`
}

func (a *Analysis) Clone() *Analysis {
	if a == nil {
		return nil
	}
	out := *a
	out.Corrections = slices.Clone(a.Corrections)
	out.AdvancedVocab = slices.Clone(a.AdvancedVocab)
	return &out
}

type Iteration struct {
	Text      string    `json:"text"`
	Timestamp int64     `json:"timestamp"`
	Analysis  *Analysis `json:"analysis,omitempty"`
}

type RehearsalEvaluation struct {
	SourceEntryID string   `json:"source_entry_id"`
	AccuracyScore int      `json:"accuracy_score"`
	QualityScore  int      `json:"quality_score"`
	Transcript    string   `json:"transcript"`
	Feedback      string   `json:"feedback"`
	Missed        []string `json:"missed,omitempty"`
}

type DiaryEntry struct {
	ID           string               `json:"id"`
	Timestamp    int64                `json:"timestamp"`
	Language     Language             `json:"language"`
	Type         EntryType            `json:"type"`
	OriginalText string               `json:"original_text"`
	Analysis     *Analysis            `json:"analysis,omitempty"`
	Iterations   []Iteration          `json:"iterations,omitempty"`
	Rehearsal    *RehearsalEvaluation `json:"rehearsal,omitempty"`
}

// Draft reports whether the entry was saved without an analysis.
func (e *DiaryEntry) Draft() bool {
	return e.Analysis == nil
}

// Revise records a new version of the entry. The first revision also stores the pre-revision
// state as iteration zero, so Iterations always holds every version and Iterations[0] stays fixed.
func (e *DiaryEntry) Revise(text string, ts int64, a *Analysis) {
	if len(e.Iterations) == 0 {
		e.Iterations = append(e.Iterations, Iteration{
			Text:      e.OriginalText,
			Timestamp: e.Timestamp,
			Analysis:  e.Analysis.Clone(),
		})
	}

	e.Iterations = append(e.Iterations, Iteration{
		Text:      text,
		Timestamp: ts,
		Analysis:  a.Clone(),
	})

	e.OriginalText = text
	e.Timestamp = ts
	e.Analysis = a
}

// AttachAnalysis merges a deferred analysis into a draft. Iterations are left untouched.
func (e *DiaryEntry) AttachAnalysis(a *Analysis) {
	e.Analysis = a
}

func (e DiaryEntry) Clone() DiaryEntry {
	out := e
	out.Analysis = e.Analysis.Clone()
	if e.Iterations != nil {
		out.Iterations = make([]Iteration, len(e.Iterations))
		for i, it := range e.Iterations {
			it.Analysis = it.Analysis.Clone()
			out.Iterations[i] = it
		}
	}
	if e.Rehearsal != nil {
		r := *e.Rehearsal
		r.Missed = slices.Clone(e.Rehearsal.Missed)
		out.Rehearsal = &r
	}
	return out
}

// SortEntries orders entries newest first. Equal timestamps fall back to the id so the order is stable
// across loads.
func SortEntries(entries []DiaryEntry) {
	slices.SortStableFunc(entries, func(a, b DiaryEntry) int {
		if c := cmp.Compare(b.Timestamp, a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

type MonthGroup struct {
	Month   string       `json:"month"`
	Entries []DiaryEntry `json:"entries"`
}

// GroupByMonth buckets entries by calendar month in loc, newest month first.
func GroupByMonth(entries []DiaryEntry, loc *time.Location) []MonthGroup {
	if loc == nil {
		loc = time.UTC
	}

	sorted := slices.Clone(entries)
	SortEntries(sorted)

	var groups []MonthGroup
	for _, e := range sorted {
		month := time.UnixMilli(e.Timestamp).In(loc).Format("2006-01")
		if n := len(groups); n > 0 && groups[n-1].Month == month {
			groups[n-1].Entries = append(groups[n-1].Entries, e)
			continue
		}
		groups = append(groups, MonthGroup{Month: month, Entries: []DiaryEntry{e}})
	}

	return groups
}
