package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
)

func str() map[string]any {
	return map[string]any{"type": "string"}
}

func integer() map[string]any {
	return map[string]any{"type": "integer"}
}

func array(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

// object builds a strict schema object; every property is required.
func object(props map[string]any) map[string]any {
	required := make([]string, 0, len(props))
	for k := range props {
		required = append(required, k)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

var analysisSchema = object(map[string]any{
	"summary":       str(),
	"modified_text": str(),
	"corrections": array(object(map[string]any{
		"original":    str(),
		"corrected":   str(),
		"explanation": str(),
		"category":    str(),
	})),
	"advanced_vocab": array(object(map[string]any{
		"word":    str(),
		"meaning": str(),
		"usage":   str(),
		"level":   str(),
	})),
})

const analyzeSystem = `You are a patient %[1]s writing tutor. The learner's native language is unknown; explain in English.
Correct grammar, spelling and unnatural phrasing in the diary entry. Keep the learner's voice.
Return modified_text as the full corrected entry, one item per correction, and up to five advanced
vocabulary items worth learning from the corrected text. For Japanese words, write readings as
<ruby>漢字<rt>かな</rt></ruby>. Use CEFR levels (A1..C2) for level.`

// AnalyzeDiaryEntry corrects text and extracts vocabulary. history holds recent analyzed entries in
// the same language and is only used as context.
func (c *Client) AnalyzeDiaryEntry(ctx context.Context, text string, lang model.Language, history []model.DiaryEntry) (model.Analysis, error) {
	var user strings.Builder
	if len(history) > 0 {
		user.WriteString("Previous entries by the same learner, newest first:\n")
		for _, e := range history {
			fmt.Fprintf(&user, "- %s\n", oneLine(e.OriginalText))
		}
		user.WriteString("\n")
	}
	user.WriteString("Diary entry:\n")
	user.WriteString(text)

	var a model.Analysis
	err := c.generateJSON(ctx, fmt.Sprintf(analyzeSystem, lang.Name()), user.String(), "diary_analysis", analysisSchema, &a)
	if err != nil {
		return model.Analysis{}, fmt.Errorf("analyze diary entry: %w", err)
	}

	if a.Corrections == nil {
		a.Corrections = []model.Correction{}
	}
	if a.AdvancedVocab == nil {
		a.AdvancedVocab = []model.VocabCandidate{}
	}
	return a, nil
}

const synthesizeSystem = `You turn notes, fragments or a spoken transcript into a short, natural diary entry written in %[1]s.
Write in the first person, past tense, at most 200 words. Answer with the entry text only.`

func (c *Client) SynthesizeDiary(ctx context.Context, text string, lang model.Language) (string, error) {
	out, err := c.generateText(ctx, fmt.Sprintf(synthesizeSystem, lang.Name()), text)
	if err != nil {
		return "", fmt.Errorf("synthesize diary: %w", err)
	}
	return out, nil
}

var musesSchema = object(map[string]any{
	"muses": array(object(map[string]any{
		"title":  str(),
		"prompt": str(),
		"hint":   str(),
	})),
})

const musesSystem = `You suggest daily diary writing prompts for a learner of %[1]s.
Return three varied prompts. Write the title and prompt in %[1]s and the hint in English.`

func (c *Client) GenerateDailyMuses(ctx context.Context, lang model.Language, day time.Time) ([]model.Muse, error) {
	var out struct {
		Muses []model.Muse `json:"muses"`
	}
	user := fmt.Sprintf("Today is %s.", day.Format("Monday, 2 January 2006"))
	if err := c.generateJSON(ctx, fmt.Sprintf(musesSystem, lang.Name()), user, "daily_muses", musesSchema, &out); err != nil {
		return nil, fmt.Errorf("generate daily muses: %w", err)
	}

	for i := range out.Muses {
		out.Muses[i].Language = lang
	}
	return out.Muses, nil
}

var rehearsalSchema = object(map[string]any{
	"accuracy_score": integer(),
	"quality_score":  integer(),
	"feedback":       str(),
	"missed":         array(str()),
})

const rehearsalSystem = `You grade a learner's retelling of their own %[1]s diary entry.
accuracy_score (0-100) measures how much of the source content is preserved, quality_score (0-100)
measures grammar and naturalness. List the important source details that are missing in missed.
Write feedback in English, at most three sentences.`

func (c *Client) EvaluateRehearsal(ctx context.Context, source, retelling string, lang model.Language) (model.RehearsalEvaluation, error) {
	user := fmt.Sprintf("Source entry:\n%s\n\nRetelling:\n%s", source, retelling)

	var ev model.RehearsalEvaluation
	if err := c.generateJSON(ctx, fmt.Sprintf(rehearsalSystem, lang.Name()), user, "rehearsal_evaluation", rehearsalSchema, &ev); err != nil {
		return model.RehearsalEvaluation{}, fmt.Errorf("evaluate rehearsal: %w", err)
	}

	ev.AccuracyScore = clampScore(ev.AccuracyScore)
	ev.QualityScore = clampScore(ev.QualityScore)
	ev.Transcript = retelling
	return ev, nil
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

// GenerateDiaryAudio reads text aloud and returns the mp3 audio base64 encoded.
func (c *Client) GenerateDiaryAudio(ctx context.Context, text string) (string, error) {
	raw, err := c.doOnce(ctx, "/v1/audio/speech", speechRequest{
		Model:          c.speechModel,
		Voice:          c.voice,
		Input:          model.PlainText(text),
		ResponseFormat: "mp3",
	})
	if err != nil {
		return "", fmt.Errorf("generate diary audio: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func clampScore(v int) int {
	return max(0, min(100, v))
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
