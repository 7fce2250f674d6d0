package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/serr"
	"github.com/google/uuid"
)

// analyzer is the generative AI collaborator.
type analyzer interface {
	AnalyzeDiaryEntry(ctx context.Context, text string, lang model.Language, history []model.DiaryEntry) (model.Analysis, error)
	SynthesizeDiary(ctx context.Context, text string, lang model.Language) (string, error)
	GenerateDailyMuses(ctx context.Context, lang model.Language, day time.Time) ([]model.Muse, error)
	EvaluateRehearsal(ctx context.Context, source, retelling string, lang model.Language) (model.RehearsalEvaluation, error)
	GenerateDiaryAudio(ctx context.Context, text string) (string, error)
}

type textAnalyzer interface {
	AnnotateWord(word string) string
	CountUnits(text string, lang model.Language) int
}

// Diary orchestrates the AI calls around a client's workspace.
type Diary struct {
	ai          analyzer
	text        textAnalyzer
	muses       *museCache
	minUnits    int
	historySize int
	newID       func() string
	now         func() time.Time
}

type DiaryConfig struct {
	MinUnits       int
	HistorySize    int
	MusesCacheKeys int64
	MusesCacheCost int64
}

// NewDiary creates the analysis service. ai may be nil, which disables every AI backed operation.
func NewDiary(ai analyzer, text textAnalyzer, cfg DiaryConfig) *Diary {
	if text == nil {
		panic("text analyzer is required")
	}

	if cfg.MinUnits <= 0 {
		cfg.MinUnits = 5
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 5
	}
	if cfg.MusesCacheKeys <= 0 {
		cfg.MusesCacheKeys = 64
	}
	if cfg.MusesCacheCost <= 0 {
		cfg.MusesCacheCost = 64
	}

	return &Diary{
		ai:          ai,
		text:        text,
		muses:       newMuseCache(cfg.MusesCacheKeys, cfg.MusesCacheCost),
		minUnits:    cfg.MinUnits,
		historySize: cfg.HistorySize,
		newID:       uuid.NewString,
		now:         time.Now,
	}
}

func (d *Diary) Close() {
	d.muses.close()
}

func (d *Diary) requireAI() error {
	if d.ai == nil {
		return unavailable(ErrFeatureDisabled, "ai service is not configured")
	}
	return nil
}

func aiFailed(err error, msg string) *serr.ServiceError {
	return serr.NewServiceError(err, http.StatusBadGateway, "%s", msg)
}

func validLanguage(lang model.Language) error {
	if !lang.Valid() {
		se := serr.BadRequest(nil, "unsupported language")
		se.Env["language"] = string(lang)
		return se
	}
	return nil
}

// validate checks that text is long enough to be analyzed and returns it trimmed.
func (d *Diary) validate(text string, lang model.Language) (string, error) {
	if err := validLanguage(lang); err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", serr.BadRequest(nil, "text is required")
	}

	if n := d.text.CountUnits(text, lang); n < d.minUnits {
		se := serr.BadRequest(nil, "text is too short: %d of %d units", n, d.minUnits)
		se.Env["language"] = string(lang)
		return "", se
	}

	return text, nil
}

// ingest adds the vocabulary of an analysis to the workspace. Japanese words get their readings
// when the analysis left them out.
func (d *Diary) ingest(ctx context.Context, ws *Workspace, lang model.Language, vocab []model.VocabCandidate) ([]model.Gem, error) {
	if len(vocab) == 0 {
		return []model.Gem{}, nil
	}

	cands := make([]model.VocabCandidate, len(vocab))
	copy(cands, vocab)
	if lang == model.Japanese {
		for i := range cands {
			cands[i].Word = d.text.AnnotateWord(cands[i].Word)
		}
	}

	return ws.IngestVocab(ctx, lang, cands)
}

type AnalyzeRequest struct {
	Text           string
	Language       model.Language
	DraftOnFailure bool
}

type AnalyzeResult struct {
	Entry model.DiaryEntry `json:"entry"`
	Gems  []model.Gem      `json:"gems"`
}

// Analyze sends a new text for analysis and stores the analyzed entry with its vocabulary. When the
// AI call fails the text is optionally kept as a draft.
func (d *Diary) Analyze(ctx context.Context, ws *Workspace, r AnalyzeRequest) (AnalyzeResult, error) {
	text, err := d.validate(r.Text, r.Language)
	if err != nil {
		return AnalyzeResult{}, err
	}

	if ws.Session().Empty() {
		return AnalyzeResult{}, noSessionError()
	}

	if err := d.requireAI(); err != nil {
		return AnalyzeResult{}, err
	}

	release, err := ws.inflight.acquire("analyze", "new")
	if err != nil {
		return AnalyzeResult{}, err
	}
	defer release()

	history := ws.RecentAnalyzed(r.Language, d.historySize, "")
	a, err := d.ai.AnalyzeDiaryEntry(ctx, text, r.Language, history)
	if err != nil {
		slog.Error("diary analysis failed", "error", err, "client_id", ws.ClientID(), "language", r.Language)
		return AnalyzeResult{}, d.analysisFailed(ctx, ws, err, text, r.Language, r.DraftOnFailure)
	}

	e := model.DiaryEntry{
		ID:           d.newID(),
		Timestamp:    d.now().UnixMilli(),
		Language:     r.Language,
		Type:         model.EntryDiary,
		OriginalText: text,
		Analysis:     &a,
	}
	perr := ws.PutEntry(ctx, e)
	if perr != nil && !inMemory(perr) {
		return AnalyzeResult{Entry: e, Gems: []model.Gem{}}, perr
	}

	gems, err := d.ingest(ctx, ws, r.Language, a.AdvancedVocab)
	return AnalyzeResult{Entry: e, Gems: nonNilGems(gems)}, errors.Join(perr, err)
}

// analysisFailed builds the error of a failed AI call on text. With saveDraft the text is kept as a
// draft entry; a draft that reached memory but not the store still counts as saved.
func (d *Diary) analysisFailed(ctx context.Context, ws *Workspace, err error, text string, lang model.Language, saveDraft bool) *AnalysisError {
	ae := &AnalysisError{Err: err, DraftAvailable: true}
	if !saveDraft {
		return ae
	}

	draft, derr := d.saveDraft(ctx, ws, text, lang)
	if derr != nil && !inMemory(derr) {
		slog.Error("failed to save draft after analysis failure", "error", derr, "client_id", ws.ClientID())
		return ae
	}
	ae.Draft = &draft
	return ae
}

// inMemory reports whether err is a write that was applied in memory but not persisted.
func inMemory(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}

func nonNilGems(gems []model.Gem) []model.Gem {
	if gems == nil {
		return []model.Gem{}
	}
	return gems
}

// SaveDraft stores a text without analyzing it.
func (d *Diary) SaveDraft(ctx context.Context, ws *Workspace, text string, lang model.Language) (model.DiaryEntry, error) {
	if err := validLanguage(lang); err != nil {
		return model.DiaryEntry{}, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return model.DiaryEntry{}, serr.BadRequest(nil, "text is required")
	}

	return d.saveDraft(ctx, ws, text, lang)
}

func (d *Diary) saveDraft(ctx context.Context, ws *Workspace, text string, lang model.Language) (model.DiaryEntry, error) {
	e := model.DiaryEntry{
		ID:           d.newID(),
		Timestamp:    d.now().UnixMilli(),
		Language:     lang,
		Type:         model.EntryDiary,
		OriginalText: text,
	}
	return e, ws.PutEntry(ctx, e)
}

// diaryEntry returns the entry with the given id, rejecting rehearsal entries.
func diaryEntry(ws *Workspace, id string) (model.DiaryEntry, error) {
	e, ok := ws.Entry(id)
	if !ok {
		return model.DiaryEntry{}, entryNotFound(id)
	}

	if e.Type == model.EntryRehearsal {
		se := serr.BadRequest(nil, "rehearsal entries cannot be used here")
		se.Env["entry_id"] = id
		return model.DiaryEntry{}, se
	}

	return e, nil
}

// AnalyzeDraft runs the deferred analysis of a draft and merges it into the entry.
func (d *Diary) AnalyzeDraft(ctx context.Context, ws *Workspace, entryID string) (AnalyzeResult, error) {
	e, err := diaryEntry(ws, entryID)
	if err != nil {
		return AnalyzeResult{}, err
	}

	if !e.Draft() {
		return AnalyzeResult{}, alreadyAnalyzed(entryID)
	}

	if _, err := d.validate(e.OriginalText, e.Language); err != nil {
		return AnalyzeResult{}, err
	}

	if err := d.requireAI(); err != nil {
		return AnalyzeResult{}, err
	}

	release, err := ws.inflight.acquire("analyze", entryID)
	if err != nil {
		return AnalyzeResult{}, err
	}
	defer release()

	history := ws.RecentAnalyzed(e.Language, d.historySize, entryID)
	a, err := d.ai.AnalyzeDiaryEntry(ctx, e.OriginalText, e.Language, history)
	if err != nil {
		slog.Error("draft analysis failed", "error", err, "client_id", ws.ClientID(), "entry_id", entryID)
		return AnalyzeResult{}, &AnalysisError{Err: err, Draft: &e}
	}

	updated, err := ws.UpdateEntry(ctx, entryID, func(e *model.DiaryEntry) error {
		if !e.Draft() {
			return alreadyAnalyzed(entryID)
		}
		e.AttachAnalysis(&a)
		return nil
	})
	if err != nil && !inMemory(err) {
		return AnalyzeResult{}, err
	}
	perr := err

	gems, err := d.ingest(ctx, ws, e.Language, a.AdvancedVocab)
	return AnalyzeResult{Entry: updated, Gems: nonNilGems(gems)}, errors.Join(perr, err)
}

func alreadyAnalyzed(id string) *serr.ServiceError {
	se := serr.Conflict(nil, "entry is already analyzed")
	se.Env["entry_id"] = id
	return se
}

type RewriteRequest struct {
	EntryID        string
	Text           string
	DraftOnFailure bool
}

// Rewrite analyzes a new version of an entry and records it as an iteration. When the AI call fails
// the entry is left as it was and the new text is optionally kept as a separate draft.
func (d *Diary) Rewrite(ctx context.Context, ws *Workspace, r RewriteRequest) (AnalyzeResult, error) {
	entryID := r.EntryID
	e, err := diaryEntry(ws, entryID)
	if err != nil {
		return AnalyzeResult{}, err
	}

	text, err := d.validate(r.Text, e.Language)
	if err != nil {
		return AnalyzeResult{}, err
	}

	if err := d.requireAI(); err != nil {
		return AnalyzeResult{}, err
	}

	release, err := ws.inflight.acquire("rewrite", entryID)
	if err != nil {
		return AnalyzeResult{}, err
	}
	defer release()

	history := ws.RecentAnalyzed(e.Language, d.historySize, entryID)
	a, err := d.ai.AnalyzeDiaryEntry(ctx, text, e.Language, history)
	if err != nil {
		slog.Error("rewrite analysis failed", "error", err, "client_id", ws.ClientID(), "entry_id", entryID)
		return AnalyzeResult{}, d.analysisFailed(ctx, ws, err, text, e.Language, r.DraftOnFailure)
	}

	ts := d.now().UnixMilli()
	updated, err := ws.UpdateEntry(ctx, entryID, func(e *model.DiaryEntry) error {
		e.Revise(text, ts, &a)
		return nil
	})
	if err != nil && !inMemory(err) {
		return AnalyzeResult{}, err
	}
	perr := err

	gems, err := d.ingest(ctx, ws, e.Language, a.AdvancedVocab)
	return AnalyzeResult{Entry: updated, Gems: nonNilGems(gems)}, errors.Join(perr, err)
}

// sourceText is the text a rehearsal or an audio rendition is based on: the corrected version when
// the entry has one.
func sourceText(e model.DiaryEntry) string {
	if e.Analysis != nil && strings.TrimSpace(e.Analysis.ModifiedText) != "" {
		return model.PlainText(e.Analysis.ModifiedText)
	}
	return e.OriginalText
}

type RehearseRequest struct {
	EntryID        string
	Retelling      string
	DraftOnFailure bool
}

// Rehearse scores a retelling of an entry and stores it as a rehearsal entry. When the AI call fails
// the retelling is optionally kept as a draft.
func (d *Diary) Rehearse(ctx context.Context, ws *Workspace, r RehearseRequest) (model.DiaryEntry, error) {
	entryID := r.EntryID
	src, err := diaryEntry(ws, entryID)
	if err != nil {
		return model.DiaryEntry{}, err
	}

	retelling, err := d.validate(r.Retelling, src.Language)
	if err != nil {
		return model.DiaryEntry{}, err
	}

	if err := d.requireAI(); err != nil {
		return model.DiaryEntry{}, err
	}

	release, err := ws.inflight.acquire("rehearse", entryID)
	if err != nil {
		return model.DiaryEntry{}, err
	}
	defer release()

	ev, err := d.ai.EvaluateRehearsal(ctx, sourceText(src), retelling, src.Language)
	if err != nil {
		slog.Error("rehearsal evaluation failed", "error", err, "client_id", ws.ClientID(), "entry_id", entryID)
		return model.DiaryEntry{}, d.analysisFailed(ctx, ws, err, retelling, src.Language, r.DraftOnFailure)
	}
	ev.SourceEntryID = entryID

	e := model.DiaryEntry{
		ID:           d.newID(),
		Timestamp:    d.now().UnixMilli(),
		Language:     src.Language,
		Type:         model.EntryRehearsal,
		OriginalText: retelling,
		Rehearsal:    &ev,
	}
	return e, ws.PutEntry(ctx, e)
}

// Synthesize turns loose notes into a diary text. Nothing is stored.
func (d *Diary) Synthesize(ctx context.Context, text string, lang model.Language) (string, error) {
	if err := validLanguage(lang); err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", serr.BadRequest(nil, "text is required")
	}

	if err := d.requireAI(); err != nil {
		return "", err
	}

	out, err := d.ai.SynthesizeDiary(ctx, text, lang)
	if err != nil {
		return "", aiFailed(err, "synthesis failed")
	}

	return out, nil
}

// DailyMuses returns the writing prompts of the day for lang.
func (d *Diary) DailyMuses(ctx context.Context, lang model.Language) ([]model.Muse, error) {
	if err := validLanguage(lang); err != nil {
		return nil, err
	}

	if err := d.requireAI(); err != nil {
		return nil, err
	}

	day := d.now()
	muses, err := d.muses.get(ctx, lang, day, func(ctx context.Context) ([]model.Muse, error) {
		return d.ai.GenerateDailyMuses(ctx, lang, day)
	})
	if err != nil {
		return nil, aiFailed(err, "could not generate muses")
	}

	return muses, nil
}

// Audio returns the spoken rendition of an entry as base64 encoded mp3.
func (d *Diary) Audio(ctx context.Context, ws *Workspace, entryID string) (string, error) {
	e, ok := ws.Entry(entryID)
	if !ok {
		return "", entryNotFound(entryID)
	}

	if err := d.requireAI(); err != nil {
		return "", err
	}

	audio, err := d.ai.GenerateDiaryAudio(ctx, sourceText(e))
	if err != nil {
		return "", aiFailed(err, "could not generate audio")
	}

	return audio, nil
}

// Practice records a practice outcome for a gem.
func (d *Diary) Practice(ctx context.Context, ws *Workspace, gemID, status, detail string) (model.Gem, error) {
	st, err := model.ParsePracticeStatus(status)
	if err != nil {
		return model.Gem{}, serr.BadRequest(err, "invalid practice status")
	}

	g, ok, err := ws.RecordPractice(ctx, gemID, st, strings.TrimSpace(detail))
	if !ok && err == nil {
		return model.Gem{}, gemNotFound(gemID)
	}
	if err != nil && !ok {
		return model.Gem{}, err
	}

	return g, err
}
