package rest

import (
	"net/http"
	"time"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/httpx"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/serr"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/service"
)

type entriesResponse struct {
	Entries []model.DiaryEntry `json:"entries"`
}

func (a *API) handleListEntries(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	lang, err := parseLanguage(q.Get("language"), false)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	var typ model.EntryType
	switch t := model.EntryType(q.Get("type")); t {
	case "", model.EntryDiary, model.EntryRehearsal:
		typ = t
	default:
		se := serr.BadRequest(nil, "unknown entry type")
		se.Env["type"] = string(t)
		httpx.HandleErr(w, r, se)
		return
	}

	entries := ws.Entries(service.EntryFilter{Language: lang, Type: typ})
	if err := httpx.WriteJSON(w, http.StatusOK, entriesResponse{Entries: entries}); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

func (a *API) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	e, found := ws.Entry(id)
	if !found {
		se := serr.NotFound(nil, "entry not found")
		se.Env["entry_id"] = id
		httpx.HandleErr(w, r, se)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, e); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

func (a *API) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	if err := ws.DeleteEntry(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, err, nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type analyzeRequest struct {
	Text           string `json:"text"`
	Language       string `json:"language"`
	DraftOnFailure bool   `json:"draft_on_failure"`
}

func (a *API) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	var req analyzeRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, badBody(err))
		return
	}
	lang, err := parseLanguage(req.Language, true)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	res, err := a.diary.Analyze(r.Context(), ws, service.AnalyzeRequest{
		Text:           req.Text,
		Language:       lang,
		DraftOnFailure: req.DraftOnFailure,
	})
	if err != nil {
		fail(w, r, err, res)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusCreated, res); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type draftRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (a *API) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	var req draftRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, badBody(err))
		return
	}
	lang, err := parseLanguage(req.Language, true)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	e, err := a.diary.SaveDraft(r.Context(), ws, req.Text, lang)
	if err != nil {
		fail(w, r, err, e)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusCreated, e); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

func (a *API) handleAnalyzeDraft(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	res, err := a.diary.AnalyzeDraft(r.Context(), ws, r.PathValue("id"))
	if err != nil {
		fail(w, r, err, res)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, res); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type rewriteRequest struct {
	Text           string `json:"text"`
	DraftOnFailure bool   `json:"draft_on_failure"`
}

func (a *API) handleRewrite(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	var req rewriteRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, badBody(err))
		return
	}

	res, err := a.diary.Rewrite(r.Context(), ws, service.RewriteRequest{
		EntryID:        r.PathValue("id"),
		Text:           req.Text,
		DraftOnFailure: req.DraftOnFailure,
	})
	if err != nil {
		fail(w, r, err, res)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, res); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type rehearseRequest struct {
	Retelling      string `json:"retelling"`
	DraftOnFailure bool   `json:"draft_on_failure"`
}

func (a *API) handleRehearse(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	var req rehearseRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, badBody(err))
		return
	}

	e, err := a.diary.Rehearse(r.Context(), ws, service.RehearseRequest{
		EntryID:        r.PathValue("id"),
		Retelling:      req.Retelling,
		DraftOnFailure: req.DraftOnFailure,
	})
	if err != nil {
		fail(w, r, err, e)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusCreated, e); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type audioResponse struct {
	Audio  string `json:"audio"`
	Format string `json:"format"`
}

func (a *API) handleAudio(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	audio, err := a.diary.Audio(r.Context(), ws, r.PathValue("id"))
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, audioResponse{Audio: audio, Format: "mp3"}); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type monthsResponse struct {
	Months []model.MonthGroup `json:"months"`
}

func (a *API) handleMonths(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	lang, err := parseLanguage(q.Get("language"), false)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	loc := time.UTC
	if tz := q.Get("tz"); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			se := serr.BadRequest(err, "unknown time zone")
			se.Env["tz"] = tz
			httpx.HandleErr(w, r, se)
			return
		}
	}

	months := model.GroupByMonth(ws.Entries(service.EntryFilter{Language: lang}), loc)
	if err := httpx.WriteJSON(w, http.StatusOK, monthsResponse{Months: months}); err != nil {
		httpx.HandleErr(w, r, err)
	}
}
