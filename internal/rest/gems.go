package rest

import (
	"net/http"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/httpx"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/serr"
)

type gemView struct {
	model.Gem
	Lit bool `json:"lit"`
}

func newGemView(g model.Gem) gemView {
	return gemView{Gem: g, Lit: g.Lit()}
}

type gemsResponse struct {
	Gems []gemView `json:"gems"`
}

func (a *API) handleListGems(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	lang, err := parseLanguage(r.URL.Query().Get("language"), false)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	gems := ws.Gems(lang)
	resp := gemsResponse{Gems: make([]gemView, 0, len(gems))}
	for _, g := range gems {
		resp.Gems = append(resp.Gems, newGemView(g))
	}

	if err := httpx.WriteJSON(w, http.StatusOK, resp); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type practiceInput struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
}

type masteryRequest struct {
	Mastery  *int           `json:"mastery"`
	Practice *practiceInput `json:"practice"`
}

func (a *API) handleUpdateMastery(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	var req masteryRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, badBody(err))
		return
	}
	if req.Mastery == nil || *req.Mastery < 0 {
		httpx.HandleErr(w, r, serr.BadRequest(nil, "mastery must be a non-negative number"))
		return
	}

	var rec *model.PracticeRecord
	if req.Practice != nil {
		status, err := model.ParsePracticeStatus(req.Practice.Status)
		if err != nil {
			httpx.HandleErr(w, r, serr.BadRequest(err, "unknown practice status"))
			return
		}
		rec = &model.PracticeRecord{
			ID:        a.newID(),
			Status:    status,
			Timestamp: a.now().UnixMilli(),
			Detail:    req.Practice.Detail,
		}
	}

	g, updated, err := ws.UpdateMastery(r.Context(), r.PathValue("id"), *req.Mastery, rec)
	if err != nil {
		fail(w, r, err, newGemView(g))
		return
	}
	if !updated {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, newGemView(g)); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

func (a *API) handlePractice(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	var req practiceInput
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, badBody(err))
		return
	}

	g, err := a.diary.Practice(r.Context(), ws, r.PathValue("id"), req.Status, req.Detail)
	if err != nil {
		fail(w, r, err, newGemView(g))
		return
	}

	if err := httpx.WriteJSON(w, http.StatusCreated, newGemView(g)); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type deletePracticesRequest struct {
	IDs []string `json:"ids"`
}

func (a *API) handleDeletePractices(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	var req deletePracticesRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, badBody(err))
		return
	}

	g, err := ws.DeletePractices(r.Context(), r.PathValue("id"), req.IDs)
	if err != nil {
		fail(w, r, err, newGemView(g))
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, newGemView(g)); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

func (a *API) handleDeleteGem(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	if err := ws.DeleteGem(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, err, nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
