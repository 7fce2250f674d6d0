package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/httpx"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/serr"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/service"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/shard"
	"github.com/google/uuid"
)

var newID = uuid.NewString

func (a *API) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, ws.Profile()); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type profileRequest struct {
	DisplayName     string   `json:"display_name"`
	PhotoURL        string   `json:"photo_url"`
	NativeLanguage  string   `json:"native_language"`
	TargetLanguages []string `json:"target_languages"`
	DailyGoal       int      `json:"daily_goal"`
}

func (a *API) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, badBody(err))
		return
	}
	if req.DailyGoal < 0 {
		httpx.HandleErr(w, r, serr.BadRequest(nil, "daily goal must not be negative"))
		return
	}

	patch := model.Profile{
		DisplayName: strings.TrimSpace(req.DisplayName),
		PhotoURL:    strings.TrimSpace(req.PhotoURL),
		DailyGoal:   req.DailyGoal,
		UpdatedAt:   a.now().UnixMilli(),
	}

	var err error
	if patch.NativeLanguage, err = parseLanguage(req.NativeLanguage, false); err != nil {
		httpx.HandleErr(w, r, err)
		return
	}
	if req.TargetLanguages != nil {
		patch.TargetLanguages = make([]model.Language, 0, len(req.TargetLanguages))
		for _, raw := range req.TargetLanguages {
			lang, err := parseLanguage(raw, true)
			if err != nil {
				httpx.HandleErr(w, r, err)
				return
			}
			patch.TargetLanguages = append(patch.TargetLanguages, lang)
		}
	}

	p, err := ws.SaveProfile(r.Context(), patch)
	if err != nil {
		fail(w, r, err, p)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, p); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type synthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type synthesizeResponse struct {
	Text string `json:"text"`
}

func (a *API) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := a.workspace(w, r); !ok {
		return
	}

	var req synthesizeRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, badBody(err))
		return
	}
	lang, err := parseLanguage(req.Language, true)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	text, err := a.diary.Synthesize(r.Context(), req.Text, lang)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, synthesizeResponse{Text: text}); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type musesResponse struct {
	Muses []model.Muse `json:"muses"`
}

func (a *API) handleMuses(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := a.workspace(w, r); !ok {
		return
	}

	lang, err := parseLanguage(r.URL.Query().Get("language"), true)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	muses, err := a.diary.DailyMuses(r.Context(), lang)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, musesResponse{Muses: muses}); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type shardsResponse struct {
	Shards []shard.Shard `json:"shards"`
}

func (a *API) requireShards(w http.ResponseWriter, r *http.Request) bool {
	if a.shards != nil && a.fetcher != nil {
		return true
	}
	httpx.HandleErr(w, r, serr.NewServiceError(service.ErrFeatureDisabled, http.StatusServiceUnavailable, "shards are not configured"))
	return false
}

func (a *API) handleListShards(w http.ResponseWriter, r *http.Request) {
	if !a.requireShards(w, r) {
		return
	}
	sess, _, ok := a.workspace(w, r)
	if !ok {
		return
	}

	shards, err := a.shards.List(r.Context(), sess.UID)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}
	if shards == nil {
		shards = []shard.Shard{}
	}

	if err := httpx.WriteJSON(w, http.StatusOK, shardsResponse{Shards: shards}); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type addShardRequest struct {
	URL string `json:"url"`
}

func (a *API) handleAddShard(w http.ResponseWriter, r *http.Request) {
	if !a.requireShards(w, r) {
		return
	}
	sess, _, ok := a.workspace(w, r)
	if !ok {
		return
	}

	var req addShardRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, badBody(err))
		return
	}

	s, err := a.fetcher.Fetch(r.Context(), strings.TrimSpace(req.URL))
	switch {
	case errors.Is(err, shard.ErrInvalidURL):
		httpx.HandleErr(w, r, serr.BadRequest(err, "url must be an absolute http(s) address"))
		return
	case errors.Is(err, shard.ErrBlockedAddress):
		httpx.HandleErr(w, r, serr.BadRequest(err, "url must point to a public address"))
		return
	case errors.Is(err, shard.ErrEmpty):
		httpx.HandleErr(w, r, serr.BadRequest(err, "no readable text at that address"))
		return
	case err != nil:
		se := serr.NewServiceError(err, http.StatusBadGateway, "could not fetch the article")
		se.Env["url"] = req.URL
		httpx.HandleErr(w, r, se)
		return
	}

	s.ID = a.newID()
	s, err = a.shards.Add(r.Context(), sess.UID, s)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusCreated, s); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

func (a *API) handleDeleteShard(w http.ResponseWriter, r *http.Request) {
	if !a.requireShards(w, r) {
		return
	}
	sess, _, ok := a.workspace(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	err := a.shards.Delete(r.Context(), sess.UID, id)
	if errors.Is(err, shard.ErrNotFound) {
		se := serr.NotFound(err, "shard not found")
		se.Env["shard_id"] = id
		httpx.HandleErr(w, r, se)
		return
	}
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
