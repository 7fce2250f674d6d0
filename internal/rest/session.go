package rest

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/auth"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/httpx"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/middleware"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/serr"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/service"
)

type sessionResponse struct {
	Session model.Session    `json:"session"`
	Profile model.Profile    `json:"profile"`
	Notices []service.Notice `json:"notices"`
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	err := httpx.WriteJSON(w, http.StatusOK, sessionResponse{
		Session: sess,
		Profile: ws.Profile(),
		Notices: ws.Notices(),
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type guestLoginRequest struct {
	DisplayName string `json:"display_name"`
}

func (a *API) handleGuestLogin(w http.ResponseWriter, r *http.Request) {
	// the body is optional
	var req guestLoginRequest
	if err := httpx.ReadJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httpx.HandleErr(w, r, badBody(err))
		return
	}

	res, err := a.sessions.LoginGuest(r.Context(), middleware.ClientIDFromContext(r.Context()), req.DisplayName)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, res); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

func (a *API) authEnv(w http.ResponseWriter, r *http.Request) *auth.HTTPEnv {
	return auth.NewHTTPEnv(r.PathValue("provider"), a.cfg.SecureCookies, w, r)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	u, err := a.sessions.LoginURL(a.authEnv(w, r), r.PathValue("provider"))
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	http.Redirect(w, r, u, http.StatusFound)
}

func (a *API) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		se := serr.NewServiceError(nil, http.StatusUnauthorized, "sign-in was cancelled")
		se.Env["provider_error"] = e
		httpx.HandleErr(w, r, se)
		return
	}

	u, err := a.sessions.AuthCallback(r.Context(), a.authEnv(w, r), service.AuthCallbackRequest{
		ClientID: middleware.ClientIDFromContext(r.Context()),
		Provider: r.PathValue("provider"),
		Code:     q.Get("code"),
		State:    q.Get("state"),
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	http.Redirect(w, r, u, http.StatusFound)
}

type redeemRequest struct {
	Code string `json:"code"`
}

func (a *API) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, badBody(err))
		return
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		httpx.HandleErr(w, r, serr.BadRequest(nil, "code is required"))
		return
	}

	res, err := a.sessions.RedeemCode(r.Context(), code)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, res); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	err := a.sessions.Logout(r.Context(), middleware.ClientIDFromContext(r.Context()), claimsFromRequest(r))
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleImportLocal(w http.ResponseWriter, r *http.Request) {
	res, err := a.sessions.ImportLocal(r.Context(), middleware.ClientIDFromContext(r.Context()), claimsFromRequest(r))
	if err != nil {
		fail(w, r, err, res)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, res); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type noticesResponse struct {
	Notices []service.Notice `json:"notices"`
}

func (a *API) handleListNotices(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, noticesResponse{Notices: ws.Notices()}); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

func (a *API) handleDismissNotice(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := a.workspace(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if !ws.DismissNotice(id) {
		se := serr.NotFound(nil, "notice not found")
		se.Env["notice_id"] = id
		httpx.HandleErr(w, r, se)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
