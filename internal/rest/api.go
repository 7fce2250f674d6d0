package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/auth"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/httpx"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/middleware"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/router"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/serr"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/service"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/shard"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/token"
)

type sessionService interface {
	Resolve(ctx context.Context, clientID string, claims *token.Claims) (model.Session, *service.Workspace, error)
	LoginGuest(ctx context.Context, clientID, displayName string) (service.LoginResult, error)
	LoginURL(env auth.Env, provider string) (string, error)
	AuthCallback(ctx context.Context, env auth.Env, r service.AuthCallbackRequest) (string, error)
	RedeemCode(ctx context.Context, code string) (service.LoginResult, error)
	Logout(ctx context.Context, clientID string, claims *token.Claims) error
	ImportLocal(ctx context.Context, clientID string, claims *token.Claims) (service.ImportResult, error)
}

type diaryService interface {
	Analyze(ctx context.Context, ws *service.Workspace, r service.AnalyzeRequest) (service.AnalyzeResult, error)
	SaveDraft(ctx context.Context, ws *service.Workspace, text string, lang model.Language) (model.DiaryEntry, error)
	AnalyzeDraft(ctx context.Context, ws *service.Workspace, entryID string) (service.AnalyzeResult, error)
	Rewrite(ctx context.Context, ws *service.Workspace, r service.RewriteRequest) (service.AnalyzeResult, error)
	Rehearse(ctx context.Context, ws *service.Workspace, r service.RehearseRequest) (model.DiaryEntry, error)
	Synthesize(ctx context.Context, text string, lang model.Language) (string, error)
	DailyMuses(ctx context.Context, lang model.Language) ([]model.Muse, error)
	Audio(ctx context.Context, ws *service.Workspace, entryID string) (string, error)
	Practice(ctx context.Context, ws *service.Workspace, gemID, status, detail string) (model.Gem, error)
}

type shardStore interface {
	Add(ctx context.Context, uid string, s shard.Shard) (shard.Shard, error)
	List(ctx context.Context, uid string) ([]shard.Shard, error)
	Delete(ctx context.Context, uid, id string) error
}

type shardFetcher interface {
	Fetch(ctx context.Context, rawURL string) (shard.Shard, error)
}

// ReadyCheck is a dependency checked by /readyz.
type ReadyCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type Config struct {
	ClientCookie  string
	SecureCookies bool
	ReadyTimeout  time.Duration
}

type API struct {
	cfg       Config
	sessions  sessionService
	diary     diaryService
	validator middleware.TokenValidator[token.Claims]
	shards    shardStore
	fetcher   shardFetcher
	checks    []ReadyCheck
	router    *router.Router
	newID     func() string
	now       func() time.Time
}

type APIOption func(*API) *API

// WithShards enables the inspiration shard endpoints.
func WithShards(st shardStore, f shardFetcher) APIOption {
	return func(a *API) *API {
		a.shards = st
		a.fetcher = f
		return a
	}
}

func WithReadyCheck(name string, ping func(ctx context.Context) error) APIOption {
	return func(a *API) *API {
		a.checks = append(a.checks, ReadyCheck{Name: name, Ping: ping})
		return a
	}
}

func NewAPI(cfg Config, sessions sessionService, diary diaryService, validator middleware.TokenValidator[token.Claims], opts ...APIOption) *API {
	if cfg.ClientCookie == "" {
		cfg.ClientCookie = "museum_client"
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 2 * time.Second
	}

	a := &API{
		cfg:       cfg,
		sessions:  sessions,
		diary:     diary,
		validator: validator,
		router:    router.New(),
		newID:     newID,
		now:       time.Now,
	}
	for _, opt := range opts {
		a = opt(a)
	}

	a.mount()
	return a
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *API) mount() {
	a.router.Use(middleware.Recover(), middleware.Log())

	a.router.HandleFunc("GET /healthz", a.handleHealth)
	a.router.HandleFunc("GET /readyz", a.handleReady)

	v1 := a.router.SubRouter("/api/v1")
	v1.Use(middleware.ClientID(a.cfg.ClientCookie, a.cfg.SecureCookies), middleware.OptionalAuth(a.validator))

	v1.HandleFunc("GET /session", a.handleSession)
	v1.HandleFunc("POST /auth/guest", a.handleGuestLogin)
	v1.HandleFunc("GET /auth/{provider}/login", a.handleLogin)
	v1.HandleFunc("GET /auth/{provider}/callback", a.handleCallback)
	v1.HandleFunc("POST /auth/redeem", a.handleRedeem)
	v1.HandleFunc("POST /auth/logout", a.handleLogout)

	v1.HandleFunc("GET /entries", a.handleListEntries)
	v1.HandleFunc("GET /entries/{id}", a.handleGetEntry)
	v1.HandleFunc("DELETE /entries/{id}", a.handleDeleteEntry)
	v1.HandleFunc("POST /entries/analyze", a.handleAnalyze)
	v1.HandleFunc("POST /entries/drafts", a.handleSaveDraft)
	v1.HandleFunc("POST /entries/{id}/analyze", a.handleAnalyzeDraft)
	v1.HandleFunc("POST /entries/{id}/rewrite", a.handleRewrite)
	v1.HandleFunc("POST /entries/{id}/rehearse", a.handleRehearse)
	v1.HandleFunc("GET /entries/{id}/audio", a.handleAudio)
	v1.HandleFunc("GET /history/months", a.handleMonths)

	v1.HandleFunc("GET /gems", a.handleListGems)
	v1.HandleFunc("PUT /gems/{id}/mastery", a.handleUpdateMastery)
	v1.HandleFunc("POST /gems/{id}/practices", a.handlePractice)
	v1.HandleFunc("DELETE /gems/{id}/practices", a.handleDeletePractices)
	v1.HandleFunc("DELETE /gems/{id}", a.handleDeleteGem)

	v1.HandleFunc("GET /profile", a.handleGetProfile)
	v1.HandleFunc("PUT /profile", a.handleSaveProfile)
	v1.HandleFunc("POST /synthesize", a.handleSynthesize)
	v1.HandleFunc("GET /muses", a.handleMuses)

	v1.HandleFunc("GET /shards", a.handleListShards)
	v1.HandleFunc("POST /shards", a.handleAddShard)
	v1.HandleFunc("DELETE /shards/{id}", a.handleDeleteShard)

	v1.HandleFunc("GET /notices", a.handleListNotices)
	v1.HandleFunc("DELETE /notices/{id}", a.handleDismissNotice)
	v1.HandleFunc("POST /sync/import-local", a.handleImportLocal)
}

func claimsFromRequest(r *http.Request) *token.Claims {
	c, ok := middleware.ClaimsFromContext[token.Claims](r.Context())
	if !ok {
		return nil
	}
	return &c
}

// workspace resolves the caller's session. It writes the error response itself and reports false
// when there is nothing to serve.
func (a *API) workspace(w http.ResponseWriter, r *http.Request) (model.Session, *service.Workspace, bool) {
	clientID := middleware.ClientIDFromContext(r.Context())
	sess, ws, err := a.sessions.Resolve(r.Context(), clientID, claimsFromRequest(r))
	if err != nil {
		httpx.HandleErr(w, r, err)
		return model.Session{}, nil, false
	}
	return sess, ws, true
}

type analysisFailure struct {
	DraftAvailable bool              `json:"draft_available"`
	Draft          *model.DiaryEntry `json:"draft,omitempty"`
}

// fail writes err. A write that reached memory but not the store is reported as 502 carrying the
// in-memory result; a failed AI call carries the draft fallback.
func fail(w http.ResponseWriter, r *http.Request, err error, partial any) {
	var pe *service.PersistError
	if errors.As(err, &pe) {
		se := serr.NewServiceError(err, http.StatusBadGateway, "change applied but not saved")
		se.Env["op"] = pe.Op
		se.Data = partial
		httpx.HandleErr(w, r, se)
		return
	}

	var ae *service.AnalysisError
	if errors.As(err, &ae) {
		se := serr.NewServiceError(err, http.StatusBadGateway, "analysis failed")
		se.Data = analysisFailure{DraftAvailable: ae.DraftAvailable, Draft: ae.Draft}
		httpx.HandleErr(w, r, se)
		return
	}

	httpx.HandleErr(w, r, err)
}

func badBody(err error) *serr.ServiceError {
	return serr.BadRequest(err, "invalid request body")
}

func parseLanguage(raw string, required bool) (model.Language, error) {
	if raw == "" && !required {
		return "", nil
	}

	lang, err := model.ParseLanguage(raw)
	if err != nil {
		se := serr.BadRequest(err, "unsupported language")
		se.Env["language"] = raw
		return "", se
	}
	return lang, nil
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		httpx.HandleErr(w, r, err)
	}
}

type readyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), a.cfg.ReadyTimeout)
	defer cancel()

	resp := readyResponse{Status: "ok", Checks: make(map[string]string, len(a.checks))}
	status := http.StatusOK
	for _, c := range a.checks {
		if err := c.Ping(ctx); err != nil {
			resp.Checks[c.Name] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.Name] = "ok"
	}

	if err := httpx.WriteJSON(w, status, resp); err != nil {
		httpx.HandleErr(w, r, err)
	}
}
