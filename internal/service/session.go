package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/auth"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/otc"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/serr"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/store"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/token"
	"github.com/google/uuid"
)

const (
	DefaultAvatarTemplate = "https://api.dicebear.com/9.x/thumbs/svg?seed={seed}"
	defaultGuestName      = "Guest"
	guestPrefix           = "guest-"
)

type tokenIssuer interface {
	Issue(claims token.Claims) (string, time.Time, error)
}

type revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

type authenticator interface {
	Enabled() bool
	LoginURL(env auth.Env, provider string) (string, error)
	Exchange(ctx context.Context, env auth.Env, provider, code, state string) (auth.User, error)
}

type oneTimeCodeProvider interface {
	CreateCode(ctx context.Context, g otc.Grant) (string, error)
	RedeemCode(ctx context.Context, code string) (otc.Grant, error)
}

// Sessions resolves, creates and ends the sessions of clients and keeps their workspaces in step.
type Sessions struct {
	registry        *Registry
	local           store.Local
	issuer          tokenIssuer
	revoker         revoker
	auth            authenticator
	otc             oneTimeCodeProvider
	avatarTemplate  string
	successRedirect string
}

type SessionsOption func(*Sessions) *Sessions

func WithRegistry(r *Registry) SessionsOption {
	return func(s *Sessions) *Sessions {
		s.registry = r
		return s
	}
}

func WithLocalStore(l store.Local) SessionsOption {
	return func(s *Sessions) *Sessions {
		s.local = l
		return s
	}
}

func WithIssuer(iss tokenIssuer) SessionsOption {
	return func(s *Sessions) *Sessions {
		s.issuer = iss
		return s
	}
}

func WithRevoker(r revoker) SessionsOption {
	return func(s *Sessions) *Sessions {
		s.revoker = r
		return s
	}
}

// WithAuthenticator enables federated sign-in. It needs WithOTC as well.
func WithAuthenticator(a authenticator) SessionsOption {
	return func(s *Sessions) *Sessions {
		s.auth = a
		return s
	}
}

func WithOTC(p oneTimeCodeProvider) SessionsOption {
	return func(s *Sessions) *Sessions {
		s.otc = p
		return s
	}
}

// WithAvatarTemplate sets the placeholder avatar URL. "{seed}" is replaced by the escaped uid.
func WithAvatarTemplate(tmpl string) SessionsOption {
	return func(s *Sessions) *Sessions {
		s.avatarTemplate = tmpl
		return s
	}
}

func WithSuccessRedirect(u string) SessionsOption {
	return func(s *Sessions) *Sessions {
		s.successRedirect = u
		return s
	}
}

func NewSessions(opts ...SessionsOption) *Sessions {
	s := &Sessions{
		avatarTemplate:  DefaultAvatarTemplate,
		successRedirect: "/",
	}
	for _, opt := range opts {
		s = opt(s)
	}

	if s.registry == nil {
		panic("workspace registry is required")
	}

	if s.local == nil {
		panic("local store is required")
	}

	if s.issuer == nil {
		panic("token issuer is required")
	}

	if s.revoker == nil {
		panic("token revoker is required")
	}

	return s
}

func (s *Sessions) federated() bool {
	return s.auth != nil && s.auth.Enabled() && s.otc != nil && s.registry.RemoteConfigured()
}

// AvatarURL returns the deterministic placeholder avatar of uid.
func (s *Sessions) AvatarURL(uid string) string {
	return strings.ReplaceAll(s.avatarTemplate, "{seed}", url.QueryEscape(uid))
}

// Current returns the session of a client without touching its workspace.
func (s *Sessions) Current(ctx context.Context, clientID string, claims *token.Claims) (model.Session, error) {
	if claims != nil && !claims.Mock && claims.ClientID == clientID && s.registry.RemoteConfigured() {
		revoked, err := s.revoker.Revoked(ctx, claims.TokenID())
		if err != nil {
			return model.Session{}, fmt.Errorf("check token revocation: %w", err)
		}
		if !revoked {
			photo := claims.Picture
			if photo == "" {
				photo = s.AvatarURL(claims.UID)
			}
			return model.Session{
				UID:         claims.UID,
				DisplayName: claims.Name,
				PhotoURL:    photo,
			}, nil
		}
	}

	guest, err := s.guest(ctx, clientID)
	if err != nil {
		return model.Session{}, err
	}
	if guest.Empty() {
		return model.Session{}, noSessionError()
	}
	return guest, nil
}

// guest returns the persisted guest descriptor of the client, or an empty session.
func (s *Sessions) guest(ctx context.Context, clientID string) (model.Session, error) {
	var d model.Session
	err := s.local.Get(ctx, store.Namespaced(store.SessionKey, clientID), &d)
	if errors.Is(err, store.ErrNotFound) {
		return model.Session{}, nil
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("load guest session: %w", err)
	}

	d.IsMock = true
	return d, nil
}

// Resolve returns the client's session together with its workspace, switching the workspace when
// the session changed since the last request.
func (s *Sessions) Resolve(ctx context.Context, clientID string, claims *token.Claims) (model.Session, *Workspace, error) {
	sess, err := s.Current(ctx, clientID, claims)
	if err != nil {
		return model.Session{}, nil, err
	}

	ws, err := s.registry.Ensure(ctx, clientID, sess)
	if err != nil {
		// the failure is on the workspace notice board; the session stays usable
		slog.Warn("workspace load failed", "error", err, "client_id", clientID, "uid", sess.UID)
	}

	return sess, ws, nil
}

// LoginResult is a signed in session and the token that carries it.
type LoginResult struct {
	Session   model.Session `json:"session"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Login makes sess the client's active session and issues its token.
func (s *Sessions) Login(ctx context.Context, clientID string, sess model.Session) (LoginResult, error) {
	if strings.TrimSpace(sess.UID) == "" {
		return LoginResult{}, serr.BadRequest(nil, "session uid is required")
	}

	if !sess.IsMock && !s.registry.RemoteConfigured() {
		return LoginResult{}, unavailable(ErrRemoteUnavailable, "remote store is not configured")
	}

	if sess.PhotoURL == "" {
		sess.PhotoURL = s.AvatarURL(sess.UID)
	}

	if sess.IsMock {
		if err := s.local.Put(ctx, store.Namespaced(store.SessionKey, clientID), sess); err != nil {
			return LoginResult{}, fmt.Errorf("save guest session: %w", err)
		}
	}

	tok, exp, err := s.issuer.Issue(token.Claims{
		UID:      sess.UID,
		ClientID: clientID,
		Mock:     sess.IsMock,
		Name:     sess.DisplayName,
		Picture:  sess.PhotoURL,
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	if _, err := s.registry.Ensure(ctx, clientID, sess); err != nil {
		slog.Warn("workspace load failed after login", "error", err, "client_id", clientID, "uid", sess.UID)
	}

	slog.Info("session started", "client_id", clientID, "uid", sess.UID, "mock", sess.IsMock)

	return LoginResult{
		Session:   sess,
		Token:     tok,
		ExpiresAt: exp,
	}, nil
}

// LoginGuest signs the client in as a local guest. A client that already has a guest descriptor
// keeps its uid and therefore its data.
func (s *Sessions) LoginGuest(ctx context.Context, clientID, displayName string) (LoginResult, error) {
	prev, err := s.guest(ctx, clientID)
	if err != nil {
		return LoginResult{}, err
	}

	sess := model.Session{
		UID:         guestPrefix + uuid.NewString(),
		DisplayName: strings.TrimSpace(displayName),
		IsMock:      true,
	}
	if !prev.Empty() {
		sess.UID = prev.UID
		sess.PhotoURL = prev.PhotoURL
		if sess.DisplayName == "" {
			sess.DisplayName = prev.DisplayName
		}
	}
	if sess.DisplayName == "" {
		sess.DisplayName = defaultGuestName
	}

	return s.Login(ctx, clientID, sess)
}

// LoginURL returns the provider URL that starts a federated sign-in.
func (s *Sessions) LoginURL(env auth.Env, provider string) (string, error) {
	if !s.federated() {
		return "", unavailable(ErrFeatureDisabled, "sign-in is not configured")
	}

	u, err := s.auth.LoginURL(env, provider)
	if err != nil {
		if errors.Is(err, auth.ErrProviderNotFound) {
			se := serr.NotFound(err, "auth provider not found")
			se.Env["provider"] = provider
			return "", se
		}

		return "", fmt.Errorf("login url: %w", err)
	}

	return u, nil
}

type AuthCallbackRequest struct {
	ClientID string
	Provider string
	Code     string
	State    string
}

// AuthCallback completes a federated sign-in. The issued token is parked under a one-time code and
// the returned URL redirects the browser with that code.
func (s *Sessions) AuthCallback(ctx context.Context, env auth.Env, r AuthCallbackRequest) (string, error) {
	if !s.federated() {
		return "", unavailable(ErrFeatureDisabled, "sign-in is not configured")
	}

	usr, err := s.auth.Exchange(ctx, env, r.Provider, r.Code, r.State)
	if err != nil {
		if errors.Is(err, auth.ErrProviderNotFound) {
			se := serr.NotFound(err, "auth provider not found")
			se.Env["provider"] = r.Provider
			return "", se
		}

		if errors.Is(err, auth.ErrAuthFailed) {
			se := serr.NewServiceError(err, http.StatusUnauthorized, "authentication failed")
			se.Env["provider"] = r.Provider
			return "", se
		}

		return "", fmt.Errorf("exchange: %w", err)
	}

	res, err := s.Login(ctx, r.ClientID, model.Session{
		UID:         usr.ID,
		DisplayName: usr.Name,
		PhotoURL:    usr.Picture,
	})
	if err != nil {
		return "", err
	}

	code, err := s.otc.CreateCode(ctx, otc.Grant{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		Session:   res.Session,
	})
	if err != nil {
		return "", fmt.Errorf("create one-time code: %w", err)
	}

	sep := "?"
	if strings.Contains(s.successRedirect, "?") {
		sep = "&"
	}
	return s.successRedirect + sep + "code=" + url.QueryEscape(code), nil
}

// RedeemCode exchanges a one-time code for the token it holds.
func (s *Sessions) RedeemCode(ctx context.Context, code string) (LoginResult, error) {
	if s.otc == nil {
		return LoginResult{}, unavailable(ErrFeatureDisabled, "sign-in is not configured")
	}

	g, err := s.otc.RedeemCode(ctx, code)
	if err != nil {
		if errors.Is(err, otc.ErrCodeNotFound) {
			return LoginResult{}, serr.NewServiceError(err, http.StatusUnauthorized, "invalid or expired code")
		}
		return LoginResult{}, fmt.Errorf("redeem code: %w", err)
	}

	return LoginResult{
		Session:   g.Session,
		Token:     g.Token,
		ExpiresAt: g.ExpiresAt,
	}, nil
}

// Logout ends the client's session. Signed in sessions have their token revoked; guest sessions
// lose their descriptor. Either way the in-memory workspace is dropped.
func (s *Sessions) Logout(ctx context.Context, clientID string, claims *token.Claims) error {
	defer s.registry.Drop(clientID)

	if claims != nil && !claims.Mock && claims.ClientID == clientID {
		until := time.Now().Add(time.Hour)
		if claims.ExpiresAt != nil {
			until = claims.ExpiresAt.Time
		}
		err := s.revoker.Revoke(ctx, claims.TokenID(), until)
		if errors.Is(err, token.ErrRevocationsFull) {
			return unavailable(err, "sign out is temporarily unavailable, try again later")
		}
		if err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}

		slog.Info("session ended", "client_id", clientID, "uid", claims.UID, "mock", false)
		return nil
	}

	if err := s.local.Delete(ctx, store.Namespaced(store.SessionKey, clientID)); err != nil {
		return fmt.Errorf("delete guest session: %w", err)
	}

	slog.Info("session ended", "client_id", clientID, "mock", true)
	return nil
}

// ImportLocal merges the guest data of the client into its signed in session. The guest
// descriptor's uid is used when present, otherwise the snapshots stored under the session's own uid.
func (s *Sessions) ImportLocal(ctx context.Context, clientID string, claims *token.Claims) (ImportResult, error) {
	sess, ws, err := s.Resolve(ctx, clientID, claims)
	if err != nil {
		return ImportResult{}, err
	}

	release, err := ws.inflight.acquire("import", sess.UID)
	if err != nil {
		return ImportResult{}, err
	}
	defer release()

	from := sess.UID
	guest, err := s.guest(ctx, clientID)
	if err != nil {
		return ImportResult{}, err
	}
	if !guest.Empty() {
		from = guest.UID
	}

	return ws.ImportLocal(ctx, from)
}
