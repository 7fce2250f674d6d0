package auth

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	googleScopeEmail   string = "email"
	googleScopeProfile string = "profile"
)

// Google signs users in with Google OpenID Connect.
type Google struct {
	cfg      *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type googleClaims struct {
	Sub      string `json:"sub,omitempty"`
	Email    string `json:"email,omitempty"`
	Verified bool   `json:"email_verified,omitempty"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
}

func NewGoogle(ctx context.Context, google GoogleConfig) (*Google, error) {
	p, err := oidc.NewProvider(ctx, "https://accounts.google.com")
	if err != nil {
		return nil, fmt.Errorf("new oidc provider: %w", err)
	}

	return &Google{
		cfg: &oauth2.Config{
			ClientID:     google.ClientID,
			ClientSecret: google.ClientSecret,
			RedirectURL:  google.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, googleScopeProfile, googleScopeEmail},
			Endpoint:     endpoints.Google,
		},
		verifier: p.Verifier(&oidc.Config{ClientID: google.ClientID}),
	}, nil
}

func (g *Google) LoginURL(state, nonce string) (string, error) {
	return g.cfg.AuthCodeURL(state, oidc.Nonce(nonce)), nil
}

func (g *Google) Exchange(ctx context.Context, code string) (User, error) {
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return User{}, err
	}

	raw, ok := tok.Extra("id_token").(string)
	if !ok {
		return User{}, errors.New("missing id token")
	}

	idTok, err := g.verifier.Verify(ctx, raw)
	if err != nil {
		return User{}, fmt.Errorf("verify id token: %w", err)
	}

	var usr googleClaims
	if err := idTok.Claims(&usr); err != nil {
		return User{}, fmt.Errorf("read claims: %w", err)
	}

	return User{
		Nonce:         idTok.Nonce,
		ID:            usr.Sub,
		Email:         usr.Email,
		EmailVerified: usr.Verified,
		Picture:       usr.Picture,
		Name:          nameOrDefault(usr.Name, defaultName(usr.Sub)),
	}, nil
}

func nameOrDefault(name, def string) string {
	if name != "" {
		return name
	}
	return def
}

// defaultName derives a stable display name from the subject identifier.
func defaultName(sub string) string {
	sum := sha1.Sum([]byte(sub))
	return fmt.Sprintf("google_%x", sum[:4])
}
