package token

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

type Issuer struct {
	secret    []byte
	algorithm string
	issuer    string
	ttl       time.Duration
	now       func() time.Time
}

type IssuerConfig struct {
	// Secret is the HMAC key; it must not be empty.
	Secret    []byte
	Algorithm string
	Issuer    string
	TTL       time.Duration
}

func NewIssuer(cfg IssuerConfig) *Issuer {
	if len(cfg.Secret) == 0 {
		panic("token secret is required")
	}

	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Name
	}

	return &Issuer{
		secret:    bytes.Clone(cfg.Secret),
		algorithm: alg,
		issuer:    cfg.Issuer,
		ttl:       cfg.TTL,
		now:       time.Now,
	}
}

// Issue signs claims with a fresh token id and returns the token with its expiry.
func (ti *Issuer) Issue(claims Claims) (string, time.Time, error) {
	now := ti.now()
	exp := now.Add(ti.ttl)

	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   claims.UID,
		Issuer:    ti.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	tk, err := jwt.NewWithClaims(jwt.GetSigningMethod(ti.algorithm), claims).SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return tk, exp, nil
}

func (ti *Issuer) Validate(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{ti.algorithm}),
		jwt.WithIssuer(ti.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.UID == "" || claims.ID == "" {
		return Claims{}, fmt.Errorf("%w: missing uid or token id", ErrInvalidToken)
	}

	return claims, nil
}
