package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims identify the session a client operates as. ClientID binds the token to the cookie it was
// issued for.
type Claims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid"`
	ClientID string `json:"cid"`
	Mock     bool   `json:"mock,omitempty"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// TokenID returns the jti used for revocation.
func (c Claims) TokenID() string {
	return c.ID
}
