package auth

import (
	"fmt"
	"net/http"
	"time"
)

const loginWindow = 10 * time.Minute

// HTTPEnv keeps login state in short lived cookies scoped to the provider.
type HTTPEnv struct {
	scope  string
	secure bool
	w      http.ResponseWriter
	r      *http.Request
}

func NewHTTPEnv(scope string, secure bool, w http.ResponseWriter, r *http.Request) *HTTPEnv {
	return &HTTPEnv{scope: scope, secure: secure, w: w, r: r}
}

func (e *HTTPEnv) Save(key, val string) error {
	http.SetCookie(e.w, &http.Cookie{
		Name:     e.name(key),
		Value:    val,
		Path:     "/",
		MaxAge:   int(loginWindow.Seconds()),
		HttpOnly: true,
		Secure:   e.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (e *HTTPEnv) Load(key string) (string, error) {
	c, err := e.r.Cookie(e.name(key))
	if err != nil {
		return "", err
	}

	return c.Value, nil
}

func (e *HTTPEnv) name(key string) string {
	return fmt.Sprintf("%s-%s", e.scope, key)
}
