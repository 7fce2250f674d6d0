package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoClientID() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ClientIDFromContext(r.Context()))
	})
}

func TestClientID_IssuesCookie(t *testing.T) {
	h := ClientID("museum-client", false)(echoClientID())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "museum-client", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, cookies[0].Value, rec.Body.String())

	_, err := uuid.Parse(rec.Body.String())
	assert.NoError(t, err)
}

func TestClientID_ReusesCookie(t *testing.T) {
	h := ClientID("museum-client", false)(echoClientID())
	id := uuid.NewString()

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "museum-client", Value: id})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, id, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
}

func TestClientID_ReplacesGarbage(t *testing.T) {
	h := ClientID("museum-client", false)(echoClientID())

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "museum-client", Value: "not-a-uuid"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.NotEqual(t, "not-a-uuid", rec.Body.String())
	assert.Len(t, rec.Result().Cookies(), 1)
}
