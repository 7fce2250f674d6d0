package main

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_LocalOnly(t *testing.T) {
	t.Setenv("AUTH_SECRET", "secret")
	t.Setenv("HTTP_LISTEN_ADDR", "127.0.0.1:18081")
	t.Setenv("LOCAL_DB_PATH", filepath.Join(t.TempDir(), "museum.db"))
	t.Setenv("REMOTE_BACKEND", "postgres")
	t.Setenv("AI_API_KEY", "")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx)
	}()

	ready := testutil.WaitFor(t, ctx, 200*time.Millisecond, func() bool {
		resp, err := http.Get("http://127.0.0.1:18081/readyz")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	})
	require.True(t, ready, "service did not become ready")

	resp, err := http.Post("http://127.0.0.1:18081/api/v1/auth/guest", "application/json", http.NoBody)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("test timed out")
	}
}

func TestRun_RequiresSecret(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	assert.Panics(t, func() { _ = run(context.Background()) })
}
