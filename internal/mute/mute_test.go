// ABOUTME: Tests for the HTTP mute checker and the func adapter
// ABOUTME: Uses httptest servers to cover muted, unmuted, 404, and error responses

package mute

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunc(t *testing.T) {
	var got string
	c := Func(func(_ context.Context, sender string) (bool, error) {
		got = sender
		return true, nil
	})

	muted, err := c.IsMuted(context.Background(), "s-1")
	require.NoError(t, err)
	assert.True(t, muted)
	assert.Equal(t, "s-1", got)
}

func TestNever(t *testing.T) {
	muted, err := Never.IsMuted(context.Background(), "anyone")
	require.NoError(t, err)
	assert.False(t, muted)
}

func TestHTTPChecker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/sessions/viewer-1/mutes/muted-sender":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"muted": true}`))
		case "/sessions/viewer-1/mutes/ok-sender":
			_, _ = w.Write([]byte(`{"muted": false}`))
		case "/sessions/viewer-1/mutes/broken":
			w.WriteHeader(http.StatusInternalServerError)
		case "/sessions/viewer-1/mutes/garbled":
			_, _ = w.Write([]byte(`not json`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	checker := NewHTTPChecker(srv.URL+"/", "viewer-1", "secret-token", nil)
	ctx := context.Background()

	muted, err := checker.IsMuted(ctx, "muted-sender")
	require.NoError(t, err)
	assert.True(t, muted)

	muted, err = checker.IsMuted(ctx, "ok-sender")
	require.NoError(t, err)
	assert.False(t, muted)

	muted, err = checker.IsMuted(ctx, "unknown-sender")
	require.NoError(t, err, "404 means not muted")
	assert.False(t, muted)

	_, err = checker.IsMuted(ctx, "broken")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))

	_, err = checker.IsMuted(ctx, "garbled")
	assert.Error(t, err)
}

func TestHTTPChecker_ContextTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	checker := NewHTTPChecker(srv.URL, "viewer", "", srv.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := checker.IsMuted(ctx, "slow")
	assert.Error(t, err)
}
