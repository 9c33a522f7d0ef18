package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestClient_PostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "req-1", r.Header.Get("X-Request-ID"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"age":30}`, string(body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	resp, err := NewClient(time.Second).PostJSON(context.Background(), server.URL,
		[]byte(`{"age":30}`), map[string]string{"X-Request-ID": "req-1"})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/ready", r.URL.Path)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	resp, err := NewClient(time.Second).Get(context.Background(), server.URL+"/ready")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := NewClient(20*time.Millisecond).Get(context.Background(), server.URL)
	require.Error(t, err)
}

func TestNewClientWithTransport(t *testing.T) {
	boom := errors.New("connection reset")
	var seen *http.Request
	client := NewClientWithTransport(time.Second, roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seen = r
		return nil, boom
	}))

	_, err := client.PostJSON(context.Background(), "http://scoring.invalid/score", []byte(`{}`), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, seen)
	assert.Equal(t, "scoring.invalid", seen.URL.Host)
}
