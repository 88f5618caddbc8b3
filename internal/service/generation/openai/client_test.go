package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-voice-query-service/internal/service/generation"
)

func request() generation.Request {
	return generation.Request{
		Model: "meta-llama/Meta-Llama-3-8B-Instruct",
		Messages: []generation.Message{
			{Role: generation.RoleSystem, Content: "be brief"},
			{Role: generation.RoleUser, Content: "coconut fertilizer"},
		},
		MaxTokens:   150,
		Temperature: 0.6,
	}
}

func TestComplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "meta-llama/Meta-Llama-3-8B-Instruct", body.Model)
		assert.Equal(t, 150, body.MaxTokens)
		assert.Equal(t, 0.6, body.Temperature)
		if assert.Len(t, body.Messages, 2) {
			assert.Equal(t, generation.RoleSystem, body.Messages[0].Role)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"served-model","choices":[{"message":{"role":"assistant","content":"50 kg N"}}]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/v1/", APIKey: " secret "})
	got, err := c.Complete(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, "50 kg N", got.Text)
	assert.Equal(t, "served-model", got.Model)
}

func TestComplete_ModelFallsBackToRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	got, err := New(Config{BaseURL: srv.URL, APIKey: "k"}).Complete(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "meta-llama/Meta-Llama-3-8B-Instruct", got.Model)
}

func TestComplete_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		target error
	}{
		{"rate limited", http.StatusTooManyRequests, generation.ErrRateLimited},
		{"unauthorized", http.StatusUnauthorized, generation.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, generation.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			_, err := New(Config{BaseURL: srv.URL, APIKey: "k"}).Complete(context.Background(), request())

			assert.ErrorIs(t, err, tt.target)
			var statusErr *generation.StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.Code)
			assert.Contains(t, statusErr.Body, "nope")
		})
	}
}

func TestComplete_MalformedResponses(t *testing.T) {
	for name, payload := range map[string]string{
		"not json":   "<html>oops</html>",
		"no choices": `{"choices":[]}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(payload))
			}))
			defer srv.Close()

			_, err := New(Config{BaseURL: srv.URL, APIKey: "k"}).Complete(context.Background(), request())
			assert.ErrorIs(t, err, generation.ErrMalformedResponse)
		})
	}
}

func TestComplete_MissingKeyFailsFast(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL, APIKey: "  "}).Complete(context.Background(), request())

	assert.ErrorIs(t, err, generation.ErrMissingCredentials)
	assert.Equal(t, int32(0), hits.Load())
}

func TestComplete_HonoursCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(Config{BaseURL: srv.URL, APIKey: "k"}).Complete(ctx, request())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew_ReusesConnections(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			conns.Add(1)
		}
	}
	srv.Start()
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "k"})
	for i := 0; i < 3; i++ {
		_, err := c.Complete(context.Background(), request())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), conns.Load())
}
