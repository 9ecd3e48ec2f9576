package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(endpoint string) Config {
	return Config{
		Enabled:    true,
		Endpoint:   endpoint,
		Model:      "llama3.2",
		Timeout:    2 * time.Second,
		MaxRetries: 1,
	}
}

func TestOllamaClient_Generate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, "system prompt", req.System)
		assert.Equal(t, "user prompt", req.Prompt)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3.2","response":"Change the oil every 5000 miles.","done":true}`))
	}))
	defer srv.Close()

	client := New(testConfig(srv.URL))
	resp, err := client.Generate(context.Background(), GenerateRequest{
		Task:         TaskAnswer,
		SystemPrompt: "system prompt",
		Prompt:       "user prompt",
	})

	require.NoError(t, err)
	assert.Equal(t, "Change the oil every 5000 miles.", resp.Text)
	assert.Equal(t, "llama3.2", resp.Model)
	assert.GreaterOrEqual(t, resp.LatencyMs, int64(0))
}

func TestOllamaClient_Generate_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model":"llama3.2","response":"   "}`))
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL)).Generate(context.Background(), GenerateRequest{Task: TaskAnswer, Prompt: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOllamaClient_Generate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond

	_, err := New(cfg).Generate(context.Background(), GenerateRequest{Task: TaskAnswer, Prompt: "test"})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestOllamaClient_Generate_Unavailable(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1") // nothing listening
	cfg.MaxRetries = 0

	_, err := New(cfg).Generate(context.Background(), GenerateRequest{Task: TaskAnswer, Prompt: "test"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOllamaClient_Generate_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"model is loading"}`))
			return
		}
		_, _ = w.Write([]byte(`{"model":"llama3.2","response":"ok"}`))
	}))
	defer srv.Close()

	resp, err := New(testConfig(srv.URL)).Generate(context.Background(), GenerateRequest{Task: TaskAnswer, Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOllamaClient_Generate_RetryExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL)).Generate(context.Background(), GenerateRequest{Task: TaskAnswer, Prompt: "x"})
	require.ErrorIs(t, err, ErrRetryExhausted)
	assert.Contains(t, err.Error(), "model not found")
}

func TestOllamaClient_Available(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	assert.True(t, New(testConfig(srv.URL)).Available(context.Background()))
	assert.False(t, New(testConfig("http://127.0.0.1:1")).Available(context.Background()))
}

func TestDisabled(t *testing.T) {
	client := New(Config{Enabled: false})

	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, client.Available(context.Background()))
}
