// Package llm talks to a local Ollama server for fallback answers and the
// advisory human-intent check.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Task selects per-call generation defaults.
type Task string

const (
	// TaskAnswer generates a fallback answer for an unmatched question.
	TaskAnswer Task = "answer"
	// TaskConfirm asks a strict yes/no question.
	TaskConfirm Task = "confirm"
)

// GenerateRequest holds the parameters for one generation call.
type GenerateRequest struct {
	Task         Task
	SystemPrompt string
	Prompt       string
}

// GenerateResponse holds the result of a generation call.
type GenerateResponse struct {
	Text      string
	Model     string
	LatencyMs int64
}

// Client provides text generation.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	Available(ctx context.Context) bool
}

// Config configures the Ollama client.
type Config struct {
	Enabled    bool
	Endpoint   string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// taskOptions are the sampling defaults per task.
var taskOptions = map[Task]ollamaOptions{
	TaskAnswer:  {Temperature: 0.7, NumPredict: 256},
	TaskConfirm: {Temperature: 0, NumPredict: 3},
}

type ollamaClient struct {
	cfg  Config
	http *http.Client
}

// New returns an Ollama client, or a Disabled client when cfg.Enabled is
// false.
func New(cfg Config) Client {
	if !cfg.Enabled {
		return Disabled{}
	}
	return &ollamaClient{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
	}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

func (c *ollamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	body := ollamaRequest{
		Model:   c.cfg.Model,
		System:  req.SystemPrompt,
		Prompt:  req.Prompt,
		Options: taskOptions[req.Task],
	}

	var lastErr error
	attempts := 1 + c.cfg.MaxRetries

	for i := 0; i < attempts; i++ {
		text, model, err := c.doRequest(ctx, body)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				return nil, ErrEmptyResponse
			}
			return &GenerateResponse{
				Text:      text,
				Model:     model,
				LatencyMs: time.Since(start).Milliseconds(),
			}, nil
		}
		lastErr = err

		// no retry once the deadline is gone
		if ctx.Err() != nil {
			break
		}
	}

	if ctx.Err() != nil {
		return nil, ErrTimeout
	}
	if isConnectionError(lastErr) {
		return nil, ErrUnavailable
	}
	return nil, fmt.Errorf("%w: %v", ErrRetryExhausted, lastErr)
}

func (c *ollamaClient) doRequest(ctx context.Context, body ollamaRequest) (string, string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", "", fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimRight(c.cfg.Endpoint, "/") + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return "", "", err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", "", fmt.Errorf("reading response: %w", err)
	}

	if !gjson.ValidBytes(respBody) {
		return "", "", fmt.Errorf("ollama returned status %d with a non-JSON body", httpResp.StatusCode)
	}
	parsed := gjson.ParseBytes(respBody)

	if httpResp.StatusCode != http.StatusOK {
		msg := parsed.Get("error").String()
		if msg == "" {
			msg = string(respBody)
		}
		return "", "", fmt.Errorf("ollama returned status %d: %s", httpResp.StatusCode, msg)
	}

	return parsed.Get("response").String(), parsed.Get("model").String(), nil
}

func (c *ollamaClient) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	url := strings.TrimRight(c.cfg.Endpoint, "/") + "/api/tags"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func isConnectionError(err error) bool {
	var netErr *net.OpError
	return err != nil && errors.As(err, &netErr)
}

// Disabled is a Client that never generates.
type Disabled struct{}

// Generate always returns ErrUnavailable.
func (Disabled) Generate(context.Context, GenerateRequest) (*GenerateResponse, error) {
	return nil, ErrUnavailable
}

// Available always reports false.
func (Disabled) Available(context.Context) bool { return false }
