package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// appTitle identifies this client in OpenRouter usage dashboards.
	appTitle = "Loo"
	// appReferer is the attribution URL sent with every request.
	appReferer = "https://github.com/loocode/loo"
)

// APIError represents an HTTP error from the OpenRouter gateway.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openrouter api error: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the OpenRouter chat/completions and models endpoints.
type Client struct {
	// baseURL points to the OpenRouter API root.
	baseURL string
	// apiKey is sent as a bearer token, if provided.
	apiKey string
	// httpClient executes requests with timeouts.
	httpClient *http.Client
}

// NewClient constructs a new client with timeout settings.
func NewClient(baseURL string, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ChatCompletions executes a non-streaming chat/completions request.
func (c *Client) ChatCompletions(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/chat/completions",
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setAuthHeaders(httpReq)

	body, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var parsed ChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("empty response choices")
	}
	return &parsed, nil
}

// ListModels fetches the models available to the configured key.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create models request: %w", err)
	}
	c.setAuthHeaders(httpReq)

	body, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var parsed ModelList
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse models response: %w", err)
	}
	return parsed.Data, nil
}

// setAuthHeaders applies bearer auth and the OpenRouter attribution
// headers.
func (c *Client) setAuthHeaders(httpReq *http.Request) {
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	httpReq.Header.Set("X-Title", appTitle)
	httpReq.Header.Set("HTTP-Referer", appReferer)
}

// do sends one request and returns the body of a 2xx response.
// Non-2xx responses return a structured API error for fallback logic.
func (c *Client) do(httpReq *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
