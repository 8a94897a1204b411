package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is used when the client is built with an empty base URL.
const DefaultBaseURL = "http://localhost:8000"

// Client talks to the PulsAI backend over its REST API.
// It holds no per-call state and is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for failures the client swallows.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", baseURL)
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// BaseURL returns the backend address the client sends to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// serverError builds the error for a non-2xx response. A body that is not
// a JSON object counts as one without a detail.
func serverError(resp *http.Response) error {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		payload.Detail = nil
	}
	return &ServerError{
		Status: resp.StatusCode,
		Detail: detailText(payload.Detail),
	}
}

// detailText turns the raw detail value into a message. Empty, null, false
// and zero values mean no detail; other non-string values keep their JSON text.
func detailText(raw json.RawMessage) string {
	text := strings.TrimSpace(string(raw))
	switch text {
	case "", "null", "false", "0", `""`:
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return text
}

func userChannelPath(prefix, userID, channel string) string {
	return prefix + url.PathEscape(userID) + "/" + url.PathEscape(channel)
}

// SendMessage posts a chat turn and returns the backend's reply unmodified.
// A non-2xx status yields a *ServerError.
func (c *Client) SendMessage(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	body, err := json.Marshal(req.withDefaults())
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/ai/message", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, serverError(resp)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}

	return ChatResponse(raw), nil
}

// FetchHistory returns the stored messages for a user on a channel.
// Every failure, including non-2xx statuses, yields an empty slice.
func (c *Client) FetchHistory(ctx context.Context, userID, channel string) []Message {
	path := userChannelPath("/api/ai/messages/", userID, channel)
	log := c.logger.With().Str("user_id", userID).Str("channel", channel).Logger()

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		log.Debug().Err(err).Msg("history request failed")
		return []Message{}
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		log.Debug().Int("status", resp.StatusCode).Msg("history request rejected")
		return []Message{}
	}

	var envelope struct {
		Messages []Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		log.Debug().Err(err).Msg("unable to decode history")
		return []Message{}
	}

	if envelope.Messages == nil {
		return []Message{}
	}
	return envelope.Messages
}

// FetchStage returns the current stage of the user's conversation on a channel.
func (c *Client) FetchStage(ctx context.Context, userID, channel string) (Stage, error) {
	resp, err := c.do(ctx, http.MethodGet, userChannelPath("/api/ai/stage/", userID, channel), nil)
	if err != nil {
		return "", fmt.Errorf("fetch stage: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return "", serverError(resp)
	}

	var payload struct {
		Stage Stage `json:"stage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode stage: %w", err)
	}

	return payload.Stage, nil
}
