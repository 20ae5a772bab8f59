package banklinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal Bankline HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// NLUResult mirrors the parse attached to every chat reply.
type NLUResult struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Entities   map[string]any `json:"entities"`
}

// ChatReply is one dialogue turn's response.
type ChatReply struct {
	SessionID string    `json:"session_id"`
	Reply     string    `json:"reply"`
	NLU       NLUResult `json:"nlu"`
	Needed    []string  `json:"needed,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Register creates a user account.
func (c *Client) Register(ctx context.Context, username, password string) error {
	body := map[string]any{"username": username, "password": password}
	return c.do(ctx, http.MethodPost, "v0/auth/register", body, nil)
}

// Login exchanges credentials for a bearer token and stores it on the client.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body := map[string]any{"username": username, "password": password}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "v0/auth/login", body, &resp); err != nil {
		return "", err
	}
	c.BearerToken = resp.Token
	return resp.Token, nil
}

// Chat sends one utterance. Pass an empty sessionID to start a new session;
// reuse the returned SessionID to continue it.
func (c *Client) Chat(ctx context.Context, sessionID, message string) (ChatReply, error) {
	body := map[string]any{"message": message}
	if sessionID != "" {
		body["session_id"] = sessionID
	}
	var resp ChatReply
	err := c.do(ctx, http.MethodPost, "v0/chat", body, &resp)
	return resp, err
}

// Reset clears a session's dialogue state.
func (c *Client) Reset(ctx context.Context, sessionID string) error {
	body := map[string]any{"session_id": sessionID}
	return c.do(ctx, http.MethodPost, "v0/reset", body, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
