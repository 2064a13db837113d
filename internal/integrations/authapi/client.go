package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nutriagent/internal/domain"
)

// HTTPStatusError captures non-2xx upstream responses with status-aware
// context; the handler maps 401 to an unauthorized failure.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("authapi: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client validates bearer tokens against a GoTrue-style identity provider
// and returns the token's user id plus metadata blob.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("authapi: base URL must not be empty")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type userResponse struct {
	ID           string         `json:"id"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// UserFromToken validates the bearer token and returns the authenticated
// user. An invalid or expired token surfaces as an HTTPStatusError with
// status 401.
func (c *Client) UserFromToken(ctx context.Context, token string) (domain.AuthUser, error) {
	if strings.TrimSpace(token) == "" {
		return domain.AuthUser{}, errors.New("authapi: token must not be empty")
	}

	url := c.baseURL + "/auth/v1/user"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.AuthUser{}, fmt.Errorf("authapi: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.AuthUser{}, fmt.Errorf("authapi: validate token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.AuthUser{}, fmt.Errorf("authapi: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.AuthUser{}, &HTTPStatusError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var user userResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return domain.AuthUser{}, fmt.Errorf("authapi: decode user: %w", err)
	}
	if user.ID == "" {
		return domain.AuthUser{}, errors.New("authapi: user response missing id")
	}
	return domain.AuthUser{ID: user.ID, Metadata: user.UserMetadata}, nil
}
