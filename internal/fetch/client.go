// Package fetch retrieves the user list from the remote endpoint.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rail44/userdash/internal/user"
)

// DefaultEndpoint is the upstream resource the dashboard reads
const DefaultEndpoint = "https://jsonplaceholder.typicode.com/users"

// ErrDecode is returned when the response body is not a JSON array of users
var ErrDecode = errors.New("malformed response body")

// StatusError is returned for a non-2xx response
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// Message collapses any fetch failure into the single human-readable message
// shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return "Failed to fetch users"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Request timed out"
	}
	return err.Error()
}

// Fetcher is anything that can produce the full user list
type Fetcher interface {
	Fetch(ctx context.Context) ([]user.User, error)
}

// ClientOptions contains options for creating a Client
type ClientOptions struct {
	Endpoint   string
	Timeout    time.Duration // 0 disables the per-request timeout
	UserAgent  string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client performs one GET per Fetch against a fixed endpoint
type Client struct {
	endpoint   string
	timeout    time.Duration
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Client
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		endpoint:   opts.Endpoint,
		timeout:    opts.Timeout,
		userAgent:  opts.UserAgent,
		httpClient: httpClient,
		logger:     opts.Logger,
	}, nil
}

// Endpoint returns the URL the client reads from
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Fetch retrieves and decodes the full user list
func (c *Client) Fetch(ctx context.Context) ([]user.User, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	c.logger.Debug("fetching users", slog.String("url", c.endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.Warn("fetch rejected", slog.Int("status", resp.StatusCode))
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var users []user.User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if users == nil {
		// "null" decodes without error but is not an array
		return nil, fmt.Errorf("%w: expected a JSON array", ErrDecode)
	}

	c.logger.Debug("fetched users",
		slog.Int("count", len(users)),
		slog.Duration("latency", time.Since(start).Round(time.Millisecond)))
	return users, nil
}
