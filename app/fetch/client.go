package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Client performs resilient HTTP GETs. All requests are idempotent; the
// retry policy is applied around every call.
type Client struct {
	httpClient *http.Client
	userAgent  string
	policy     Policy
}

func NewClient(httpClient *http.Client, userAgent string, policy Policy) *Client {
	return &Client{
		httpClient: httpClient,
		userAgent:  userAgent,
		policy:     policy,
	}
}

// Get fetches rawURL with the given query parameters, retrying transient
// failures per the client's policy.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	return WithRetry(ctx, c.policy, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, rawURL, params)
	})
}

// GetJSON fetches rawURL and unmarshals the response body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, v any) error {
	data, err := c.Get(ctx, rawURL, params)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return &FatalError{Err: fmt.Errorf("failed to parse JSON response: %w", err)}
	}

	return nil
}

func (c *Client) get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &FatalError{Err: fmt.Errorf("invalid URL %q: %w", rawURL, err)}
	}

	if len(params) > 0 {
		q := u.Query()
		for key, values := range params {
			for _, value := range values {
				q.Set(key, value)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, &FatalError{Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Caller deadline or cancellation, not a server failure
			return nil, ctx.Err()
		}
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &TransientError{Err: fmt.Errorf("failed to read response body: %w", err)}
		}
		return data, nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &TransientError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status),
		}

	default:
		return nil, &FatalError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status),
		}
	}
}
