// Package asf is a client for the ASF Search API, which indexes Sentinel-1
// SAR granules.
package asf

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	searchPath = "/services/search/param"
	userAgent  = "eoset/1.0"

	// maxErrorBody bounds how much of a failed response is kept in errors.
	maxErrorBody = 4 << 10
)

// Client searches the ASF Search API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient returns a client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 16
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout, Transport: transport},
		logger:  slog.Default(),
	}
}

// WithLogger replaces the client logger.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// WithRateLimit throttles requests to perSecond, allowing bursts of burst.
// perSecond <= 0 removes the limit.
func (c *Client) WithRateLimit(perSecond float64, burst int) *Client {
	c.limiter = nil
	if perSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
	return c
}

// Search runs q and returns every granule of the response.
func (c *Client) Search(ctx context.Context, q Query) (*SearchResponse, error) {
	target, err := c.searchURL(q)
	if err != nil {
		return nil, err
	}

	var out SearchResponse
	if err := c.get(ctx, target, &out); err != nil {
		return nil, err
	}
	c.logger.DebugContext(ctx, "asf search done",
		slog.Int("granules", len(out.Features)),
	)
	return &out, nil
}

func (c *Client) searchURL(q Query) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid ASF base URL %q: %w", c.baseURL, err)
	}
	u.Path = searchPath
	u.RawQuery = q.Values().Encode()
	return u.String(), nil
}

// get fetches target and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, target string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for ASF rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("building ASF request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")
	req.Header.Set("User-Agent", userAgent)

	c.logger.DebugContext(ctx, "asf request", slog.String("url", target))

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "asf request failed",
			slog.String("url", target),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("ASF request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.ErrorContext(ctx, "asf request rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return fmt.Errorf("ASF returned status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode ASF response: %w", err)
	}
	return nil
}
