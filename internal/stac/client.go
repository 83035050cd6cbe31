package stac

import (
	"bytes"
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

// Client handles communication with a STAC API item search endpoint
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxPages   int
	logger     *slog.Logger
}

// NewClient creates a new STAC API client. maxPages bounds how many result
// pages one search follows; zero means no bound.
func NewClient(baseURL string, timeout time.Duration, maxPages int) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxPages: maxPages,
		logger:   slog.Default(),
	}
}

// WithLogger sets a custom logger for the client
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// WithRateLimit caps outgoing requests at perSecond with the given burst.
// A non-positive rate disables throttling.
func (c *Client) WithRateLimit(perSecond float64, burst int) *Client {
	if perSecond <= 0 {
		c.limiter = nil
		return c
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	return c
}

// Search posts req to the /search endpoint and follows "next" links until
// the results are exhausted or the page bound is reached.
func (c *Client) Search(ctx context.Context, req *SearchRequest) ([]*Item, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	searchURL, err := url.JoinPath(c.baseURL, "search")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	var items []*Item
	method := http.MethodPost
	for page := 1; ; page++ {
		ic, err := c.fetch(ctx, method, searchURL, body)
		if err != nil {
			return nil, err
		}
		items = append(items, ic.Features...)

		next := ic.NextLink()
		if next == nil || len(ic.Features) == 0 {
			break
		}
		if c.maxPages > 0 && page >= c.maxPages {
			c.logger.WarnContext(ctx, "STAC search truncated at page limit",
				slog.Int("max_pages", c.maxPages),
				slog.Int("item_count", len(items)),
			)
			break
		}

		// POST next links carry their paging token in the href and expect the
		// original body again.
		searchURL = next.Href
		method = http.MethodGet
		if next.Method == http.MethodPost {
			method = http.MethodPost
		}
	}

	c.logger.DebugContext(ctx, "STAC search completed",
		slog.Int("item_count", len(items)),
	)
	return items, nil
}

func (c *Client) fetch(ctx context.Context, method, target string, body []byte) (*ItemCollection, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("STAC rate limiter: %w", err)
		}
	}

	var reader io.Reader
	if method == http.MethodPost {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", mediaTypeGeoJSON)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.DebugContext(ctx, "executing STAC search",
		slog.String("method", method),
		slog.String("url", target),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("STAC API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		c.logger.ErrorContext(ctx, "STAC API returned non-200 status",
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", string(msg)),
		)
		return nil, fmt.Errorf("STAC API returned status %d: %s", resp.StatusCode, string(msg))
	}

	var ic ItemCollection
	if err := json.NewDecoder(resp.Body).Decode(&ic); err != nil {
		return nil, fmt.Errorf("failed to decode STAC response: %w", err)
	}
	return &ic, nil
}
