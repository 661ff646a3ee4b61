package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultMarketBaseURL is the Yahoo Finance public API host.
const defaultMarketBaseURL = "https://query1.finance.yahoo.com"

// maxMarketResponseBody limits how much of a market API response we read.
const maxMarketResponseBody = 1 * 1024 * 1024 // 1 MB

// marketClient is shared plumbing for the Yahoo Finance backed tools:
// base URL, HTTP client, and a sliding-window rate limiter so a chatty
// model cannot hammer the public endpoint.
type marketClient struct {
	baseURL string
	client  *http.Client
	limiter *RateLimiter
}

func newMarketClient(baseURL string, limiter *RateLimiter) *marketClient {
	if baseURL == "" {
		baseURL = defaultMarketBaseURL
	}
	return &marketClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: limiter,
	}
}

// get performs a rate-limited GET and returns the body.
func (m *marketClient) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if m.limiter != nil && !m.limiter.Allow() {
		return nil, fmt.Errorf("market data rate limit reached, try again shortly")
	}

	u := m.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// Yahoo rejects requests without a browser-ish user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; fincrew/1.0)")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("market request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMarketResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read market response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market API error %d: %s", resp.StatusCode, body)
	}
	return body, nil
}
