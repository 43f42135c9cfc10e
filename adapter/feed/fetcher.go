package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"feedhub/domain"
)

const defaultFetchTimeout = 20 * time.Second

// HTTPFetcher performs a single GET per feed poll and buffers the whole
// response body before returning. Outbound requests share a rate limiter
// so a large feed list does not fire in one burst.
type HTTPFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPFetcher builds a fetcher with the given request timeout and a
// minimum spacing between outbound requests. Zero values fall back to a
// 20s timeout and no rate limiting.
func NewHTTPFetcher(timeout, spacing time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	f := &HTTPFetcher{client: &http.Client{Timeout: timeout}}
	if spacing > 0 {
		f.limiter = rate.NewLimiter(rate.Every(spacing), 1)
	}
	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context, feedURL string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrFetch, feedURL, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrFetch, feedURL, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrFetch, feedURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: http %d", domain.ErrFetch, feedURL, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrFetch, feedURL, err)
	}
	return body, nil
}
