package helper

import (
	"fmt"
	"net/url"
)

// ValidateFeedURL checks that the URL is absolute http(s). Reachability is
// the fetcher's job, not a validation concern.
func ValidateFeedURL(feedURL string) error {
	u, err := url.ParseRequestURI(feedURL)
	if err != nil {
		return fmt.Errorf("invalid feed URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("feed URL has no host: %s", feedURL)
	}
	return nil
}
