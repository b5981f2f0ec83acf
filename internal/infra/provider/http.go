// Package provider contains the concrete news sources: the HackerNews API
// provider and the generic RSS provider. Both keep a local snapshot of the
// latest source data and a per-provider blacklist of delivered identifiers.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"technews-bot/internal/resilience/retry"
)

// maxBodyBytes caps response bodies so a misbehaving source cannot make the
// bot buffer unbounded data.
const maxBodyBytes = 10 << 20 // 10 MiB

// httpGet performs a single GET and returns the body bytes. Non-2xx status
// codes come back as *retry.HTTPError so the retry layer can classify them.
func httpGet(ctx context.Context, client *http.Client, url, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	return body, nil
}
