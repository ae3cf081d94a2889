package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"reward-tracker/core/reconcile"
)

// Crawler fetches reward pages over HTTP. It implements reconcile.Fetcher.
type Crawler struct {
	client     *http.Client
	normalizer *Normalizer
	cfg        Config
}

// New creates a Crawler based on the configuration.
func New(cfg Config) *Crawler {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 * 1024 * 1024
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "reward-tracker/1.0"
	}

	return &Crawler{
		client: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				return nil
			},
		},
		normalizer: NewNormalizer(),
		cfg:        cfg,
	}
}

// Fetch retrieves a page, normalizes it, and compares its fingerprint
// against last. Failures are returned as *reconcile.FetchError so the
// pipeline can classify them into the FAILED audit outcome.
func (c *Crawler) Fetch(ctx context.Context, url string, last reconcile.Fingerprint) (*reconcile.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &reconcile.FetchError{Detail: fmt.Sprintf("new request: %v", err)}
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &reconcile.FetchError{
			Detail:  fmt.Sprintf("http get: %v", err),
			Timeout: isTimeout(err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &reconcile.FetchError{Detail: fmt.Sprintf("http %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
	if err != nil {
		return nil, &reconcile.FetchError{
			Detail:  fmt.Sprintf("read body: %v", err),
			Timeout: isTimeout(err),
		}
	}

	normalized, err := c.normalizer.Normalize(string(body), url)
	if err != nil {
		return nil, &reconcile.FetchError{Detail: fmt.Sprintf("normalize: %v", err)}
	}

	fingerprint := reconcile.ComputeFingerprint([]byte(normalized))
	if !last.IsZero() && fingerprint == last {
		// Short-circuit: no content is carried for unchanged pages.
		return &reconcile.FetchResult{Status: reconcile.FetchUnchanged}, nil
	}

	return &reconcile.FetchResult{
		Status:      reconcile.FetchChanged,
		Content:     normalized,
		Fingerprint: fingerprint,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
