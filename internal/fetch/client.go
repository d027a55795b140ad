// Package fetch provides the HTTP layer of the pipeline: a shared client with
// a tuned transport, per-call timeouts, response size caps and a bounded
// constant-interval retry for transient network failures.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/securezeron/SubPDF/internal/config"
	"github.com/securezeron/SubPDF/internal/observability"
)

// StatusError reports a non-2xx HTTP response. It is not retried.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

// IsStatusError reports whether err is an HTTP status failure and returns it.
func IsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// StorageError marks a failure writing fetched bytes to disk, so callers can
// classify it apart from network trouble.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err is a disk-write failure.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// Client wraps http.Client for document acquisition. One instance is shared
// by all workers; the transport pool is sized to the run's concurrency.
type Client struct {
	http          *http.Client
	userAgent     string
	headers       map[string]string
	maxBodySize   int64
	retryAttempts int
	retryDelay    time.Duration
	logger        *observability.Logger
}

// NewClient builds the shared fetch client from the run configuration.
func NewClient(cfg *config.RunConfig, logger *observability.Logger) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        cfg.Concurrency,
		MaxIdleConnsPerHost: cfg.Concurrency,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.HTTPTimeout,
		},
		userAgent:     cfg.UserAgent,
		headers:       cfg.Headers,
		maxBodySize:   cfg.MaxBodySize,
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
		logger:        logger,
	}
}

// Get fetches a URL into memory. Used for seed pages during discovery.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	err := c.withRetry(ctx, rawURL, func() error {
		resp, err := c.do(ctx, http.MethodGet, rawURL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(&StatusError{URL: rawURL, Code: resp.StatusCode})
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	})
	return body, err
}

// Download streams a URL's body into path and returns the byte count. The
// response size is capped; a partial file left by a failed attempt is the
// caller's to release.
func (c *Client) Download(ctx context.Context, rawURL, path string) (int64, error) {
	var written int64
	err := c.withRetry(ctx, rawURL, func() error {
		resp, err := c.do(ctx, http.MethodGet, rawURL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(&StatusError{URL: rawURL, Code: resp.StatusCode})
		}

		f, err := os.Create(path)
		if err != nil {
			return backoff.Permanent(&StorageError{Err: fmt.Errorf("create document file: %w", err)})
		}

		written, err = io.Copy(f, io.LimitReader(resp.Body, c.maxBodySize))
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = &StorageError{Err: closeErr}
		}
		if err != nil {
			return fmt.Errorf("write document: %w", err)
		}
		return nil
	})
	return written, err
}

// ContentType issues a HEAD request and returns the response Content-Type.
// Discovery uses it to sniff document links without an extension.
func (c *Client) ContentType(ctx context.Context, rawURL string) (string, error) {
	resp, err := c.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	return resp.Header.Get("Content-Type"), nil
}

func (c *Client) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	return c.http.Do(req)
}

// withRetry runs op with a fixed small attempt count and a constant short
// delay. Only network-class errors retry; HTTP status and storage errors are
// marked permanent by op.
func (c *Client) withRetry(ctx context.Context, rawURL string, op func() error) error {
	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err != nil && attempt <= c.retryAttempts {
			var perm *backoff.PermanentError
			if !errors.As(err, &perm) {
				c.logger.Debug().
					Str("url", rawURL).
					Int("attempt", attempt).
					Err(err).
					Msg("transient fetch failure, retrying")
			}
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(c.retryAttempts)),
		ctx,
	)
	return backoff.Retry(wrapped, policy)
}
