package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Gobusters/ectologger"
)

const (
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent is sent with every download
	DefaultUserAgent = "fern/1.0"
)

// Client wraps the HTTP client with logging and streams bodies to disk
type Client struct {
	client    *http.Client
	userAgent string
	logger    ectologger.Logger
}

// ClientConfig holds HTTP client configuration
type ClientConfig struct {
	Timeout         time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
	UserAgent       string
}

// DefaultClientConfig returns default HTTP client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:         DefaultTimeout,
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
		UserAgent:       DefaultUserAgent,
	}
}

// NewClient creates a new download client
func NewClient(cfg ClientConfig, logger ectologger.Logger) *Client {
	transport := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		MaxIdleConns:    cfg.MaxIdleConns,
		IdleConnTimeout: cfg.IdleConnTimeout,
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		userAgent: userAgent,
		logger:    logger,
	}
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.StatusCode)
}

// Download streams url into dest and returns the number of bytes written.
// The body goes to a sibling .part file that is renamed on success and
// removed on failure, so dest never holds a partial download.
func (c *Client) Download(ctx context.Context, url, dest string) (int64, error) {
	log := c.logger.WithContext(ctx).WithFields(map[string]any{
		"url":  url,
		"dest": dest,
	})
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		log.WithError(err).Errorf("HTTP request failed: GET %s", url)
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
	}

	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", part, err)
	}

	written, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(part)
		return written, fmt.Errorf("failed to write %s: %w", dest, err)
	}

	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return written, fmt.Errorf("failed to move %s into place: %w", dest, err)
	}

	log.WithFields(map[string]any{
		"bytes":       written,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Infof("Downloaded %s", filepath.Base(dest))

	return written, nil
}
