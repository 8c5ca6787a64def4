// scraper/downloader.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// FetchError reports a request for URL that failed or did not return 200.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Options configures a Client.
type Options struct {
	// BaseURL is the root that publication slugs are appended to.
	BaseURL string
	// Timeout bounds each request. Zero means 30s.
	Timeout time.Duration
	// Interval is the minimum gap between two requests. Zero disables pacing.
	Interval time.Duration
	// Extension is the file extension of downloadable data files, e.g. ".xlsx".
	Extension string
}

// Client discovers publication pages and data files on the publisher site
// and downloads them. Requests are made one at a time and paced.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	baseURL   *url.URL
	extension string
	logger    *log.Logger
}

// NewClient builds a client for opts.BaseURL. A zero Interval disables pacing.
func NewClient(opts Options, logger *log.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/") + "/")
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}
	ext := strings.ToLower(opts.Extension)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, 1),
		baseURL:   base,
		extension: ext,
		logger:    logger,
	}, nil
}

// Fetch downloads the body of target.
func (c *Client) Fetch(ctx context.Context, target string) ([]byte, error) {
	c.logger.Debug("Scraper: downloading", "url", target)
	body, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &FetchError{URL: target, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	c.logger.Info("Scraper: downloaded", "url", target, "bytes", len(data))
	return data, nil
}

// get waits for the limiter and returns the body of a 200 response. The
// caller closes it.
func (c *Client) get(ctx context.Context, target string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &FetchError{URL: target, Err: fmt.Errorf("received status code %d", resp.StatusCode)}
	}
	return resp.Body, nil
}
