package picuki

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "picukidl/pkg/errors"
	"picukidl/pkg/logger"
	"picukidl/pkg/ratelimit"
)

// maxPageSize caps how much of a page body is read.
const maxPageSize = 16 << 20

// Client fetches viewer site pages. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// ClientOptions configures a Client.
type ClientOptions struct {
	Timeout    time.Duration
	UserAgent  string
	Limiter    ratelimit.Limiter
	HTTPClient *http.Client
}

// NewClient creates a new page client
func NewClient(opts ClientOptions, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.Nop{}
	}

	headers := map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
		"Cache-Control":   "no-cache",
	}
	if opts.UserAgent != "" {
		headers["User-Agent"] = opts.UserAgent
	}

	return &Client{
		httpClient: httpClient,
		headers:    headers,
		limiter:    limiter,
		logger:     log.WithField("component", "picuki_client"),
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// GetPage fetches url and returns its body. A 404 is reported with the
// notFound error type; other failures use the transport taxonomy.
func (c *Client) GetPage(ctx context.Context, url string, notFound errs.ErrorType) ([]byte, error) {
	if d, ok := c.limiter.(interface{ Delay() time.Duration }); ok {
		if wait := d.Delay(); wait > 0 {
			logger.LogRateLimit(c.logger, url, wait)
		}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeCancelled, err, "waiting to fetch %s", url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeInvalidArgument, err, "failed to create request for %s", url)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		if ctx.Err() != nil {
			return nil, errs.Wrap(errs.ErrorTypeCancelled, ctx.Err(), "request %s", url)
		}
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "request %s", url)
	}
	defer resp.Body.Close()
	logger.LogRequest(c.logger, req.Method, url, resp.StatusCode, time.Since(start))

	if err := checkResponseStatus(resp, notFound, url); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read response body of %s", url)
	}
	return body, nil
}

func checkResponseStatus(resp *http.Response, notFound errs.ErrorType, url string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	e := errs.FromStatusCode(resp.StatusCode, notFound, url)
	if e.Type == errs.ErrorTypeUnknown {
		e.Message = fmt.Sprintf("unexpected status code %d from %s", resp.StatusCode, url)
	}
	return e
}
