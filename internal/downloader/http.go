package downloader

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"
	"time"

	errs "picukidl/pkg/errors"
	"picukidl/pkg/logger"
	"picukidl/pkg/retry"
	"picukidl/pkg/storage"
)

// Options configures an HTTPDownloader.
type Options struct {
	// Timeout bounds one request attempt, body transfer included.
	Timeout time.Duration
	// UserAgent is sent on every media request.
	UserAgent string
	// RetryAttempts is the number of retries after the first attempt for
	// transient failures.
	RetryAttempts  int
	RetryBaseDelay time.Duration
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// HTTPDownloader streams media URLs to disk.
type HTTPDownloader struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	retry     *retry.Config
	logger    logger.Logger
}

// NewHTTPDownloader creates a downloader. Zero options fall back to a 60s
// timeout and no retries.
func NewHTTPDownloader(opts Options, log logger.Logger) *HTTPDownloader {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.WithField("component", "downloader")

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	base := opts.RetryBaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	return &HTTPDownloader{
		client:    client,
		userAgent: opts.UserAgent,
		timeout:   timeout,
		retry: &retry.Config{
			MaxAttempts: opts.RetryAttempts + 1,
			Backoff: &retry.ExponentialBackoff{
				BaseDelay:    base,
				MaxDelay:     30 * time.Second,
				Multiplier:   2.0,
				JitterFactor: 0.1,
			},
			Logger: log,
		},
		logger: log,
	}
}

// Fetch downloads url to destPrefix plus the extension derived from the
// response content type. Data is written to a ".part" file that is renamed
// into place on success and removed on any failure.
func (d *HTTPDownloader) Fetch(ctx context.Context, url, destPrefix string, progress storage.ProgressFunc) (string, int64, error) {
	type fetched struct {
		path string
		size int64
	}

	out, err := retry.DoWithResult(ctx, func(ctx context.Context) (fetched, error) {
		path, size, err := d.fetchOnce(ctx, url, destPrefix, progress)
		return fetched{path, size}, err
	}, d.retry)
	if err != nil {
		return "", 0, err
	}
	return out.path, out.size, nil
}

func (d *HTTPDownloader) fetchOnce(parent context.Context, url, destPrefix string, progress storage.ProgressFunc) (string, int64, error) {
	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, errs.Wrap(errs.ErrorTypeInvalidTarget, err, "build request for %s", url)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return "", 0, classify(parent, err, "request %s", url)
	}
	defer resp.Body.Close()
	logger.LogRequest(d.logger, req.Method, url, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", 0, errs.FromStatusCode(resp.StatusCode, errs.ErrorTypeNotFound, url)
	}

	ext, err := ExtensionFor(resp.Header.Get("Content-Type"))
	if err != nil {
		return "", 0, err
	}

	final := destPrefix + ext
	part := final + storage.PartSuffix

	f, err := os.Create(part)
	if err != nil {
		return "", 0, errs.Wrap(errs.ErrorTypeFilesystem, err, "create %s", part)
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	counter := &progressWriter{total: total, report: progress}

	n, copyErr := io.Copy(io.MultiWriter(f, counter), resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		os.Remove(part)
		return "", 0, classify(parent, copyErr, "transfer %s", url)
	}
	if closeErr != nil {
		os.Remove(part)
		return "", 0, errs.Wrap(errs.ErrorTypeFilesystem, closeErr, "close %s", part)
	}
	if total > 0 && n < total {
		os.Remove(part)
		return "", 0, errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "short body for %s: %d of %d bytes", url, n, total)
	}

	if err := os.Rename(part, final); err != nil {
		os.Remove(part)
		return "", 0, errs.Wrap(errs.ErrorTypeFilesystem, err, "rename %s", part)
	}

	return final, n, nil
}

// classify maps transport failures to typed errors. Cancellation of the
// parent context is reported as cancelled; a per-attempt timeout stays a
// transient network error.
func classify(parent context.Context, err error, format string, args ...interface{}) error {
	if parent.Err() != nil && errors.Is(parent.Err(), context.Canceled) {
		return errs.Wrap(errs.ErrorTypeCancelled, context.Canceled, format, args...)
	}
	return errs.Wrap(errs.ErrorTypeNetwork, err, format, args...)
}

// ExtensionFor returns ".subtype" for a "type/subtype; params" content type.
func ExtensionFor(contentType string) (string, error) {
	if strings.TrimSpace(contentType) == "" {
		return "", errs.New(errs.ErrorTypeUnknownContentType, 0, "response has no content type")
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeUnknownContentType, err, "unparseable content type %q", contentType)
	}
	_, subtype, ok := strings.Cut(mediaType, "/")
	if !ok || subtype == "" || !safeExtension(subtype) {
		return "", errs.New(errs.ErrorTypeUnknownContentType, 0, "unusable content type %q", contentType)
	}
	return "." + subtype, nil
}

func safeExtension(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '+', r == '-':
		default:
			return false
		}
	}
	return true
}

// progressWriter reports cumulative bytes as they pass through.
type progressWriter struct {
	written int64
	total   int64
	report  storage.ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.report != nil {
		p.report(p.written, p.total)
	}
	return len(b), nil
}
