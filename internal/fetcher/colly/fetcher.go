// Package collyfetcher implements enrich.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/leadhunter-enricher/internal/enrich"
	"github.com/JakeFAU/leadhunter-enricher/internal/metrics"
)

// Defaults applied when the corresponding Config field is zero.
const (
	DefaultUserAgent    = "LeadHunter/1.0 (+https://leadhunter.app)"
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 1 << 20
)

// Config controls collector behavior.
//   - UserAgent: fixed identification sent with every request.
//   - Timeout: wall-clock budget for the whole fetch, redirects included.
//   - MaxBodyBytes: a declared Content-Length above this aborts the fetch after the
//     headers; undeclared bodies are truncated to this many bytes while streaming.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return c
}

// Fetcher implements enrich.Fetcher using the Colly collector. The base collector
// is configured once; every Fetch works on its own clone.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponseHeaders(colly.ResponseHeadersCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	cfg = cfg.withDefaults()
	c := colly.NewCollector(
		colly.Async(false),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.DetectCharset(),
		colly.MaxBodySize(int(cfg.MaxBodyBytes)),
	)
	// Status codes are classified in the header hook instead of by colly.
	c.ParseHTTPErrorResponse = true
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch executes a single bounded HTTP GET.
func (f *Fetcher) Fetch(ctx context.Context, url string) (enrich.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	var (
		page     enrich.Page
		fetchErr error
	)
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	f.configureCollectorHooks(collector, url, &page, &fetchErr)

	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		classified := classify(url, err)
		metrics.ObserveFetch(enrich.FailureKind(classified), 0)
		return enrich.Page{}, classified
	}
	metrics.ObserveFetch(strconv.Itoa(page.StatusCode), len(page.Body))
	return page, nil
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	url string,
	page *enrich.Page,
	fetchErr *error,
) {
	hooks.OnResponseHeaders(func(r *colly.Response) {
		if r.StatusCode < http.StatusOK || r.StatusCode >= http.StatusMultipleChoices {
			*fetchErr = &enrich.HTTPError{URL: url, StatusCode: r.StatusCode}
			r.Request.Abort()
			return
		}
		if declared, ok := declaredLength(r.Headers); ok && declared > f.cfg.MaxBodyBytes {
			*fetchErr = &enrich.TooLargeError{URL: url, DeclaredSize: declared, Limit: f.cfg.MaxBodyBytes}
			r.Request.Abort()
		}
	})

	hooks.OnResponse(func(r *colly.Response) {
		finalURL := url
		if r.Request != nil && r.Request.URL != nil {
			finalURL = r.Request.URL.String()
		}
		*page = enrich.Page{
			URL:        finalURL,
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		if *fetchErr == nil {
			*fetchErr = err
		}
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		// A failure recorded by a hook is more specific than colly's abort error.
		if *fetchErr != nil {
			return *fetchErr
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func declaredLength(headers *http.Header) (int64, bool) {
	if headers == nil {
		return 0, false
	}
	raw := headers.Get("Content-Length")
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func classify(url string, err error) error {
	var (
		httpErr     *enrich.HTTPError
		tooLargeErr *enrich.TooLargeError
		netErr      net.Error
	)
	switch {
	case errors.As(err, &httpErr), errors.As(err, &tooLargeErr):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return &enrich.TimeoutError{URL: url, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &enrich.TimeoutError{URL: url, Err: err}
	default:
		return &enrich.NetworkError{URL: url, Err: err}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
