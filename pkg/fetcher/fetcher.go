// Package fetcher is the rate-limited HTTP fetcher (C6): a single
// token-bucket admission gate plus a concurrency ceiling in front of
// net/http, with retry/backoff and observability hooks for the filing
// pipeline (spec §4.6).
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/econdata/tsengine/pkg/log"
	"github.com/econdata/tsengine/pkg/xerrors"
	"golang.org/x/time/rate"
)

// Config parameterizes a Fetcher (spec §4.6 "(max_requests_per_second,
// per_request_timeout, retry_policy, user_agent)").
type Config struct {
	MaxRequestsPerSecond float64
	PerRequestTimeout    time.Duration
	MaxRetries           int
	BackoffBase          time.Duration
	Concurrency          int
	UserAgent            string
}

func (c Config) withDefaults() Config {
	if c.MaxRequestsPerSecond <= 0 {
		c.MaxRequestsPerSecond = 5
	}
	if c.PerRequestTimeout <= 0 {
		c.PerRequestTimeout = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.UserAgent == "" {
		c.UserAgent = "tsengine-ingest/1.0"
	}
	return c
}

// Observer receives the required observability hooks from spec §4.6.
// Implementations back these with pkg/metrics counters/histograms;
// the zero value (Observer{}) is a silent no-op.
type Observer struct {
	OnRequest   func(origin, endpoint string, status int, dur time.Duration)
	OnBytes     func(origin string, n int)
	OnRateLimit func(origin string)
	OnRetry     func(origin string, attempt int)
	OnTimeout   func(origin string)
	OnError     func(origin string, kind xerrors.Kind)
}

func (o Observer) request(origin, endpoint string, status int, dur time.Duration) {
	if o.OnRequest != nil {
		o.OnRequest(origin, endpoint, status, dur)
	}
}
func (o Observer) bytes(origin string, n int) {
	if o.OnBytes != nil {
		o.OnBytes(origin, n)
	}
}
func (o Observer) rateLimit(origin string) {
	if o.OnRateLimit != nil {
		o.OnRateLimit(origin)
	}
}
func (o Observer) retry(origin string, attempt int) {
	if o.OnRetry != nil {
		o.OnRetry(origin, attempt)
	}
}
func (o Observer) timeout(origin string) {
	if o.OnTimeout != nil {
		o.OnTimeout(origin)
	}
}
func (o Observer) errorKind(origin string, kind xerrors.Kind) {
	if o.OnError != nil {
		o.OnError(origin, kind)
	}
}

// Fetcher is a single politeness-enforcing client for one origin.
type Fetcher struct {
	cfg      Config
	origin   string
	client   *http.Client
	limiter  *rate.Limiter
	sem      chan struct{}
	observer Observer
}

// New returns a Fetcher for origin (used only for observability
// labeling; it does not restrict which hosts can be fetched).
func New(origin string, cfg Config, observer Observer) *Fetcher {
	cfg = cfg.withDefaults()
	return &Fetcher{
		cfg:      cfg,
		origin:   origin,
		client:   &http.Client{Timeout: cfg.PerRequestTimeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.MaxRequestsPerSecond), 1),
		sem:      make(chan struct{}, cfg.Concurrency),
		observer: observer,
	}
}

// retryableStatus classifies whether a given HTTP status warrants a retry
// (spec §4.6: 429 and 5xx retry, other 4xx do not).
func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Fetch performs a GET against url, honoring the token bucket,
// concurrency ceiling, timeout, and retry policy, and reporting every
// required observability hook.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	select {
	case f.sem <- struct{}{}:
		defer func() { <-f.sem }()
	case <-ctx.Done():
		return nil, xerrors.Wrap(xerrors.Cancelled, "fetch: acquire concurrency slot", ctx.Err())
	}

	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := f.cfg.BackoffBase * time.Duration(math.Pow(2, float64(attempt-1)))
			f.observer.retry(f.origin, attempt)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, xerrors.Wrap(xerrors.Cancelled, "fetch: backoff wait", ctx.Err())
			}
		}

		if err := f.awaitPermit(ctx); err != nil {
			return nil, err
		}

		body, status, retry, err := f.doOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			break
		}
		_ = status
	}
	return nil, lastErr
}

func (f *Fetcher) awaitPermit(ctx context.Context) error {
	if f.limiter.Allow() {
		return nil
	}
	f.observer.rateLimit(f.origin)
	if err := f.limiter.Wait(ctx); err != nil {
		// Wait only returns an error when ctx is cancelled/expires before
		// a permit frees up; it's a local cancellation, not the origin
		// rate-limiting us (that's reported as RateLimited from doOnce
		// when the origin itself returns 429).
		return xerrors.Wrap(xerrors.Cancelled, "fetch: rate limiter wait cancelled", err)
	}
	return nil
}

// doOnce issues one HTTP request, reporting request/bytes/timeout/error
// hooks, and returns (body, statusCode, shouldRetry, err).
func (f *Fetcher) doOnce(ctx context.Context, url string) ([]byte, int, bool, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, false, xerrors.Wrap(xerrors.Invalid, "build request", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	dur := time.Since(start)
	if err != nil {
		kind := xerrors.Transport
		var netErr net.Error
		if ctx.Err() != nil || (errors.As(err, &netErr) && netErr.Timeout()) {
			kind = xerrors.Timeout
			f.observer.timeout(f.origin)
		}
		f.observer.errorKind(f.origin, kind)
		return nil, 0, true, xerrors.Wrap(kind, "fetch: request failed", err)
	}
	defer resp.Body.Close()

	f.observer.request(f.origin, url, resp.StatusCode, dur)

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		f.observer.errorKind(f.origin, xerrors.Transport)
		return nil, resp.StatusCode, true, xerrors.Wrap(xerrors.Transport, "fetch: read body", readErr)
	}
	f.observer.bytes(f.origin, len(body))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, resp.StatusCode, false, nil
	}

	kind := xerrors.Transport
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		kind = xerrors.Unauthorized
	case resp.StatusCode == http.StatusNotFound:
		kind = xerrors.NotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		kind = xerrors.RateLimited
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		kind = xerrors.Invalid
	}
	f.observer.errorKind(f.origin, kind)

	retry := retryableStatus(resp.StatusCode)
	msg := fmt.Sprintf("fetch: unexpected status %d", resp.StatusCode)
	log.WithComponent("fetcher").Debug().Str("url", url).Int("status", resp.StatusCode).Bool("retry", retry).Msg(msg)
	return nil, resp.StatusCode, retry, xerrors.New(kind, msg)
}
