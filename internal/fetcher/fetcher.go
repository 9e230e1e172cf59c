// Package fetcher issues polite HTTP requests against restaurant websites:
// robots.txt gate, per-host rate limiting, retry with backoff, and a
// per-host circuit breaker.
package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sips-and-steals/deals-cli/internal/config"
	"github.com/sips-and-steals/deals-cli/internal/model"
	"github.com/sips-and-steals/deals-cli/internal/resilience"
)

// BodyCache is the optional fetch cache consulted before hitting the network.
// Implemented by store.FetchCache.
type BodyCache interface {
	GetCachedBody(ctx context.Context, url string) (string, bool, error)
	SetCachedBody(ctx context.Context, url, body string, ttl time.Duration) error
}

// hostLimiters hands out one rate.Limiter per host, shared across workers.
type hostLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perSec   rate.Limit
}

func newHostLimiters(perSec float64) *hostLimiters {
	if perSec <= 0 {
		perSec = 0.5
	}
	return &hostLimiters{
		limiters: make(map[string]*rate.Limiter),
		perSec:   rate.Limit(perSec),
	}
}

func (h *hostLimiters) get(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	if lim, ok := h.limiters[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(h.perSec, 1)
	h.limiters[host] = lim
	return lim
}

// Fetcher fetches restaurant pages. Safe for concurrent use: the robots
// cache, limiters, and breakers are the only shared state and each is
// internally synchronized.
type Fetcher struct {
	client   *http.Client
	cfg      config.FetchConfig
	robots   *RobotsCache
	limiters *hostLimiters
	breakers *resilience.HostBreakers
	cache    BodyCache
	cacheTTL time.Duration
	retry    resilience.RetryConfig
	nowFunc  func() time.Time
}

// New creates a Fetcher from config. cache may be nil.
func New(cfg config.FetchConfig, cache BodyCache, cacheTTL time.Duration) *Fetcher {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retry := resilience.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxAttempts = cfg.MaxRetries
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cfg:      cfg,
		robots:   NewRobotsCache(cfg.UserAgent, timeout),
		limiters: newHostLimiters(cfg.HostRequestsPerS),
		breakers: resilience.NewHostBreakers(resilience.DefaultCircuitBreakerConfig()),
		cache:    cache,
		cacheTTL: cacheTTL,
		retry:    retry,
		nowFunc:  time.Now,
	}
}

// WithRetryConfig overrides the backoff schedule. Used by tests to avoid
// real sleeps.
func (f *Fetcher) WithRetryConfig(cfg resilience.RetryConfig) *Fetcher {
	f.retry = cfg
	return f
}

// WithNow sets a fixed clock for testing.
func (f *Fetcher) WithNow(nowFunc func() time.Time) *Fetcher {
	f.nowFunc = nowFunc
	return f
}

// FetchRestaurant tries the restaurant's candidate URLs in order and
// short-circuits on the first success. Every attempt is reported in the
// returned slice, including robots skips and exhausted failures.
func (f *Fetcher) FetchRestaurant(ctx context.Context, r model.Restaurant) []model.ScrapeResult {
	urls := r.CandidateURLs()
	results := make([]model.ScrapeResult, 0, len(urls))

	for _, u := range urls {
		res := f.fetchURL(ctx, r.Slug, u)
		results = append(results, res)
		if res.OK() {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	if !anyOK(results) {
		zap.L().Warn("fetcher: no successful fetch for restaurant",
			zap.String("slug", r.Slug),
			zap.Int("urls_tried", len(results)),
		)
	}
	return results
}

func anyOK(results []model.ScrapeResult) bool {
	for _, r := range results {
		if r.OK() {
			return true
		}
	}
	return false
}

// fetchURL performs one cache-or-network fetch with the full politeness stack.
func (f *Fetcher) fetchURL(ctx context.Context, slug, rawURL string) model.ScrapeResult {
	res := model.ScrapeResult{
		RestaurantSlug: slug,
		SourceURL:      rawURL,
		FetchedAt:      f.nowFunc().UTC(),
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		res.Error = "invalid url"
		return res
	}

	if f.cache != nil {
		if body, ok, cacheErr := f.cache.GetCachedBody(ctx, rawURL); cacheErr != nil {
			zap.L().Warn("fetcher: cache lookup failed", zap.String("url", rawURL), zap.Error(cacheErr))
		} else if ok {
			zap.L().Debug("fetcher: cache hit", zap.String("url", rawURL))
			res.Body = body
			res.StatusCode = http.StatusOK
			return res
		}
	}

	if f.cfg.RespectRobots && !f.robots.Allowed(ctx, rawURL) {
		zap.L().Info("fetcher: robots.txt disallows url",
			zap.String("slug", slug),
			zap.String("url", rawURL),
		)
		res.Error = "robots.txt disallow"
		return res
	}

	breaker := f.breakers.Get(u.Host)
	body, err := resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (string, error) {
		return f.getWithRetry(ctx, u.Host, rawURL)
	})
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Body = body
	res.StatusCode = http.StatusOK

	if f.cache != nil {
		if cacheErr := f.cache.SetCachedBody(ctx, rawURL, body, f.cacheTTL); cacheErr != nil {
			zap.L().Warn("fetcher: cache store failed", zap.String("url", rawURL), zap.Error(cacheErr))
		}
	}
	return res
}

// getWithRetry performs the rate-limited GET with the scraping retry policy:
// network errors retried with backoff, 4xx permanent, 5xx retried once.
func (f *Fetcher) getWithRetry(ctx context.Context, host, rawURL string) (string, error) {
	retryCfg := f.retry
	retryCfg.OnRetry = resilience.RetryLogger(host, "get")

	serverErrRetries := 0
	retryCfg.ShouldRetry = func(err error) bool {
		var te *resilience.TransientError
		if errors.As(err, &te) && te.StatusCode >= 500 {
			serverErrRetries++
			return serverErrRetries <= 1
		}
		return resilience.IsTransient(err)
	}

	return resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (string, error) {
		if err := f.limiters.get(host).Wait(ctx); err != nil {
			return "", eris.Wrap(err, "fetcher: rate limiter wait")
		}
		return f.get(ctx, rawURL)
	})
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: get")
	}
	defer func() { _ = resp.Body.Close() }()

	maxBody := int64(f.cfg.MaxBodyKB) * 1024
	if maxBody <= 0 {
		maxBody = 512 * 1024
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", eris.Wrap(err, "fetcher: read body")
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", resilience.NewTransientError(
			eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL), resp.StatusCode)
	case resp.StatusCode >= 400:
		return "", resilience.NewPermanentError(
			eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL), resp.StatusCode)
	}

	if len(body) < 100 {
		return "", resilience.NewPermanentError(eris.Errorf("fetcher: empty page %s", rawURL), resp.StatusCode)
	}

	body = decodeCharset(resp.Header.Get("Content-Type"), body)
	return string(body), nil
}
