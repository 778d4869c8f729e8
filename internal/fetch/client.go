// Package fetch implements the single network I/O primitive for the
// pipeline: sequential GET/POST with a randomized client identity, a bounded
// retry policy, and typed failures the caller can branch on.
package fetch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/kallodavid/jobradar/internal/metrics"
)

// Config captures the HTTP client knobs.
type Config struct {
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries" yaml:"max_retries"`
	BackoffBase   time.Duration `mapstructure:"backoff_base" yaml:"backoff_base"`
	BackoffMax    time.Duration `mapstructure:"backoff_max" yaml:"backoff_max"`
	RateLimitStep time.Duration `mapstructure:"rate_limit_step" yaml:"rate_limit_step"`
	UserAgents    []string      `mapstructure:"user_agents" yaml:"user_agents"`
}

// Response is the outcome of a successful fetch.
type Response struct {
	Body       []byte
	StatusCode int
	// FinalURL is the URL after redirects; the login flow inspects it.
	FinalURL string
}

// PageCache stages raw page bodies on disk. Optional.
type PageCache interface {
	Get(url string) ([]byte, bool)
	Put(url string, body []byte) error
}

// Client issues HTTP requests through a shared colly backend so cookies
// (the source-site session) persist across calls, with no other hidden
// cross-call state.
type Client struct {
	base   *colly.Collector
	policy *RetryPolicy
	agents []string
	cache  PageCache
	logger *zap.Logger
}

// New constructs a Client. The cache may be nil.
func New(cfg Config, cache PageCache, logger *zap.Logger) (*Client, error) {
	base := colly.NewCollector(colly.Async(false))
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
	})
	if cfg.Timeout > 0 {
		base.SetRequestTimeout(cfg.Timeout)
	}

	return &Client{
		base:   base,
		policy: NewRetryPolicyWith(cfg.MaxRetries, cfg.BackoffBase, cfg.BackoffMax, cfg.RateLimitStep),
		agents: cfg.UserAgents,
		cache:  cache,
		logger: logger,
	}, nil
}

// Get fetches url with retries, writing the body through to the cache when
// one is configured.
func (c *Client) Get(ctx context.Context, url string) (Response, error) {
	resp, err := c.do(ctx, url, nil)
	if err != nil {
		return Response{}, err
	}
	if c.cache != nil {
		if cerr := c.cache.Put(url, resp.Body); cerr != nil {
			c.logger.Warn("page cache write failed", zap.String("url", url), zap.Error(cerr))
		}
	}
	return resp, nil
}

// GetCached returns the staged copy of url when present, otherwise fetches
// and stages it. Detail enrichment uses this path.
func (c *Client) GetCached(ctx context.Context, url string) (Response, error) {
	if c.cache != nil {
		if body, ok := c.cache.Get(url); ok {
			return Response{Body: body, StatusCode: http.StatusOK, FinalURL: url}, nil
		}
	}
	return c.Get(ctx, url)
}

// PostForm submits a form-encoded POST (the login flow) with retries.
func (c *Client) PostForm(ctx context.Context, url string, form map[string]string) (Response, error) {
	return c.do(ctx, url, form)
}

// do runs the attempt loop. A nil form means GET.
func (c *Client) do(ctx context.Context, url string, form map[string]string) (Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts(); attempt++ {
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}

		metrics.TotalRequests.Inc()
		resp, err := c.attempt(url, form)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		metrics.TotalRequestErrors.Inc()

		var re *RateLimitedError
		if errors.As(err, &re) {
			metrics.TotalRateLimitHits.Inc()
		}
		if !c.policy.ShouldRetry(err, attempt) {
			if retryable(err) {
				break
			}
			return Response{}, err
		}

		wait := c.policy.Backoff(err, attempt)
		c.logger.Warn("fetch attempt failed, backing off",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if err := sleep(ctx, wait); err != nil {
			return Response{}, err
		}
	}
	return Response{}, &TransportError{URL: url, Err: errors.Join(ErrUnreachable, lastErr)}
}

// attempt performs one request on a collector clone. Clones share the
// backend (and therefore the cookie jar) but get a fresh callback set.
func (c *Client) attempt(url string, form map[string]string) (Response, error) {
	collector := c.base.Clone()
	agent := pickUserAgent(c.agents)

	resultCh := make(chan attemptResult, 1)
	var once sync.Once
	send := func(res attemptResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", agent)
	})
	collector.OnResponse(func(r *colly.Response) {
		send(attemptResult{resp: Response{
			Body:       append([]byte(nil), r.Body...),
			StatusCode: r.StatusCode,
			FinalURL:   r.Request.URL.String(),
		}})
	})
	collector.OnError(func(r *colly.Response, err error) {
		send(attemptResult{err: classify(url, r, err)})
	})

	var err error
	if form != nil {
		err = collector.Post(url, form)
	} else {
		err = collector.Visit(url)
	}
	if err != nil {
		// A failed request still fires OnError with the response context;
		// prefer that classification. No result means the request was never
		// issued, which retrying cannot fix.
		select {
		case res := <-resultCh:
			return res.resp, res.err
		default:
			return Response{}, &RequestError{URL: url, Err: err}
		}
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		return res.resp, res.err
	default:
		return Response{}, &TransportError{URL: url, Err: errors.New("no response produced")}
	}
}

type attemptResult struct {
	resp Response
	err  error
}

func classify(url string, r *colly.Response, err error) error {
	status := 0
	if r != nil {
		status = r.StatusCode
	}
	switch {
	case status == http.StatusTooManyRequests:
		return &RateLimitedError{URL: url}
	case status >= 300:
		return &StatusError{URL: url, StatusCode: status}
	default:
		if err == nil {
			err = errors.New("unknown transport failure")
		}
		return &TransportError{URL: url, Err: err}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
