package inventory

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryConfig bounds how often a failed inventory query is repeated.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	RetryStatuses []int
}

// DefaultRetryConfig does not retry; callers opt in through config.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		RetryStatuses: []int{http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
	}
}

// RetryableHTTPClient repeats idempotent requests on transport errors and
// on the configured statuses. A Retry-After header in seconds overrides
// the computed backoff, capped at MaxDelay.
type RetryableHTTPClient struct {
	client *http.Client
	cfg    RetryConfig
	wait   func(ctx context.Context, d time.Duration) error
}

func NewRetryableHTTPClient(timeout time.Duration, cfg RetryConfig) *RetryableHTTPClient {
	return &RetryableHTTPClient{
		client: &http.Client{Timeout: timeout},
		cfg:    cfg,
		wait:   sleepCtx,
	}
}

// Do sends req. The request must not carry a body.
func (c *RetryableHTTPClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	for attempt := 0; ; attempt++ {
		resp, err := c.client.Do(req.Clone(ctx))
		last := attempt >= c.cfg.MaxRetries
		switch {
		case err != nil && last:
			return nil, err
		case err == nil && (last || !c.retryable(resp.StatusCode)):
			return resp, nil
		}

		delay := c.backoff(attempt)
		ev := log.Warn().
			Int("attempt", attempt+1).
			Int("max_retries", c.cfg.MaxRetries).
			Str("url", req.URL.Redacted())
		if err != nil {
			ev = ev.Err(err)
		} else {
			if d, ok := retryAfter(resp); ok {
				delay = min(d, c.cfg.MaxDelay)
			}
			ev = ev.Int("status", resp.StatusCode)
			resp.Body.Close()
		}
		ev.Dur("delay", delay).Msg("Inventory query failed, retrying")

		if err := c.wait(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (c *RetryableHTTPClient) retryable(status int) bool {
	for _, s := range c.cfg.RetryStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// backoff is exponential with +/-25% jitter.
func (c *RetryableHTTPClient) backoff(attempt int) time.Duration {
	d := float64(c.cfg.InitialDelay) * math.Pow(c.cfg.BackoffFactor, float64(attempt))
	d += d * 0.25 * (2*rand.Float64() - 1)
	if d > float64(c.cfg.MaxDelay) {
		d = float64(c.cfg.MaxDelay)
	}
	return time.Duration(d)
}

func retryAfter(resp *http.Response) (time.Duration, bool) {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
