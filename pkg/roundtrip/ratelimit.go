package roundtrip

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// RateLimitConfig configures the outbound sliding window limiter.
type RateLimitConfig struct {
	// Max is the maximum number of requests allowed per window. Zero
	// disables limiting.
	Max int
	// Window is the duration of each sliding window.
	Window time.Duration
	// KeyFunc extracts the limit key from a request.
	// If nil, the request host is used.
	KeyFunc func(*http.Request) string
}

// entry tracks request counts across two adjacent windows for the sliding
// window algorithm.
type entry struct {
	prevCount float64
	prevStart time.Time
	currCount float64
	currStart time.Time
}

// rateLimiter holds the shared state for rate limiting.
type rateLimiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	entries map[string]*entry

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = hostKeyFunc
	}
	return &rateLimiter{
		cfg:     cfg,
		entries: make(map[string]*entry),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// allow checks whether a request identified by key fits in the window. It
// returns the window reset time and whether the request may proceed. The
// caller must NOT hold rl.mu.
func (rl *rateLimiter) allow(key string, now time.Time) (resetAt time.Time, allowed bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.entries[key]
	if !ok {
		e = &entry{currStart: now}
		rl.entries[key] = e
	}

	// Rotate window if the current window has elapsed.
	if now.Sub(e.currStart) >= rl.cfg.Window {
		e.prevCount = e.currCount
		e.prevStart = e.currStart
		e.currCount = 0
		e.currStart = now.Truncate(rl.cfg.Window)
		// If even the previous window is stale, zero it out.
		if now.Sub(e.prevStart) >= 2*rl.cfg.Window {
			e.prevCount = 0
		}
	}

	// Sliding window: weight previous window by how much of it overlaps
	// with the current sliding window.
	elapsed := now.Sub(e.currStart)
	overlapRatio := 1.0 - elapsed.Seconds()/rl.cfg.Window.Seconds()
	if overlapRatio < 0 {
		overlapRatio = 0
	}
	effectiveCount := e.prevCount*overlapRatio + e.currCount
	resetAt = e.currStart.Add(rl.cfg.Window)

	if effectiveCount >= float64(rl.cfg.Max) {
		return resetAt, false
	}

	e.currCount++
	return resetAt, true
}

// wait blocks until key may send another request or ctx is done.
func (rl *rateLimiter) wait(ctx context.Context, key string) error {
	for {
		now := rl.now()
		resetAt, ok := rl.allow(key, now)
		if ok {
			return nil
		}
		// Re-check at least every tenth of a window: the previous window's
		// weight decays continuously, so capacity frees up before resetAt.
		d := min(resetAt.Sub(now), rl.cfg.Window/10)
		if d <= 0 {
			d = time.Millisecond
		}
		if err := rl.sleep(ctx, d); err != nil {
			return err
		}
	}
}

// RateLimit returns a middleware that paces outbound requests to at most
// cfg.Max per cfg.Window per key. Requests over the limit wait for capacity
// instead of failing; a cancelled request context aborts the wait.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next http.RoundTripper) http.RoundTripper { return next }
	}
	rl := newRateLimiter(cfg)
	return rateLimitMiddleware(rl)
}

func rateLimitMiddleware(rl *rateLimiter) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return Func(func(r *http.Request) (*http.Response, error) {
			if err := rl.wait(r.Context(), rl.cfg.KeyFunc(r)); err != nil {
				return nil, err
			}
			return next.RoundTrip(r)
		})
	}
}

func hostKeyFunc(r *http.Request) string {
	return r.URL.Host
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
