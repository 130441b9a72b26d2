// Package health runs one-shot dependency checks and reports the result.
//
// Checks run concurrently, each bounded by its own timeout. A check that
// fails or times out marks the report unhealthy but does not stop the others.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// CheckFunc is a health check function. It should return nil if the checked
// component is healthy, or an error describing the problem.
type CheckFunc func(ctx context.Context) error

// Report statuses.
const (
	StatusOK        = "ok"
	StatusUnhealthy = "unhealthy"
)

type checkConfig struct {
	name    string
	timeout time.Duration
	check   CheckFunc
}

// run executes the check once under its timeout.
func (c *checkConfig) run(ctx context.Context) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.check(ctx)
}

// Checker holds the registered checks.
type Checker struct {
	mu     sync.Mutex
	checks []*checkConfig
}

// New creates an empty Checker.
func New() *Checker {
	return &Checker{}
}

// Add registers a check. A zero timeout leaves the check bounded only by the
// context passed to Run.
func (h *Checker) Add(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.checks = append(h.checks, &checkConfig{
		name:    name,
		timeout: timeout,
		check:   check,
	})
}

// Report is the outcome of one Run. Checks maps every check name to "ok" or
// its error message.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthy reports whether every check passed.
func (r Report) Healthy() bool {
	return r.Status == StatusOK
}

// Failed returns the names of failed checks, sorted.
func (r Report) Failed() []string {
	var failed []string
	for name, msg := range r.Checks {
		if msg != StatusOK {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)
	return failed
}

// Run executes every check concurrently and waits for all of them.
func (h *Checker) Run(ctx context.Context) Report {
	h.mu.Lock()
	checks := make([]*checkConfig, len(h.checks))
	copy(checks, h.checks)
	h.mu.Unlock()

	results := make([]error, len(checks))
	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			results[i] = c.run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Status: StatusOK, Checks: make(map[string]string, len(checks))}
	for i, c := range checks {
		if err := results[i]; err != nil {
			report.Status = StatusUnhealthy
			report.Checks[c.name] = err.Error()
			continue
		}
		report.Checks[c.name] = StatusOK
	}
	return report
}
