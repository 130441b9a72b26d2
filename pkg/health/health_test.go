package health

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passingCheck() CheckFunc {
	return func(_ context.Context) error {
		return nil
	}
}

func failingCheck(msg string) CheckFunc {
	return func(_ context.Context) error {
		return errors.New(msg)
	}
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestRun_AllPassing(t *testing.T) {
	h := New()
	h.Add("backend", time.Second, passingCheck())
	h.Add("storage", time.Second, passingCheck())

	r := h.Run(context.Background())

	assert.True(t, r.Healthy())
	assert.Equal(t, StatusOK, r.Status)
	assert.Equal(t, map[string]string{"backend": "ok", "storage": "ok"}, r.Checks)
	assert.Empty(t, r.Failed())
}

func TestRun_OneFailing(t *testing.T) {
	h := New()
	h.Add("backend", time.Second, passingCheck())
	h.Add("storage", time.Second, failingCheck("connection refused"))

	r := h.Run(context.Background())

	assert.False(t, r.Healthy())
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.Equal(t, "connection refused", r.Checks["storage"])
	assert.Equal(t, "ok", r.Checks["backend"])
	assert.Equal(t, []string{"storage"}, r.Failed())
}

func TestRun_Timeout(t *testing.T) {
	h := New()
	h.Add("slow", 20*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	r := h.Run(context.Background())

	assert.Less(t, time.Since(start), 5*time.Second)
	require.Contains(t, r.Checks, "slow")
	assert.Contains(t, r.Checks["slow"], "deadline exceeded")
}

func TestRun_NoChecks(t *testing.T) {
	r := New().Run(context.Background())
	assert.True(t, r.Healthy())
	assert.Empty(t, r.Checks)
}

func TestPingCheck(t *testing.T) {
	ok := PingCheck(pingerFunc(func(context.Context) error { return nil }))
	require.NoError(t, ok(context.Background()))

	bad := PingCheck(pingerFunc(func(context.Context) error { return errors.New("refused") }))
	err := bad(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}
