package roundtrip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures the last request that reached the innermost transport.
type recorder struct {
	last  *http.Request
	calls int
}

func (rec *recorder) RoundTrip(r *http.Request) (*http.Response, error) {
	rec.last = r
	rec.calls++
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       http.NoBody,
		Header:     make(http.Header),
		Request:    r,
	}, nil
}

func newRequest(t *testing.T, ctx context.Context) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://shop.test/api/cart", nil)
	require.NoError(t, err)
	return req
}

func TestWrap_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return Func(func(r *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(r)
			})
		}
	}

	rt := Wrap(&recorder{}, mark("outer"), mark("inner"))
	_, err := rt.RoundTrip(newRequest(t, context.Background()))
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestRequestID_Generated(t *testing.T) {
	rec := &recorder{}
	rt := Wrap(rec, RequestID())

	req := newRequest(t, context.Background())
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)

	id := rec.last.Header.Get(RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Empty(t, req.Header.Get(RequestIDHeader), "original request must not be mutated")
}

func TestRequestID_FromContext(t *testing.T) {
	rec := &recorder{}
	rt := Wrap(rec, RequestID())

	ctx := WithRequestID(context.Background(), "sync-42")
	_, err := rt.RoundTrip(newRequest(t, ctx))
	require.NoError(t, err)
	assert.Equal(t, "sync-42", rec.last.Header.Get(RequestIDHeader))
}

func TestRequestID_InvalidContextValueReplaced(t *testing.T) {
	rec := &recorder{}
	rt := Wrap(rec, RequestID())

	ctx := WithRequestID(context.Background(), "bad\nid")
	_, err := rt.RoundTrip(newRequest(t, ctx))
	require.NoError(t, err)
	assert.Len(t, rec.last.Header.Get(RequestIDHeader), 36)
}

func TestRequestID_ExistingHeaderKept(t *testing.T) {
	rec := &recorder{}
	rt := Wrap(rec, RequestID())

	req := newRequest(t, context.Background())
	req.Header.Set(RequestIDHeader, "caller-id")
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, "caller-id", rec.last.Header.Get(RequestIDHeader))
}

func TestBearerToken(t *testing.T) {
	t.Run("sets header", func(t *testing.T) {
		rec := &recorder{}
		rt := Wrap(rec, BearerToken(StaticToken("tok")))
		_, err := rt.RoundTrip(newRequest(t, context.Background()))
		require.NoError(t, err)
		assert.Equal(t, "Bearer tok", rec.last.Header.Get("Authorization"))
	})

	t.Run("empty token is anonymous", func(t *testing.T) {
		rec := &recorder{}
		rt := Wrap(rec, BearerToken(StaticToken("")))
		_, err := rt.RoundTrip(newRequest(t, context.Background()))
		require.NoError(t, err)
		assert.Empty(t, rec.last.Header.Get("Authorization"))
	})

	t.Run("explicit header wins", func(t *testing.T) {
		rec := &recorder{}
		rt := Wrap(rec, BearerToken(StaticToken("tok")))
		req := newRequest(t, context.Background())
		req.Header.Set("Authorization", "Basic abc")
		_, err := rt.RoundTrip(req)
		require.NoError(t, err)
		assert.Equal(t, "Basic abc", rec.last.Header.Get("Authorization"))
	})
}

func TestLogging_PassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := &http.Client{Transport: Wrap(nil, RequestID(), Logging())}
	resp, err := client.Get(srv.URL + "/api/cart")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRateLimit_Disabled(t *testing.T) {
	rec := &recorder{}
	rt := Wrap(rec, RateLimit(RateLimitConfig{}))
	for range 10 {
		_, err := rt.RoundTrip(newRequest(t, context.Background()))
		require.NoError(t, err)
	}
	assert.Equal(t, 10, rec.calls)
}

func TestRateLimit_WaitsForCapacity(t *testing.T) {
	start := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	now := start
	var slept time.Duration

	rl := newRateLimiter(RateLimitConfig{Max: 2, Window: time.Minute})
	rl.now = func() time.Time { return now }
	rl.sleep = func(_ context.Context, d time.Duration) error {
		slept += d
		now = now.Add(d)
		return nil
	}

	rec := &recorder{}
	rt := Wrap(rec, rateLimitMiddleware(rl))

	for range 2 {
		_, err := rt.RoundTrip(newRequest(t, context.Background()))
		require.NoError(t, err)
	}
	assert.Zero(t, slept, "requests under the limit do not wait")

	_, err := rt.RoundTrip(newRequest(t, context.Background()))
	require.NoError(t, err)
	assert.Equal(t, 3, rec.calls)
	assert.GreaterOrEqual(t, slept, time.Minute)
	assert.Less(t, slept, 2*time.Minute)
}

func TestRateLimit_ContextCancelled(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 1, Window: time.Hour})

	rec := &recorder{}
	rt := Wrap(rec, rateLimitMiddleware(rl))

	_, err := rt.RoundTrip(newRequest(t, context.Background()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = rt.RoundTrip(newRequest(t, ctx))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, rec.calls)
}

func TestRateLimit_KeyedByHost(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 1, Window: time.Hour})
	rl.sleep = func(context.Context, time.Duration) error {
		t.Fatal("distinct hosts must not wait on each other")
		return nil
	}

	rec := &recorder{}
	rt := Wrap(rec, rateLimitMiddleware(rl))

	for _, host := range []string{"a.test", "b.test"} {
		req, err := http.NewRequest(http.MethodGet, "http://"+host+"/", strings.NewReader(""))
		require.NoError(t, err)
		_, err = rt.RoundTrip(req)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, rec.calls)
}
