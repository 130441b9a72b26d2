package roundtrip

import (
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Logging logs every outbound request with the logger from the request
// context. Successful exchanges log at debug level, transport failures and
// 5xx responses at warn.
func Logging() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return Func(func(r *http.Request) (*http.Response, error) {
			lg := zctx.From(r.Context())
			start := time.Now()

			resp, err := next.RoundTrip(r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)),
			}
			if id := r.Header.Get(RequestIDHeader); id != "" {
				fields = append(fields, zap.String("request_id", id))
			}

			switch {
			case err != nil:
				lg.Warn("Request failed", append(fields, zap.Error(err))...)
			case resp.StatusCode >= http.StatusInternalServerError:
				lg.Warn("Request returned server error", append(fields, zap.Int("status", resp.StatusCode))...)
			default:
				lg.Debug("Request", append(fields, zap.Int("status", resp.StatusCode))...)
			}
			return resp, err
		})
	}
}
