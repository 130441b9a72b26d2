package roundtrip

import "net/http"

// TokenSource returns the current bearer token, or "" for anonymous requests.
type TokenSource func() string

// StaticToken returns a TokenSource for a fixed token.
func StaticToken(token string) TokenSource {
	return func() string { return token }
}

// BearerToken sets "Authorization: Bearer <token>" on requests that do not
// already carry an Authorization header. Requests go out anonymously when the
// source yields an empty token.
func BearerToken(src TokenSource) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return Func(func(r *http.Request) (*http.Response, error) {
			if src == nil || r.Header.Get("Authorization") != "" {
				return next.RoundTrip(r)
			}
			token := src()
			if token == "" {
				return next.RoundTrip(r)
			}
			r = r.Clone(r.Context())
			r.Header.Set("Authorization", "Bearer "+token)
			return next.RoundTrip(r)
		})
	}
}
