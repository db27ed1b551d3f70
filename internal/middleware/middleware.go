package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"edusocial/internal/logger"
)

type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// TokenSource is the part of the session the transport needs.
type TokenSource interface {
	Token() string
}

// SessionClearer is called when the server rejects the current token.
type SessionClearer interface {
	TokenSource
	Clear() error
}

// Chain wraps base so that the first middleware is the outermost.
func Chain(base http.RoundTripper, middlewares ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(middlewares) - 1; i >= 0; i-- {
		base = middlewares[i](base)
	}
	return base
}

// Auth sets the bearer token unless the request already carries an Authorization header.
func Auth(tokens TokenSource) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get("Authorization") != "" {
				return next.RoundTrip(r)
			}
			token := tokens.Token()
			if token == "" {
				return next.RoundTrip(r)
			}
			r = r.Clone(r.Context())
			r.Header.Set("Authorization", "Bearer "+token)
			return next.RoundTrip(r)
		})
	}
}

func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get("X-Request-ID") == "" {
				r = r.Clone(r.Context())
				r.Header.Set("X-Request-ID", uuid.New().String())
			}
			return next.RoundTrip(r)
		})
	}
}

func Logging(log logger.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			if err != nil {
				log.Warn("request failed", r.Method+" "+r.URL.Path, err)
				return nil, err
			}
			log.Debug("request", r.Method+" "+r.URL.Path, resp.StatusCode, time.Since(start).String(), r.Header.Get("X-Request-ID"))
			return resp, nil
		})
	}
}

// Unauthorized clears the session on a 401 for requests that carried the
// session's own token, then calls hook. Login attempts are left alone.
func Unauthorized(sess SessionClearer, log logger.Logger, hook func()) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(r)
			if err != nil || resp.StatusCode != http.StatusUnauthorized {
				return resp, err
			}
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" || token != sess.Token() {
				return resp, nil
			}
			log.Warn("session rejected by server, clearing", r.URL.Path)
			if cerr := sess.Clear(); cerr != nil {
				log.Error("clearing session", cerr)
			}
			if hook != nil {
				hook()
			}
			return resp, nil
		})
	}
}
