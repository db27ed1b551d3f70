package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrUnauthorized matches any 401 response; errors.Is works on *Error.
var ErrUnauthorized = errors.New("unauthorized")

// DefaultRetryAfter is used when a 429 carries no usable Retry-After.
const DefaultRetryAfter = 300 * time.Second

// Error is a non-2xx response that has no more specific type.
type Error struct {
	Status            int
	Message           string
	AttemptsRemaining int
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// LockedError is a 423: too many failed logins.
type LockedError struct {
	Message         string
	LockedUntil     time.Time
	UnlockEmailSent bool
}

func (e *LockedError) Error() string {
	if e.LockedUntil.IsZero() {
		return "account locked: " + e.Message
	}
	return fmt.Sprintf("account locked until %s: %s", e.LockedUntil.Format(time.RFC3339), e.Message)
}

// RateLimitError is a 429.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

type errorBody struct {
	Message           string          `json:"message"`
	Error             string          `json:"error"`
	LockedUntil       string          `json:"lockedUntil"`
	UnlockEmailSent   bool            `json:"unlockEmailSent"`
	AttemptsRemaining int             `json:"attemptsRemaining"`
	RetryAfter        json.RawMessage `json:"retryAfter"`
}

// classify turns a non-2xx response into one of the typed errors.
func classify(resp *http.Response, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	msg := eb.Message
	if msg == "" {
		msg = eb.Error
	}
	if msg == "" && len(body) > 0 && len(body) < 512 && !json.Valid(body) {
		msg = strings.TrimSpace(string(body))
	}

	switch resp.StatusCode {
	case http.StatusLocked:
		le := &LockedError{Message: msg, UnlockEmailSent: eb.UnlockEmailSent}
		if eb.LockedUntil != "" {
			le.LockedUntil, _ = time.Parse(time.RFC3339, eb.LockedUntil)
		}
		return le
	case http.StatusTooManyRequests:
		return &RateLimitError{Message: msg, RetryAfter: retryAfter(resp.Header.Get("Retry-After"), eb.RetryAfter)}
	default:
		return &Error{Status: resp.StatusCode, Message: msg, AttemptsRemaining: eb.AttemptsRemaining}
	}
}

func retryAfter(header string, fromBody json.RawMessage) time.Duration {
	if header = strings.TrimSpace(header); header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if at, err := http.ParseTime(header); err == nil {
			if d := time.Until(at); d > 0 {
				return d.Round(time.Second)
			}
		}
	}
	var secs int
	if err := json.Unmarshal(fromBody, &secs); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return DefaultRetryAfter
}

// StatusCode extracts the HTTP status from an api error, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	var le *LockedError
	if errors.As(err, &le) {
		return http.StatusLocked
	}
	var re *RateLimitError
	if errors.As(err, &re) {
		return http.StatusTooManyRequests
	}
	return 0
}
