// Package realtime holds the transport contract shared by the STOMP and
// Socket.IO clients, plus the connection state and subscription registry
// both of them use.
package realtime

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"edusocial/internal/config"
	"edusocial/internal/logger"
)

var (
	ErrNotConnected = errors.New("realtime: not connected")
	ErrGaveUp       = errors.New("realtime: retry limit reached")
)

// Callback receives the raw JSON body of a message for one destination.
type Callback func(body json.RawMessage)

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	ID          string
	Destination string
}

// Transport is one live, token-authenticated connection.
//
// Subscribe replaces any earlier subscription to the same destination and
// works before Connect; registered destinations are (re)subscribed on every
// successful connect. SendMessage only reports whether the frame was handed
// to the socket.
type Transport interface {
	Connect(ctx context.Context, token string) error
	Disconnect() error
	Subscribe(destination string, cb Callback) *Subscription
	Unsubscribe(destination string)
	SendMessage(destination string, body interface{}) bool
	Connected() bool
	Attempts() int
	OnStateChange(fn func(connected bool))
}

type Options struct {
	URL              string
	ReconnectDelay   time.Duration
	MaxRetryAttempts int
	DialTimeout      time.Duration
	Logger           logger.Logger
}

func OptionsFrom(cfg config.Realtime, log logger.Logger) Options {
	u := cfg.WSURL
	if cfg.Transport == config.TransportSocketIO {
		u = cfg.SocketURL
	}
	return Options{
		URL:              u,
		ReconnectDelay:   cfg.ReconnectDelay,
		MaxRetryAttempts: cfg.MaxRetryAttempts,
		DialTimeout:      cfg.DialTimeout,
		Logger:           log,
	}
}

// WebsocketURL rewrites an http(s) base into ws(s) and appends path.
func WebsocketURL(base, path string, query url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrapf(err, "parsing %s", base)
	}
	switch u.Scheme {
	case "http", "ws", "":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// Encode marshals a payload unless it is already raw JSON.
func Encode(body interface{}) ([]byte, error) {
	switch v := body.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	}
	return json.Marshal(body)
}
