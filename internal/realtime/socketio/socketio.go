// Package socketio is the Socket.IO v5 transport over the Engine.IO v4
// websocket transport. Destinations are event names.
package socketio

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"edusocial/internal/logger"
	"edusocial/internal/realtime"
)

// Engine.IO packet types.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
)

// Socket.IO packet types, carried inside an Engine.IO message.
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioConnectError = '4'
)

// OnlineUsersEvent carries the list of connected users.
const OnlineUsersEvent = "getUsers"

type openPacket struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

type Client struct {
	*realtime.Supervisor
	registry *realtime.Registry
	log      logger.Logger

	mu     sync.Mutex
	online []string
}

var _ realtime.Transport = (*Client)(nil)

func New(opts realtime.Options) *Client {
	return &Client{
		Supervisor: realtime.NewSupervisor("socket.io", opts),
		registry:   realtime.NewRegistry(),
		log:        opts.Logger,
	}
}

func (c *Client) Connect(ctx context.Context, token string) error {
	return c.Start(ctx, c.session(token))
}

func (c *Client) Disconnect() error {
	if conn := c.Conn(); conn != nil {
		_ = c.writeText(conn, string([]byte{eioMessage, sioDisconnect}))
	}
	c.Stop()
	return nil
}

// Subscribe registers an event handler; Socket.IO needs no server round trip.
func (c *Client) Subscribe(event string, cb realtime.Callback) *realtime.Subscription {
	sub, _ := c.registry.Add(event, cb)
	return sub
}

func (c *Client) Unsubscribe(event string) {
	c.registry.Remove(event)
}

// SendMessage emits event with body as its single argument.
func (c *Client) SendMessage(event string, body interface{}) bool {
	conn := c.Conn()
	if conn == nil {
		c.log.Debug("socket.io emit while disconnected", event)
		return false
	}
	data, err := realtime.Encode(body)
	if err != nil {
		c.log.Warn("socket.io emit: encoding body", event, err)
		return false
	}
	packet, err := json.Marshal([]interface{}{event, json.RawMessage(data)})
	if err != nil {
		c.log.Warn("socket.io emit: encoding packet", event, err)
		return false
	}
	if err := c.writeText(conn, string([]byte{eioMessage, sioEvent})+string(packet)); err != nil {
		c.log.Warn("socket.io emit failed", event, err)
		return false
	}
	return true
}

// OnlineUsers is the last user id list pushed with the getUsers event.
func (c *Client) OnlineUsers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.online...)
}

func (c *Client) writeText(conn *websocket.Conn, s string) error {
	return c.Write(conn, []byte(s))
}

func (c *Client) session(token string) realtime.Session {
	return func(ctx context.Context, ready func()) error {
		wsURL, err := realtime.WebsocketURL(c.Options().URL, "/socket.io/", url.Values{
			"EIO":       {"4"},
			"transport": {"websocket"},
		})
		if err != nil {
			return err
		}
		conn, release, err := c.Dial(ctx, wsURL)
		if err != nil {
			return err
		}
		defer release()

		open, err := c.handshake(conn, token)
		if err != nil {
			return err
		}

		defer c.Attach(conn)()
		ready()

		var deadline time.Duration
		if open.PingInterval > 0 {
			deadline = time.Duration(open.PingInterval+open.PingTimeout) * time.Millisecond
		}

		for {
			if deadline > 0 {
				_ = conn.SetReadDeadline(time.Now().Add(deadline))
			}
			_, data, err := conn.ReadMessage()
			if err != nil {
				return err
			}
			if err := c.handle(conn, string(data)); err != nil {
				return err
			}
		}
	}
}

// handshake reads the Engine.IO open packet and connects the default
// namespace with the token as auth payload.
func (c *Client) handshake(conn *websocket.Conn, token string) (*openPacket, error) {
	if timeout := c.Options().DialTimeout; timeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(timeout))
		defer conn.SetReadDeadline(time.Time{})
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, errors.Wrap(err, "waiting for open packet")
	}
	if len(data) == 0 || data[0] != eioOpen {
		return nil, errors.Errorf("unexpected first packet %q", data)
	}
	var open openPacket
	if err := json.Unmarshal(data[1:], &open); err != nil {
		return nil, errors.Wrap(err, "decoding open packet")
	}

	auth, _ := json.Marshal(map[string]string{"token": token})
	if err := c.writeText(conn, string([]byte{eioMessage, sioConnect})+string(auth)); err != nil {
		return nil, errors.Wrap(err, "sending namespace connect")
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, errors.Wrap(err, "waiting for namespace connect")
		}
		msg := string(data)
		switch {
		case msg == string(eioPing):
			if err := c.writeText(conn, string(eioPong)); err != nil {
				return nil, err
			}
		case len(msg) >= 2 && msg[0] == eioMessage && msg[1] == sioConnect:
			return &open, nil
		case len(msg) >= 2 && msg[0] == eioMessage && msg[1] == sioConnectError:
			var e struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal([]byte(msg[2:]), &e)
			return nil, errors.Errorf("socket.io connect rejected: %s", e.Message)
		}
	}
}

func (c *Client) handle(conn *websocket.Conn, msg string) error {
	if msg == "" {
		return nil
	}
	switch msg[0] {
	case eioPing:
		return c.writeText(conn, string(eioPong)+msg[1:])
	case eioClose:
		return errors.New("server closed the engine.io session")
	case eioMessage:
	default:
		return nil
	}

	if len(msg) < 2 {
		return nil
	}
	switch msg[1] {
	case sioDisconnect:
		return errors.New("server disconnected the namespace")
	case sioEvent:
		c.dispatch(msg[2:])
	}
	return nil
}

// dispatch decodes `[event, payload]`, skipping an optional ack id prefix.
func (c *Client) dispatch(raw string) {
	if i := strings.IndexByte(raw, '['); i > 0 {
		raw = raw[i:]
	}
	var parts []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &parts); err != nil || len(parts) == 0 {
		c.log.Debug("socket.io: malformed event", raw)
		return
	}
	var event string
	if err := json.Unmarshal(parts[0], &event); err != nil {
		return
	}
	var body json.RawMessage
	if len(parts) > 1 {
		body = parts[1]
	}

	if event == OnlineUsersEvent {
		c.setOnline(body)
	}
	if cb, ok := c.registry.Lookup(event); ok {
		cb(body)
	}
}

func (c *Client) setOnline(body json.RawMessage) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		var id string
		if err := json.Unmarshal(item, &id); err == nil {
			ids = append(ids, id)
			continue
		}
		var u struct {
			UserID string `json:"userId"`
		}
		if err := json.Unmarshal(item, &u); err == nil && u.UserID != "" {
			ids = append(ids, u.UserID)
		}
	}
	c.mu.Lock()
	c.online = ids
	c.mu.Unlock()
}
