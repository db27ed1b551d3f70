// Package stomp is the STOMP 1.2 transport, spoken over the raw websocket
// endpoint of a SockJS server.
package stomp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"edusocial/internal/logger"
	"edusocial/internal/realtime"
)

const (
	cmdConnect     = "CONNECT"
	cmdConnected   = "CONNECTED"
	cmdSubscribe   = "SUBSCRIBE"
	cmdUnsubscribe = "UNSUBSCRIBE"
	cmdSend        = "SEND"
	cmdMessage     = "MESSAGE"
	cmdError       = "ERROR"
	cmdDisconnect  = "DISCONNECT"

	hdrAcceptVersion = "accept-version"
	hdrHost          = "host"
	hdrHeartBeat     = "heart-beat"
	hdrAuthorization = "Authorization"
	hdrDestination   = "destination"
	hdrID            = "id"
	hdrAck           = "ack"
	hdrSubscription  = "subscription"
	hdrContentType   = "content-type"
	hdrContentLength = "content-length"
	hdrMessage       = "message"

	// SendPrefix is prepended to every SEND destination.
	SendPrefix = "/app"

	clientHeartBeat = 10 * time.Second
)

type Client struct {
	*realtime.Supervisor
	registry *realtime.Registry
	log      logger.Logger
}

var _ realtime.Transport = (*Client)(nil)

func New(opts realtime.Options) *Client {
	return &Client{
		Supervisor: realtime.NewSupervisor("stomp", opts),
		registry:   realtime.NewRegistry(),
		log:        opts.Logger,
	}
}

// Connect starts the connection loop and waits for the first attempt.
// Calling it again restarts the loop with a fresh retry budget.
func (c *Client) Connect(ctx context.Context, token string) error {
	return c.Start(ctx, c.session(token))
}

func (c *Client) Disconnect() error {
	if conn := c.Conn(); conn != nil {
		_ = c.write(conn, frame.New(cmdDisconnect))
	}
	c.Stop()
	return nil
}

func (c *Client) Subscribe(destination string, cb realtime.Callback) *realtime.Subscription {
	sub, replaced := c.registry.Add(destination, cb)
	if conn := c.Conn(); conn != nil {
		if replaced != nil {
			_ = c.write(conn, unsubscribeFrame(replaced))
		}
		if err := c.write(conn, subscribeFrame(sub)); err != nil {
			c.log.Warn("stomp subscribe failed", destination, err)
		}
	}
	return sub
}

func (c *Client) Unsubscribe(destination string) {
	old := c.registry.Remove(destination)
	if old == nil {
		return
	}
	if conn := c.Conn(); conn != nil {
		_ = c.write(conn, unsubscribeFrame(old))
	}
}

// SendMessage publishes body as JSON to SendPrefix+destination.
func (c *Client) SendMessage(destination string, body interface{}) bool {
	conn := c.Conn()
	if conn == nil {
		c.log.Debug("stomp send while disconnected", destination)
		return false
	}
	data, err := realtime.Encode(body)
	if err != nil {
		c.log.Warn("stomp send: encoding body", destination, err)
		return false
	}
	f := frame.New(cmdSend,
		hdrDestination, SendPrefix+destination,
		hdrContentType, "application/json",
		hdrContentLength, strconv.Itoa(len(data)),
	)
	f.Body = data
	if err := c.write(conn, f); err != nil {
		c.log.Warn("stomp send failed", destination, err)
		return false
	}
	return true
}

func subscribeFrame(sub *realtime.Subscription) *frame.Frame {
	return frame.New(cmdSubscribe, hdrID, sub.ID, hdrDestination, sub.Destination, hdrAck, "auto")
}

func unsubscribeFrame(sub *realtime.Subscription) *frame.Frame {
	return frame.New(cmdUnsubscribe, hdrID, sub.ID)
}

func (c *Client) write(conn *websocket.Conn, f *frame.Frame) error {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return errors.Wrap(err, "encoding frame")
	}
	return c.Write(conn, buf.Bytes())
}

// readFrames reads one websocket message, which may hold several frames or
// only heart-beats.
func readFrames(conn *websocket.Conn) ([]*frame.Frame, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	r := frame.NewReader(bytes.NewReader(data))
	var out []*frame.Frame
	for {
		f, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, errors.Wrap(err, "decoding frame")
		}
		if f != nil {
			out = append(out, f)
		}
	}
}

func (c *Client) session(token string) realtime.Session {
	return func(ctx context.Context, ready func()) error {
		wsURL, err := realtime.WebsocketURL(c.Options().URL, "/websocket", nil)
		if err != nil {
			return err
		}
		conn, release, err := c.Dial(ctx, wsURL)
		if err != nil {
			return err
		}
		defer release()

		host := wsURL
		if u, err := url.Parse(wsURL); err == nil {
			host = u.Hostname()
		}
		connect := frame.New(cmdConnect,
			hdrAcceptVersion, "1.2",
			hdrHost, host,
			hdrHeartBeat, strconv.Itoa(int(clientHeartBeat/time.Millisecond))+",0",
			hdrAuthorization, "Bearer "+token,
		)
		if err := c.write(conn, connect); err != nil {
			return errors.Wrap(err, "sending CONNECT")
		}

		connected, err := c.awaitConnected(conn)
		if err != nil {
			return err
		}

		defer c.Attach(conn)()

		for _, sub := range c.registry.All() {
			if err := c.write(conn, subscribeFrame(sub)); err != nil {
				return errors.Wrap(err, "resubscribing")
			}
		}
		ready()

		if interval := heartBeatInterval(connected.Header.Get(hdrHeartBeat)); interval > 0 {
			stop := make(chan struct{})
			defer close(stop)
			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-stop:
						return
					case <-ticker.C:
						if err := c.Write(conn, []byte("\n")); err != nil {
							return
						}
					}
				}
			}()
		}

		for {
			frames, err := readFrames(conn)
			if err != nil {
				return err
			}
			for _, f := range frames {
				switch f.Command {
				case cmdMessage:
					c.dispatch(f)
				case cmdError:
					return errors.Errorf("stomp error: %s", f.Header.Get(hdrMessage))
				}
			}
		}
	}
}

func (c *Client) awaitConnected(conn *websocket.Conn) (*frame.Frame, error) {
	if timeout := c.Options().DialTimeout; timeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(timeout))
		defer conn.SetReadDeadline(time.Time{})
	}
	for {
		frames, err := readFrames(conn)
		if err != nil {
			return nil, errors.Wrap(err, "waiting for CONNECTED")
		}
		for _, f := range frames {
			switch f.Command {
			case cmdConnected:
				return f, nil
			case cmdError:
				return nil, errors.Errorf("stomp connect rejected: %s", f.Header.Get(hdrMessage))
			}
		}
	}
}

// heartBeatInterval is how often we must send, given the server's
// "cx,cy" header: max(our interval, what the server wants to receive).
func heartBeatInterval(header string) time.Duration {
	parts := strings.Split(header, ",")
	if len(parts) != 2 {
		return 0
	}
	wants, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || wants <= 0 {
		return 0
	}
	d := time.Duration(wants) * time.Millisecond
	if d < clientHeartBeat {
		d = clientHeartBeat
	}
	return d
}

func (c *Client) dispatch(f *frame.Frame) {
	cb, ok := c.registry.Lookup(f.Header.Get(hdrDestination))
	if !ok {
		cb, ok = c.registry.LookupID(f.Header.Get(hdrSubscription))
	}
	if !ok {
		c.log.Debug("stomp message without subscriber", f.Header.Get(hdrDestination))
		return
	}
	body := make(json.RawMessage, len(f.Body))
	copy(body, f.Body)
	cb(body)
}
