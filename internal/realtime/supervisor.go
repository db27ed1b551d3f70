package realtime

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Supervisor is the connection plumbing both transports share: the
// reconnect loop, the live websocket and serialized writes to it.
// Transports embed it and supply the protocol as a Session.
type Supervisor struct {
	opts   Options
	state  *State
	dialer *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}

	writeMu sync.Mutex
}

func NewSupervisor(name string, opts Options) *Supervisor {
	return &Supervisor{
		opts:   opts,
		state:  NewState(name, opts.Logger),
		dialer: &websocket.Dialer{HandshakeTimeout: opts.DialTimeout},
	}
}

// Start replaces any running loop with one driving session and waits for
// the outcome of its first attempt.
func (s *Supervisor) Start(ctx context.Context, session Session) error {
	s.Stop()

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	first := make(chan error, 1)

	s.mu.Lock()
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.state.Supervise(runCtx, s.opts, session, first)
	}()

	select {
	case err := <-first:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels the loop and waits for it to exit.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Supervisor) Connected() bool { return s.state.Connected() }

func (s *Supervisor) Attempts() int { return s.state.Attempts() }

func (s *Supervisor) OnStateChange(fn func(bool)) { s.state.OnChange(fn) }

func (s *Supervisor) Options() Options { return s.opts }

// Dial opens wsURL, bounded by DialTimeout when one is set. The socket is
// closed when ctx ends; release closes it early.
func (s *Supervisor) Dial(ctx context.Context, wsURL string) (conn *websocket.Conn, release func(), err error) {
	dialCtx := ctx
	if s.opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, s.opts.DialTimeout)
		defer cancel()
	}
	conn, _, err = s.dialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "dialing "+wsURL)
	}

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	var once sync.Once
	return conn, func() {
		once.Do(func() {
			close(stop)
			_ = conn.Close()
		})
	}, nil
}

// Attach publishes conn as the live connection until detach is called.
func (s *Supervisor) Attach(conn *websocket.Conn) (detach func()) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()
	}
}

// Conn is the live connection, nil while disconnected.
func (s *Supervisor) Conn() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// Write sends one text message; writes from all goroutines go through here.
func (s *Supervisor) Write(conn *websocket.Conn, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}
