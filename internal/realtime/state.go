package realtime

import (
	"context"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"edusocial/internal/logger"
)

// State mirrors the coarse connection status shown to the user.
type State struct {
	mu        sync.Mutex
	name      string
	connected bool
	attempts  int
	retries   int
	listeners []func(bool)
	log       logger.Logger
}

func NewState(name string, log logger.Logger) *State {
	return &State{name: name, log: log}
}

func (s *State) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Attempts counts failed connections since the last success, leaving out
// refused connections.
func (s *State) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *State) OnChange(fn func(connected bool)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *State) setConnected(v bool) {
	s.mu.Lock()
	changed := s.connected != v
	s.connected = v
	if v {
		s.attempts, s.retries = 0, 0
	}
	listeners := append([]func(bool){}, s.listeners...)
	s.mu.Unlock()

	if !changed {
		return
	}
	if v {
		s.log.Info(s.name + " connected")
	} else {
		s.log.Info(s.name + " disconnected")
	}
	for _, fn := range listeners {
		fn(v)
	}
}

// recordFailure logs err and returns the number of consecutive failures.
func (s *State) recordFailure(err error) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries++
	if !isConnRefused(err) {
		s.attempts++
	}
	if err != nil {
		s.log.Warn(s.name+" connection error", err.Error())
	}
	return s.retries
}

func isConnRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED) || strings.Contains(err.Error(), "ECONNREFUSED")
}

// Session is one dial-handshake-read cycle. It calls ready after the
// handshake and returns when the connection ends.
type Session func(ctx context.Context, ready func()) error

// Supervise runs session with a fixed delay between cycles until ctx is done
// or MaxRetryAttempts reconnects in a row have failed. The outcome of the
// first cycle is sent on first, which must have room for one value.
func (s *State) Supervise(ctx context.Context, opts Options, session Session, first chan<- error) {
	reported := false
	report := func(err error) {
		if !reported {
			reported = true
			first <- err
		}
	}

	for {
		err := session(ctx, func() {
			s.setConnected(true)
			report(nil)
		})
		s.setConnected(false)
		if ctx.Err() != nil {
			report(ctx.Err())
			return
		}

		failures := s.recordFailure(err)
		report(errors.Wrap(ErrNotConnected, errString(err)))
		if failures > opts.MaxRetryAttempts {
			s.log.Warn(s.name+" giving up", errors.Wrapf(ErrGaveUp, "%d reconnects failed", failures-1))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(opts.ReconnectDelay):
		}
	}
}

func errString(err error) string {
	if err == nil {
		return "connection closed"
	}
	return err.Error()
}
