package logger

import (
	"io"
	"log"
	"os"

	"github.com/rollbar/rollbar-go"

	"edusocial/internal/config"
)

// Logger is what every component logs through.
// Args are printed after the message, one per line.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

type StdLogger struct {
	std   *log.Logger
	debug bool
}

var _ Logger = (*StdLogger)(nil)

func NewStdLogger(w io.Writer, prefix string, debug bool) *StdLogger {
	return &StdLogger{
		std:   log.New(w, prefix, log.LstdFlags|log.Lmicroseconds),
		debug: debug,
	}
}

// Discard is a Logger for tests.
func Discard() *StdLogger {
	return NewStdLogger(io.Discard, "", false)
}

func (l *StdLogger) print(level, msg string, args []interface{}) {
	l.std.Println(level + " " + msg)
	for _, arg := range args {
		l.std.Printf("  %+v\n", arg)
	}
}

func (l *StdLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		l.print("DEBUG", msg, args)
	}
}

func (l *StdLogger) Info(msg string, args ...interface{})  { l.print("INFO", msg, args) }
func (l *StdLogger) Warn(msg string, args ...interface{})  { l.print("WARN", msg, args) }
func (l *StdLogger) Error(msg string, args ...interface{}) { l.print("ERROR", msg, args) }

func (l *StdLogger) Fatal(msg string, args ...interface{}) {
	l.print("FATAL", msg, args)
	os.Exit(1)
}

// RollbarLogger reports warnings and errors to Rollbar and echoes everything to std.
type RollbarLogger struct {
	std *StdLogger
}

var _ Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *StdLogger, conf config.Rollbar) *RollbarLogger {
	rollbar.SetToken(conf.Token)
	rollbar.SetEnvironment(conf.Environment)
	rollbar.SetCodeVersion(conf.CodeVersion)
	if host, err := os.Hostname(); err == nil {
		rollbar.SetServerHost(host)
	}
	return &RollbarLogger{std: std}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

func (l *RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	out := make([]interface{}, 0, len(args)+1)
	out = append(out, msg)
	extras := make(map[string]interface{})
	for i, arg := range args {
		switch v := arg.(type) {
		case error:
			out = append(out, v)
		case map[string]interface{}:
			for k, val := range v {
				extras[k] = val
			}
		default:
			extras[argKey(i)] = v
		}
	}
	if len(extras) > 0 {
		out = append(out, extras)
	}
	return out
}

func argKey(i int) string {
	return "arg" + string(rune('0'+i%10))
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	l.std.Debug(msg, args...)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.std.Info(msg, args...)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.std.Warn(msg, args...)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.std.Error(msg, args...)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	rollbar.Wait()
	l.std.Fatal(msg, args...)
}

// Close flushes pending Rollbar items.
func (l *RollbarLogger) Close() {
	rollbar.Wait()
}

// New picks the Rollbar logger when a token is configured.
func New(cfg *config.Config) Logger {
	std := NewStdLogger(os.Stderr, "EDUSOCIAL : ", cfg.Debug)
	if cfg.Rollbar.Token == "" {
		return std
	}
	rl := NewRollbarLogger(std, cfg.Rollbar)
	rl.Enable(true)
	return rl
}
