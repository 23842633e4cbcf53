// Package logging builds the daemon's slog logger: colored console output
// and an optional rotating JSON file.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

var levelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func ParseLevel(s string) (log.Level, error) {
	lvl, ok := levelMap[s]
	if !ok {
		return log.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

type Options struct {
	Level   log.Level
	Console io.Writer // defaults to stderr
	File    string    // empty disables the file log
}

// New returns the logger and a closer for the file sink.
func New(opt Options) (*log.Logger, io.Closer) {
	console := opt.Console
	if console == nil {
		console = os.Stderr
	}

	handlers := []log.Handler{
		tint.NewHandler(console, &tint.Options{
			Level:      opt.Level,
			TimeFormat: time.TimeOnly,
		}),
	}

	var closer io.Closer = nopCloser{}
	if opt.File != "" {
		w := &lumberjack.Logger{
			Filename:   opt.File,
			MaxSize:    16, // MB
			MaxBackups: 3,
			MaxAge:     14,
		}
		if err := os.MkdirAll(filepath.Dir(opt.File), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "log dir %s: %v\n", filepath.Dir(opt.File), err)
		}
		handlers = append(handlers, log.NewJSONHandler(w, &log.HandlerOptions{Level: opt.Level}))
		closer = w
	}

	var h log.Handler = handlers[0]
	if len(handlers) > 1 {
		h = fanout(handlers)
	}

	lg := log.New(h)
	lg.Debug("Logger ready",
		"goos", runtime.GOOS,
		"goarch", runtime.GOARCH,
		"file", opt.File)
	return lg, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fanout sends each record to every handler that is enabled for it.
type fanout []log.Handler

func (f fanout) Enabled(ctx context.Context, lvl log.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, lvl) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r log.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []log.Attr) log.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) log.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
