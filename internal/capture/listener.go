// Package capture turns a speech recognition engine into a continuous stream
// of normalized transcripts.
package capture

import (
	"context"
	"errors"
	log "log/slog"
	"strings"
	"sync/atomic"
	"time"

	"delta/internal/domain"
)

type EventKind int

const (
	EventResult EventKind = iota
	EventError
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	}
	return "unknown"
}

type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// ErrUnsupported is returned by Recognizer.Start when the host has no usable
// recognition engine. The listener gives up instead of retrying.
var ErrUnsupported = errors.New("speech recognition not supported")

// Recognizer is one continuous recognition engine. A session begun by Start
// reports finalized results and errors on Events and always finishes with an
// EventEnd, whether Stop ended it or the engine did.
type Recognizer interface {
	Start(ctx context.Context) error
	Stop()
	Events() <-chan Event
}

// Failer shows a transient error status.
type Failer interface {
	Fail()
}

type Options struct {
	// Backoff is the pause before retrying a session that failed to start
	// or ended on an error.
	Backoff time.Duration
	// OnUnsupported runs once if the engine reports ErrUnsupported.
	OnUnsupported func(error)
}

const DefaultBackoff = 500 * time.Millisecond

// Listener keeps a recognition session alive while listening is on.
type Listener struct {
	rec    Recognizer
	status Failer
	opt    Options
	lg     *log.Logger

	out       chan domain.Transcript
	poke      chan struct{}
	listening atomic.Bool
}

func NewListener(rec Recognizer, status Failer, opt Options, lg *log.Logger) *Listener {
	if opt.Backoff <= 0 {
		opt.Backoff = DefaultBackoff
	}
	if lg == nil {
		lg = log.Default()
	}
	return &Listener{
		rec:    rec,
		status: status,
		opt:    opt,
		lg:     lg.With("component", "capture"),
		out:    make(chan domain.Transcript),
		poke:   make(chan struct{}, 1),
	}
}

// Transcripts is closed when Run returns.
func (l *Listener) Transcripts() <-chan domain.Transcript {
	return l.out
}

// Listening reports the logical listening flag, not whether an engine
// session happens to be open right now.
func (l *Listener) Listening() bool {
	return l.listening.Load()
}

func (l *Listener) Start() {
	l.listening.Store(true)
	l.wake()
}

func (l *Listener) Stop() {
	l.listening.Store(false)
	l.wake()
}

func (l *Listener) wake() {
	select {
	case l.poke <- struct{}{}:
	default:
	}
}

// Run owns the engine until ctx is done.
func (l *Listener) Run(ctx context.Context) error {
	defer close(l.out)

	var (
		session  bool // an engine session is open
		stopping bool // Stop sent, waiting for its end event
		failed   bool // the open session reported an error
		reported bool // OnUnsupported already ran
		retry    <-chan time.Time
	)
	events := l.rec.Events()

	for {
		if l.listening.Load() && !session && retry == nil {
			if err := l.rec.Start(ctx); err != nil {
				if errors.Is(err, ErrUnsupported) {
					l.listening.Store(false)
					l.lg.Error("Recognition unsupported", "err", err)
					if l.opt.OnUnsupported != nil && !reported {
						reported = true
						l.opt.OnUnsupported(err)
					}
				} else {
					l.lg.Warn("Recognition start failed, retrying", "err", err, "backoff", l.opt.Backoff)
					retry = time.After(l.opt.Backoff)
				}
			} else {
				session, stopping, failed = true, false, false
				l.lg.Debug("Recognition session started")
			}
		}

		select {
		case <-ctx.Done():
			if session {
				l.rec.Stop()
			}
			return ctx.Err()

		case <-retry:
			retry = nil

		case <-l.poke:
			if !l.listening.Load() && session && !stopping {
				stopping = true
				l.rec.Stop()
			}

		case ev := <-events:
			switch ev.Kind {
			case EventResult:
				if !l.listening.Load() {
					continue
				}
				text := normalize(ev.Text)
				if text == "" {
					continue
				}
				l.lg.Debug("Heard", "text", text)
				select {
				case l.out <- domain.Transcript{Text: text}:
				case <-ctx.Done():
					if session {
						l.rec.Stop()
					}
					return ctx.Err()
				}

			case EventError:
				l.lg.Error("Recognition error", "err", ev.Err)
				l.status.Fail()
				failed = true

			case EventEnd:
				if failed && l.listening.Load() {
					l.lg.Warn("Recognition session failed, retrying", "backoff", l.opt.Backoff)
					retry = time.After(l.opt.Backoff)
				} else if l.listening.Load() {
					l.lg.Debug("Recognition session ended, restarting")
				}
				session, stopping, failed = false, false, false
			}
		}
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
