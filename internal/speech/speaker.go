package speech

import (
	"context"
	"errors"
	"io"
	log "log/slog"
	"sync"
	"time"
)

// Params are the delivery settings applied to every utterance. 1.0 is the
// engine baseline for each field.
type Params struct {
	Rate   float64
	Pitch  float64
	Volume float64
}

var DefaultParams = Params{Rate: 1.05, Pitch: 0.95, Volume: 1.0}

type Utterance struct {
	Text   string
	Voice  Voice
	Params Params
}

// Synthesizer is a speech engine. Speak blocks until the utterance has been
// played or ctx is cancelled.
type Synthesizer interface {
	Voices() []Voice
	Speak(ctx context.Context, u Utterance) error
}

// VoiceNotifier is implemented by engines whose voice list loads or changes
// after construction.
type VoiceNotifier interface {
	VoicesChanged() <-chan struct{}
}

// Ducker lowers other audio while the assistant talks.
type Ducker interface {
	DuckOthers(ctx context.Context, factor float64, fade time.Duration) error
	UnduckOthers(ctx context.Context, fade time.Duration) error
}

type Options struct {
	Preferred  []string
	Params     Params
	Ducker     Ducker
	DuckFactor float64
	DuckFade   time.Duration
}

// Speaker plays at most one utterance at a time; a new Speak cancels the one
// in progress and its completion callback is never called.
type Speaker struct {
	engine Synthesizer
	opts   Options
	lg     *log.Logger

	mu     sync.Mutex
	voice  Voice
	gen    uint64
	cancel context.CancelFunc
	last   chan struct{}
}

func NewSpeaker(engine Synthesizer, opts Options, lg *log.Logger) *Speaker {
	if opts.Preferred == nil {
		opts.Preferred = PreferredVoices
	}
	if opts.Params == (Params{}) {
		opts.Params = DefaultParams
	}
	if opts.DuckFactor <= 0 {
		opts.DuckFactor = 0.3
	}
	if lg == nil {
		lg = log.Default()
	}

	s := &Speaker{engine: engine, opts: opts, lg: lg}
	s.SelectVoice()
	return s
}

// SelectVoice re-reads the engine voice list and picks the preferred voice.
func (s *Speaker) SelectVoice() Voice {
	v := SelectVoice(s.engine.Voices(), s.opts.Preferred)

	s.mu.Lock()
	s.voice = v
	s.mu.Unlock()

	if v.IsDefault() {
		s.lg.Info("Using engine default voice")
	} else {
		s.lg.Info("Selected voice", "name", v.Name, "lang", v.Lang)
	}
	return v
}

func (s *Speaker) Voice() Voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voice
}

// Watch re-selects the voice whenever the engine reports a new voice list.
func (s *Speaker) Watch(ctx context.Context) {
	n, ok := s.engine.(VoiceNotifier)
	if !ok {
		return
	}
	changed := n.VoicesChanged()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changed:
			if !ok {
				return
			}
			s.SelectVoice()
		}
	}
}

// Speak cancels any utterance in progress and plays text. onDone runs once
// when the utterance ends, unless a later Speak superseded it.
func (s *Speaker) Speak(text string, onDone func()) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	prev := s.last
	done := make(chan struct{})
	s.last = done
	u := Utterance{Text: text, Voice: s.voice, Params: s.opts.Params}
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		if prev != nil {
			<-prev
		}
		if ctx.Err() != nil {
			return
		}

		err := s.play(ctx, u)

		s.mu.Lock()
		current := s.gen == gen
		if current {
			s.cancel = nil
		}
		s.mu.Unlock()

		if err != nil && !errors.Is(err, context.Canceled) {
			s.lg.Error("Failed to voice out", "err", err)
		}
		if current && onDone != nil {
			onDone()
		}
	}()
}

// Close cancels the utterance in progress, waits for it to stop and then
// releases the engine if it holds resources.
func (s *Speaker) Close() {
	s.mu.Lock()
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	last := s.last
	s.mu.Unlock()

	if last != nil {
		<-last
	}

	if c, ok := s.engine.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.lg.Warn("Failed to close speech engine", "err", err)
		}
	}
}

func (s *Speaker) play(ctx context.Context, u Utterance) error {
	if d := s.opts.Ducker; d != nil {
		if err := d.DuckOthers(ctx, s.opts.DuckFactor, s.opts.DuckFade); err != nil {
			s.lg.Warn("Failed to duck other streams", "err", err)
		}
		defer func() {
			if err := d.UnduckOthers(context.Background(), s.opts.DuckFade); err != nil {
				s.lg.Warn("Failed to restore other streams", "err", err)
			}
		}()
	}
	return s.engine.Speak(ctx, u)
}

// Mute is a Synthesizer for hosts without a speech engine. Every utterance
// completes immediately.
type Mute struct{}

func (Mute) Voices() []Voice { return nil }

func (Mute) Speak(ctx context.Context, _ Utterance) error { return ctx.Err() }
