package assistant

import (
	"context"
	"errors"
	log "log/slog"
	"sync/atomic"

	"delta/internal/domain"
	"delta/internal/status"
)

const (
	introText       = "Hello! Say 'Delta' to wake me up, then give your commands."
	wakeText        = "I'm listening! What can I help you with?"
	unsupportedText = "Speech recognition is not supported on this system."
)

// Chime is a short cue played when the assistant wakes.
type Chime interface {
	Play() error
}

type Config struct {
	WakeWord string
	Chime    Chime
	// OnExpire runs on the session loop after the endpoint reports an
	// expired session.
	OnExpire func()
}

// Assistant is the session. Its Run loop is the only place the gate and the
// busy flag change; requests and utterances report back over channels.
type Assistant struct {
	gate       *Gate
	dispatcher *Dispatcher
	speaker    Speaker
	status     *status.Tracker
	chime      Chime
	onExpire   func()
	lg         *log.Logger

	outcomes chan domain.Outcome
	spoken   chan struct{}
	done     chan struct{}

	busy atomic.Bool
}

func New(endpoint Endpoint, speaker Speaker, tracker *status.Tracker, cfg Config, lg *log.Logger) *Assistant {
	if lg == nil {
		lg = log.Default()
	}
	return &Assistant{
		gate:       NewGate(cfg.WakeWord),
		dispatcher: NewDispatcher(endpoint, speaker, tracker, lg),
		speaker:    speaker,
		status:     tracker,
		chime:      cfg.Chime,
		onExpire:   cfg.OnExpire,
		lg:         lg,
		outcomes:   make(chan domain.Outcome),
		spoken:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run consumes transcripts until ctx is done or transcripts is closed.
func (a *Assistant) Run(ctx context.Context, transcripts <-chan domain.Transcript) error {
	defer close(a.done)
	defer a.status.Stop()

	a.status.Listening()
	a.status.Message(domain.SenderAssistant, introText)
	a.lg.Info("Assistant ready", "wake_word", a.gate.word)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case t, ok := <-transcripts:
			if !ok {
				return nil
			}
			a.handle(ctx, t.Text)

		case o := <-a.outcomes:
			a.settle(o)

		case <-a.spoken:
			a.status.Listening()
			a.status.Active(false)
			a.busy.Store(false)
		}
	}
}

func (a *Assistant) Snapshot() domain.Snapshot {
	return domain.Snapshot{
		Status: a.status.Current(),
		Busy:   a.busy.Load(),
	}
}

func (a *Assistant) Logout(ctx context.Context) error {
	return a.dispatcher.Logout(ctx)
}

// ReportUnsupported is shown when no recognizer could be started.
func (a *Assistant) ReportUnsupported(err error) {
	a.lg.Error("Speech recognition unavailable", "err", err)
	a.status.Unsupported()
	a.status.Message(domain.SenderAssistant, unsupportedText)
}

func (a *Assistant) handle(ctx context.Context, text string) {
	a.lg.Debug("Heard", "text", text)

	d := a.gate.Classify(text)
	if d.Woke {
		a.status.SetMode(domain.ModeAwake)
		a.lg.Info("Woke up")
		if a.chime != nil {
			if err := a.chime.Play(); err != nil {
				a.lg.Warn("Wake chime failed", "err", err)
			}
		}
	}

	switch d.Action {
	case ActionWake:
		a.status.Message(domain.SenderAssistant, wakeText)
		a.speaker.Speak(wakeText, nil)
		a.status.Listening()

	case ActionCommand:
		if a.busy.Load() {
			a.lg.Warn("Busy, dropping command", "command", d.Command)
			return
		}
		a.busy.Store(true)
		if err := a.dispatcher.Dispatch(ctx, d.Command, a.deliver); err != nil {
			a.busy.Store(false)
			a.lg.Error("Dispatch refused", "command", d.Command, "err", err)
		}
	}
}

func (a *Assistant) settle(o domain.Outcome) {
	switch a.dispatcher.settle(o, a.onSpoken) {
	case settledReply:
		// busy until the reply has been spoken
	case settledFailure:
		a.busy.Store(false)
	case settledExpired:
		a.busy.Store(false)
		if a.onExpire != nil {
			a.onExpire()
		}
	}
}

func (a *Assistant) deliver(o domain.Outcome) {
	select {
	case a.outcomes <- o:
	case <-a.done:
		if o.Err != nil && !errors.Is(o.Err, context.Canceled) {
			a.lg.Debug("Outcome after shutdown", "command", o.Command, "err", o.Err)
		}
	}
}

func (a *Assistant) onSpoken() {
	select {
	case a.spoken <- struct{}{}:
	case <-a.done:
	}
}
