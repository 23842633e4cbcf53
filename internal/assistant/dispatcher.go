package assistant

import (
	"context"
	"errors"
	log "log/slog"

	"delta/internal/domain"
	"delta/internal/status"
)

const apology = "Sorry, I couldn't process that request."

// Endpoint is the remote command service.
type Endpoint interface {
	Send(ctx context.Context, command string) (string, error)
	Logout(ctx context.Context) error
}

// Speaker plays one utterance at a time. onDone may be nil.
type Speaker interface {
	Speak(text string, onDone func())
}

type settlement int

const (
	settledReply settlement = iota
	settledFailure
	settledExpired
)

// Dispatcher runs command round trips and routes their outcomes.
type Dispatcher struct {
	endpoint Endpoint
	speaker  Speaker
	status   *status.Tracker
	lg       *log.Logger
}

func NewDispatcher(endpoint Endpoint, speaker Speaker, tracker *status.Tracker, lg *log.Logger) *Dispatcher {
	if lg == nil {
		lg = log.Default()
	}
	return &Dispatcher{
		endpoint: endpoint,
		speaker:  speaker,
		status:   tracker,
		lg:       lg,
	}
}

// Dispatch shows the command, marks processing and issues the request in the
// background. deliver is called exactly once with the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, command string, deliver func(domain.Outcome)) error {
	if command == "" {
		return domain.ErrEmptyCommand
	}

	d.status.Message(domain.SenderUser, command)
	d.status.Processing()
	d.status.Active(true)

	go func() {
		reply, err := d.endpoint.Send(ctx, command)
		deliver(domain.Outcome{Command: command, Reply: reply, Err: err})
	}()
	return nil
}

// settle routes an outcome. onSpoken runs when a reply finishes playing.
func (d *Dispatcher) settle(o domain.Outcome, onSpoken func()) settlement {
	switch {
	case errors.Is(o.Err, domain.ErrAuthExpired):
		d.lg.Warn("Session expired, redirecting to login", "command", o.Command)
		d.status.Active(false)
		d.status.Listening()
		d.status.Navigate(domain.LoginPath)
		return settledExpired

	case o.Err == nil && o.Reply == "":
		o.Err = domain.ErrEmptyReply
		fallthrough

	case o.Err != nil:
		d.lg.Error("Command failed", "command", o.Command, "err", o.Err)
		d.status.Message(domain.SenderAssistant, apology)
		d.status.Fail()
		d.status.Active(false)
		d.speaker.Speak(apology, nil)
		return settledFailure

	default:
		d.lg.Info("Reply ready", "command", o.Command)
		d.status.Message(domain.SenderAssistant, o.Reply)
		d.speaker.Speak(o.Reply, onSpoken)
		return settledReply
	}
}

// Logout ends the remote session. The user lands on the root page either way.
func (d *Dispatcher) Logout(ctx context.Context) error {
	err := d.endpoint.Logout(ctx)
	if err != nil {
		d.lg.Error("Logout failed", "err", err)
	}
	d.status.Navigate(domain.RootPath)
	return err
}
