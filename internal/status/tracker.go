package status

import (
	"sync"
	"time"

	"delta/internal/domain"
	"delta/internal/present"
)

const (
	labelListening   = "Listening"
	labelAwake       = "Awake"
	labelProcessing  = "Processing..."
	labelError       = "Error"
	labelUnsupported = "Not Supported"
)

// DefaultRevertDelay is how long an error status stays up before reverting.
const DefaultRevertDelay = 2 * time.Second

// Tracker owns the latest status and the mode it is qualified by. A Fail
// schedules a revert to listening; any later status cancels that revert.
type Tracker struct {
	sink  present.Sink
	delay time.Duration

	mu      sync.Mutex
	mode    domain.Mode
	current domain.Status
	revert  *time.Timer
	gen     uint64
}

func NewTracker(sink present.Sink, delay time.Duration) *Tracker {
	if delay <= 0 {
		delay = DefaultRevertDelay
	}
	return &Tracker{
		sink:  sink,
		delay: delay,
		mode:  domain.ModeAsleep,
		current: domain.Status{
			State: domain.StateListening,
			Mode:  domain.ModeAsleep,
			Label: labelListening,
		},
	}
}

func (t *Tracker) SetMode(m domain.Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = m
}

func (t *Tracker) Mode() domain.Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

func (t *Tracker) Current() domain.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Listening shows "Awake" or "Listening" depending on the mode.
func (t *Tracker) Listening() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelRevertLocked()
	t.setLocked(domain.StateListening, t.listeningLabelLocked())
}

func (t *Tracker) Processing() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelRevertLocked()
	t.setLocked(domain.StateProcessing, labelProcessing)
}

// Fail shows the error status and reverts to listening after the delay.
func (t *Tracker) Fail() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelRevertLocked()
	t.setLocked(domain.StateError, labelError)

	gen := t.gen
	t.revert = time.AfterFunc(t.delay, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.gen != gen {
			return
		}
		t.revert = nil
		t.setLocked(domain.StateListening, t.listeningLabelLocked())
	})
}

// Unsupported is a terminal error status with no revert.
func (t *Tracker) Unsupported() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelRevertLocked()
	t.setLocked(domain.StateError, labelUnsupported)
}

func (t *Tracker) Message(sender domain.Sender, text string) {
	t.sink.Message(domain.NewMessage(sender, text))
}

func (t *Tracker) Active(on bool) {
	t.sink.Active(on)
}

func (t *Tracker) Navigate(path string) {
	t.sink.Navigate(path)
}

// Stop drops a pending revert.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelRevertLocked()
}

func (t *Tracker) cancelRevertLocked() {
	t.gen++
	if t.revert != nil {
		t.revert.Stop()
		t.revert = nil
	}
}

func (t *Tracker) setLocked(state domain.State, label string) {
	t.current = domain.Status{State: state, Mode: t.mode, Label: label}
	t.sink.Status(t.current)
}

func (t *Tracker) listeningLabelLocked() string {
	if t.mode == domain.ModeAwake {
		return labelAwake
	}
	return labelListening
}
