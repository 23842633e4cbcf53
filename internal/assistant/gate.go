package assistant

import (
	"strings"

	"delta/internal/domain"
)

const DefaultWakeWord = "delta"

type Action int

const (
	// ActionIgnore means the transcript produced no side effect.
	ActionIgnore Action = iota
	// ActionWake means the wake word alone was heard while asleep.
	ActionWake
	// ActionCommand means Decision.Command should be dispatched.
	ActionCommand
)

type Decision struct {
	Action  Action
	Command string
	// Woke is set when this transcript moved the gate from asleep to awake.
	Woke bool
}

// Gate decides per transcript whether to wake, dispatch or ignore. Once awake
// it stays awake.
type Gate struct {
	word string
	mode domain.Mode
}

func NewGate(wakeWord string) *Gate {
	word := strings.ToLower(strings.TrimSpace(wakeWord))
	if word == "" {
		word = DefaultWakeWord
	}
	return &Gate{word: word, mode: domain.ModeAsleep}
}

func (g *Gate) Mode() domain.Mode {
	return g.mode
}

func (g *Gate) Classify(text string) Decision {
	t := strings.ToLower(strings.TrimSpace(text))

	if g.mode == domain.ModeAsleep {
		if !strings.Contains(t, g.word) {
			return Decision{Action: ActionIgnore}
		}
		g.mode = domain.ModeAwake
		if cmd := g.strip(t); cmd != "" {
			return Decision{Action: ActionCommand, Command: cmd, Woke: true}
		}
		return Decision{Action: ActionWake, Woke: true}
	}

	if cmd := g.strip(t); cmd != "" {
		return Decision{Action: ActionCommand, Command: cmd}
	}
	return Decision{Action: ActionIgnore}
}

func (g *Gate) strip(t string) string {
	return strings.TrimSpace(strings.ReplaceAll(t, g.word, ""))
}
