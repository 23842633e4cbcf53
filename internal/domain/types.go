package domain

import (
	"time"

	"github.com/google/uuid"
)

// Mode is the wake state of the assistant.
type Mode string

const (
	ModeAsleep Mode = "asleep"
	ModeAwake  Mode = "awake"
)

// State is the status indicator value shown to the user.
type State string

const (
	StateListening  State = "listening"
	StateProcessing State = "processing"
	StateError      State = "error"
)

// Status is the latest status transition, qualified by the current mode.
type Status struct {
	State State  `json:"state"`
	Mode  Mode   `json:"mode"`
	Label string `json:"label"`
}

// Color returns the indicator dot color for the state.
func (s Status) Color() string {
	switch s.State {
	case StateProcessing:
		return "#4CAF50"
	case StateError:
		return "#f44336"
	default:
		return "#fff6b3"
	}
}

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one chat bubble.
type Message struct {
	ID     uuid.UUID `json:"id"`
	Sender Sender    `json:"sender"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

func NewMessage(sender Sender, text string) Message {
	return Message{
		ID:     uuid.New(),
		Sender: sender,
		Text:   text,
		At:     time.Now(),
	}
}

// Transcript is one finalized recognition result.
type Transcript struct {
	Text string
}

// Outcome is the result of one command round trip.
type Outcome struct {
	Command string
	Reply   string
	Err     error
}

// Snapshot summarizes the assistant for the control socket.
type Snapshot struct {
	Status    Status `json:"status"`
	Busy      bool   `json:"busy"`
	Listening bool   `json:"listening"`
}

const (
	LoginPath = "/login.html"
	RootPath  = "/"
)
