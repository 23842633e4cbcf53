package present

import (
	log "log/slog"

	"delta/internal/domain"
)

// Log renders the chat log and status indicator as structured log lines.
type Log struct {
	lg *log.Logger
}

func NewLog(lg *log.Logger) *Log {
	if lg == nil {
		lg = log.Default()
	}
	return &Log{lg: lg.With("component", "ui")}
}

func (l *Log) Status(s domain.Status) {
	l.lg.Info("status", "state", s.State, "label", s.Label, "dot", s.Color())
}

func (l *Log) Message(m domain.Message) {
	l.lg.Info("chat", "from", m.Sender, "text", m.Text)
}

func (l *Log) Active(on bool) {
	l.lg.Debug("pulse", "active", on)
}

func (l *Log) Navigate(path string) {
	l.lg.Warn("navigate", "path", path)
}
