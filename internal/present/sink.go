package present

import "delta/internal/domain"

// Sink renders assistant state. Implementations make no decisions.
type Sink interface {
	Status(s domain.Status)
	Message(m domain.Message)
	Active(on bool)
	Navigate(path string)
}

// Fanout forwards every event to each sink in order.
type Fanout []Sink

func (f Fanout) Status(s domain.Status) {
	for _, sink := range f {
		sink.Status(s)
	}
}

func (f Fanout) Message(m domain.Message) {
	for _, sink := range f {
		sink.Message(m)
	}
}

func (f Fanout) Active(on bool) {
	for _, sink := range f {
		sink.Active(on)
	}
}

func (f Fanout) Navigate(path string) {
	for _, sink := range f {
		sink.Navigate(path)
	}
}
