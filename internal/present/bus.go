package present

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"delta/internal/domain"
)

const (
	KindStatus   = "status"
	KindMessage  = "message"
	KindActive   = "active"
	KindNavigate = "navigate"
)

// BusMessage is one UI event pushed to the presentation hub.
type BusMessage struct {
	From    string          `json:"from"`
	Kind    string          `json:"kind"`
	Content string          `json:"content,omitempty"`
	Color   string          `json:"color,omitempty"`
	Status  *domain.Status  `json:"status,omitempty"`
	Message *domain.Message `json:"message,omitempty"`
	Active  *bool           `json:"active,omitempty"`
}

// Bus streams UI events over a websocket. Events are queued and written by
// Run; a broken connection is redialed every reconn interval.
type Bus struct {
	url    string
	reconn time.Duration
	lg     *log.Logger

	mu   sync.Mutex
	conn *websocket.Conn

	out chan BusMessage
}

func NewBus(wsURL string, reconn time.Duration, lg *log.Logger) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse bus url: %w", err)
	}
	if reconn <= 0 {
		reconn = time.Second
	}
	if lg == nil {
		lg = log.Default()
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial bus: %w", err)
	}

	lg.Info("Connected to bus", "url", wsURL)
	return &Bus{
		url:    u.String(),
		reconn: reconn,
		lg:     lg,
		conn:   conn,
		out:    make(chan BusMessage, 64),
	}, nil
}

// Run writes queued events until ctx is done.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-b.out:
			if err := b.write(m); err != nil {
				b.lg.Warn("Bus write failed, reconnecting", "err", err)
				if !b.redial(ctx) {
					return
				}
				if err := b.write(m); err != nil {
					b.lg.Error("Bus write failed after reconnect", "kind", m.Kind, "err", err)
				}
			}
		}
	}
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn.Close()
}

func (b *Bus) Status(s domain.Status) {
	b.enqueue(BusMessage{Kind: KindStatus, Content: s.Label, Color: s.Color(), Status: &s})
}

func (b *Bus) Message(m domain.Message) {
	b.enqueue(BusMessage{Kind: KindMessage, Content: m.Text, Message: &m})
}

func (b *Bus) Active(on bool) {
	b.enqueue(BusMessage{Kind: KindActive, Active: &on})
}

func (b *Bus) Navigate(path string) {
	b.enqueue(BusMessage{Kind: KindNavigate, Content: path})
}

func (b *Bus) enqueue(m BusMessage) {
	m.From = "delta"
	select {
	case b.out <- m:
	default:
		b.lg.Warn("Bus queue full, dropping event", "kind", m.Kind)
	}
}

func (b *Bus) write(m BusMessage) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

func (b *Bus) redial(ctx context.Context) bool {
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.url, nil)
		if err == nil {
			b.mu.Lock()
			_ = b.conn.Close()
			b.conn = conn
			b.mu.Unlock()
			b.lg.Info("Reconnected to bus", "url", b.url)
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(b.reconn):
		}
	}
}
