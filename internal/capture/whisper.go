package capture

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"

	"delta/internal/audio"
	"delta/internal/domain"
	"delta/pkg/audioconv"
)

// Source records one utterance of mono 16 kHz audio.
type Source interface {
	RecordAuto(ctx context.Context) ([]float32, error)
}

// Transcriber turns mono 16 kHz audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm16k []float32) (string, error)
}

// Whisper is a Recognizer that records from a microphone and transcribes
// locally. It also accepts injected text and audio clips.
type Whisper struct {
	src Source
	stt Transcriber
	lg  *log.Logger

	events chan Event

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewWhisper(src Source, stt Transcriber, lg *log.Logger) *Whisper {
	if lg == nil {
		lg = log.Default()
	}
	return &Whisper{
		src:    src,
		stt:    stt,
		lg:     lg.With("component", "whisper"),
		events: make(chan Event, 8),
	}
}

func (w *Whisper) Events() <-chan Event {
	return w.events
}

func (w *Whisper) Start(ctx context.Context) error {
	if w.src == nil || w.stt == nil {
		return ErrUnsupported
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return errors.New("recognition already started")
	}
	sctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	go w.session(ctx, sctx)
	return nil
}

func (w *Whisper) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}
}

// session runs until sctx is cancelled or the recorder fails. Events are
// delivered until the owning ctx is done.
func (w *Whisper) session(ctx, sctx context.Context) {
	defer func() {
		w.mu.Lock()
		w.cancel()
		w.cancel = nil
		w.mu.Unlock()

		w.emit(ctx, Event{Kind: EventEnd})
	}()

	for {
		pcm, err := w.src.RecordAuto(sctx)
		if sctx.Err() != nil {
			return
		}
		if errors.Is(err, audio.ErrNoSpeech) {
			continue
		}
		if err != nil {
			w.emit(ctx, Event{Kind: EventError, Err: fmt.Errorf("%w: %w", domain.ErrRecognition, err)})
			return
		}

		text, err := w.stt.Transcribe(sctx, pcm)
		if sctx.Err() != nil {
			return
		}
		if err != nil {
			w.emit(ctx, Event{Kind: EventError, Err: fmt.Errorf("%w: %w", domain.ErrRecognition, err)})
			continue
		}
		if text == "" {
			continue
		}
		w.lg.Debug("Transcribed", "text", text, "samples", len(pcm))
		w.emit(ctx, Event{Kind: EventResult, Text: text})
	}
}

// Say injects text as if it had been recognized.
func (w *Whisper) Say(ctx context.Context, text string) error {
	if !w.emit(ctx, Event{Kind: EventResult, Text: text}) {
		return ctx.Err()
	}
	return nil
}

// Hear transcribes an audio file and injects the result. It returns the
// recognized text.
func (w *Whisper) Hear(ctx context.Context, path string) (string, error) {
	if w.stt == nil {
		return "", ErrUnsupported
	}

	pcm, err := audioconv.Load(ctx, path, audioconv.Options{MaxDuration: audio.DefaultRecorderConfig.MaxLength})
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	text, err := w.stt.Transcribe(ctx, pcm)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrRecognition, err)
	}
	if !w.emit(ctx, Event{Kind: EventResult, Text: text}) {
		return "", ctx.Err()
	}
	return text, nil
}

func (w *Whisper) emit(ctx context.Context, ev Event) bool {
	select {
	case w.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
