package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	SampleRate = 16000
	frameSize  = 320 // 20ms
	frameDur   = time.Second * frameSize / SampleRate
)

// ErrNoSpeech is returned when the recording window ends without any frame
// above the silence threshold.
var ErrNoSpeech = errors.New("no speech detected")

type RecorderConfig struct {
	SilenceRMS  float64       // frames at or below are silence
	SilenceHang time.Duration // trailing silence that ends an utterance
	MaxLength   time.Duration // hard cap on one utterance
}

var DefaultRecorderConfig = RecorderConfig{
	SilenceRMS:  0.015,
	SilenceHang: 600 * time.Millisecond,
	MaxLength:   10 * time.Second,
}

// Recorder captures one utterance at a time from the default input device.
type Recorder struct {
	cfg RecorderConfig
}

func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.SilenceRMS <= 0 {
		cfg.SilenceRMS = DefaultRecorderConfig.SilenceRMS
	}
	if cfg.SilenceHang <= 0 {
		cfg.SilenceHang = DefaultRecorderConfig.SilenceHang
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultRecorderConfig.MaxLength
	}
	return &Recorder{cfg: cfg}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	_ = portaudio.Terminate()
}

// RecordAuto blocks until an utterance has been spoken and followed by
// silence, the length cap is hit, or ctx is cancelled.
func (r *Recorder) RecordAuto(ctx context.Context) ([]float32, error) {
	buf := make([]float32, frameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	defer stream.Stop()

	seg := newSegmenter(r.cfg)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("read input stream: %w", err)
		}
		if seg.push(buf) {
			break
		}
	}
	return seg.result()
}

// segmenter splits a frame stream into one utterance by energy.
type segmenter struct {
	threshold  float64
	hangFrames int
	maxFrames  int

	frames   int
	speaking bool
	silence  int
	out      []float32
}

func newSegmenter(cfg RecorderConfig) *segmenter {
	return &segmenter{
		threshold:  cfg.SilenceRMS,
		hangFrames: int(cfg.SilenceHang / frameDur),
		maxFrames:  int(cfg.MaxLength / frameDur),
		out:        make([]float32, 0, SampleRate*3),
	}
}

// push consumes one frame and reports whether the utterance is complete.
func (s *segmenter) push(frame []float32) bool {
	s.frames++

	if frameRMS(frame) > s.threshold {
		s.speaking = true
		s.silence = 0
		s.out = append(s.out, frame...)
	} else if s.speaking {
		s.silence++
		if s.silence >= s.hangFrames {
			return true
		}
		s.out = append(s.out, frame...)
	}

	return s.frames >= s.maxFrames
}

func (s *segmenter) result() ([]float32, error) {
	if !s.speaking {
		return nil, ErrNoSpeech
	}
	return s.out, nil
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
