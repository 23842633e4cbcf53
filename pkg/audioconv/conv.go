// Package audioconv decodes audio files into the mono 16 kHz float32 PCM the
// recognizer consumes.
package audioconv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

// SampleRate is the output rate of every decoder in this package.
const SampleRate = 16000

var ErrUnsupported = errors.New("unsupported audio format")

type format int

const (
	formatUnknown format = iota
	formatWAV
	formatMP3
	formatOgg
)

// pcm is decoded audio before normalisation.
type pcm struct {
	samples  []float32
	rate     int
	channels int
}

// Options bounds the decoded clip. MaxDuration <= 0 means unbounded.
type Options struct {
	MaxDuration time.Duration
}

// Load decodes a wav, mp3 or ogg (vorbis or opus) file.
func Load(ctx context.Context, path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	magic, _ := bufio.NewReader(f).Peek(4)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	fm := detect(filepath.Ext(path), magic)
	if fm == formatUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
	}
	return decode(ctx, f, fm, opt)
}

// decode reads an already opened stream of a known container.
func decode(ctx context.Context, r io.ReadSeeker, fm format, opt Options) ([]float32, error) {
	var (
		p   pcm
		err error
	)
	switch fm {
	case formatWAV:
		p, err = decodeWAV(r)
	case formatMP3:
		p, err = decodeMP3(r)
	case formatOgg:
		p, err = decodeVorbis(r)
		if err != nil {
			if _, serr := r.Seek(0, io.SeekStart); serr != nil {
				return nil, serr
			}
			p, err = decodeOpus(r)
			if err != nil {
				return nil, fmt.Errorf("ogg is neither vorbis nor opus: %w", err)
			}
		}
	default:
		return nil, ErrUnsupported
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return normalize(p, opt), nil
}

func detect(ext string, magic []byte) format {
	switch strings.ToLower(ext) {
	case ".wav":
		return formatWAV
	case ".mp3":
		return formatMP3
	case ".ogg", ".oga", ".opus":
		return formatOgg
	}

	switch {
	case bytes.HasPrefix(magic, []byte("RIFF")):
		return formatWAV
	case bytes.HasPrefix(magic, []byte("OggS")):
		return formatOgg
	case bytes.HasPrefix(magic, []byte("ID3")):
		return formatMP3
	}
	return formatUnknown
}

func normalize(p pcm, opt Options) []float32 {
	x := downmix(p.samples, p.channels)
	x = resample(x, p.rate, SampleRate)
	if opt.MaxDuration > 0 {
		if limit := int(opt.MaxDuration.Seconds() * SampleRate); len(x) > limit {
			x = x[:limit]
		}
	}
	return x
}

func decodeWAV(r io.ReadSeeker) (pcm, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return pcm{}, errors.New("invalid wav")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return pcm{}, fmt.Errorf("read wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return pcm{}, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}

	p := pcm{samples: intsToFloat(buf.Data, depth), rate: 44100, channels: 1}
	if buf.Format != nil {
		if buf.Format.NumChannels > 0 {
			p.channels = buf.Format.NumChannels
		}
		if buf.Format.SampleRate > 0 {
			p.rate = buf.Format.SampleRate
		}
	}
	return p, nil
}

func decodeMP3(r io.Reader) (pcm, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return pcm{}, fmt.Errorf("open mp3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return pcm{}, fmt.Errorf("read mp3: %w", err)
	}

	ints := make([]int16, len(raw)/2)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &ints); err != nil {
		return pcm{}, err
	}

	rate := dec.SampleRate()
	if rate <= 0 {
		rate = 44100
	}
	// go-mp3 always emits interleaved stereo
	return pcm{samples: int16sToFloat(ints), rate: rate, channels: 2}, nil
}

func decodeVorbis(r io.Reader) (pcm, error) {
	samples, f, err := oggvorbis.ReadAll(r)
	if err != nil {
		return pcm{}, err
	}
	if f == nil || f.Channels <= 0 || f.SampleRate <= 0 {
		return pcm{}, errors.New("invalid ogg/vorbis stream")
	}
	return pcm{samples: samples, rate: f.SampleRate, channels: f.Channels}, nil
}

func decodeOpus(r io.ReadSeeker) (pcm, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return pcm{}, err
	}
	defer dec.Destroy()

	ch := dec.ChannelCount()
	if ch <= 0 {
		ch = 1
	}

	var (
		out []float32
		buf = make([]int16, 24000*ch)
	)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			out = append(out, int16sToFloat(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return pcm{}, err
		}
	}
	// libopus always decodes at 48 kHz
	return pcm{samples: out, rate: 48000, channels: ch}, nil
}

func intsToFloat(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(math.Max(-1, math.Min(1, float64(v)*scale)))
	}
	return out
}

func int16sToFloat(data []int16) []float32 {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v) / 32768
	}
	return out
}

func downmix(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	frames := len(in) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(in[i*channels+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

// resample converts between rates by linear interpolation.
func resample(in []float32, from, to int) []float32 {
	if from == to || len(in) == 0 || from <= 0 {
		return in
	}
	ratio := float64(to) / float64(from)
	n := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, n)
	last := len(in) - 1
	for i := range out {
		src := float64(i) / ratio
		i0 := int(src)
		if i0 >= last {
			out[i] = in[last]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i0+1]*a
	}
	return out
}
