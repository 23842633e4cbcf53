package audioconv

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, name string, rate, channels int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	return path
}

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext   string
		magic string
		want  format
	}{
		{".WAV", "", formatWAV},
		{".mp3", "", formatMP3},
		{".oga", "", formatOgg},
		{"", "RIFF", formatWAV},
		{".bin", "OggS", formatOgg},
		{"", "ID3\x04", formatMP3},
		{".txt", "hell", formatUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, detect(tt.ext, []byte(tt.magic)), "ext=%q magic=%q", tt.ext, tt.magic)
	}
}

func TestLoadWAVStereoDownmixAndResample(t *testing.T) {
	t.Parallel()

	// one second of constant stereo at 32 kHz, left at half scale, right silent
	const rate = 32000
	data := make([]int, rate*2)
	for i := 0; i < len(data); i += 2 {
		data[i] = 16384
	}
	path := writeWAV(t, "clip.wav", rate, 2, data)

	got, err := Load(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Len(t, got, SampleRate)
	assert.InDelta(t, 0.25, got[100], 1e-3)
}

func TestLoadWAVMaxDuration(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, "long.wav", SampleRate, 1, make([]int, SampleRate*2))

	got, err := Load(context.Background(), path, Options{MaxDuration: 500 * time.Millisecond})
	require.NoError(t, err)
	assert.Len(t, got, SampleRate/2)
}

func TestLoadUnsupported(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o600))

	_, err := Load(context.Background(), path, Options{})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestResample(t *testing.T) {
	t.Parallel()

	in := []float32{0, 1, 0, 1}
	assert.Equal(t, in, resample(in, SampleRate, SampleRate))

	up := resample([]float32{0, 1}, 1, 2)
	assert.Equal(t, []float32{0, 0.5, 1, 1}, up)

	down := resample([]float32{0, 0.5, 1, 1}, 2, 1)
	assert.Equal(t, []float32{0, 1}, down)
}

func TestDownmix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []float32{0.5, 0}, downmix([]float32{1, 0, 0.5, -0.5}, 2))
	mono := []float32{0.1, 0.2}
	assert.Equal(t, mono, downmix(mono, 1))
}
