package notify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ding.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := gowav.NewEncoder(f, 22050, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 22050},
		Data:           make([]int, 2205),
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	s, format, err := decode(path)
	require.NoError(t, err)
	defer s.Close()

	assert.EqualValues(t, 22050, format.SampleRate)
	assert.Equal(t, 2205, s.Len())
}

func TestDecodeRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ding.flac")
	require.NoError(t, os.WriteFile(path, []byte("fLaC"), 0o600))

	_, _, err := decode(path)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestPlayMissingFile(t *testing.T) {
	t.Parallel()

	c := NewChime(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, c.Play())
}
