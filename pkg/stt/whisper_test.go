package stt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanSegment(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Delta, turn on the lights.", cleanSegment("  Delta, turn on the lights. "))
	assert.Empty(t, cleanSegment("[BLANK_AUDIO]"))
	assert.Empty(t, cleanSegment(" (wind blowing) "))
	assert.Empty(t, cleanSegment("   "))
}

func TestTranscribeRejectsEmptyAudio(t *testing.T) {
	t.Parallel()

	var tr Transcriber
	_, err := tr.Transcribe(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoAudio)
}

func TestNewTranscriberRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewTranscriber("", Options{})
	assert.Error(t, err)
}
