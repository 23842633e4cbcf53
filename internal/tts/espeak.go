package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

static int
espeak_open(void)
{
	return espeak_Initialize(AUDIO_OUTPUT_PLAYBACK, 500, NULL, 0);
}

static espeak_ERROR
espeak_say(const char *text, const char *voice, int rate, int pitch, int volume)
{
	espeak_ERROR rc;

	if (!text)
	{ return EE_INTERNAL_ERROR; }

	if (voice && voice[0])
	{
		rc = espeak_SetVoiceByName(voice);
		if (rc != EE_OK)
		{ return rc; }
	}

	espeak_SetParameter(espeakRATE, rate, 0);
	espeak_SetParameter(espeakPITCH, pitch, 0);
	espeak_SetParameter(espeakVOLUME, volume, 0);

	return espeak_Synth(text, strlen(text) + 1, 0, POS_CHARACTER, 0, espeakCHARS_AUTO, NULL, NULL);
}

static const espeak_VOICE *
espeak_voice_at(const espeak_VOICE **list, int i)
{
	return list[i];
}

// languages is a priority byte followed by the language name.
static const char *
espeak_voice_lang(const espeak_VOICE *v)
{
	if (!v->languages || !v->languages[0])
	{ return ""; }
	return v->languages + 1;
}
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"delta/internal/speech"
)

const (
	baseRate  = 175 // words per minute
	basePitch = 50
	baseVol   = 100
)

var (
	initOnce sync.Once
	initErr  error
)

// Espeak is a speech.Synthesizer backed by libespeak-ng.
type Espeak struct {
	mu     sync.Mutex
	voices []speech.Voice
}

func NewEspeak() (*Espeak, error) {
	initOnce.Do(func() {
		if rc := C.espeak_open(); rc < 0 {
			initErr = fmt.Errorf("espeak_Initialize failed: %d", int(rc))
		}
	})
	if initErr != nil {
		return nil, initErr
	}
	return &Espeak{voices: listVoices()}, nil
}

func (e *Espeak) Voices() []speech.Voice {
	return append([]speech.Voice(nil), e.voices...)
}

func (e *Espeak) Speak(ctx context.Context, u speech.Utterance) error {
	if u.Text == "" {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctext := C.CString(u.Text)
	defer C.free(unsafe.Pointer(ctext))
	cvoice := C.CString(u.Voice.Name)
	defer C.free(unsafe.Pointer(cvoice))

	rc := C.espeak_say(ctext, cvoice,
		C.int(scale(baseRate, u.Params.Rate, 80, 450)),
		C.int(scale(basePitch, u.Params.Pitch, 0, 100)),
		C.int(scale(baseVol, u.Params.Volume, 0, 200)),
	)
	if rc != C.EE_OK {
		return fmt.Errorf("espeak_say failed: %d", int(rc))
	}

	done := make(chan struct{})
	go func() {
		C.espeak_Synchronize()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		C.espeak_Cancel()
		<-done
		return ctx.Err()
	}
}

func (e *Espeak) Close() error {
	if rc := C.espeak_Terminate(); rc != C.EE_OK {
		return errors.New("espeak_Terminate failed")
	}
	return nil
}

func listVoices() []speech.Voice {
	list := C.espeak_ListVoices(nil)
	if list == nil {
		return nil
	}

	var out []speech.Voice
	for i := 0; ; i++ {
		v := C.espeak_voice_at(list, C.int(i))
		if v == nil {
			break
		}
		voice := speech.Voice{
			Name: C.GoString(v.name),
			Lang: C.GoString(C.espeak_voice_lang(v)),
		}
		switch v.gender {
		case 1:
			voice.Gender = speech.GenderMale
		case 2:
			voice.Gender = speech.GenderFemale
		}
		out = append(out, voice)
	}
	return out
}

func scale(base int, factor float64, lo, hi int) int {
	if factor <= 0 {
		factor = 1
	}
	v := int(float64(base)*factor + 0.5)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
