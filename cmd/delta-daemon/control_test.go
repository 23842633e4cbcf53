package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delta/internal/assistant"
	"delta/internal/capture"
	"delta/internal/domain"
	"delta/internal/ipc"
	"delta/internal/present"
	"delta/internal/speech"
	"delta/internal/status"
)

type nopEndpoint struct{ logouts int }

func (*nopEndpoint) Send(context.Context, string) (string, error) { return "ok", nil }
func (e *nopEndpoint) Logout(context.Context) error {
	e.logouts++
	return nil
}

type idleRecognizer struct{ events chan capture.Event }

func (idleRecognizer) Start(context.Context) error    { return nil }
func (idleRecognizer) Stop()                          {}
func (r idleRecognizer) Events() <-chan capture.Event { return r.events }

type fakeInjector struct {
	said  []string
	heard []string
}

func (f *fakeInjector) Say(_ context.Context, text string) error {
	f.said = append(f.said, text)
	return nil
}

func (f *fakeInjector) Hear(_ context.Context, path string) (string, error) {
	if path == "broken.wav" {
		return "", errors.New("decode failed")
	}
	f.heard = append(f.heard, path)
	return "delta hello", nil
}

func newControl(t *testing.T) (ipc.Handler, *capture.Listener, *fakeInjector, *nopEndpoint) {
	t.Helper()

	tracker := status.NewTracker(present.Fanout{}, 0)
	ep := &nopEndpoint{}
	asst := assistant.New(ep, speech.NewSpeaker(speech.Mute{}, speech.Options{}, nil), tracker, assistant.Config{}, nil)
	listener := capture.NewListener(idleRecognizer{events: make(chan capture.Event)}, tracker, capture.Options{}, nil)
	in := &fakeInjector{}
	return control(asst, listener, in), listener, in, ep
}

func TestControlStartStopStatus(t *testing.T) {
	t.Parallel()

	h, listener, _, _ := newControl(t)
	ctx := context.Background()

	resp := h(ctx, ipc.Request{Op: ipc.OpStatus})
	require.True(t, resp.OK)
	require.NotNil(t, resp.Snapshot)
	assert.False(t, resp.Snapshot.Listening)
	assert.Equal(t, domain.ModeAsleep, resp.Snapshot.Status.Mode)

	assert.True(t, h(ctx, ipc.Request{Op: ipc.OpStart}).OK)
	assert.True(t, listener.Listening())
	assert.True(t, h(ctx, ipc.Request{Op: ipc.OpStatus}).Snapshot.Listening)

	assert.True(t, h(ctx, ipc.Request{Op: ipc.OpStop}).OK)
	assert.False(t, listener.Listening())
}

func TestControlInjectionNeedsListening(t *testing.T) {
	t.Parallel()

	h, _, in, _ := newControl(t)
	ctx := context.Background()

	resp := h(ctx, ipc.Request{Op: ipc.OpSay, Arg: "delta hello"})
	assert.False(t, resp.OK)
	assert.Equal(t, errNotListening.Error(), resp.Error)

	h(ctx, ipc.Request{Op: ipc.OpStart})

	resp = h(ctx, ipc.Request{Op: ipc.OpSay, Arg: "  delta hello "})
	assert.True(t, resp.OK)
	assert.Equal(t, []string{"delta hello"}, in.said)

	resp = h(ctx, ipc.Request{Op: ipc.OpSay, Arg: "   "})
	assert.False(t, resp.OK)

	resp = h(ctx, ipc.Request{Op: ipc.OpHear, Arg: "clip.wav"})
	assert.True(t, resp.OK)
	assert.Equal(t, "delta hello", resp.Text)

	resp = h(ctx, ipc.Request{Op: ipc.OpHear, Arg: "broken.wav"})
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "decode failed")
}

func TestControlLogoutStopsListening(t *testing.T) {
	t.Parallel()

	h, listener, _, ep := newControl(t)
	ctx := context.Background()

	h(ctx, ipc.Request{Op: ipc.OpStart})
	resp := h(ctx, ipc.Request{Op: ipc.OpLogout})
	assert.True(t, resp.OK)
	assert.False(t, listener.Listening())
	assert.Equal(t, 1, ep.logouts)
}

func TestControlUnknownOp(t *testing.T) {
	t.Parallel()

	h, _, _, _ := newControl(t)
	resp := h(context.Background(), ipc.Request{Op: "dance"})
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "dance")
}
