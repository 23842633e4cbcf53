package ipc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delta/internal/domain"
)

func serve(t *testing.T, h Handler) string {
	t.Helper()

	// unix socket paths are length limited, keep it short
	dir, err := os.MkdirTemp("", "dlt")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "s.sock")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(path, h, nil).Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, time.Second, time.Millisecond)
	return path
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	path := serve(t, func(_ context.Context, req Request) Response {
		switch req.Op {
		case OpStatus:
			return Response{OK: true, Snapshot: &domain.Snapshot{
				Status:    domain.Status{State: domain.StateListening, Mode: domain.ModeAwake, Label: "Awake"},
				Listening: true,
			}}
		case OpSay:
			return Response{OK: true, Text: req.Arg}
		}
		return Fail(errors.New("unknown op " + req.Op))
	})

	ctx := context.Background()

	resp, err := Send(ctx, path, Request{Op: OpStatus})
	require.NoError(t, err)
	require.NotNil(t, resp.Snapshot)
	assert.Equal(t, "Awake", resp.Snapshot.Status.Label)
	assert.True(t, resp.Snapshot.Listening)

	resp, err = Send(ctx, path, Request{Op: OpSay, Arg: "delta hello"})
	require.NoError(t, err)
	assert.Equal(t, "delta hello", resp.Text)

	_, err = Send(ctx, path, Request{Op: "dance"})
	assert.EqualError(t, err, "unknown op dance")
}

func TestSendWithoutDaemon(t *testing.T) {
	t.Parallel()

	_, err := Send(context.Background(), filepath.Join(t.TempDir(), "none.sock"), Request{Op: OpStatus})
	assert.Error(t, err)
}
