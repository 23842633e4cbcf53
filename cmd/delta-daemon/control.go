package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"delta/internal/assistant"
	"delta/internal/capture"
	"delta/internal/ipc"
)

var errNotListening = errors.New("not listening, send start first")

// injector feeds text or audio clips into the recognizer.
type injector interface {
	Say(ctx context.Context, text string) error
	Hear(ctx context.Context, path string) (string, error)
}

func control(asst *assistant.Assistant, listener *capture.Listener, in injector) ipc.Handler {
	return func(ctx context.Context, req ipc.Request) ipc.Response {
		switch req.Op {
		case ipc.OpStart:
			listener.Start()
			return ipc.Response{OK: true}

		case ipc.OpStop:
			listener.Stop()
			return ipc.Response{OK: true}

		case ipc.OpStatus:
			snap := asst.Snapshot()
			snap.Listening = listener.Listening()
			return ipc.Response{OK: true, Snapshot: &snap}

		case ipc.OpSay:
			text := strings.TrimSpace(req.Arg)
			if text == "" {
				return ipc.Fail(errors.New("say: empty text"))
			}
			if !listener.Listening() {
				return ipc.Fail(errNotListening)
			}
			if err := in.Say(ctx, text); err != nil {
				return ipc.Fail(fmt.Errorf("say: %w", err))
			}
			return ipc.Response{OK: true, Text: text}

		case ipc.OpHear:
			if req.Arg == "" {
				return ipc.Fail(errors.New("hear: missing file"))
			}
			if !listener.Listening() {
				return ipc.Fail(errNotListening)
			}
			text, err := in.Hear(ctx, req.Arg)
			if err != nil {
				return ipc.Fail(fmt.Errorf("hear: %w", err))
			}
			return ipc.Response{OK: true, Text: text}

		case ipc.OpLogout:
			listener.Stop()
			if err := asst.Logout(ctx); err != nil {
				return ipc.Fail(fmt.Errorf("logout: %w", err))
			}
			return ipc.Response{OK: true}
		}
		return ipc.Fail(fmt.Errorf("unknown op %q", req.Op))
	}
}
