package domain

import "errors"

var (
	// ErrTransport covers unreachable endpoints, non-2xx replies and undecodable bodies.
	ErrTransport = errors.New("transport failure")

	// ErrAuthExpired is returned when the endpoint answers 401.
	ErrAuthExpired = errors.New("session expired")

	// ErrEmptyReply is a successful response without a reply field.
	ErrEmptyReply = errors.New("response has no reply")

	ErrRecognition  = errors.New("speech recognition failure")
	ErrEmptyCommand = errors.New("empty command")
)
