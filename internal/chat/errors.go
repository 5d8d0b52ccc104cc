package chat

import "errors"

var (
	ErrNotFound     = errors.New("session not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrStore        = errors.New("store unavailable")
	ErrAgent        = errors.New("agent request failed")
)
