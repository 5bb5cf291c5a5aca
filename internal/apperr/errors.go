package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidTemplate = errors.New("invalid prompt template")
	ErrBusy            = errors.New("a transform is already in progress")
	ErrUnsupportedKind = errors.New("unsupported clip kind")
	ErrNoActivePrompt  = errors.New("no active prompt")
	ErrUnknownCommand  = errors.New("unknown command")
)
