package errors

import (
	"errors"
	"fmt"
)

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrNotChannelMember  = fmt.Errorf("access denied to channel")
	ErrInvalidCommand    = fmt.Errorf("invalid command")
	ErrUnknownCommand    = fmt.Errorf("unknown event type")
	ErrMalformedFrame    = fmt.Errorf("invalid JSON format")
	ErrUnauthenticated   = fmt.Errorf("authentication required")
	ErrForbidden         = fmt.Errorf("forbidden")
	ErrListenerClosed    = fmt.Errorf("notification listener closed")
	ErrConnectionDropped = fmt.Errorf("connection dropped")
	ErrNotFound          = fmt.Errorf("not found")
	ErrAlreadyExists     = fmt.Errorf("already exists")
)

// Is and As forward to the standard library so callers importing this
// package don't need an alias.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
