package container

import "fmt"

// ErrAlreadyStarted is returned by Start when the container has already
// been started successfully. Delete does not reset this: a deleted
// container still returns ErrAlreadyStarted from Start.
var ErrAlreadyStarted = fmt.Errorf("container already started")

// ForkFailedError wraps the underlying kernel error from a rejected clone.
type ForkFailedError struct {
	Cause error
}

func (e *ForkFailedError) Error() string { return fmt.Sprintf("fork failed: %v", e.Cause) }
func (e *ForkFailedError) Unwrap() error { return e.Cause }

// EntryError is a structured failure reported by the child entry over the
// report pipe (C8): a status code (currently always 1 — the wire format
// reserves the byte for future finer-grained codes) and a message.
type EntryError struct {
	Code    byte
	Message string
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry error (code %d): %s", e.Code, e.Message)
}
