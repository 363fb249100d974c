package ports

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrRemoteCall   = errors.New("remote call failed")
	ErrUnauthorized = errors.New("session unauthorized")
)

// RemoteCallError describes a failed backend operation. It matches ErrRemoteCall
// and, for HTTP 401, ErrUnauthorized.
type RemoteCallError struct {
	Op      string
	Status  int
	Message string
	Cause   error
}

func (e *RemoteCallError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", ErrRemoteCall, e.Op, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s: %s", ErrRemoteCall, e.Op, msg)
}

func (e *RemoteCallError) Unwrap() []error {
	out := []error{ErrRemoteCall}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// RemoteMessage returns the server-provided message of err when it carries one.
func RemoteMessage(err error) string {
	var rce *RemoteCallError
	if errors.As(err, &rce) && rce != nil {
		return rce.Message
	}
	return ""
}
