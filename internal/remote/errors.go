package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
)

// ErrIncomplete marks a call that failed after changing remote state it
// could not undo. Retrying it would repeat the change, so it is terminal.
var ErrIncomplete = errors.New("remote change partially applied")

// Error is a failed remote call.
type Error struct {
	Op         string // e.g. "list lists", "delete list"
	StatusCode int    // 0 when no response was received
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap annotates err with the operation and status code.
// Returns nil if err is nil.
func Wrap(op string, status int, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, StatusCode: status, Err: err}
}

// IsTransient reports whether err is a network failure worth retrying:
// no response at all, a timeout, or a 408/429/5xx status.
// Rejections (other 4xx) and malformed responses are terminal.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrIncomplete) {
		return false
	}

	var rerr *Error
	if errors.As(err, &rerr) && rerr.StatusCode != 0 {
		return transientStatus(rerr.StatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsNotFound reports whether the remote side answered 404.
func IsNotFound(err error) bool {
	var rerr *Error
	return errors.As(err, &rerr) && rerr.StatusCode == http.StatusNotFound
}

func transientStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		return true
	default:
		return false
	}
}
