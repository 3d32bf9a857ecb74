package utils

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	ErrLayoutViolation        = errors.New("layout violation")
	ErrUnsupportedMessageSize = errors.New("unsupported message size")
	ErrUnknownMessageID       = errors.New("unknown message id")
	ErrNoMessages             = errors.New("no messages available")
)

// LayoutError reports a frame or signal definition that cannot be addressed
// inside the 64-bit payload window.
type LayoutError struct {
	Frame  string
	Signal string
	msg    string
}

func NewLayoutError(frame, signal, msg string) *LayoutError {
	return &LayoutError{Frame: frame, Signal: signal, msg: msg}
}

func (e *LayoutError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("layout: frame %s signal %s: %s", e.Frame, e.Signal, e.msg)
	}
	return fmt.Sprintf("layout: frame %s: %s", e.Frame, e.msg)
}

func (e *LayoutError) Unwrap() error { return ErrLayoutViolation }
