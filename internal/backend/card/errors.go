package card

import (
	"errors"
	"fmt"
)

// Reason classifies why a card could not be rendered
type Reason string

const (
	ReasonMissingInput  Reason = "missing-input"
	ReasonDecodeFailure Reason = "decode-failure"
	ReasonDrawFailure   Reason = "draw-failure"
)

var (
	ErrMissingInput  = errors.New("missing input")
	ErrDecodeFailure = errors.New("decode failure")
	ErrDrawFailure   = errors.New("draw failure")
)

// RenderError is returned by every failing render step
type RenderError struct {
	Reason Reason
	Err    error
}

func (e *RenderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("render failed: %s", e.Reason)
	}
	return fmt.Sprintf("render failed: %s: %v", e.Reason, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel that corresponds to the reason
func (e *RenderError) Is(target error) bool {
	switch target {
	case ErrMissingInput:
		return e.Reason == ReasonMissingInput
	case ErrDecodeFailure:
		return e.Reason == ReasonDecodeFailure
	case ErrDrawFailure:
		return e.Reason == ReasonDrawFailure
	}
	return false
}

func newRenderError(reason Reason, format string, args ...any) *RenderError {
	return &RenderError{Reason: reason, Err: fmt.Errorf(format, args...)}
}
