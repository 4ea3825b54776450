package inference

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/renalscope/renalscope/internal/llm"
	"github.com/renalscope/renalscope/internal/schema"
)

// Kind classifies a failed model call.
type Kind string

const (
	KindUnavailable     Kind = "unavailable"
	KindTimeout         Kind = "timeout"
	KindMalformedOutput Kind = "malformed_output"
	KindUnknown         Kind = "unknown"
)

// Error is the typed failure of one Infer call.
type Error struct {
	Kind    Kind
	Purpose string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s call failed (%s): %v", e.Purpose, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err if it is an *Error, else KindUnknown.
func KindOf(err error) Kind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return KindUnknown
}

// classify maps a provider or validator error onto a Kind. parent is the
// caller's context: its cancellation is not a timeout.
func classify(parent context.Context, err error) Kind {
	if errors.Is(err, context.Canceled) || parent.Err() == context.Canceled {
		return KindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var (
		rateLimit   *llm.ErrRateLimit
		unavailable *llm.ErrProviderUnavailable
		invalid     *llm.ErrInvalidResponse
		truncated   *llm.ErrMaxTokensExceeded
		rejected    *llm.ErrRequestRejected
		violations  *schema.ValidationError
	)
	switch {
	case errors.As(err, &rejected):
		// The provider refused the request; it is not down.
		return KindUnknown
	case errors.As(err, &rateLimit), errors.As(err, &unavailable):
		return KindUnavailable
	case errors.As(err, &invalid), errors.As(err, &truncated), errors.As(err, &violations):
		return KindMalformedOutput
	}
	return KindUnknown
}
