package comet

import (
	"errors"
	"fmt"
)

// NegotiationError means the channel could not be set up. It is fatal: the
// session is broken, so there is nothing to retry.
type NegotiationError struct {
	Reason string
	Err    error
}

func (e *NegotiationError) Error() string {
	if e.Err == nil {
		return "comet: negotiation failed: " + e.Reason
	}
	return fmt.Sprintf("comet: negotiation failed: %s: %v", e.Reason, e.Err)
}

func (e *NegotiationError) Unwrap() error { return e.Err }

// TransportError is a network failure, timeout or non-2xx status on a poll
// or knock request.
type TransportError struct {
	Op         string // "poll" or "knock"
	StatusCode int    // set when the server replied with a non-2xx status
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("comet: %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("comet: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// WireFormatError means a poll body was not wrapped in the callback frame.
type WireFormatError struct {
	Body string // truncated
}

func (e *WireFormatError) Error() string {
	return fmt.Sprintf("comet: invalid wire frame: %q", e.Body)
}

// PayloadDecodeError means the framed JSON was malformed or carried an event
// the client does not know.
type PayloadDecodeError struct {
	Index int    // element of data that failed, -1 for the envelope
	Tag   string // event tag, if one was read
	Err   error
}

func (e *PayloadDecodeError) Error() string {
	switch {
	case e.Index < 0:
		return fmt.Sprintf("comet: decoding payload: %v", e.Err)
	case e.Tag == "":
		return fmt.Sprintf("comet: decoding event %d: %v", e.Index, e.Err)
	default:
		return fmt.Sprintf("comet: decoding event %d (%s): %v", e.Index, e.Tag, e.Err)
	}
}

func (e *PayloadDecodeError) Unwrap() error { return e.Err }

// ErrUnknownEvent is wrapped by a PayloadDecodeError for an unrecognized tag.
var ErrUnknownEvent = errors.New("unknown event type")

// IsTransient reports whether err is one of the per-iteration failures the
// poll loop recovers from.
func IsTransient(err error) bool {
	var (
		te *TransportError
		we *WireFormatError
		pe *PayloadDecodeError
	)
	return errors.As(err, &te) || errors.As(err, &we) || errors.As(err, &pe)
}

const maxErrorBody = 256

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}
