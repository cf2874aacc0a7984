package radio

import (
	"fmt"
	"time"
)

// TimeoutError indicates that an expected response never arrived within the
// operation's deadline. Framing-level corruption is recovered silently by the
// decoder, so a timeout is also how a persistently garbled link surfaces.
type TimeoutError struct {
	// Operation describes what was being waited for
	Operation string

	// Timeout is the deadline that expired
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: no response within %v", e.Operation, e.Timeout)
}

// TransportError wraps a failure of the underlying byte link.
type TransportError struct {
	// Op is the transport operation that failed ("read" or "write")
	Op string

	// Err is the underlying transport failure
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ValidationError indicates host-side input that cannot be sent to the
// device, such as a calibration image of the wrong size.
type ValidationError struct {
	// Reason describes what was invalid
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Reason)
}
