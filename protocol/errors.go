package protocol

import (
	"errors"
	"fmt"
)

// DeviceError represents an error code reported by the radio inside an
// otherwise-valid response. It is distinct from a timeout: the device
// answered, but refused or failed the operation.
type DeviceError struct {
	// Operation is the command that failed
	Operation string

	// Code is the error code from the device
	Code uint16
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s failed: %s (0x%02X)", e.Operation, statusName(e.Code), e.Code)
}

// IsDeviceError returns true if the error is, or wraps, a DeviceError.
func IsDeviceError(err error) bool {
	var devErr *DeviceError
	return errors.As(err, &devErr)
}

// statusName returns a human-readable name for a device error code.
func statusName(code uint16) string {
	switch code {
	case StatusOK:
		return "success"
	case ErrCodeBusy:
		return "device busy"
	case ErrCodeAddress:
		return "invalid address"
	case ErrCodeVerify:
		return "verify failed"
	case ErrCodeSession:
		return "session mismatch"
	default:
		return fmt.Sprintf("unknown error code 0x%02X", code)
	}
}
