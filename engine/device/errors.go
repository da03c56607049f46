package device

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is reported when a backend cannot perform an operation for the given kind.
	ErrUnsupported = errors.New("device: operation not supported")

	// ErrOutOfHandles is reported when the device refuses to allocate another object.
	ErrOutOfHandles = errors.New("device: out of handles")

	// ErrCompile is reported when a program fails to compile or link.
	ErrCompile = errors.New("device: program compilation failed")

	// ErrInvalidHandle is reported when an operation names a handle the device does not know.
	ErrInvalidHandle = errors.New("device: invalid handle")
)

// DeviceError is a failure reported by a Device, either returned from a creating call or
// surfaced later through Device.Err.
type DeviceError struct {
	// Op is the device operation that failed, e.g. "CreateHandle" or "CompileProgram".
	Op string
	// Kind is the kind of object the operation targeted.
	Kind Kind
	// Err is the underlying cause.
	Err error
}

// NewDeviceError builds a DeviceError for op on kind, wrapping err.
func NewDeviceError(op string, kind Kind, err error) *DeviceError {
	return &DeviceError{Op: op, Kind: kind, Err: err}
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
