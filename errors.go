package hiwonder

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrHeaderNotFound means no 0x55 0x55 header was seen; the scanner can
	// keep consuming bytes and resynchronize.
	ErrHeaderNotFound = errors.New("frame header not found")

	// ErrIncompleteFrame means fewer bytes than the declared frame length
	// arrived before the read deadline. The partial frame is discarded.
	ErrIncompleteFrame = errors.New("incomplete frame")

	// ErrChecksumMismatch means the frame failed checksum validation and was
	// discarded. There is no retry at this layer.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrFrameTooLong means the parameter count does not fit the 8-bit
	// length field.
	ErrFrameTooLong = errors.New("frame too long")

	ErrTimeout         = errors.New("communication timeout")
	ErrNoResponse      = errors.New("no response")
	ErrInvalidResponse = errors.New("invalid response")
	ErrBusClosed       = errors.New("bus is closed")
	ErrInvalidID       = errors.New("invalid servo ID")
	ErrUnknownJoint    = errors.New("unknown joint")
)

// CommError represents a communication-level error.
type CommError struct {
	Op  string // Operation that failed (e.g., "move_servos", "battery_voltage")
	Err error  // Underlying error
}

func (e *CommError) Error() string {
	return fmt.Sprintf("communication error during %s: %v", e.Op, e.Err)
}

func (e *CommError) Unwrap() error {
	return e.Err
}

// ServoError represents an error attributed to a specific servo.
type ServoError struct {
	ID  int    // Servo ID
	Op  string // Operation that failed
	Err error  // Underlying error
}

func (e *ServoError) Error() string {
	return fmt.Sprintf("servo %d %s failed: %v", e.ID, e.Op, e.Err)
}

func (e *ServoError) Unwrap() error {
	return e.Err
}

// IsTimeout returns true if the error is a timeout error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsNoResponse returns true if the error indicates no response was received.
func IsNoResponse(err error) bool {
	return errors.Is(err, ErrNoResponse)
}
