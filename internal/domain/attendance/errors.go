package attendance

import "errors"

var (
	ErrAttendanceCodeNotFound = errors.New("attendance code not found")
	ErrMalformedEntry         = errors.New("malformed attendance entry")
	ErrNegativeMultiplier     = errors.New("attendance code multiplier must be non-negative")
)
