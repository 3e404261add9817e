package schedule

import "errors"

// Custom schedule service errors
var (
	// ErrVODNotFound indicates the referenced VOD asset does not exist
	ErrVODNotFound = errors.New("vod not found")

	// ErrEntryNotFound indicates the requested schedule entry does not exist
	ErrEntryNotFound = errors.New("schedule entry not found")

	// ErrInvalidInput indicates a required field is missing or out of range,
	// e.g. explicit-time insertion without both start and end
	ErrInvalidInput = errors.New("invalid schedule input")
)

// IsVODNotFound checks if the error is a VOD not found error
func IsVODNotFound(err error) bool {
	return errors.Is(err, ErrVODNotFound)
}

// IsEntryNotFound checks if the error is a schedule entry not found error
func IsEntryNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
