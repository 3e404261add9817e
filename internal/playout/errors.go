package playout

import "errors"

var (
	// ErrNoSchedule is returned when a channel has no active schedule entries
	// to resolve playout from
	ErrNoSchedule = errors.New("no schedule configured for channel")
)

// IsNoSchedule checks if the error is a no schedule error
func IsNoSchedule(err error) bool {
	return errors.Is(err, ErrNoSchedule)
}
