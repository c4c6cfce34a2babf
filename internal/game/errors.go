package game

import "errors"

// Rejected commands. State is left unchanged when one of these is returned.
var (
	ErrNotInactive           = errors.New("a round is already in progress")
	ErrNotActive             = errors.New("no round is active")
	ErrNotEnoughParticipants = errors.New("not enough ready participants to start")
	ErrVoteInProgress        = errors.New("a map vote is in progress")
	ErrUnknownMode           = errors.New("unknown game mode")
	ErrUnknownRole           = errors.New("unknown role")
	ErrGenericRole           = errors.New("generic roles cannot be disabled")
	ErrSentinelRole          = errors.New("the no-role sentinel cannot be forced")
	ErrInvalidValue          = errors.New("invalid value")
	ErrNotAlive              = errors.New("participant is not a living role holder")
)

var rejections = []error{
	ErrNotInactive,
	ErrNotActive,
	ErrNotEnoughParticipants,
	ErrVoteInProgress,
	ErrUnknownMode,
	ErrUnknownRole,
	ErrGenericRole,
	ErrSentinelRole,
	ErrInvalidValue,
	ErrNotAlive,
}

// IsRejection reports whether err is a user-facing command rejection
func IsRejection(err error) bool {
	for _, target := range rejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
