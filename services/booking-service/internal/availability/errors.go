package availability

import "errors"

var (
	ErrInvalidDate            = errors.New("invalid calendar date")
	ErrInvalidClock           = errors.New("invalid clock time")
	ErrInvalidInterval        = errors.New("interval end precedes start")
	ErrSlotUnavailable        = errors.New("slot is not available")
	ErrNonContiguousSelection = errors.New("range must be contiguous and fully available")
	ErrRangeUnavailable       = errors.New("this time is no longer available")
	ErrDayUnavailable         = errors.New("this day is no longer available")
	ErrUnknownKind            = errors.New("unknown booking kind")
)
