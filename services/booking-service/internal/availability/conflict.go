package availability

import "time"

// Status is the lifecycle state of a stored booking. Only StatusCancelled
// changes how the conflict detector treats a booking.
type Status string

const (
	StatusPendingDeposit Status = "pending_deposit"
	StatusDeposited      Status = "deposited"
	StatusCheckedIn      Status = "checked_in"
	StatusCheckedOut     Status = "checked_out"
	StatusCancelled      Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingDeposit, StatusDeposited, StatusCheckedIn, StatusCheckedOut, StatusCancelled:
		return true
	}
	return false
}

// Occupies reports whether a booking in this status blocks its interval.
func (s Status) Occupies() bool {
	return s != StatusCancelled
}

// Booking is a snapshot of an existing reservation for one room.
type Booking struct {
	ID       string
	RoomID   string
	Interval Interval
	Status   Status
}

// Reason explains a Check result.
type Reason string

const (
	ReasonAvailable Reason = "available"
	ReasonInPast    Reason = "in_past"
	ReasonConflict  Reason = "conflict"
)

// SlotAvailability is a generated slot annotated against a booking list.
type SlotAvailability struct {
	Slot      Slot
	Available bool
	Reason    Reason
}

// Check evaluates window against existing bookings. Each non-cancelled booking is
// widened by buffer before comparison; a buffer of zero allows back-to-back stays.
func Check(window Interval, existing []Booking, buffer time.Duration, now time.Time) Reason {
	if window.Start.Before(now) {
		return ReasonInPast
	}
	if buffer < 0 {
		buffer = 0
	}
	for _, b := range existing {
		if !b.Status.Occupies() {
			continue
		}
		if Overlaps(window, Expand(b.Interval, buffer)) {
			return ReasonConflict
		}
	}
	return ReasonAvailable
}

// IsAvailable reports whether slot can be offered.
func IsAvailable(slot Interval, existing []Booking, buffer time.Duration, now time.Time) bool {
	return Check(slot, existing, buffer, now) == ReasonAvailable
}

// IsRangeAvailable applies the IsAvailable rules to an arbitrary, non slot-aligned range.
func IsRangeAvailable(window Interval, existing []Booking, buffer time.Duration, now time.Time) bool {
	return Check(window, existing, buffer, now) == ReasonAvailable
}

// Annotate checks every slot of a generated timeline.
func Annotate(slots []Slot, existing []Booking, buffer time.Duration, now time.Time) []SlotAvailability {
	out := make([]SlotAvailability, 0, len(slots))
	for _, s := range slots {
		reason := Check(s.Interval, existing, buffer, now)
		out = append(out, SlotAvailability{
			Slot:      s,
			Available: reason == ReasonAvailable,
			Reason:    reason,
		})
	}
	return out
}

// Hull returns the smallest interval covering every slot.
func Hull(slots []Slot) (Interval, bool) {
	if len(slots) == 0 {
		return Interval{}, false
	}
	h := slots[0].Interval
	for _, s := range slots[1:] {
		if s.Interval.Start.Before(h.Start) {
			h.Start = s.Interval.Start
		}
		if s.Interval.End.After(h.End) {
			h.End = s.Interval.End
		}
	}
	return h, true
}
