package availability

import "time"

// Selection is the caller-owned in-progress or finalized range choice.
// A nil *Selection means nothing is selected.
type Selection struct {
	Start time.Time
	End   time.Time
}

func (s Selection) Interval() Interval {
	return Interval{Start: s.Start, End: s.End}
}

// Reset is the selection state after the room or date changes.
func Reset() *Selection { return nil }

// OnSlotClick folds one slot click into the selection state.
//
//   - an unavailable clicked slot leaves state unchanged and returns ErrSlotUnavailable;
//   - with no selection the clicked slot becomes the selection;
//   - clicking the sole selected slot again clears the selection;
//   - otherwise the range is extended to (or trimmed at) the clicked slot, and every
//     slot inside the new range must be available or the click is rejected with
//     ErrNonContiguousSelection and the previous state is returned.
func OnSlotClick(clicked Slot, state *Selection, slots []Slot, existing []Booking, buffer time.Duration, now time.Time) (*Selection, error) {
	if !IsAvailable(clicked.Interval, existing, buffer, now) {
		return state, ErrSlotUnavailable
	}
	if state == nil {
		return &Selection{Start: clicked.Interval.Start, End: clicked.Interval.End}, nil
	}
	if state.Interval().Equal(clicked.Interval) {
		return nil, nil
	}

	var candidate Interval
	if clicked.Interval.Start.Before(state.Start) {
		candidate = Normalize(clicked.Interval.Start, state.End)
	} else {
		candidate = Normalize(state.Start, clicked.Interval.End)
	}

	for _, s := range slots {
		if !candidate.Contains(s.Interval) {
			continue
		}
		if !IsAvailable(s.Interval, existing, buffer, now) {
			return state, ErrNonContiguousSelection
		}
	}
	return &Selection{Start: candidate.Start, End: candidate.End}, nil
}
