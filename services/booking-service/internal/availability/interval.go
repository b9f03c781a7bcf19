package availability

import "time"

// Interval is a half-open wall-clock window [Start, End).
//
// All instants handled by this package are expected to be in the same location.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Normalize returns the interval spanning a and b regardless of argument order.
func Normalize(a, b time.Time) Interval {
	if b.Before(a) {
		return Interval{Start: b, End: a}
	}
	return Interval{Start: a, End: b}
}

// Overlaps reports whether x and y share any instant. Touching endpoints do not overlap.
func Overlaps(x, y Interval) bool {
	// Half-open intervals: [x.Start,x.End) overlaps [y.Start,y.End) iff x.Start < y.End && y.Start < x.End.
	return x.Start.Before(y.End) && y.Start.Before(x.End)
}

// Expand widens x by buffer on both sides.
func Expand(x Interval, buffer time.Duration) Interval {
	if buffer <= 0 {
		return x
	}
	return Interval{Start: x.Start.Add(-buffer), End: x.End.Add(buffer)}
}

// Duration is the length of x.
func (x Interval) Duration() time.Duration {
	return x.End.Sub(x.Start)
}

// Contains reports whether other lies entirely within x.
func (x Interval) Contains(other Interval) bool {
	return !other.Start.Before(x.Start) && !other.End.After(x.End)
}

// Equal reports whether x and other denote the same instants, whatever their locations.
func (x Interval) Equal(other Interval) bool {
	return x.Start.Equal(other.Start) && x.End.Equal(other.End)
}
