package availability

import "time"

// DayShape fixes the check-in/check-out clock times of a full-day stay.
type DayShape struct {
	CheckIn            Clock
	CheckOutOffsetDays int
	CheckOut           Clock
}

// DefaultDayShape is a 14:00 check-in with a 12:00 check-out the next day.
var DefaultDayShape = DayShape{
	CheckIn:            Clock{Hour: 14},
	CheckOutOffsetDays: 1,
	CheckOut:           Clock{Hour: 12},
}

// DayInterval returns the stay interval for a day booking starting on date.
func DayInterval(date time.Time, shape DayShape) Interval {
	out := date.AddDate(0, 0, shape.CheckOutOffsetDays)
	return Interval{Start: At(date, shape.CheckIn), End: At(out, shape.CheckOut)}
}

// IsDayAvailable reports whether a day booking starting on date fits around existing.
func IsDayAvailable(date time.Time, shape DayShape, existing []Booking, buffer time.Duration, now time.Time) bool {
	return IsRangeAvailable(DayInterval(date, shape), existing, buffer, now)
}
