package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Clock is a time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" (24h).
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// At returns the instant at clock c on the calendar day of date, in date's location.
func At(date time.Time, c Clock) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour, c.Minute, 0, 0, date.Location())
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return d, nil
}

// FormatDate is the inverse of ParseDate.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// Slot is one candidate window of a generated day.
type Slot struct {
	Label    string
	Interval Interval
}

// Shape describes Count consecutive slots of SlotDuration starting at Anchor.
type Shape struct {
	Anchor       Clock
	SlotDuration time.Duration
	Count        int
}

// Plan is an ordered list of shapes whose slots are concatenated into one day timeline.
type Plan []Shape

// Generate returns count consecutive slots of slotDuration starting at date@anchor.
// A slot that runs past midnight ends on the following calendar day. Slots step in
// wall-clock time, so the grid stays aligned across a DST change in date's location.
func Generate(date time.Time, anchor Clock, slotDuration time.Duration, count int) []Slot {
	if slotDuration <= 0 || count <= 0 {
		return nil
	}
	slots := make([]Slot, 0, count)
	for i := 0; i < count; i++ {
		start := wallClock(date, anchor, time.Duration(i)*slotDuration)
		end := wallClock(date, anchor, time.Duration(i+1)*slotDuration)
		slots = append(slots, Slot{
			Label:    slotLabel(start, end),
			Interval: Interval{Start: start, End: end},
		})
	}
	return slots
}

// wallClock is date@anchor plus offset on the wall clock. time.Date normalizes the
// overflowing nanoseconds into later minutes, hours and days.
func wallClock(date time.Time, anchor Clock, offset time.Duration) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), anchor.Hour, anchor.Minute, 0, int(offset), date.Location())
}

// GeneratePlan generates every shape of p for date, in plan order.
func GeneratePlan(date time.Time, p Plan) []Slot {
	var slots []Slot
	for _, s := range p {
		slots = append(slots, Generate(date, s.Anchor, s.SlotDuration, s.Count)...)
	}
	return slots
}

// GenerateFromString parses raw as a calendar date in loc and generates p for it.
// An unparseable date yields an empty timeline and ErrInvalidDate.
func GenerateFromString(raw string, loc *time.Location, p Plan) ([]Slot, error) {
	date, err := ParseDate(raw, loc)
	if err != nil {
		return nil, err
	}
	return GeneratePlan(date, p), nil
}

func slotLabel(start, end time.Time) string {
	label := start.Format("15:04") + "-" + end.Format("15:04")
	if days := calendarDaysBetween(start, end); days > 0 {
		label += fmt.Sprintf(" (+%d)", days)
	}
	return label
}

func calendarDaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da) / (24 * time.Hour))
}

// ParsePlan parses the compact plan syntax "HH:MM/<minutes>x<count>[,...]",
// e.g. "06:00/30x48" or "08:00/75x10,20:30/630x1".
func ParsePlan(raw string) (Plan, error) {
	var p Plan
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		clockPart, rest, ok := strings.Cut(part, "/")
		if !ok {
			return nil, fmt.Errorf("slot plan %q: missing '/'", part)
		}
		anchor, err := ParseClock(clockPart)
		if err != nil {
			return nil, fmt.Errorf("slot plan %q: %w", part, err)
		}
		minsPart, countPart, ok := strings.Cut(rest, "x")
		if !ok {
			return nil, fmt.Errorf("slot plan %q: missing 'x'", part)
		}
		mins, err := strconv.Atoi(strings.TrimSpace(minsPart))
		if err != nil || mins <= 0 {
			return nil, fmt.Errorf("slot plan %q: invalid slot minutes", part)
		}
		count, err := strconv.Atoi(strings.TrimSpace(countPart))
		if err != nil || count <= 0 {
			return nil, fmt.Errorf("slot plan %q: invalid slot count", part)
		}
		p = append(p, Shape{Anchor: anchor, SlotDuration: time.Duration(mins) * time.Minute, Count: count})
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("slot plan %q is empty", raw)
	}
	return p, nil
}

func (p Plan) String() string {
	parts := make([]string, 0, len(p))
	for _, s := range p {
		parts = append(parts, fmt.Sprintf("%s/%dx%d", s.Anchor, int(s.SlotDuration/time.Minute), s.Count))
	}
	return strings.Join(parts, ",")
}
