package availability

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"
)

func TestGenerate_Idempotent(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	anchor := Clock{Hour: 6}

	first := Generate(day, anchor, 30*time.Minute, 48)
	second := Generate(day, anchor, 30*time.Minute, 48)
	if len(first) != 48 || len(second) != 48 {
		t.Fatalf("expected 48 slots, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Label != second[i].Label || !first[i].Interval.Equal(second[i].Interval) {
			t.Fatalf("slot %d differs between calls", i)
		}
	}
}

func TestGenerate_FullDayWrapsToNextMorning(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	slots := Generate(day, Clock{Hour: 6}, 30*time.Minute, 48)

	if !slots[0].Interval.Start.Equal(at(day, 6, 0)) {
		t.Fatalf("expected first slot at 06:00, got %s", slots[0].Interval.Start)
	}
	last := slots[len(slots)-1]
	next := day.AddDate(0, 0, 1)
	if !last.Interval.Start.Equal(at(next, 5, 30)) || !last.Interval.End.Equal(at(next, 6, 0)) {
		t.Fatalf("expected last slot 05:30-06:00 next day, got %s", last.Label)
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i].Interval.Start.Equal(slots[i-1].Interval.End) {
			t.Fatalf("slot %d does not start where slot %d ends", i, i-1)
		}
	}
}

func TestGenerate_WallClockAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	for _, day := range []time.Time{
		time.Date(2024, 3, 9, 0, 0, 0, 0, loc),
		time.Date(2024, 11, 2, 0, 0, 0, 0, loc),
	} {
		slots := Generate(day, Clock{Hour: 6}, 30*time.Minute, 48)
		last := slots[len(slots)-1].Interval.End
		if last.Day() != day.Day()+1 || last.Hour() != 6 || last.Minute() != 0 {
			t.Fatalf("%s: expected the grid to end at 06:00 next day, got %s", FormatDate(day), last)
		}
		if s := slots[0].Interval.Start; s.Hour() != 6 || s.Day() != day.Day() {
			t.Fatalf("%s: expected first slot at 06:00, got %s", FormatDate(day), s)
		}
	}
}

func TestGenerate_MidnightRollover(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	slots := Generate(day, Clock{Hour: 23, Minute: 30}, 60*time.Minute, 1)

	end := slots[0].Interval.End
	if end.Day() != 11 || end.Hour() != 0 || end.Minute() != 30 {
		t.Fatalf("expected end 00:30 on the 11th, got %s", end)
	}
	if slots[0].Label != "23:30-00:30 (+1)" {
		t.Fatalf("unexpected label %q", slots[0].Label)
	}
}

func TestGenerate_OvernightSlot(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	slots := Generate(day, Clock{Hour: 22, Minute: 30}, 510*time.Minute, 1)
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	start, end := slots[0].Interval.Start, slots[0].Interval.End
	if !sameDate(end, start.AddDate(0, 0, 1)) {
		t.Fatalf("expected end date %s, got %s", FormatDate(start.AddDate(0, 0, 1)), FormatDate(end))
	}
	if end.Hour() != 7 || end.Minute() != 0 {
		t.Fatalf("expected end 07:00, got %s", end.Format("15:04"))
	}
}

func sameDate(a, b time.Time) bool {
	return FormatDate(a) == FormatDate(b)
}

func TestGenerate_DegenerateInputs(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	if got := Generate(day, Clock{Hour: 6}, 0, 10); len(got) != 0 {
		t.Fatalf("expected no slots for zero duration, got %d", len(got))
	}
	if got := Generate(day, Clock{Hour: 6}, 30*time.Minute, 0); len(got) != 0 {
		t.Fatalf("expected no slots for zero count, got %d", len(got))
	}
}

func TestGeneratePlan_StaffShape(t *testing.T) {
	plan, err := ParsePlan("08:00/75x10,20:30/630x1")
	if err != nil {
		t.Fatalf("ParsePlan failed: %v", err)
	}
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	slots := GeneratePlan(day, plan)
	if len(slots) != 11 {
		t.Fatalf("expected 11 slots, got %d", len(slots))
	}
	if slots[9].Label != "19:15-20:30" {
		t.Fatalf("unexpected tenth slot %q", slots[9].Label)
	}
	overnight := slots[10].Interval
	if !overnight.Start.Equal(at(day, 20, 30)) || !overnight.End.Equal(at(day.AddDate(0, 0, 1), 7, 0)) {
		t.Fatalf("unexpected overnight slot %q", slots[10].Label)
	}
	if plan.String() != "08:00/75x10,20:30/630x1" {
		t.Fatalf("plan did not round-trip: %s", plan.String())
	}
}

func TestParsePlan_Invalid(t *testing.T) {
	for _, raw := range []string{"", "06:00", "06:00/30", "25:00/30x2", "06:00/0x2", "06:00/30x-1", "06:00/abcx2"} {
		if _, err := ParsePlan(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestGenerateFromString_InvalidDate(t *testing.T) {
	plan := Plan{{Anchor: Clock{Hour: 6}, SlotDuration: 30 * time.Minute, Count: 48}}
	slots, err := GenerateFromString("2024-02-30", time.UTC, plan)
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected empty timeline, got %d slots", len(slots))
	}

	slots, err = GenerateFromString("2024-02-29", time.UTC, plan)
	if err != nil || len(slots) != 48 {
		t.Fatalf("expected 48 slots for a leap day, got %d (err=%v)", len(slots), err)
	}
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("14:05")
	if err != nil || c.Hour != 14 || c.Minute != 5 {
		t.Fatalf("unexpected clock %+v (err=%v)", c, err)
	}
	if _, err := ParseClock("24:00"); !errors.Is(err, ErrInvalidClock) {
		t.Fatalf("expected ErrInvalidClock, got %v", err)
	}
}
