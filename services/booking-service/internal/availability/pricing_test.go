package availability

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testRate() RoomRate {
	return RoomRate{
		Hourly:  decimal.RequireFromString("120.50"),
		Nightly: decimal.RequireFromString("900"),
	}
}

func TestPriceFor_DayIsFlat(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	short := Interval{Start: at(day, 14, 0), End: at(day, 15, 0)}
	long := DayInterval(day, DefaultDayShape)

	a, err := PriceFor(short, KindDay, testRate())
	if err != nil {
		t.Fatalf("PriceFor failed: %v", err)
	}
	b, _ := PriceFor(long, KindDay, testRate())
	if !a.Equal(b) || !a.Equal(decimal.NewFromInt(900)) {
		t.Fatalf("day price must be the nightly rate, got %s and %s", a, b)
	}
}

func TestPriceFor_HourRoundsUp(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		end  time.Time
		want string
	}{
		{at(day, 10, 0), "120.5"},
		{at(day, 10, 1), "241"},
		{at(day, 9, 0), "0"},
		{at(day, 12, 30), "482"},
	}
	for _, tc := range cases {
		got, err := PriceFor(Interval{Start: at(day, 9, 0), End: tc.end}, KindHour, testRate())
		if err != nil {
			t.Fatalf("PriceFor failed: %v", err)
		}
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("until %s: expected %s, got %s", tc.end.Format("15:04"), tc.want, got)
		}
	}
}

func TestPriceFor_Errors(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	valid := Interval{Start: at(day, 9, 0), End: at(day, 10, 0)}
	if _, err := PriceFor(valid, Kind("week"), testRate()); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	inverted := Interval{Start: at(day, 10, 0), End: at(day, 9, 0)}
	if _, err := PriceFor(inverted, KindHour, testRate()); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(" Hour "); err != nil || k != KindHour {
		t.Fatalf("unexpected kind %q (err=%v)", k, err)
	}
	if _, err := ParseKind("month"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}
