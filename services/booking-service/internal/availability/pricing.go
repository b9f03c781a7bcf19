package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Money is an amount in the operating currency.
type Money = decimal.Decimal

// Kind selects the billing rule for a stay.
type Kind string

const (
	KindDay  Kind = "day"
	KindHour Kind = "hour"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindDay, KindHour:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// RoomRate is the price list of a room.
type RoomRate struct {
	Hourly  Money
	Nightly Money
}

// PriceFor returns the room charge for selection. Day stays bill the nightly rate flat;
// hour stays bill every started hour. Deposits and fees are not included.
func PriceFor(selection Interval, kind Kind, rate RoomRate) (Money, error) {
	switch kind {
	case KindDay:
		return rate.Nightly, nil
	case KindHour:
		d := selection.Duration()
		if d < 0 {
			return decimal.Zero, ErrInvalidInterval
		}
		return rate.Hourly.Mul(decimal.NewFromInt(BillableHours(d))), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// BillableHours rounds d up to whole hours; 61 minutes bill as 2.
func BillableHours(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	hours := int64(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	return hours
}
