package model

import (
	"time"

	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/availability"
	"github.com/shopspring/decimal"
)

// Source records which console created a reservation.
type Source string

const (
	SourcePublic Source = "public"
	SourceStaff  Source = "staff"
)

type Room struct {
	ID     string
	Name   string
	Rate   availability.RoomRate
	Active bool
}

type Reservation struct {
	ID            string
	RoomID        string
	CustomerName  string
	CustomerPhone string
	Kind          availability.Kind
	StartTime     time.Time
	EndTime       time.Time
	Status        availability.Status
	Price         decimal.Decimal
	Deposit       decimal.Decimal
	Total         decimal.Decimal
	Source        Source
	CreatedBy     string
	CancelledAt   *time.Time
	CancelReason  string
	CreatedAt     time.Time
}

func (r Reservation) Interval() availability.Interval {
	return availability.Interval{Start: r.StartTime, End: r.EndTime}
}

// Booking is the view of r the conflict detector works on.
func (r Reservation) Booking() availability.Booking {
	return availability.Booking{
		ID:       r.ID,
		RoomID:   r.RoomID,
		Interval: r.Interval(),
		Status:   r.Status,
	}
}
