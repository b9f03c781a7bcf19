package reservations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/staybook/libs/auth"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/policy"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrInvalidSlot         = errors.New("slot index out of range")
	ErrInvalidTransition   = errors.New("status change not allowed")
	ErrMissingCustomer     = errors.New("customer name required")
	ErrOutsidePlan         = errors.New("stay is outside the slot plan")
)

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Service answers availability questions for one caller role at a time and commits
// reservations under a per-room lock.
type Service struct {
	store    storage.Store
	policies policy.Provider
	clock    Clock
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewService(store storage.Store, policies policy.Provider, clock Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		policies: policies,
		clock:    clock,
		logger:   logger,
		tracer:   otel.Tracer("booking-service/reservations"),
	}
}

// Day is the annotated slot timeline of one room and calendar date.
type Day struct {
	RoomID string
	Date   time.Time
	Buffer time.Duration
	Slots  []availability.SlotAvailability
}

// Slots generates the role's slot plan for date and marks each slot against the
// room's current bookings.
func (s *Service) Slots(ctx context.Context, role, roomID, date string) (Day, error) {
	ctx, span := s.start(ctx, "reservations.slots", roomID)
	defer span.End()

	pol, d, slots, err := s.plan(ctx, role, date)
	if err != nil {
		return Day{}, err
	}
	existing, err := s.bookingsAround(ctx, roomID, slots, pol.Buffer)
	if err != nil {
		span.RecordError(err)
		return Day{}, err
	}
	return Day{
		RoomID: roomID,
		Date:   d,
		Buffer: pol.Buffer,
		Slots:  availability.Annotate(slots, existing, pol.Buffer, s.clock.Now()),
	}, nil
}

// Click applies one slot click to the caller's current selection. The returned
// selection is nil when the click cleared it. A current selection that is not made of
// this date's slots is discarded and the click starts a new one.
func (s *Service) Click(ctx context.Context, role, roomID, date string, slotIndex int, current *availability.Selection) (*availability.Selection, error) {
	ctx, span := s.start(ctx, "reservations.click", roomID)
	defer span.End()

	pol, _, slots, err := s.plan(ctx, role, date)
	if err != nil {
		return current, err
	}
	if slotIndex < 0 || slotIndex >= len(slots) {
		return current, fmt.Errorf("%w: %d", ErrInvalidSlot, slotIndex)
	}
	existing, err := s.bookingsAround(ctx, roomID, slots, pol.Buffer)
	if err != nil {
		span.RecordError(err)
		return current, err
	}
	if current != nil && !onTimeline(*current, slots) {
		current = nil
	}
	return availability.OnSlotClick(slots[slotIndex], current, slots, existing, pol.Buffer, s.clock.Now())
}

type DayAvailability struct {
	RoomID    string
	Stay      availability.Interval
	Available bool
}

func (s *Service) DayAvailability(ctx context.Context, role, roomID, date string) (DayAvailability, error) {
	ctx, span := s.start(ctx, "reservations.day_availability", roomID)
	defer span.End()

	pol, err := s.policies.PolicyFor(ctx, role)
	if err != nil {
		return DayAvailability{}, err
	}
	d, err := availability.ParseDate(date, pol.Location)
	if err != nil {
		return DayAvailability{}, err
	}
	if _, err := s.room(ctx, roomID); err != nil {
		return DayAvailability{}, err
	}
	stay := availability.DayInterval(d, pol.DayShape)
	window := availability.Expand(stay, pol.Buffer)
	existing, err := s.store.ListBookings(ctx, roomID, window.Start, window.End)
	if err != nil {
		span.RecordError(err)
		return DayAvailability{}, err
	}
	return DayAvailability{
		RoomID:    roomID,
		Stay:      stay,
		Available: availability.IsDayAvailable(d, pol.DayShape, existing, pol.Buffer, s.clock.Now()),
	}, nil
}

// List returns every reservation of roomID, cancelled ones included, touching the
// calendar days from through to inclusive.
func (s *Service) List(ctx context.Context, role, roomID, from, to string, limit int) ([]model.Reservation, error) {
	pol, err := s.policies.PolicyFor(ctx, role)
	if err != nil {
		return nil, err
	}
	start, err := availability.ParseDate(from, pol.Location)
	if err != nil {
		return nil, err
	}
	end := start
	if to != "" {
		if end, err = availability.ParseDate(to, pol.Location); err != nil {
			return nil, err
		}
	}
	if end.Before(start) {
		return nil, availability.ErrInvalidInterval
	}
	if _, err := s.room(ctx, roomID); err != nil {
		return nil, err
	}
	return s.store.ListByRoom(ctx, roomID, start, end.AddDate(0, 0, 1), limit)
}

func (s *Service) plan(ctx context.Context, role, date string) (policy.Policy, time.Time, []availability.Slot, error) {
	pol, err := s.policies.PolicyFor(ctx, role)
	if err != nil {
		return policy.Policy{}, time.Time{}, nil, err
	}
	d, err := availability.ParseDate(date, pol.Location)
	if err != nil {
		return policy.Policy{}, time.Time{}, nil, err
	}
	return pol, d, availability.GeneratePlan(d, pol.Plan), nil
}

// onTimeline reports whether sel starts and ends on slot boundaries of slots.
func onTimeline(sel availability.Selection, slots []availability.Slot) bool {
	var startOK, endOK bool
	for _, sl := range slots {
		if sl.Interval.Start.Equal(sel.Start) {
			startOK = true
		}
		if sl.Interval.End.Equal(sel.End) {
			endOK = true
		}
	}
	return startOK && endOK && sel.Start.Before(sel.End)
}

// withinPlan reports whether iv fits inside the slot plan of its start date, or of the
// previous date when that plan runs overnight.
func withinPlan(iv availability.Interval, pol policy.Policy) bool {
	loc := pol.Location
	if loc == nil {
		loc = time.UTC
	}
	start := iv.Start.In(loc)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	for _, d := range []time.Time{day, day.AddDate(0, 0, -1)} {
		if hull, ok := availability.Hull(availability.GeneratePlan(d, pol.Plan)); ok && hull.Contains(iv) {
			return true
		}
	}
	return false
}

// bookingsAround loads bookings that can touch any slot of the day once widened by buffer.
func (s *Service) bookingsAround(ctx context.Context, roomID string, slots []availability.Slot, buffer time.Duration) ([]availability.Booking, error) {
	if _, err := s.room(ctx, roomID); err != nil {
		return nil, err
	}
	hull, ok := availability.Hull(slots)
	if !ok {
		return nil, nil
	}
	window := availability.Expand(hull, buffer)
	return s.store.ListBookings(ctx, roomID, window.Start, window.End)
}

func (s *Service) room(ctx context.Context, roomID string) (model.Room, error) {
	room, err := s.store.Room(ctx, roomID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && !room.Active) {
		return model.Room{}, fmt.Errorf("%w: %q", ErrRoomNotFound, roomID)
	}
	return room, err
}

func (s *Service) start(ctx context.Context, name, roomID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("room.id", roomID)))
}

func sourceFor(role string) model.Source {
	if role == auth.RoleCustomer {
		return model.SourcePublic
	}
	return model.SourceStaff
}
