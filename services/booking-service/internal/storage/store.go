package storage

import (
	"context"
	"errors"
	"time"

	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/outbox"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would overlap an active reservation of the same room.
	ErrConflict = errors.New("overlapping reservation")
)

// IdempotencyRecord is the stored outcome of a request made with an Idempotency-Key.
type IdempotencyRecord struct {
	Scope           string
	IdempotencyKey  string
	ReservationID   string
	StatusCode      int
	ResponsePayload []byte
}

// Completed reports whether the original request already produced a response.
func (r IdempotencyRecord) Completed() bool {
	return r.StatusCode > 0
}

// Store is the read side plus a transactional entry point.
type Store interface {
	Room(ctx context.Context, roomID string) (model.Room, error)
	// ListBookings returns non-cancelled reservations of roomID intersecting [from, to),
	// including ones that started before from.
	ListBookings(ctx context.Context, roomID string, from, to time.Time) ([]availability.Booking, error)
	ListByRoom(ctx context.Context, roomID string, from, to time.Time, limit int) ([]model.Reservation, error)
	InTx(ctx context.Context, fn func(Tx) error) error
}

// RoomWriter maintains the room catalogue.
type RoomWriter interface {
	UpsertRoom(ctx context.Context, room model.Room) error
}

// Tx is the set of writes that happen under a transaction. Returning an error from the
// InTx callback discards all of them.
type Tx interface {
	// LockRoom serializes writers on roomID until the transaction ends.
	LockRoom(ctx context.Context, roomID string) (model.Room, error)
	ListBookings(ctx context.Context, roomID string, from, to time.Time) ([]availability.Booking, error)
	// Insert assigns ID and CreatedAt. An overlap with an active reservation yields ErrConflict.
	Insert(ctx context.Context, r *model.Reservation) error
	GetForUpdate(ctx context.Context, id string) (model.Reservation, error)
	Cancel(ctx context.Context, id, reason string) (time.Time, error)
	UpdateStatus(ctx context.Context, id string, status availability.Status) error
	// LockIdempotencyKey reserves scope/key for this transaction. done is true when an
	// earlier request already stored its response.
	LockIdempotencyKey(ctx context.Context, scope, key string) (rec IdempotencyRecord, done bool, err error)
	FinalizeIdempotency(ctx context.Context, rec IdempotencyRecord) error
	AppendEvent(ctx context.Context, evt outbox.Event) error
}
