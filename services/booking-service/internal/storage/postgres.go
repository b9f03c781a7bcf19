package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/staybook/libs/db"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/outbox"
	"github.com/shopspring/decimal"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type BookingRepository struct {
	pool   *db.Pool
	events *outbox.Repository
}

func NewBookingRepository(pool *db.Pool, events *outbox.Repository) *BookingRepository {
	return &BookingRepository{pool: pool, events: events}
}

var _ Store = (*BookingRepository)(nil)

func (r *BookingRepository) Room(ctx context.Context, roomID string) (model.Room, error) {
	return selectRoom(ctx, r.pool, roomID, false)
}

// UpsertRoom creates the room or replaces its name, rates and active flag.
func (r *BookingRepository) UpsertRoom(ctx context.Context, room model.Room) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rooms (id, name, hourly_rate, nightly_rate, active)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			hourly_rate = EXCLUDED.hourly_rate,
			nightly_rate = EXCLUDED.nightly_rate,
			active = EXCLUDED.active
	`, room.ID, room.Name, room.Rate.Hourly.String(), room.Rate.Nightly.String(), room.Active)
	return err
}

func (r *BookingRepository) ListBookings(ctx context.Context, roomID string, from, to time.Time) ([]availability.Booking, error) {
	return listBookings(ctx, r.pool, roomID, from, to)
}

func (r *BookingRepository) ListByRoom(ctx context.Context, roomID string, from, to time.Time, limit int) ([]model.Reservation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+reservationColumns+`
		FROM bookings
		WHERE room_id = $1
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
		LIMIT $4
	`, roomID, from, to, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Reservation, error) {
		return scanReservation(row)
	})
}

func (r *BookingRepository) InTx(ctx context.Context, fn func(Tx) error) error {
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx, events: r.events})
	})
}

type pgTx struct {
	tx     pgx.Tx
	events *outbox.Repository
}

func (t *pgTx) LockRoom(ctx context.Context, roomID string) (model.Room, error) {
	return selectRoom(ctx, t.tx, roomID, true)
}

func (t *pgTx) ListBookings(ctx context.Context, roomID string, from, to time.Time) ([]availability.Booking, error) {
	return listBookings(ctx, t.tx, roomID, from, to)
}

func (t *pgTx) Insert(ctx context.Context, res *model.Reservation) error {
	res.ID = uuid.NewString()
	err := t.tx.QueryRow(ctx, `
		INSERT INTO bookings
			(id, room_id, customer_name, customer_phone, kind, start_time, end_time, status,
			 price, deposit, total, source, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10::numeric, $11::numeric, $12, $13)
		RETURNING created_at
	`, res.ID, res.RoomID, res.CustomerName, res.CustomerPhone, string(res.Kind), res.StartTime, res.EndTime,
		string(res.Status), res.Price.String(), res.Deposit.String(), res.Total.String(), string(res.Source), res.CreatedBy,
	).Scan(&res.CreatedAt)
	if err != nil {
		res.ID = ""
		if IsConflict(err) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return err
	}
	return nil
}

func (t *pgTx) GetForUpdate(ctx context.Context, id string) (model.Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Reservation{}, ErrNotFound
	}
	res, err := scanReservation(t.tx.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Reservation{}, ErrNotFound
	}
	return res, err
}

func (t *pgTx) Cancel(ctx context.Context, id, reason string) (time.Time, error) {
	var cancelledAt time.Time
	err := t.tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
			cancelled_at = now(),
			cancellation_reason = NULLIF($2, '')
		WHERE id = $1
		RETURNING cancelled_at
	`, id, reason).Scan(&cancelledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	return cancelledAt, err
}

func (t *pgTx) UpdateStatus(ctx context.Context, id string, status availability.Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE bookings SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		if IsConflict(err) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) LockIdempotencyKey(ctx context.Context, scope, key string) (IdempotencyRecord, bool, error) {
	rec, err := t.selectIdempotencyForUpdate(ctx, scope, key)
	if err == nil {
		return rec, rec.Completed(), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (scope, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (scope, idempotency_key) DO NOTHING
	`, scope, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = t.selectIdempotencyForUpdate(ctx, scope, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, rec.Completed(), nil
}

func (t *pgTx) FinalizeIdempotency(ctx context.Context, rec IdempotencyRecord) error {
	var reservationID, payload any
	if rec.ReservationID != "" {
		reservationID = rec.ReservationID
	}
	if len(rec.ResponsePayload) > 0 {
		payload = string(rec.ResponsePayload)
	}
	_, err := t.tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET reservation_id = $3,
			status_code = $4,
			response_payload = $5,
			updated_at = now()
		WHERE scope = $1 AND idempotency_key = $2
	`, rec.Scope, rec.IdempotencyKey, reservationID, rec.StatusCode, payload)
	return err
}

func (t *pgTx) AppendEvent(ctx context.Context, evt outbox.Event) error {
	return t.events.Insert(ctx, t.tx, evt)
}

func (t *pgTx) selectIdempotencyForUpdate(ctx context.Context, scope, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := t.tx.QueryRow(ctx, `
		SELECT scope,
			idempotency_key,
			COALESCE(reservation_id::text, ''),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE scope = $1 AND idempotency_key = $2
		FOR UPDATE
	`, scope, key).Scan(&rec.Scope, &rec.IdempotencyKey, &rec.ReservationID, &rec.StatusCode, &responseText)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}

func selectRoom(ctx context.Context, q querier, roomID string, forUpdate bool) (model.Room, error) {
	sql := `
		SELECT id, name, hourly_rate::text, nightly_rate::text, active
		FROM rooms
		WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	var room model.Room
	var hourly, nightly string
	err := q.QueryRow(ctx, sql, roomID).Scan(&room.ID, &room.Name, &hourly, &nightly, &room.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Room{}, ErrNotFound
	}
	if err != nil {
		return model.Room{}, err
	}
	if room.Rate.Hourly, err = decimal.NewFromString(hourly); err != nil {
		return model.Room{}, err
	}
	if room.Rate.Nightly, err = decimal.NewFromString(nightly); err != nil {
		return model.Room{}, err
	}
	return room, nil
}

func listBookings(ctx context.Context, q querier, roomID string, from, to time.Time) ([]availability.Booking, error) {
	rows, err := q.Query(ctx, `
		SELECT id::text, room_id, start_time, end_time, status
		FROM bookings
		WHERE room_id = $1
			AND status <> 'cancelled'
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, roomID, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (availability.Booking, error) {
		var b availability.Booking
		var status string
		err := row.Scan(&b.ID, &b.RoomID, &b.Interval.Start, &b.Interval.End, &status)
		b.Status = availability.Status(status)
		return b, err
	})
}

const reservationColumns = `id::text, room_id, customer_name, customer_phone, kind, start_time, end_time, status,
			price::text, deposit::text, total::text, source, created_by, cancelled_at,
			COALESCE(cancellation_reason, ''), created_at`

func scanReservation(row pgx.Row) (model.Reservation, error) {
	var res model.Reservation
	var kind, status, source, price, deposit, total string
	err := row.Scan(
		&res.ID,
		&res.RoomID,
		&res.CustomerName,
		&res.CustomerPhone,
		&kind,
		&res.StartTime,
		&res.EndTime,
		&status,
		&price,
		&deposit,
		&total,
		&source,
		&res.CreatedBy,
		&res.CancelledAt,
		&res.CancelReason,
		&res.CreatedAt,
	)
	if err != nil {
		return model.Reservation{}, err
	}
	res.Kind = availability.Kind(kind)
	res.Status = availability.Status(status)
	res.Source = model.Source(source)
	for _, f := range []struct {
		dst *decimal.Decimal
		raw string
	}{{&res.Price, price}, {&res.Deposit, deposit}, {&res.Total, total}} {
		if *f.dst, err = decimal.NewFromString(f.raw); err != nil {
			return model.Reservation{}, err
		}
	}
	return res, nil
}

// IsConflict reports an exclusion-constraint violation (overlapping active reservation).
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}
