package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/storage"
)

// nextStatus lists the forward moves staff can make on a live reservation.
var nextStatus = map[availability.Status]availability.Status{
	availability.StatusPendingDeposit: availability.StatusDeposited,
	availability.StatusDeposited:      availability.StatusCheckedIn,
	availability.StatusCheckedIn:      availability.StatusCheckedOut,
}

// CanTransition reports whether a reservation in from may be moved to to.
func CanTransition(from, to availability.Status) bool {
	if to == availability.StatusCancelled {
		return from == availability.StatusPendingDeposit || from == availability.StatusDeposited
	}
	return nextStatus[from] == to
}

type Cancellation struct {
	ReservationID string
	CancelledAt   time.Time
}

// Cancel frees the reservation's time. Cancelling twice returns the first cancellation.
func (s *Service) Cancel(ctx context.Context, actor, id, reason string) (Cancellation, error) {
	ctx, span := s.tracer.Start(ctx, "reservations.cancel")
	defer span.End()

	var out Cancellation
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		res, err := s.getForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if res.Status == availability.StatusCancelled && res.CancelledAt != nil {
			out = Cancellation{ReservationID: res.ID, CancelledAt: *res.CancelledAt}
			return nil
		}
		if !CanTransition(res.Status, availability.StatusCancelled) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, res.Status, availability.StatusCancelled)
		}

		at, err := tx.Cancel(ctx, res.ID, reason)
		if err != nil {
			return err
		}
		payload := payloadFor(res)
		payload.PrevStatus = string(res.Status)
		payload.Status = string(availability.StatusCancelled)
		payload.Actor = actor
		payload.Reason = reason
		evt, err := outbox.NewReservationEvent(outbox.TypeReservationCancelled, res.ID, payload, at)
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, evt); err != nil {
			return err
		}
		out = Cancellation{ReservationID: res.ID, CancelledAt: at}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return Cancellation{}, err
	}
	s.logger.Info("reservation cancelled", "reservation_id", out.ReservationID, "actor", actor)
	return out, nil
}

// SetStatus moves a reservation one step along deposit, check-in and check-out.
func (s *Service) SetStatus(ctx context.Context, actor, id string, to availability.Status) (model.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "reservations.set_status")
	defer span.End()

	if !to.Valid() {
		return model.Reservation{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if to == availability.StatusCancelled {
		return model.Reservation{}, fmt.Errorf("%w: use cancel", ErrInvalidTransition)
	}

	var out model.Reservation
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		res, err := s.getForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if res.Status == to {
			out = res
			return nil
		}
		if !CanTransition(res.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, res.Status, to)
		}
		if err := tx.UpdateStatus(ctx, res.ID, to); err != nil {
			return err
		}

		payload := payloadFor(res)
		payload.PrevStatus = string(res.Status)
		payload.Status = string(to)
		payload.Actor = actor
		evt, err := outbox.NewReservationEvent(outbox.TypeReservationStatusChanged, res.ID, payload, s.clock.Now())
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, evt); err != nil {
			return err
		}
		res.Status = to
		out = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return model.Reservation{}, err
	}
	s.logger.Info("reservation status changed", "reservation_id", out.ID, "status", out.Status, "actor", actor)
	return out, nil
}

func (s *Service) getForUpdate(ctx context.Context, tx storage.Tx, id string) (model.Reservation, error) {
	res, err := tx.GetForUpdate(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Reservation{}, fmt.Errorf("%w: %q", ErrReservationNotFound, id)
	}
	return res, err
}
