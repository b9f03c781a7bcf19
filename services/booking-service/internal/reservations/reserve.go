package reservations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/policy"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/storage"
	"github.com/shopspring/decimal"
)

// Stay identifies what is being priced or booked. Day stays use Date; hour stays use
// Start and End, which must lie inside the role's slot plan.
type Stay struct {
	RoomID string
	Kind   availability.Kind
	Date   string
	Start  time.Time
	End    time.Time
}

func (st Stay) interval(pol policy.Policy) (availability.Interval, error) {
	switch st.Kind {
	case availability.KindDay:
		d, err := availability.ParseDate(st.Date, pol.Location)
		if err != nil {
			return availability.Interval{}, err
		}
		return availability.DayInterval(d, pol.DayShape), nil
	case availability.KindHour:
		if !st.End.After(st.Start) {
			return availability.Interval{}, availability.ErrInvalidInterval
		}
		iv := availability.Interval{Start: st.Start, End: st.End}
		if !withinPlan(iv, pol) {
			return availability.Interval{}, ErrOutsidePlan
		}
		return iv, nil
	default:
		return availability.Interval{}, fmt.Errorf("%w: %q", availability.ErrUnknownKind, st.Kind)
	}
}

// Quote is a price breakdown. Total is the room charge; Balance is what remains after
// the deposit.
type Quote struct {
	Stay    availability.Interval
	Kind    availability.Kind
	Price   decimal.Decimal
	Deposit decimal.Decimal
	Total   decimal.Decimal
	Balance decimal.Decimal
}

func (s *Service) Quote(ctx context.Context, role string, st Stay) (Quote, error) {
	ctx, span := s.start(ctx, "reservations.quote", st.RoomID)
	defer span.End()

	pol, err := s.policies.PolicyFor(ctx, role)
	if err != nil {
		return Quote{}, err
	}
	iv, err := st.interval(pol)
	if err != nil {
		return Quote{}, err
	}
	room, err := s.room(ctx, st.RoomID)
	if err != nil {
		return Quote{}, err
	}
	return quoteFor(iv, st.Kind, room.Rate, pol.Deposit)
}

func quoteFor(iv availability.Interval, kind availability.Kind, rate availability.RoomRate, deposit decimal.Decimal) (Quote, error) {
	price, err := availability.PriceFor(iv, kind, rate)
	if err != nil {
		return Quote{}, err
	}
	if deposit.GreaterThan(price) {
		deposit = price
	}
	return Quote{
		Stay:    iv,
		Kind:    kind,
		Price:   price,
		Deposit: deposit,
		Total:   price,
		Balance: price.Sub(deposit),
	}, nil
}

type ReserveRequest struct {
	Stay
	CustomerName   string
	CustomerPhone  string
	Actor          string
	IdempotencyKey string
}

// Receipt is the response body of a committed reservation. It is also what gets
// replayed for a repeated Idempotency-Key.
type Receipt struct {
	ReservationID string `json:"reservation_id"`
	RoomID        string `json:"room_id"`
	Kind          string `json:"kind"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	Price         string `json:"price"`
	Deposit       string `json:"deposit"`
	Total         string `json:"total"`
	Replayed      bool   `json:"-"`
}

// Reserve re-checks the requested stay under the room lock and stores it. A stay that
// lost a race returns availability.ErrRangeUnavailable or ErrDayUnavailable.
func (s *Service) Reserve(ctx context.Context, role string, req ReserveRequest) (Receipt, error) {
	ctx, span := s.start(ctx, "reservations.reserve", req.RoomID)
	defer span.End()

	pol, err := s.policies.PolicyFor(ctx, role)
	if err != nil {
		return Receipt{}, err
	}
	iv, err := req.interval(pol)
	if err != nil {
		return Receipt{}, err
	}
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if req.CustomerName == "" {
		return Receipt{}, ErrMissingCustomer
	}
	source := sourceFor(role)
	scope := string(source) + ":" + req.RoomID

	var receipt Receipt
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		var rec storage.IdempotencyRecord
		if req.IdempotencyKey != "" {
			locked, done, err := tx.LockIdempotencyKey(ctx, scope, req.IdempotencyKey)
			if err != nil {
				return err
			}
			rec = locked
			if done {
				if err := json.Unmarshal(rec.ResponsePayload, &receipt); err != nil {
					return fmt.Errorf("decode stored response: %w", err)
				}
				receipt.Replayed = true
				return nil
			}
		}

		room, err := tx.LockRoom(ctx, req.RoomID)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && !room.Active) {
			return fmt.Errorf("%w: %q", ErrRoomNotFound, req.RoomID)
		}
		if err != nil {
			return err
		}

		now := s.clock.Now()
		window := availability.Expand(iv, pol.Buffer)
		existing, err := tx.ListBookings(ctx, req.RoomID, window.Start, window.End)
		if err != nil {
			return err
		}
		if !availability.IsRangeAvailable(iv, existing, pol.Buffer, now) {
			return unavailable(req.Kind)
		}

		q, err := quoteFor(iv, req.Kind, room.Rate, pol.Deposit)
		if err != nil {
			return err
		}
		res := &model.Reservation{
			RoomID:        req.RoomID,
			CustomerName:  req.CustomerName,
			CustomerPhone: strings.TrimSpace(req.CustomerPhone),
			Kind:          req.Kind,
			StartTime:     iv.Start,
			EndTime:       iv.End,
			Status:        initialStatus(source),
			Price:         q.Price,
			Deposit:       q.Deposit,
			Total:         q.Total,
			Source:        source,
			CreatedBy:     req.Actor,
		}
		if err := tx.Insert(ctx, res); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return unavailable(req.Kind)
			}
			return err
		}

		payload := payloadFor(*res)
		payload.Actor = req.Actor
		evt, err := outbox.NewReservationEvent(outbox.TypeReservationCreated, res.ID, payload, now)
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, evt); err != nil {
			return err
		}

		receipt = receiptFor(*res)
		if req.IdempotencyKey != "" {
			body, err := json.Marshal(receipt)
			if err != nil {
				return err
			}
			rec.ReservationID = res.ID
			rec.StatusCode = http.StatusCreated
			rec.ResponsePayload = body
			if err := tx.FinalizeIdempotency(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return Receipt{}, err
	}
	if receipt.Replayed {
		s.logger.Info("reservation replayed", "reservation_id", receipt.ReservationID, "idempotency_key", req.IdempotencyKey)
	} else {
		s.logger.Info("reservation created", "reservation_id", receipt.ReservationID, "room_id", req.RoomID, "kind", req.Kind, "source", source)
	}
	return receipt, nil
}

func unavailable(kind availability.Kind) error {
	if kind == availability.KindDay {
		return availability.ErrDayUnavailable
	}
	return availability.ErrRangeUnavailable
}

func initialStatus(source model.Source) availability.Status {
	if source == model.SourceStaff {
		return availability.StatusDeposited
	}
	return availability.StatusPendingDeposit
}

func payloadFor(r model.Reservation) outbox.ReservationPayload {
	return outbox.ReservationPayload{
		RoomID:    r.RoomID,
		Kind:      string(r.Kind),
		StartTime: r.StartTime.UTC().Format(time.RFC3339),
		EndTime:   r.EndTime.UTC().Format(time.RFC3339),
		Status:    string(r.Status),
		Total:     r.Total.String(),
		Deposit:   r.Deposit.String(),
		Source:    string(r.Source),
	}
}

func receiptFor(r model.Reservation) Receipt {
	return Receipt{
		ReservationID: r.ID,
		RoomID:        r.RoomID,
		Kind:          string(r.Kind),
		StartTime:     r.StartTime.Format(time.RFC3339),
		EndTime:       r.EndTime.Format(time.RFC3339),
		Status:        string(r.Status),
		Price:         r.Price.StringFixed(2),
		Deposit:       r.Deposit.StringFixed(2),
		Total:         r.Total.StringFixed(2),
	}
}
