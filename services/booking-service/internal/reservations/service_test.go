package reservations

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/staybook/libs/auth"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/policy"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/storage"
	"github.com/shopspring/decimal"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestService(t *testing.T) (*Service, *storage.MemoryStore) {
	t.Helper()
	plan, err := availability.ParsePlan("08:00/60x10")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	base := policy.Policy{
		Plan:     plan,
		DayShape: availability.DefaultDayShape,
		Location: time.UTC,
		Deposit:  decimal.NewFromInt(100),
	}
	customer := base
	customer.Role = auth.RoleCustomer
	customer.Buffer = 30 * time.Minute
	staff := base
	staff.Role = auth.RoleStaff

	store := storage.NewMemoryStore()
	store.PutRoom(model.Room{
		ID:     "R1",
		Name:   "Garden",
		Active: true,
		Rate: availability.RoomRate{
			Hourly:  decimal.RequireFromString("120.50"),
			Nightly: decimal.NewFromInt(900),
		},
	})
	store.PutRoom(model.Room{ID: "R2", Name: "Closed", Active: false})

	clock := fixedClock{t: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, policy.NewStaticProvider(customer, staff), clock, logger), store
}

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 6, day, hour, minute, 0, 0, time.UTC)
}

func hourStay(start, end time.Time) Stay {
	return Stay{RoomID: "R1", Kind: availability.KindHour, Start: start, End: end}
}

func mustReserve(t *testing.T, svc *Service, role string, st Stay) Receipt {
	t.Helper()
	r, err := svc.Reserve(context.Background(), role, ReserveRequest{Stay: st, CustomerName: "An"})
	if err != nil {
		t.Fatalf("reserve %+v: %v", st, err)
	}
	return r
}

func TestSlotsApplyRoleBuffer(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustReserve(t, svc, auth.RoleStaff, hourStay(at(2, 12, 0), at(2, 13, 0)))

	day, err := svc.Slots(ctx, auth.RoleCustomer, "R1", "2024-06-02")
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if len(day.Slots) != 10 {
		t.Fatalf("expected 10 slots, got %d", len(day.Slots))
	}
	for i, s := range day.Slots {
		want := i < 3 || i > 5
		if s.Available != want {
			t.Fatalf("customer slot %d (%s): available=%v want %v", i, s.Slot.Label, s.Available, want)
		}
	}

	day, err = svc.Slots(ctx, auth.RoleStaff, "R1", "2024-06-02")
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	for i, s := range day.Slots {
		if s.Available != (i != 4) {
			t.Fatalf("staff slot %d: available=%v", i, s.Available)
		}
	}

	if _, err := svc.Slots(ctx, auth.RoleCustomer, "R2", "2024-06-02"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("inactive room: expected ErrRoomNotFound, got %v", err)
	}
	if _, err := svc.Slots(ctx, auth.RoleCustomer, "R1", "2024-02-30"); !errors.Is(err, availability.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestClickBuildsContiguousRange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustReserve(t, svc, auth.RoleStaff, hourStay(at(2, 13, 0), at(2, 14, 0)))

	sel, err := svc.Click(ctx, auth.RoleStaff, "R1", "2024-06-02", 1, nil)
	if err != nil || sel == nil {
		t.Fatalf("first click: %v", err)
	}
	same, err := svc.Click(ctx, auth.RoleStaff, "R1", "2024-06-02", 7, sel)
	if !errors.Is(err, availability.ErrNonContiguousSelection) || same != sel {
		t.Fatalf("expected rejected range keeping state, got %v %v", same, err)
	}
	sel, err = svc.Click(ctx, auth.RoleStaff, "R1", "2024-06-02", 3, sel)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if !sel.Start.Equal(at(2, 9, 0)) || !sel.End.Equal(at(2, 12, 0)) {
		t.Fatalf("unexpected selection %v-%v", sel.Start, sel.End)
	}

	if _, err := svc.Click(ctx, auth.RoleStaff, "R1", "2024-06-02", 10, sel); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("expected ErrInvalidSlot, got %v", err)
	}
}

func TestReserveHourStay(t *testing.T) {
	svc, store := newTestService(t)

	r := mustReserve(t, svc, auth.RoleCustomer, hourStay(at(2, 14, 0), at(2, 16, 0)))
	if r.Total != "241.00" || r.Deposit != "100.00" || r.Status != string(availability.StatusPendingDeposit) {
		t.Fatalf("unexpected receipt %+v", r)
	}

	_, err := svc.Reserve(context.Background(), auth.RoleCustomer, ReserveRequest{
		Stay:         hourStay(at(2, 16, 0), at(2, 17, 0)),
		CustomerName: "Binh",
	})
	if !errors.Is(err, availability.ErrRangeUnavailable) {
		t.Fatalf("customer buffer should block back-to-back, got %v", err)
	}

	staff := mustReserve(t, svc, auth.RoleStaff, hourStay(at(2, 16, 0), at(2, 17, 0)))
	if staff.Status != string(availability.StatusDeposited) {
		t.Fatalf("staff reservation status %s", staff.Status)
	}

	events := store.Events()
	if len(events) != 2 || events[0].EventType != outbox.TypeReservationCreated || events[0].AggregateID != r.ReservationID {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestReserveRejectsPastAndInvalid(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, auth.RoleStaff, ReserveRequest{Stay: hourStay(at(1, 9, 0).AddDate(0, 0, -1), at(1, 10, 0).AddDate(0, 0, -1)), CustomerName: "An"})
	if !errors.Is(err, availability.ErrRangeUnavailable) {
		t.Fatalf("past start: expected ErrRangeUnavailable, got %v", err)
	}
	_, err = svc.Reserve(ctx, auth.RoleStaff, ReserveRequest{Stay: hourStay(at(2, 10, 0), at(2, 10, 0)), CustomerName: "An"})
	if !errors.Is(err, availability.ErrInvalidInterval) {
		t.Fatalf("empty range: expected ErrInvalidInterval, got %v", err)
	}
	_, err = svc.Reserve(ctx, auth.RoleStaff, ReserveRequest{Stay: hourStay(at(2, 10, 0), at(2, 11, 0)), CustomerName: "  "})
	if !errors.Is(err, ErrMissingCustomer) {
		t.Fatalf("expected ErrMissingCustomer, got %v", err)
	}
	_, err = svc.Reserve(ctx, "guest", ReserveRequest{Stay: hourStay(at(2, 10, 0), at(2, 11, 0)), CustomerName: "An"})
	if !errors.Is(err, policy.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestReserveIdempotencyKeyReplays(t *testing.T) {
	svc, store := newTestService(t)
	req := ReserveRequest{Stay: hourStay(at(3, 9, 0), at(3, 10, 0)), CustomerName: "An", IdempotencyKey: "k-1"}

	first, err := svc.Reserve(context.Background(), auth.RoleCustomer, req)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.Reserve(context.Background(), auth.RoleCustomer, req)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !second.Replayed || second.ReservationID != first.ReservationID || second.Total != first.Total {
		t.Fatalf("expected replay of %+v, got %+v", first, second)
	}
	if n := len(store.Events()); n != 1 {
		t.Fatalf("replay must not emit events, got %d", n)
	}
}

func TestDayStay(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	day := Stay{RoomID: "R1", Kind: availability.KindDay, Date: "2024-06-03"}
	q, err := svc.Quote(ctx, auth.RoleCustomer, day)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !q.Total.Equal(decimal.NewFromInt(900)) || !q.Balance.Equal(decimal.NewFromInt(800)) {
		t.Fatalf("unexpected quote %+v", q)
	}
	if !q.Stay.Start.Equal(at(3, 14, 0)) || !q.Stay.End.Equal(at(4, 12, 0)) {
		t.Fatalf("unexpected stay %v", q.Stay)
	}

	r := mustReserve(t, svc, auth.RoleCustomer, day)
	if r.Total != "900.00" {
		t.Fatalf("unexpected total %s", r.Total)
	}
	avail, err := svc.DayAvailability(ctx, auth.RoleCustomer, "R1", "2024-06-03")
	if err != nil || avail.Available {
		t.Fatalf("expected booked day, got %+v err=%v", avail, err)
	}
	// Previous night checks out 12:00, the next one checks in 14:00.
	avail, err = svc.DayAvailability(ctx, auth.RoleCustomer, "R1", "2024-06-04")
	if err != nil || !avail.Available {
		t.Fatalf("expected next day available, got %+v err=%v", avail, err)
	}

	_, err = svc.Reserve(ctx, auth.RoleCustomer, ReserveRequest{Stay: day, CustomerName: "Binh"})
	if !errors.Is(err, availability.ErrDayUnavailable) {
		t.Fatalf("expected ErrDayUnavailable, got %v", err)
	}

	if _, err := svc.Cancel(ctx, "staff-1", r.ReservationID, "plans changed"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	avail, _ = svc.DayAvailability(ctx, auth.RoleCustomer, "R1", "2024-06-03")
	if !avail.Available {
		t.Fatal("cancelled stay must free the day")
	}
}

func TestCancelAndStatusTransitions(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	r := mustReserve(t, svc, auth.RoleCustomer, hourStay(at(5, 10, 0), at(5, 12, 0)))

	if _, err := svc.SetStatus(ctx, "staff-1", r.ReservationID, availability.StatusCheckedIn); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending deposit cannot check in, got %v", err)
	}
	for _, st := range []availability.Status{availability.StatusDeposited, availability.StatusCheckedIn} {
		res, err := svc.SetStatus(ctx, "staff-1", r.ReservationID, st)
		if err != nil || res.Status != st {
			t.Fatalf("set %s: %+v %v", st, res, err)
		}
	}
	if _, err := svc.Cancel(ctx, "staff-1", r.ReservationID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("checked-in stay cannot be cancelled, got %v", err)
	}
	if _, err := svc.SetStatus(ctx, "staff-1", r.ReservationID, availability.StatusCheckedOut); err != nil {
		t.Fatalf("check out: %v", err)
	}

	other := mustReserve(t, svc, auth.RoleCustomer, hourStay(at(6, 10, 0), at(6, 11, 0)))
	first, err := svc.Cancel(ctx, "staff-1", other.ReservationID, "no show")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	again, err := svc.Cancel(ctx, "staff-1", other.ReservationID, "no show")
	if err != nil || !again.CancelledAt.Equal(first.CancelledAt) {
		t.Fatalf("second cancel should return the first, got %+v %v", again, err)
	}
	if _, err := svc.Cancel(ctx, "staff-1", "missing", ""); !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}

	var statusEvents, cancelEvents int
	for _, e := range store.Events() {
		switch e.EventType {
		case outbox.TypeReservationStatusChanged:
			statusEvents++
		case outbox.TypeReservationCancelled:
			cancelEvents++
		}
	}
	if statusEvents != 3 || cancelEvents != 1 {
		t.Fatalf("unexpected events: %d status, %d cancel", statusEvents, cancelEvents)
	}

	list, err := svc.List(ctx, auth.RoleStaff, "R1", "2024-06-05", "2024-06-06", 10)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %d %v", len(list), err)
	}
}

func TestClickDiscardsSelectionFromAnotherDate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustReserve(t, svc, auth.RoleStaff, hourStay(at(1, 14, 0), at(1, 16, 0)))

	stale := &availability.Selection{Start: at(1, 9, 0), End: at(1, 10, 0)}
	sel, err := svc.Click(ctx, auth.RoleStaff, "R1", "2024-06-02", 1, stale)
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if sel == nil || !sel.Start.Equal(at(2, 9, 0)) || !sel.End.Equal(at(2, 10, 0)) {
		t.Fatalf("expected a fresh 09:00-10:00 selection on 2024-06-02, got %+v", sel)
	}

	offGrid := &availability.Selection{Start: at(2, 8, 30), End: at(2, 9, 30)}
	sel, err = svc.Click(ctx, auth.RoleStaff, "R1", "2024-06-02", 3, offGrid)
	if err != nil || sel == nil || !sel.Start.Equal(at(2, 11, 0)) || !sel.End.Equal(at(2, 12, 0)) {
		t.Fatalf("off-grid selection must be discarded, got %+v (err=%v)", sel, err)
	}
}

func TestReserveRejectsHourStayOutsidePlan(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, st := range []Stay{
		hourStay(at(2, 20, 0), at(2, 22, 0)),
		hourStay(at(2, 17, 0), at(2, 19, 0)),
		hourStay(at(2, 7, 0), at(2, 9, 0)),
	} {
		_, err := svc.Reserve(ctx, auth.RoleCustomer, ReserveRequest{Stay: st, CustomerName: "An"})
		if !errors.Is(err, ErrOutsidePlan) {
			t.Fatalf("%s-%s: expected ErrOutsidePlan, got %v", st.Start.Format("15:04"), st.End.Format("15:04"), err)
		}
		if _, err := svc.Quote(ctx, auth.RoleCustomer, st); !errors.Is(err, ErrOutsidePlan) {
			t.Fatalf("quote: expected ErrOutsidePlan, got %v", err)
		}
	}
	mustReserve(t, svc, auth.RoleCustomer, hourStay(at(2, 8, 0), at(2, 18, 0)))
}

func TestReserveConcurrentOverlapsCommitOnce(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	const writers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			offset := time.Duration(i%4) * 10 * time.Minute
			st := hourStay(at(7, 10, 0).Add(offset), at(7, 11, 0).Add(offset))
			_, err := svc.Reserve(ctx, auth.RoleCustomer, ReserveRequest{Stay: st, CustomerName: "An"})

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			if !errors.Is(err, availability.ErrRangeUnavailable) {
				failures = append(failures, err)
			}
		}(i)
	}
	wg.Wait()

	if len(failures) > 0 {
		t.Fatalf("unexpected errors: %v", failures)
	}
	if successes != 1 {
		t.Fatalf("expected exactly one committed reservation, got %d", successes)
	}
	booked, err := store.ListBookings(ctx, "R1", at(7, 0, 0), at(8, 0, 0))
	if err != nil || len(booked) != 1 {
		t.Fatalf("expected one stored booking, got %d (err=%v)", len(booked), err)
	}
}
