package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/outbox"
)

// MemoryStore keeps rooms and reservations in process memory. Transactions run one
// at a time against a copy of the state that replaces it on success.
type MemoryStore struct {
	mu    sync.Mutex
	state memState
	now   func() time.Time
}

type memState struct {
	rooms        map[string]model.Room
	reservations map[string]model.Reservation
	idempotency  map[string]IdempotencyRecord
	events       []outbox.Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: memState{
			rooms:        map[string]model.Room{},
			reservations: map[string]model.Reservation{},
			idempotency:  map[string]IdempotencyRecord{},
		},
		now: time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) PutRoom(room model.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.rooms[room.ID] = room
}

func (s *MemoryStore) UpsertRoom(_ context.Context, room model.Room) error {
	s.PutRoom(room)
	return nil
}

// Events returns the outbox events committed so far.
func (s *MemoryStore) Events() []outbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbox.Event(nil), s.state.events...)
}

func (s *MemoryStore) Room(_ context.Context, roomID string) (model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.state.rooms[roomID]
	if !ok {
		return model.Room{}, ErrNotFound
	}
	return room, nil
}

func (s *MemoryStore) ListBookings(_ context.Context, roomID string, from, to time.Time) ([]availability.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.listBookings(roomID, from, to), nil
}

func (s *MemoryStore) ListByRoom(_ context.Context, roomID string, from, to time.Time, limit int) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	window := availability.Interval{Start: from, End: to}
	var out []model.Reservation
	for _, r := range s.state.reservations {
		if r.RoomID == roomID && availability.Overlaps(r.Interval(), window) {
			out = append(out, r)
		}
	}
	sortByStart(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(&memTx{st: &work, now: s.now}); err != nil {
		return err
	}
	s.state = work
	return nil
}

type memTx struct {
	st  *memState
	now func() time.Time
}

func (t *memTx) LockRoom(_ context.Context, roomID string) (model.Room, error) {
	room, ok := t.st.rooms[roomID]
	if !ok {
		return model.Room{}, ErrNotFound
	}
	return room, nil
}

func (t *memTx) ListBookings(_ context.Context, roomID string, from, to time.Time) ([]availability.Booking, error) {
	return t.st.listBookings(roomID, from, to), nil
}

func (t *memTx) Insert(_ context.Context, r *model.Reservation) error {
	if _, ok := t.st.rooms[r.RoomID]; !ok {
		return ErrNotFound
	}
	if r.Status.Occupies() && t.st.overlapsActive(r.RoomID, "", r.Interval()) {
		return ErrConflict
	}
	r.ID = uuid.NewString()
	r.CreatedAt = t.now()
	t.st.reservations[r.ID] = *r
	return nil
}

func (t *memTx) GetForUpdate(_ context.Context, id string) (model.Reservation, error) {
	r, ok := t.st.reservations[id]
	if !ok {
		return model.Reservation{}, ErrNotFound
	}
	return r, nil
}

func (t *memTx) Cancel(_ context.Context, id, reason string) (time.Time, error) {
	r, ok := t.st.reservations[id]
	if !ok {
		return time.Time{}, ErrNotFound
	}
	at := t.now()
	r.Status = availability.StatusCancelled
	r.CancelledAt = &at
	r.CancelReason = reason
	t.st.reservations[id] = r
	return at, nil
}

func (t *memTx) UpdateStatus(_ context.Context, id string, status availability.Status) error {
	r, ok := t.st.reservations[id]
	if !ok {
		return ErrNotFound
	}
	if !r.Status.Occupies() && status.Occupies() && t.st.overlapsActive(r.RoomID, id, r.Interval()) {
		return ErrConflict
	}
	r.Status = status
	t.st.reservations[id] = r
	return nil
}

func (t *memTx) LockIdempotencyKey(_ context.Context, scope, key string) (IdempotencyRecord, bool, error) {
	k := scope + "\x00" + key
	rec, ok := t.st.idempotency[k]
	if !ok {
		rec = IdempotencyRecord{Scope: scope, IdempotencyKey: key}
		t.st.idempotency[k] = rec
	}
	return rec, rec.Completed(), nil
}

func (t *memTx) FinalizeIdempotency(_ context.Context, rec IdempotencyRecord) error {
	t.st.idempotency[rec.Scope+"\x00"+rec.IdempotencyKey] = rec
	return nil
}

func (t *memTx) AppendEvent(_ context.Context, evt outbox.Event) error {
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	t.st.events = append(t.st.events, evt)
	return nil
}

func (st memState) clone() memState {
	out := memState{
		rooms:        make(map[string]model.Room, len(st.rooms)),
		reservations: make(map[string]model.Reservation, len(st.reservations)),
		idempotency:  make(map[string]IdempotencyRecord, len(st.idempotency)),
		events:       append([]outbox.Event(nil), st.events...),
	}
	for k, v := range st.rooms {
		out.rooms[k] = v
	}
	for k, v := range st.reservations {
		out.reservations[k] = v
	}
	for k, v := range st.idempotency {
		out.idempotency[k] = v
	}
	return out
}

func (st memState) listBookings(roomID string, from, to time.Time) []availability.Booking {
	window := availability.Interval{Start: from, End: to}
	var out []availability.Booking
	for _, r := range st.reservations {
		if r.RoomID != roomID || !r.Status.Occupies() {
			continue
		}
		if availability.Overlaps(r.Interval(), window) {
			out = append(out, r.Booking())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Interval.Start.Before(out[j].Interval.Start) })
	return out
}

func (st memState) overlapsActive(roomID, exceptID string, iv availability.Interval) bool {
	for id, r := range st.reservations {
		if id == exceptID || r.RoomID != roomID || !r.Status.Occupies() {
			continue
		}
		if availability.Overlaps(r.Interval(), iv) {
			return true
		}
	}
	return false
}

func sortByStart(rs []model.Reservation) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].StartTime.Before(rs[j].StartTime) })
}
