package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/md-rashed-zaman/staybook/libs/auth"
	"github.com/md-rashed-zaman/staybook/libs/httpx"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/reservations"
)

const maxIdempotencyKeyLen = 128

type Handler struct {
	svc      *reservations.Service
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(svc *reservations.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger, validate: newValidator()}
}

// caller resolves the policy role and the actor recorded on writes.
type caller func(r *http.Request) (role, actor string)

func publicCaller(*http.Request) (string, string) {
	return auth.RoleCustomer, ""
}

func staffCaller(r *http.Request) (string, string) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return "", ""
	}
	return claims.Role, claims.Sub
}

// Register mounts the public routes and, wrapped in staffAuth, the staff console routes.
func (h *Handler) Register(mux *http.ServeMux, staffAuth httpx.Middleware) {
	mux.Handle("GET /api/v1/public/slots", h.slots(publicCaller))
	mux.Handle("POST /api/v1/public/selection", h.selection(publicCaller))
	mux.Handle("GET /api/v1/public/day-availability", h.dayAvailability(publicCaller))
	mux.Handle("POST /api/v1/public/quote", h.quote(publicCaller))
	mux.Handle("POST /api/v1/public/book", h.book(publicCaller))

	staff := func(next http.Handler) http.Handler {
		return httpx.Chain(next, staffAuth, auth.RequireRole(auth.RoleStaff, auth.RoleAdmin))
	}
	mux.Handle("GET /api/v1/staff/slots", staff(h.slots(staffCaller)))
	mux.Handle("POST /api/v1/staff/selection", staff(h.selection(staffCaller)))
	mux.Handle("GET /api/v1/staff/day-availability", staff(h.dayAvailability(staffCaller)))
	mux.Handle("POST /api/v1/staff/quote", staff(h.quote(staffCaller)))
	mux.Handle("POST /api/v1/staff/book", staff(h.book(staffCaller)))
	mux.Handle("POST /api/v1/staff/cancel", staff(http.HandlerFunc(h.cancel)))
	mux.Handle("POST /api/v1/staff/status", staff(http.HandlerFunc(h.setStatus)))
	mux.Handle("GET /api/v1/staff/bookings", staff(http.HandlerFunc(h.list)))
}

type dayQuery struct {
	RoomID string `query:"room_id" validate:"required"`
	Date   string `query:"date" validate:"required"`
}

func dayQueryFrom(r *http.Request) dayQuery {
	q := r.URL.Query()
	return dayQuery{
		RoomID: strings.TrimSpace(q.Get("room_id")),
		Date:   strings.TrimSpace(q.Get("date")),
	}
}

type slotItem struct {
	Index     int    `json:"index"`
	Label     string `json:"label"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
	Reason    string `json:"reason"`
}

type slotsResponse struct {
	RoomID        string     `json:"room_id"`
	Date          string     `json:"date"`
	BufferMinutes int        `json:"buffer_minutes"`
	Slots         []slotItem `json:"slots"`
}

func (h *Handler) slots(who caller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := dayQueryFrom(r)
		if !h.check(w, q) {
			return
		}
		role, _ := who(r)
		day, err := h.svc.Slots(r.Context(), role, q.RoomID, q.Date)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		resp := slotsResponse{
			RoomID:        day.RoomID,
			Date:          availability.FormatDate(day.Date),
			BufferMinutes: int(day.Buffer / time.Minute),
			Slots:         make([]slotItem, 0, len(day.Slots)),
		}
		for i, s := range day.Slots {
			resp.Slots = append(resp.Slots, slotItem{
				Index:     i,
				Label:     s.Slot.Label,
				StartTime: s.Slot.Interval.Start.Format(time.RFC3339),
				EndTime:   s.Slot.Interval.End.Format(time.RFC3339),
				Available: s.Available,
				Reason:    string(s.Reason),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

type selectionBody struct {
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

type selectionRequest struct {
	RoomID    string         `json:"room_id" validate:"required"`
	Date      string         `json:"date" validate:"required"`
	SlotIndex *int           `json:"slot_index" validate:"required,min=0"`
	Current   *selectionBody `json:"current"`
}

type selectionResponse struct {
	Selection *selectionBody `json:"selection"`
}

func toSelection(b *selectionBody) (*availability.Selection, error) {
	if b == nil {
		return nil, nil
	}
	start, err := time.Parse(time.RFC3339, b.StartTime)
	if err != nil {
		return nil, errors.New("invalid current.start_time")
	}
	end, err := time.Parse(time.RFC3339, b.EndTime)
	if err != nil {
		return nil, errors.New("invalid current.end_time")
	}
	if !end.After(start) {
		return nil, errors.New("current.end_time must be after current.start_time")
	}
	return &availability.Selection{Start: start, End: end}, nil
}

func fromSelection(s *availability.Selection) *selectionBody {
	if s == nil {
		return nil
	}
	return &selectionBody{StartTime: s.Start.Format(time.RFC3339), EndTime: s.End.Format(time.RFC3339)}
}

// selection folds one slot click into the selection the client sent. The server keeps
// no selection state between calls.
func (h *Handler) selection(who caller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req selectionRequest
		if !h.decode(w, r, &req) {
			return
		}
		current, err := toSelection(req.Current)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		role, _ := who(r)
		next, err := h.svc.Click(r.Context(), role, req.RoomID, req.Date, *req.SlotIndex, current)
		if err != nil {
			if errors.Is(err, availability.ErrNonContiguousSelection) || errors.Is(err, availability.ErrSlotUnavailable) {
				writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Selection: fromSelection(next)})
				return
			}
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, selectionResponse{Selection: fromSelection(next)})
	})
}

type dayAvailabilityResponse struct {
	RoomID    string `json:"room_id"`
	Date      string `json:"date"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Available bool   `json:"available"`
}

func (h *Handler) dayAvailability(who caller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := dayQueryFrom(r)
		if !h.check(w, q) {
			return
		}
		role, _ := who(r)
		res, err := h.svc.DayAvailability(r.Context(), role, q.RoomID, q.Date)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, dayAvailabilityResponse{
			RoomID:    res.RoomID,
			Date:      q.Date,
			CheckIn:   res.Stay.Start.Format(time.RFC3339),
			CheckOut:  res.Stay.End.Format(time.RFC3339),
			Available: res.Available,
		})
	})
}

type stayRequest struct {
	RoomID    string `json:"room_id" validate:"required"`
	Kind      string `json:"kind" validate:"required,oneof=day hour"`
	Date      string `json:"date" validate:"required_if=Kind day"`
	StartTime string `json:"start_time" validate:"required_if=Kind hour"`
	EndTime   string `json:"end_time" validate:"required_if=Kind hour"`
}

func (s stayRequest) toStay() (reservations.Stay, error) {
	kind, err := availability.ParseKind(s.Kind)
	if err != nil {
		return reservations.Stay{}, err
	}
	st := reservations.Stay{RoomID: s.RoomID, Kind: kind, Date: s.Date}
	if kind == availability.KindHour {
		if st.Start, err = time.Parse(time.RFC3339, s.StartTime); err != nil {
			return st, errors.New("invalid start_time")
		}
		if st.End, err = time.Parse(time.RFC3339, s.EndTime); err != nil {
			return st, errors.New("invalid end_time")
		}
	}
	return st, nil
}

type quoteResponse struct {
	Kind      string `json:"kind"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Price     string `json:"price"`
	Deposit   string `json:"deposit"`
	Total     string `json:"total"`
	Balance   string `json:"balance"`
}

func (h *Handler) quote(who caller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req stayRequest
		if !h.decode(w, r, &req) {
			return
		}
		st, err := req.toStay()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		role, _ := who(r)
		q, err := h.svc.Quote(r.Context(), role, st)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, quoteResponse{
			Kind:      string(q.Kind),
			StartTime: q.Stay.Start.Format(time.RFC3339),
			EndTime:   q.Stay.End.Format(time.RFC3339),
			Price:     q.Price.StringFixed(2),
			Deposit:   q.Deposit.StringFixed(2),
			Total:     q.Total.StringFixed(2),
			Balance:   q.Balance.StringFixed(2),
		})
	})
}

type bookRequest struct {
	stayRequest
	CustomerName  string `json:"customer_name" validate:"required,max=120"`
	CustomerPhone string `json:"customer_phone" validate:"omitempty,max=32"`
}

func (h *Handler) book(who caller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if len(key) > maxIdempotencyKeyLen {
			writeError(w, http.StatusBadRequest, "Idempotency-Key too long")
			return
		}
		var req bookRequest
		if !h.decode(w, r, &req) {
			return
		}
		st, err := req.toStay()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		role, actor := who(r)
		receipt, err := h.svc.Reserve(r.Context(), role, reservations.ReserveRequest{
			Stay:           st,
			CustomerName:   req.CustomerName,
			CustomerPhone:  req.CustomerPhone,
			Actor:          actor,
			IdempotencyKey: key,
		})
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.AnnotateLog(r.Context(), "reservation_id", receipt.ReservationID, "replayed", receipt.Replayed)
		writeJSON(w, http.StatusCreated, receipt)
	})
}

type cancelRequest struct {
	ReservationID string `json:"reservation_id" validate:"required"`
	Reason        string `json:"reason" validate:"max=500"`
}

type cancelResponse struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
	CancelledAt   string `json:"cancelled_at"`
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !h.decode(w, r, &req) {
		return
	}
	_, actor := staffCaller(r)
	c, err := h.svc.Cancel(r.Context(), actor, strings.TrimSpace(req.ReservationID), strings.TrimSpace(req.Reason))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse{
		ReservationID: c.ReservationID,
		Status:        string(availability.StatusCancelled),
		CancelledAt:   c.CancelledAt.UTC().Format(time.RFC3339),
	})
}

type statusRequest struct {
	ReservationID string `json:"reservation_id" validate:"required"`
	Status        string `json:"status" validate:"required,oneof=deposited checked_in checked_out"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	_, actor := staffCaller(r)
	res, err := h.svc.SetStatus(r.Context(), actor, strings.TrimSpace(req.ReservationID), availability.Status(req.Status))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemFor(res))
}

type listQuery struct {
	RoomID string `query:"room_id" validate:"required"`
	From   string `query:"from" validate:"required"`
	To     string `query:"to"`
}

type reservationItem struct {
	ReservationID string `json:"reservation_id"`
	RoomID        string `json:"room_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	Kind          string `json:"kind"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	Price         string `json:"price"`
	Deposit       string `json:"deposit"`
	Total         string `json:"total"`
	Source        string `json:"source"`
	CreatedBy     string `json:"created_by,omitempty"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
	CancelReason  string `json:"cancellation_reason,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func itemFor(res model.Reservation) reservationItem {
	item := reservationItem{
		ReservationID: res.ID,
		RoomID:        res.RoomID,
		CustomerName:  res.CustomerName,
		CustomerPhone: res.CustomerPhone,
		Kind:          string(res.Kind),
		StartTime:     res.StartTime.Format(time.RFC3339),
		EndTime:       res.EndTime.Format(time.RFC3339),
		Status:        string(res.Status),
		Price:         res.Price.StringFixed(2),
		Deposit:       res.Deposit.StringFixed(2),
		Total:         res.Total.StringFixed(2),
		Source:        string(res.Source),
		CreatedBy:     res.CreatedBy,
		CancelReason:  res.CancelReason,
		CreatedAt:     res.CreatedAt.UTC().Format(time.RFC3339),
	}
	if res.CancelledAt != nil {
		item.CancelledAt = res.CancelledAt.UTC().Format(time.RFC3339)
	}
	return item
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lq := listQuery{
		RoomID: strings.TrimSpace(q.Get("room_id")),
		From:   strings.TrimSpace(q.Get("from")),
		To:     strings.TrimSpace(q.Get("to")),
	}
	if !h.check(w, lq) {
		return
	}
	limit := 50
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	role, _ := staffCaller(r)
	list, err := h.svc.List(r.Context(), role, lq.RoomID, lq.From, lq.To, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items := make([]reservationItem, 0, len(list))
	for _, res := range list {
		items = append(items, itemFor(res))
	}
	writeJSON(w, http.StatusOK, items)
}
