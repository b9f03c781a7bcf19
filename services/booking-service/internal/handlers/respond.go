package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/md-rashed-zaman/staybook/libs/httpx"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/policy"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/reservations"
)

type errorResponse struct {
	Error     string         `json:"error"`
	Selection *selectionBody `json:"selection,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, availability.ErrInvalidDate),
		errors.Is(err, availability.ErrInvalidClock),
		errors.Is(err, availability.ErrInvalidInterval),
		errors.Is(err, availability.ErrUnknownKind),
		errors.Is(err, reservations.ErrInvalidSlot),
		errors.Is(err, reservations.ErrOutsidePlan),
		errors.Is(err, reservations.ErrMissingCustomer):
		return http.StatusBadRequest
	case errors.Is(err, policy.ErrUnknownRole):
		return http.StatusForbidden
	case errors.Is(err, reservations.ErrRoomNotFound),
		errors.Is(err, reservations.ErrReservationNotFound):
		return http.StatusNotFound
	case errors.Is(err, availability.ErrRangeUnavailable),
		errors.Is(err, availability.ErrDayUnavailable),
		errors.Is(err, availability.ErrSlotUnavailable),
		errors.Is(err, availability.ErrNonContiguousSelection),
		errors.Is(err, reservations.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "err", err, "request_id", httpx.RequestIDFromContext(r.Context()), "path", r.URL.Path)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return h.check(w, dst)
}

func (h *Handler) check(w http.ResponseWriter, req any) bool {
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return "invalid request: " + strings.Join(parts, ", ")
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			name = f.Tag.Get("query")
		}
		return name
	})
	return v
}

