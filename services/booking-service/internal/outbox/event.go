package outbox

import (
	"encoding/json"
	"time"
)

// Event is the envelope written to outbox_events. The Kafka topic equals EventType.
type Event struct {
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AggregateReservation = "reservation"

	TypeReservationCreated       = "booking.reservation.created.v1"
	TypeReservationCancelled     = "booking.reservation.cancelled.v1"
	TypeReservationStatusChanged = "booking.reservation.status_changed.v1"
)

// ReservationPayload is the body shared by all reservation events.
type ReservationPayload struct {
	ReservationID string `json:"reservation_id"`
	RoomID        string `json:"room_id"`
	Kind          string `json:"kind"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	PrevStatus    string `json:"prev_status,omitempty"`
	Total         string `json:"total,omitempty"`
	Deposit       string `json:"deposit,omitempty"`
	Source        string `json:"source,omitempty"`
	Actor         string `json:"actor,omitempty"`
	Reason        string `json:"reason,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

func NewReservationEvent(eventType, reservationID string, payload ReservationPayload, at time.Time) (Event, error) {
	payload.ReservationID = reservationID
	payload.OccurredAt = at.UTC().Format(time.RFC3339)
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateReservation,
		AggregateID:   reservationID,
		EventType:     eventType,
		Payload:       body,
	}, nil
}
