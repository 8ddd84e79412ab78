package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AppointmentBooked      = "booking.appointment.booked.v1"
	AppointmentCancelled   = "booking.appointment.cancelled.v1"
	AppointmentRescheduled = "booking.appointment.rescheduled.v1"
	AppointmentCompleted   = "booking.appointment.completed.v1"
	AppointmentDeleted     = "booking.appointment.deleted.v1"
)

type appointmentPayload struct {
	AppointmentID string   `json:"appointment_id"`
	ClientID      string   `json:"client_id"`
	MasterID      string   `json:"master_id"`
	ServiceID     string   `json:"service_id"`
	Date          string   `json:"date"`
	TimeSlot      string   `json:"time_slot"`
	Status        string   `json:"status"`
	Price         float64  `json:"price"`
	FinalPrice    *float64 `json:"final_price,omitempty"`
	OccurredAt    string   `json:"occurred_at"`
}

func AppointmentEvent(eventType string, a model.Appointment, at time.Time) (Event, error) {
	payload, err := json.Marshal(appointmentPayload{
		AppointmentID: a.ID,
		ClientID:      a.ClientID,
		MasterID:      a.MasterID,
		ServiceID:     a.ServiceID,
		Date:          a.Date.String(),
		TimeSlot:      a.TimeSlot.String(),
		Status:        string(a.Status),
		Price:         a.Price,
		FinalPrice:    a.FinalPrice,
		OccurredAt:    at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "appointment",
		AggregateID:   a.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
