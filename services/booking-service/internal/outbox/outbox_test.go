package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

func TestAppointmentEvent(t *testing.T) {
	final := 1800.0
	appt := model.Appointment{
		ID:         "appt-1",
		ClientID:   "client-1",
		MasterID:   "master-1",
		ServiceID:  "cut",
		Date:       clock.MustParseDate("2026-10-20"),
		TimeSlot:   clock.MustParseTimeOfDay("9:30"),
		Status:     model.StatusCompleted,
		Price:      1500,
		FinalPrice: &final,
	}
	evt, err := AppointmentEvent(AppointmentCompleted, appt, time.Date(2026, 10, 20, 11, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("AppointmentEvent: %v", err)
	}
	if evt.AggregateID != "appt-1" || evt.EventType != AppointmentCompleted || evt.AggregateType != "appointment" {
		t.Fatalf("unexpected envelope: %+v", evt)
	}

	var payload map[string]any
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if payload["date"] != "2026-10-20" || payload["time_slot"] != "09:30" || payload["final_price"] != 1800.0 {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestMessage(t *testing.T) {
	msg := Message(context.Background(), Record{
		EventID:     "evt-1",
		AggregateID: "appt-1",
		EventType:   AppointmentBooked,
		Payload:     []byte(`{}`),
	})
	if msg.Topic != AppointmentBooked || string(msg.Key) != "appt-1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventID) != "evt-1" ||
		kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventType) != AppointmentBooked {
		t.Fatalf("unexpected headers: %v", msg.Headers)
	}
}
