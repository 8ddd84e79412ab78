package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

// Booker is the slice of booking.Service the HTTP layer uses.
type Booker interface {
	Services(ctx context.Context) ([]model.Service, error)
	Slots(ctx context.Context, q booking.SlotsQuery) ([]availability.Slot, error)
	Calendar(ctx context.Context, masterID string, year int, month time.Month) ([]availability.DayStatus, error)
	Book(ctx context.Context, req booking.BookRequest) (booking.BookResult, error)
	ManualBook(ctx context.Context, req booking.ManualRequest) (model.Appointment, error)
	Cancel(ctx context.Context, id, clientID string) (model.Appointment, error)
	Reschedule(ctx context.Context, req booking.RescheduleRequest) (model.Appointment, error)
	Complete(ctx context.Context, id string, finalPrice *float64) (model.Appointment, error)
	Delete(ctx context.Context, id string) (model.Appointment, error)
	ClientAppointments(ctx context.Context, clientID string, limit int) ([]model.Appointment, error)
	Agenda(ctx context.Context, masterID string, date clock.Date, limit int) ([]model.Appointment, error)
	WorkingHours(ctx context.Context, masterID string) (availability.WorkingHours, bool, error)
	UpdateWorkingHours(ctx context.Context, masterID string, wh availability.WorkingHours) error
}

type BookingHandler struct {
	svc    Booker
	logger *slog.Logger
}

func NewBookingHandler(svc Booker, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, logger: logger}
}

type appointmentItem struct {
	AppointmentID string   `json:"appointment_id"`
	ClientID      string   `json:"client_id"`
	MasterID      string   `json:"master_id"`
	ServiceID     string   `json:"service_id"`
	Date          string   `json:"date"`
	TimeSlot      string   `json:"time_slot"`
	Status        string   `json:"status"`
	Price         float64  `json:"price"`
	FinalPrice    *float64 `json:"final_price,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	CreatedAt     string   `json:"created_at,omitempty"`
}

func toItem(a model.Appointment) appointmentItem {
	item := appointmentItem{
		AppointmentID: a.ID,
		ClientID:      a.ClientID,
		MasterID:      a.MasterID,
		ServiceID:     a.ServiceID,
		Date:          a.Date.String(),
		TimeSlot:      a.TimeSlot.String(),
		Status:        string(a.Status),
		Price:         a.Price,
		FinalPrice:    a.FinalPrice,
		Notes:         a.Notes,
	}
	if !a.CreatedAt.IsZero() {
		item.CreatedAt = a.CreatedAt.UTC().Format(time.RFC3339)
	}
	return item
}

func toItems(appts []model.Appointment) []appointmentItem {
	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, toItem(a))
	}
	return items
}

// writeError maps service errors onto status codes.
func (h *BookingHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidInput),
		errors.Is(err, booking.ErrEmptyCart),
		errors.Is(err, booking.ErrUnknownService):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, booking.ErrNotFound):
		http.Error(w, "appointment not found", http.StatusNotFound)
	case errors.Is(err, booking.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, booking.ErrSlotUnavailable):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, booking.ErrSlotTaken),
		errors.Is(err, booking.ErrBusy),
		errors.Is(err, booking.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "dependency timeout", http.StatusServiceUnavailable)
	default:
		h.logger.Error("request failed",
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"err", err,
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func allowMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return false
	}
	return true
}

// parseDateTime parses the date and time fields shared by booking requests.
func parseDateTime(w http.ResponseWriter, date, at string) (clock.Date, clock.TimeOfDay, bool) {
	d, err := clock.ParseDate(strings.TrimSpace(date))
	if err != nil {
		http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return clock.Date{}, 0, false
	}
	t, err := clock.ParseTimeOfDay(strings.TrimSpace(at))
	if err != nil {
		http.Error(w, "invalid time, want HH:MM", http.StatusBadRequest)
		return clock.Date{}, 0, false
	}
	return d, t, true
}

func parseLimit(r *http.Request) int {
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	return limit
}
