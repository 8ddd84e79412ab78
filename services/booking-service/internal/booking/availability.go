package booking

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"go.opentelemetry.io/otel/attribute"
)

type SlotsQuery struct {
	MasterID   string
	Date       clock.Date
	ServiceIDs []string
}

// Slots lists the master's grid for the date, tagged for a booking of the
// whole cart's duration.
func (s *Service) Slots(ctx context.Context, q SlotsQuery) (_ []availability.Slot, err error) {
	ctx, span := startSpan(ctx, "booking.Slots",
		attribute.String("master_id", q.MasterID),
		attribute.String("date", q.Date.String()),
	)
	defer func() { endSpan(span, err) }()

	if q.MasterID == "" || q.Date.IsZero() {
		return nil, ErrInvalidInput
	}
	st, err := s.load(ctx, q.MasterID, q.Date, q.Date)
	if err != nil {
		return nil, err
	}
	items, err := resolveCart(st.catalog, q.MasterID, q.ServiceIDs)
	if err != nil {
		return nil, err
	}
	return availability.GenerateSlots(q.Date, st.snapshot, st.catalog, st.schedule, model.TotalDuration(items), s.Now()), nil
}

// Calendar classifies every day of the month for the master.
func (s *Service) Calendar(ctx context.Context, masterID string, year int, month time.Month) (_ []availability.DayStatus, err error) {
	ctx, span := startSpan(ctx, "booking.Calendar",
		attribute.String("master_id", masterID),
		attribute.Int("year", year),
		attribute.Int("month", int(month)),
	)
	defer func() { endSpan(span, err) }()

	if masterID == "" || month < time.January || month > time.December {
		return nil, ErrInvalidInput
	}
	days := clock.MonthDays(year, month)
	st, err := s.load(ctx, masterID, days[0], days[len(days)-1])
	if err != nil {
		return nil, err
	}
	return availability.ClassifyDays(days, st.snapshot, st.catalog, st.schedule, s.Now()), nil
}
