package booking

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
	"go.opentelemetry.io/otel/attribute"
)

type BookRequest struct {
	ClientID       string
	MasterID       string
	Date           clock.Date
	Start          clock.TimeOfDay
	ServiceIDs     []string
	Notes          string
	IdempotencyKey string
}

type BookResult struct {
	Appointments []model.Appointment
	// Replayed is set when the idempotency key matched an earlier booking.
	Replayed bool
}

// Book reserves the whole cart back to back from req.Start. The snapshot is
// read under the per-day lock, the cart's total duration must fit one of the
// generated slots, and every sequenced item is re-checked before writing.
func (s *Service) Book(ctx context.Context, req BookRequest) (_ BookResult, err error) {
	ctx, span := startSpan(ctx, "booking.Book",
		attribute.String("master_id", req.MasterID),
		attribute.String("date", req.Date.String()),
		attribute.String("start", req.Start.String()),
		attribute.Int("items", len(req.ServiceIDs)),
	)
	defer func() { endSpan(span, err) }()

	if req.ClientID == "" || req.MasterID == "" || req.Date.IsZero() {
		return BookResult{}, ErrInvalidInput
	}
	if req.Date.Before(s.Today()) {
		return BookResult{}, ErrSlotUnavailable
	}

	if res, ok, err := s.replay(ctx, req); err != nil || ok {
		return res, err
	}

	release, err := s.acquire(ctx, req.MasterID, req.Date)
	if err != nil {
		return BookResult{}, err
	}
	defer release()

	// A retry that queued behind the original request sees its key only now.
	if res, ok, err := s.replay(ctx, req); err != nil || ok {
		return res, err
	}

	st, err := s.load(ctx, req.MasterID, req.Date, req.Date)
	if err != nil {
		return BookResult{}, err
	}
	items, err := resolveCart(st.catalog, req.MasterID, req.ServiceIDs)
	if err != nil {
		return BookResult{}, err
	}

	slots := availability.GenerateSlots(req.Date, st.snapshot, st.catalog, st.schedule, model.TotalDuration(items), s.Now())
	if !slices.Contains(availability.AvailableTimes(slots), req.Start) {
		return BookResult{}, ErrSlotUnavailable
	}

	assignments := availability.SequenceCart(items, req.Start)
	appts := make([]model.Appointment, 0, len(assignments))
	for _, a := range assignments {
		if !availability.IsSlotAvailable(req.Date, a.Start, a.Item.Service.DurationMinutes, st.snapshot, st.catalog, 0) {
			return BookResult{}, fmt.Errorf("%w: %s at %s", ErrSlotUnavailable, a.Item.Service.ID, a.Start)
		}
		appts = append(appts, model.Appointment{
			ClientID:  req.ClientID,
			MasterID:  req.MasterID,
			ServiceID: a.Item.Service.ID,
			Date:      req.Date,
			TimeSlot:  a.Start,
			Status:    model.StatusConfirmed,
			Price:     a.Item.Service.Price,
			Notes:     strings.TrimSpace(req.Notes),
		})
	}

	created, replayed, err := s.appts.CreateBatch(ctx, req.ClientID, req.IdempotencyKey, appts)
	if err != nil {
		return BookResult{}, translate(err)
	}
	if !replayed {
		s.logger.Info("appointments booked",
			"client_id", req.ClientID,
			"master_id", req.MasterID,
			"date", req.Date.String(),
			"start", req.Start.String(),
			"count", len(created),
		)
	}
	return BookResult{Appointments: created, Replayed: replayed}, nil
}

func (s *Service) replay(ctx context.Context, req BookRequest) (BookResult, bool, error) {
	if req.IdempotencyKey == "" {
		return BookResult{}, false, nil
	}
	prev, ok, err := s.appts.FindIdempotent(ctx, req.ClientID, req.IdempotencyKey)
	if err != nil {
		return BookResult{}, false, fmt.Errorf("idempotency lookup: %w", err)
	}
	if !ok {
		return BookResult{}, false, nil
	}
	return BookResult{Appointments: prev, Replayed: true}, true, nil
}

type ManualRequest struct {
	ClientID    string
	ClientName  string
	ClientPhone string
	MasterID    string
	ServiceID   string
	Date        clock.Date
	Start       clock.TimeOfDay
	Notes       string
}

// ManualBook records an appointment taken by the salon, e.g. over the phone.
// The lead time and slot grid do not apply, but the appointment must fall
// inside working hours and must not overlap a fresh snapshot.
func (s *Service) ManualBook(ctx context.Context, req ManualRequest) (_ model.Appointment, err error) {
	ctx, span := startSpan(ctx, "booking.ManualBook",
		attribute.String("master_id", req.MasterID),
		attribute.String("date", req.Date.String()),
	)
	defer func() { endSpan(span, err) }()

	req.ClientName = strings.TrimSpace(req.ClientName)
	if req.ClientName == "" || req.MasterID == "" || req.ServiceID == "" || req.Date.IsZero() {
		return model.Appointment{}, ErrInvalidInput
	}
	if req.Date.Before(s.Today()) {
		return model.Appointment{}, ErrSlotUnavailable
	}
	if req.ClientID == "" {
		req.ClientID = "manual-" + uuid.NewString()
	}

	release, err := s.acquire(ctx, req.MasterID, req.Date)
	if err != nil {
		return model.Appointment{}, err
	}
	defer release()

	st, err := s.load(ctx, req.MasterID, req.Date, req.Date)
	if err != nil {
		return model.Appointment{}, err
	}
	items, err := resolveCart(st.catalog, req.MasterID, []string{req.ServiceID})
	if err != nil {
		return model.Appointment{}, err
	}
	duration := items[0].Service.DurationMinutes
	if !fitsWorkingHours(req.Date, req.Start, duration, st.schedule) ||
		!availability.IsSlotAvailable(req.Date, req.Start, duration, st.snapshot, st.catalog, 0) {
		return model.Appointment{}, ErrSlotUnavailable
	}

	created, _, err := s.appts.CreateBatch(ctx, req.ClientID, "", []model.Appointment{{
		ClientID:  req.ClientID,
		MasterID:  req.MasterID,
		ServiceID: req.ServiceID,
		Date:      req.Date,
		TimeSlot:  req.Start,
		Status:    model.StatusConfirmed,
		Price:     items[0].Service.Price,
		Notes:     manualNotes(req.ClientName, req.ClientPhone, req.Notes),
	}})
	if err != nil {
		return model.Appointment{}, translate(err)
	}
	s.logger.Info("manual appointment booked", "appointment_id", created[0].ID, "master_id", req.MasterID, "date", req.Date.String())
	return created[0], nil
}

func fitsWorkingHours(date clock.Date, start clock.TimeOfDay, duration int, schedule *availability.WorkingHours) bool {
	work, open := availability.ResolveWorkingHours(date, schedule)
	return open && start >= work.Start && start.Add(duration) <= work.End
}

func manualNotes(name, phone, notes string) string {
	parts := []string{"[manual] " + name}
	if phone = strings.TrimSpace(phone); phone != "" {
		parts = append(parts, phone)
	}
	if notes = strings.TrimSpace(notes); notes != "" {
		parts = append(parts, notes)
	}
	return strings.Join(parts, " | ")
}

// Cancel frees the appointment's time. A non-empty clientID restricts the
// call to the appointment's owner.
func (s *Service) Cancel(ctx context.Context, id, clientID string) (_ model.Appointment, err error) {
	ctx, span := startSpan(ctx, "booking.Cancel", attribute.String("appointment_id", id))
	defer func() { endSpan(span, err) }()

	appt, err := s.appts.Update(ctx, id, outbox.AppointmentCancelled, func(a *model.Appointment) error {
		if clientID != "" && a.ClientID != clientID {
			return ErrForbidden
		}
		if a.Status.Finished() {
			return ErrInvalidTransition
		}
		a.Status = model.StatusCancelled
		return nil
	})
	if err != nil {
		return model.Appointment{}, translate(err)
	}
	s.logger.Info("appointment cancelled", "appointment_id", appt.ID, "master_id", appt.MasterID)
	return appt, nil
}

type RescheduleRequest struct {
	ID       string
	ClientID string
	Date     clock.Date
	Start    clock.TimeOfDay
}

// Reschedule moves an appointment. The appointment's own current slot does
// not count as a conflict.
func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) (_ model.Appointment, err error) {
	ctx, span := startSpan(ctx, "booking.Reschedule",
		attribute.String("appointment_id", req.ID),
		attribute.String("date", req.Date.String()),
		attribute.String("start", req.Start.String()),
	)
	defer func() { endSpan(span, err) }()

	if req.ID == "" || req.Date.IsZero() {
		return model.Appointment{}, ErrInvalidInput
	}
	if req.Date.Before(s.Today()) {
		return model.Appointment{}, ErrSlotUnavailable
	}
	current, err := s.appts.Get(ctx, req.ID)
	if err != nil {
		return model.Appointment{}, translate(err)
	}
	if err := checkMutable(current, req.ClientID); err != nil {
		return model.Appointment{}, err
	}

	release, err := s.acquire(ctx, current.MasterID, req.Date)
	if err != nil {
		return model.Appointment{}, err
	}
	defer release()

	st, err := s.load(ctx, current.MasterID, req.Date, req.Date)
	if err != nil {
		return model.Appointment{}, err
	}
	others := slices.DeleteFunc(st.snapshot, func(a model.Appointment) bool { return a.ID == current.ID })
	duration := serviceDuration(st.catalog, current.ServiceID)
	slots := availability.GenerateSlots(req.Date, others, st.catalog, st.schedule, duration, s.Now())
	if !slices.Contains(availability.AvailableTimes(slots), req.Start) {
		return model.Appointment{}, ErrSlotUnavailable
	}

	appt, err := s.appts.Update(ctx, req.ID, outbox.AppointmentRescheduled, func(a *model.Appointment) error {
		if err := checkMutable(*a, req.ClientID); err != nil {
			return err
		}
		a.Date = req.Date
		a.TimeSlot = req.Start
		return nil
	})
	if err != nil {
		return model.Appointment{}, translate(err)
	}
	s.logger.Info("appointment rescheduled",
		"appointment_id", appt.ID,
		"from", current.Date.String()+" "+current.TimeSlot.String(),
		"to", appt.Date.String()+" "+appt.TimeSlot.String(),
	)
	return appt, nil
}

func checkMutable(a model.Appointment, clientID string) error {
	if clientID != "" && a.ClientID != clientID {
		return ErrForbidden
	}
	if a.Status.Finished() {
		return ErrInvalidTransition
	}
	return nil
}

// Complete closes the appointment. A nil finalPrice keeps the booked price.
func (s *Service) Complete(ctx context.Context, id string, finalPrice *float64) (_ model.Appointment, err error) {
	ctx, span := startSpan(ctx, "booking.Complete", attribute.String("appointment_id", id))
	defer func() { endSpan(span, err) }()

	if finalPrice != nil && *finalPrice < 0 {
		return model.Appointment{}, ErrInvalidInput
	}
	appt, err := s.appts.Update(ctx, id, outbox.AppointmentCompleted, func(a *model.Appointment) error {
		if a.Status.Finished() {
			return ErrInvalidTransition
		}
		price := a.Price
		if finalPrice != nil {
			price = *finalPrice
		}
		a.Status = model.StatusCompleted
		a.FinalPrice = &price
		return nil
	})
	if err != nil {
		return model.Appointment{}, translate(err)
	}
	s.logger.Info("appointment completed", "appointment_id", appt.ID, "revenue", appt.Revenue())
	return appt, nil
}

// Delete removes the appointment permanently. Only admins reach this.
func (s *Service) Delete(ctx context.Context, id string) (_ model.Appointment, err error) {
	ctx, span := startSpan(ctx, "booking.Delete", attribute.String("appointment_id", id))
	defer func() { endSpan(span, err) }()

	appt, err := s.appts.Delete(ctx, id)
	if err != nil {
		return model.Appointment{}, translate(err)
	}
	s.logger.Warn("appointment deleted", "appointment_id", appt.ID, "master_id", appt.MasterID, "date", appt.Date.String())
	return appt, nil
}

func (s *Service) ClientAppointments(ctx context.Context, clientID string, limit int) ([]model.Appointment, error) {
	if clientID == "" {
		return nil, ErrInvalidInput
	}
	return s.appts.ListByClient(ctx, clientID, limit)
}

// Agenda lists a master's appointments. With a date it returns that day in
// agenda order: open appointments first, then by time.
func (s *Service) Agenda(ctx context.Context, masterID string, date clock.Date, limit int) ([]model.Appointment, error) {
	if masterID == "" {
		return nil, ErrInvalidInput
	}
	if date.IsZero() {
		return s.appts.ListByMaster(ctx, masterID, limit)
	}
	appts, err := s.appts.ListForDates(ctx, masterID, date, date)
	if err != nil {
		return nil, err
	}
	model.SortAgenda(appts)
	return appts, nil
}
