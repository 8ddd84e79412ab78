package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
)

type AppointmentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
	now    func() time.Time
}

func NewAppointmentRepository(pool *db.Pool, outboxRepo *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outbox: outboxRepo, now: time.Now}
}

const appointmentColumns = `id::text, client_id, master_id, service_id, appt_date, start_minute,
	status, price::float8, final_price::float8, notes, created_at`

// end_minute is derived from the catalog so the exclusion constraint sees the
// same effective duration the engine uses, including the fallback.
var endMinuteExpr = fmt.Sprintf(
	`$7 + COALESCE((SELECT duration_minutes FROM services WHERE id = $4 AND duration_minutes > 0), %d)`,
	availability.FallbackDuration)

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		a          model.Appointment
		date       time.Time
		start      int
		status     string
		finalPrice *float64
	)
	if err := row.Scan(&a.ID, &a.ClientID, &a.MasterID, &a.ServiceID, &date, &start,
		&status, &a.Price, &finalPrice, &a.Notes, &a.CreatedAt); err != nil {
		return model.Appointment{}, err
	}
	a.Date = clock.DateOf(date)
	a.TimeSlot = clock.TimeOfDay(start)
	a.Status = model.Status(status)
	a.FinalPrice = finalPrice
	return a, nil
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Appointment, error) {
		return scanAppointment(row)
	})
}

func sqlDate(d clock.Date) time.Time { return d.In(time.UTC) }

// ListForDates is the snapshot read: every appointment of masterID whose date
// lies in [from, to], cancelled ones included.
func (r *AppointmentRepository) ListForDates(ctx context.Context, masterID string, from, to clock.Date) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE master_id = $1 AND appt_date BETWEEN $2 AND $3
		ORDER BY appt_date, start_minute
	`, masterID, sqlDate(from), sqlDate(to))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Appointment{}, ErrNotFound
	}
	a, err := scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id))
	return a, mapError(err)
}

func (r *AppointmentRepository) ListByClient(ctx context.Context, clientID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE client_id = $1
		ORDER BY appt_date DESC, start_minute DESC
		LIMIT $2
	`, clientID, limit)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *AppointmentRepository) ListByMaster(ctx context.Context, masterID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE master_id = $1
		ORDER BY appt_date DESC, start_minute DESC
		LIMIT $2
	`, masterID, limit)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// FindIdempotent returns the appointments recorded for a finished request
// with the same client and key.
func (r *AppointmentRepository) FindIdempotent(ctx context.Context, clientID, key string) ([]model.Appointment, bool, error) {
	var ids []string
	err := r.pool.QueryRow(ctx, `
		SELECT appointment_ids
		FROM booking_idempotency_keys
		WHERE client_id = $1 AND idempotency_key = $2 AND appointment_ids IS NOT NULL
	`, clientID, key).Scan(&ids)
	if IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	appts, err := r.listByIDs(ctx, r.pool, ids)
	return appts, true, err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *AppointmentRepository) listByIDs(ctx context.Context, q querier, ids []string) ([]model.Appointment, error) {
	rows, err := q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id::text = ANY($1)
		ORDER BY appt_date, start_minute
	`, ids)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// CreateBatch inserts appts atomically together with one booked event each.
// A non-empty key makes the call idempotent per client: a replay returns the
// appointments of the first call and replayed=true.
func (r *AppointmentRepository) CreateBatch(ctx context.Context, clientID, key string, appts []model.Appointment) (_ []model.Appointment, replayed bool, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if key != "" {
		ids, err := lockIdempotencyKey(ctx, tx, clientID, key)
		if err != nil {
			return nil, false, fmt.Errorf("lock idempotency key: %w", err)
		}
		if len(ids) > 0 {
			prev, err := r.listByIDs(ctx, tx, ids)
			if err != nil {
				return nil, false, err
			}
			return prev, true, tx.Commit(ctx)
		}
	}

	now := r.now()
	out := make([]model.Appointment, 0, len(appts))
	ids := make([]string, 0, len(appts))
	for _, a := range appts {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO appointments
				(id, client_id, master_id, service_id, appt_date, start_minute, end_minute, status, price, notes)
			VALUES ($1, $2, $3, $4, $5, $6, `+endMinuteExpr+`, $8, $9, $10)
			RETURNING created_at
		`, a.ID, a.ClientID, a.MasterID, a.ServiceID, sqlDate(a.Date), a.TimeSlot.Minutes(), a.TimeSlot.Minutes(),
			string(a.Status), a.Price, a.Notes).Scan(&a.CreatedAt)
		if err != nil {
			return nil, false, mapError(err)
		}
		if err := r.insertEvent(ctx, tx, outbox.AppointmentBooked, a, now); err != nil {
			return nil, false, err
		}
		out = append(out, a)
		ids = append(ids, a.ID)
	}

	if key != "" {
		if _, err := tx.Exec(ctx, `
			UPDATE booking_idempotency_keys
			SET appointment_ids = $3, updated_at = now()
			WHERE client_id = $1 AND idempotency_key = $2
		`, clientID, key, ids); err != nil {
			return nil, false, fmt.Errorf("finalize idempotency key: %w", err)
		}
	}
	return out, false, tx.Commit(ctx)
}

func lockIdempotencyKey(ctx context.Context, tx pgx.Tx, clientID, key string) ([]string, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (client_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (client_id, idempotency_key) DO NOTHING
	`, clientID, key); err != nil {
		return nil, err
	}
	var ids []string
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(appointment_ids, '{}')
		FROM booking_idempotency_keys
		WHERE client_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, clientID, key).Scan(&ids)
	return ids, err
}

// Update locks the appointment, lets mutate change it and saves the result
// with an eventType outbox event. mutate errors abort without writing.
func (r *AppointmentRepository) Update(ctx context.Context, id, eventType string, mutate func(*model.Appointment) error) (model.Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Appointment{}, ErrNotFound
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	a, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		return model.Appointment{}, mapError(err)
	}
	if err := mutate(&a); err != nil {
		return model.Appointment{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE appointments
		SET appt_date = $5,
			start_minute = $6,
			end_minute = `+endMinuteExpr+`,
			status = $2,
			final_price = $3,
			client_id = $8,
			notes = $9,
			updated_at = now()
		WHERE id = $1
	`, a.ID, string(a.Status), a.FinalPrice, a.ServiceID, sqlDate(a.Date), a.TimeSlot.Minutes(), a.TimeSlot.Minutes(),
		a.ClientID, a.Notes)
	if err != nil {
		return model.Appointment{}, mapError(err)
	}
	if err := r.insertEvent(ctx, tx, eventType, a, r.now()); err != nil {
		return model.Appointment{}, err
	}
	return a, tx.Commit(ctx)
}

// Delete removes the appointment for good and emits a deleted event.
func (r *AppointmentRepository) Delete(ctx context.Context, id string) (model.Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Appointment{}, ErrNotFound
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	a, err := scanAppointment(tx.QueryRow(ctx, `
		DELETE FROM appointments
		WHERE id = $1
		RETURNING `+appointmentColumns, id))
	if err != nil {
		return model.Appointment{}, mapError(err)
	}
	if err := r.insertEvent(ctx, tx, outbox.AppointmentDeleted, a, r.now()); err != nil {
		return model.Appointment{}, err
	}
	return a, tx.Commit(ctx)
}

func (r *AppointmentRepository) insertEvent(ctx context.Context, tx pgx.Tx, eventType string, a model.Appointment, at time.Time) error {
	evt, err := outbox.AppointmentEvent(eventType, a, at)
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return fmt.Errorf("write outbox event: %w", err)
	}
	return nil
}
