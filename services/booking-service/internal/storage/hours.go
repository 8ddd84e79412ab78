package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/clock"
)

type HoursRepository struct {
	pool *db.Pool
}

func NewHoursRepository(pool *db.Pool) *HoursRepository {
	return &HoursRepository{pool: pool}
}

type hoursRow struct {
	Weekday     int
	IsDayOff    bool
	StartMinute int
	EndMinute   int
}

// WorkingHours returns nil when the master has no schedule rows at all.
func (r *HoursRepository) WorkingHours(ctx context.Context, masterID string) (*availability.WorkingHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, is_day_off, start_minute, end_minute
		FROM master_working_hours
		WHERE master_id = $1
		ORDER BY weekday ASC
	`, masterID)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[hoursRow])
	if err != nil {
		return nil, err
	}
	return toWorkingHours(out), nil
}

func toWorkingHours(rows []hoursRow) *availability.WorkingHours {
	if len(rows) == 0 {
		return nil
	}
	wh := availability.WorkingHours{}
	for _, h := range rows {
		wh[time.Weekday(h.Weekday)] = availability.DaySchedule{
			Start:    clock.TimeOfDay(h.StartMinute),
			End:      clock.TimeOfDay(h.EndMinute),
			IsDayOff: h.IsDayOff,
		}
	}
	return &wh
}

// ReplaceWorkingHours makes wh the master's full weekly schedule.
func (r *HoursRepository) ReplaceWorkingHours(ctx context.Context, masterID string, wh availability.WorkingHours) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM master_working_hours WHERE master_id = $1`, masterID); err != nil {
		return err
	}
	for wd, day := range wh {
		if _, err := tx.Exec(ctx, `
			INSERT INTO master_working_hours (master_id, weekday, is_day_off, start_minute, end_minute)
			VALUES ($1, $2, $3, $4, $5)
		`, masterID, int(wd), day.IsDayOff, day.Start.Minutes(), day.End.Minutes()); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
