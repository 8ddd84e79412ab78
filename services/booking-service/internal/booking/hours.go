package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/clock"
)

// WorkingHours returns the master's schedule and whether it was configured.
// An unconfigured master gets DefaultHours on every weekday.
func (s *Service) WorkingHours(ctx context.Context, masterID string) (availability.WorkingHours, bool, error) {
	if masterID == "" {
		return nil, false, ErrInvalidInput
	}
	wh, err := s.hours.WorkingHours(ctx, masterID)
	if err != nil {
		return nil, false, err
	}
	if wh == nil {
		def := availability.WorkingHours{}
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			def[wd] = availability.DaySchedule{Start: availability.DefaultHours.Start, End: availability.DefaultHours.End}
		}
		return def, false, nil
	}
	return *wh, true, nil
}

func (s *Service) UpdateWorkingHours(ctx context.Context, masterID string, wh availability.WorkingHours) error {
	if masterID == "" || len(wh) == 0 {
		return ErrInvalidInput
	}
	for wd, day := range wh {
		if err := validateDay(wd, day); err != nil {
			return err
		}
	}
	if err := s.hours.ReplaceWorkingHours(ctx, masterID, wh); err != nil {
		return err
	}
	s.logger.Info("working hours updated", "master_id", masterID, "days", len(wh))
	return nil
}

func validateDay(wd time.Weekday, day availability.DaySchedule) error {
	if wd < time.Sunday || wd > time.Saturday {
		return fmt.Errorf("%w: weekday %d", ErrInvalidInput, wd)
	}
	if day.IsDayOff {
		return nil
	}
	endOfDay := clock.TimeOfDay(24 * 60)
	if day.Start < 0 || day.End > endOfDay || day.Start >= day.End {
		return fmt.Errorf("%w: %s must open before it closes", ErrInvalidInput, wd)
	}
	return nil
}
