package availability

import (
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/clock"
)

// DaySchedule is the master's working window for one weekday.
type DaySchedule struct {
	Start    clock.TimeOfDay
	End      clock.TimeOfDay
	IsDayOff bool
}

// WorkingHours maps weekdays to schedules. A nil *WorkingHours means the
// master never configured a schedule and DefaultHours applies to every day.
type WorkingHours map[time.Weekday]DaySchedule

// DefaultHours is used for every day when no schedule exists.
var DefaultHours = Interval{
	Start: clock.TimeOfDay(10 * 60),
	End:   clock.TimeOfDay(20 * 60),
}

// ResolveWorkingHours returns the open interval for date, or false when the
// master does not work that day.
func ResolveWorkingHours(date clock.Date, schedule *WorkingHours) (Interval, bool) {
	if schedule == nil {
		return DefaultHours, true
	}
	day, ok := (*schedule)[date.Weekday()]
	if !ok || day.IsDayOff {
		return Interval{}, false
	}
	return Interval{Start: day.Start, End: day.End}, true
}

// IsDayOff reports whether date is explicitly configured as a day off.
func IsDayOff(date clock.Date, schedule *WorkingHours) bool {
	if schedule == nil {
		return false
	}
	day, ok := (*schedule)[date.Weekday()]
	return ok && day.IsDayOff
}
