package availability

import (
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

type DayState string

const (
	DayDisabled    DayState = "disabled"
	DayFullyBooked DayState = "fully_booked"
	DayOpen        DayState = "open"
)

// ProbeDuration is the smallest bookable unit. The calendar checks for any
// opening of this length regardless of what the cart contains, so a day can be
// Open while still having no room for a longer service.
const ProbeDuration = 30

// ClassifyDay decides how a calendar cell for date is rendered.
func ClassifyDay(date clock.Date, appts []model.Appointment, catalog Catalog, schedule *WorkingHours, now time.Time) DayState {
	if date.Before(clock.DateOf(now)) {
		return DayDisabled
	}
	if _, open := ResolveWorkingHours(date, schedule); !open {
		return DayDisabled
	}
	for _, s := range GenerateSlots(date, appts, catalog, schedule, ProbeDuration, now) {
		if s.Available {
			return DayOpen
		}
	}
	return DayFullyBooked
}

type DayStatus struct {
	Date  clock.Date `json:"date"`
	State DayState   `json:"state"`
}

// ClassifyDays classifies each date against the same appointment snapshot.
func ClassifyDays(dates []clock.Date, appts []model.Appointment, catalog Catalog, schedule *WorkingHours, now time.Time) []DayStatus {
	out := make([]DayStatus, 0, len(dates))
	for _, d := range dates {
		out = append(out, DayStatus{Date: d, State: ClassifyDay(d, appts, catalog, schedule, now)})
	}
	return out
}
