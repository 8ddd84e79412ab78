package availability

import (
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

const (
	// SlotStep is the grid the slot generator walks.
	SlotStep = 30
	// LeadTime is the minimum gap between now and a bookable slot today.
	LeadTime = 30
	// FallbackDuration is used for appointments whose service is not in the catalog.
	FallbackDuration = 60
)

// Catalog resolves service durations in minutes.
type Catalog interface {
	Duration(serviceID string) (int, bool)
}

// Interval is a half-open [Start, End) range of wall-clock minutes.
type Interval struct {
	Start clock.TimeOfDay
	End   clock.TimeOfDay
}

// Overlaps uses half-open semantics: [a,b) and [c,d) overlap iff a < d && c < b,
// so back-to-back intervals do not conflict.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && o.Start < i.End
}

type Slot struct {
	Time      clock.TimeOfDay `json:"time"`
	Available bool            `json:"available"`
}

// IsSlotAvailable reports whether [start, start+duration) on date is free of
// every non-cancelled appointment on the same date. bufferMinutes extends each
// existing appointment's end; zero disables it.
func IsSlotAvailable(date clock.Date, start clock.TimeOfDay, duration int, appts []model.Appointment, catalog Catalog, bufferMinutes int) bool {
	if bufferMinutes < 0 {
		bufferMinutes = 0
	}
	want := Interval{Start: start, End: start.Add(duration)}
	for _, a := range appts {
		if a.Status == model.StatusCancelled || a.Date != date {
			continue
		}
		if want.Overlaps(Interval{Start: a.TimeSlot, End: a.TimeSlot.Add(appointmentDuration(a, catalog) + bufferMinutes)}) {
			return false
		}
	}
	return true
}

func appointmentDuration(a model.Appointment, catalog Catalog) int {
	if catalog != nil {
		if d, ok := catalog.Duration(a.ServiceID); ok {
			return d
		}
	}
	return FallbackDuration
}

// GenerateSlots walks the working interval of date in SlotStep increments and
// tags each start as available or not for a booking of totalDuration minutes.
// now must be expressed in the salon's location; it decides what "today" is.
// A closed day yields no slots.
func GenerateSlots(date clock.Date, appts []model.Appointment, catalog Catalog, schedule *WorkingHours, totalDuration int, now time.Time) []Slot {
	work, ok := ResolveWorkingHours(date, schedule)
	if !ok {
		return nil
	}

	isToday := clock.DateOf(now) == date
	nowMins := clock.TimeOf(now)

	var slots []Slot
	for t := work.Start; t < work.End; t = t.Add(SlotStep) {
		var available bool
		switch {
		case t.Add(totalDuration) > work.End:
			available = false
		case isToday && t < nowMins.Add(LeadTime):
			available = false
		default:
			available = IsSlotAvailable(date, t, totalDuration, appts, catalog, 0)
		}
		slots = append(slots, Slot{Time: t, Available: available})
	}
	return slots
}

// AvailableTimes filters slots down to the bookable start times.
func AvailableTimes(slots []Slot) []clock.TimeOfDay {
	var out []clock.TimeOfDay
	for _, s := range slots {
		if s.Available {
			out = append(out, s.Time)
		}
	}
	return out
}
