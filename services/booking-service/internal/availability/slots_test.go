package availability

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

var (
	tuesday = clock.MustParseDate("2026-10-20")
	// Thursday before tuesday, at noon.
	thursdayNoon = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
)

func tod(s string) clock.TimeOfDay { return clock.MustParseTimeOfDay(s) }

func everyDay(start, end string) *WorkingHours {
	wh := WorkingHours{}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		wh[wd] = DaySchedule{Start: tod(start), End: tod(end)}
	}
	return &wh
}

func testCatalog() model.Catalog {
	return model.NewCatalog([]model.Service{
		{ID: "cut", Title: "Haircut", DurationMinutes: 60},
		{ID: "brows", Title: "Brows", DurationMinutes: 30},
		{ID: "nails", Title: "Nails", DurationMinutes: 45},
	})
}

func appt(id, serviceID string, date clock.Date, at string, status model.Status) model.Appointment {
	return model.Appointment{ID: id, ServiceID: serviceID, Date: date, TimeSlot: tod(at), Status: status}
}

func TestGenerateSlots_EmptyDay(t *testing.T) {
	slots := GenerateSlots(tuesday, nil, testCatalog(), everyDay("10:00", "20:00"), 45, thursdayNoon)
	if len(slots) != 20 {
		t.Fatalf("expected 20 slots, got %d", len(slots))
	}
	for i, s := range slots {
		want := tod("10:00").Add(i * SlotStep)
		if s.Time != want {
			t.Fatalf("slot %d at %s, want %s", i, s.Time, want)
		}
		if s.Time <= tod("19:00") && !s.Available {
			t.Fatalf("expected %s available", s.Time)
		}
	}
	last := slots[len(slots)-1]
	if last.Time != tod("19:30") || last.Available {
		t.Fatalf("expected 19:30 unavailable (19:30+45 > 20:00), got %+v", last)
	}
}

func TestGenerateSlots_DefaultHoursWithoutSchedule(t *testing.T) {
	slots := GenerateSlots(tuesday, nil, testCatalog(), nil, 30, thursdayNoon)
	if len(slots) != 20 || slots[0].Time != tod("10:00") || slots[19].Time != tod("19:30") {
		t.Fatalf("unexpected default grid: %+v", slots)
	}
	if !slots[19].Available {
		t.Fatal("expected 19:30 available for a 30 minute booking")
	}
}

func TestGenerateSlots_ClosedDay(t *testing.T) {
	wh := everyDay("10:00", "20:00")
	(*wh)[time.Tuesday] = DaySchedule{IsDayOff: true}
	if slots := GenerateSlots(tuesday, nil, testCatalog(), wh, 30, thursdayNoon); len(slots) != 0 {
		t.Fatalf("expected no slots on a day off, got %d", len(slots))
	}

	missing := WorkingHours{time.Monday: {Start: tod("09:00"), End: tod("18:00")}}
	if slots := GenerateSlots(tuesday, nil, testCatalog(), &missing, 30, thursdayNoon); slots != nil {
		t.Fatalf("expected nil for unconfigured weekday, got %+v", slots)
	}
}

func TestIsSlotAvailable_Overlaps(t *testing.T) {
	appts := []model.Appointment{appt("a1", "cut", tuesday, "14:00", model.StatusConfirmed)}
	cat := testCatalog()

	cases := []struct {
		at   string
		want bool
	}{
		{"14:00", false},
		{"14:30", false},
		{"13:30", true}, // ends exactly when the appointment starts
		{"15:00", true}, // starts exactly when the appointment ends
		{"13:45", false},
	}
	for _, tc := range cases {
		if got := IsSlotAvailable(tuesday, tod(tc.at), 30, appts, cat, 0); got != tc.want {
			t.Fatalf("IsSlotAvailable(%s) = %v, want %v", tc.at, got, tc.want)
		}
	}
}

func TestIsSlotAvailable_IgnoresCancelledAndOtherDates(t *testing.T) {
	appts := []model.Appointment{
		appt("a1", "cut", tuesday, "14:00", model.StatusCancelled),
		appt("a2", "cut", tuesday.AddDays(1), "14:00", model.StatusConfirmed),
	}
	if !IsSlotAvailable(tuesday, tod("14:00"), 60, appts, testCatalog(), 0) {
		t.Fatal("cancelled and other-day appointments must not block")
	}
}

func TestIsSlotAvailable_UnknownServiceUsesFallback(t *testing.T) {
	appts := []model.Appointment{appt("a1", "deleted-service", tuesday, "10:00", model.StatusPending)}
	cat := testCatalog()
	if IsSlotAvailable(tuesday, tod("10:30"), 30, appts, cat, 0) {
		t.Fatal("expected 10:30 blocked by 60 minute fallback")
	}
	if !IsSlotAvailable(tuesday, tod("11:00"), 30, appts, cat, 0) {
		t.Fatal("expected 11:00 free after 60 minute fallback")
	}
	if IsSlotAvailable(tuesday, tod("10:30"), 30, appts, nil, 0) {
		t.Fatal("expected fallback when catalog is nil")
	}
}

func TestIsSlotAvailable_Buffer(t *testing.T) {
	appts := []model.Appointment{appt("a1", "brows", tuesday, "10:00", model.StatusConfirmed)}
	if !IsSlotAvailable(tuesday, tod("10:30"), 30, appts, testCatalog(), 0) {
		t.Fatal("expected 10:30 free without buffer")
	}
	if IsSlotAvailable(tuesday, tod("10:30"), 30, appts, testCatalog(), 15) {
		t.Fatal("expected 10:30 blocked with a 15 minute buffer")
	}
}

func TestGenerateSlots_LeadTimeToday(t *testing.T) {
	now := time.Date(2026, 10, 20, 15, 10, 0, 0, time.UTC)
	slots := GenerateSlots(tuesday, nil, testCatalog(), everyDay("10:00", "20:00"), 30, now)
	for _, s := range slots {
		wantAvailable := s.Time >= tod("15:40")
		if s.Available != wantAvailable {
			t.Fatalf("slot %s available=%v, want %v", s.Time, s.Available, wantAvailable)
		}
	}

	tomorrow := GenerateSlots(tuesday.AddDays(1), nil, testCatalog(), everyDay("10:00", "20:00"), 30, now)
	for _, s := range tomorrow {
		if !s.Available {
			t.Fatalf("lead time must not apply to tomorrow, %s unavailable", s.Time)
		}
	}
}

func TestGenerateSlots_LeadTimeUsesNowLocation(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	// 07:10 UTC is 10:10 in the salon, still Tuesday.
	now := time.Date(2026, 10, 20, 7, 10, 0, 0, time.UTC).In(loc)
	slots := GenerateSlots(tuesday, nil, testCatalog(), everyDay("10:00", "20:00"), 30, now)
	if slots[0].Available || slots[1].Available {
		t.Fatalf("10:00 and 10:30 should be inside the lead time: %+v", slots[:2])
	}
	if !slots[2].Available {
		t.Fatalf("11:00 should be available: %+v", slots[2])
	}
}

func TestGenerateSlots_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cat := testCatalog()
	ids := []string{"cut", "brows", "nails", "ghost"}
	statuses := []model.Status{model.StatusPending, model.StatusConfirmed, model.StatusCancelled, model.StatusCompleted}
	wh := everyDay("09:00", "18:30")

	for round := 0; round < 200; round++ {
		var appts []model.Appointment
		n := rng.Intn(6)
		for i := 0; i < n; i++ {
			appts = append(appts, appt("x", ids[rng.Intn(len(ids))], tuesday.AddDays(rng.Intn(2)),
				tod("09:00").Add(15*rng.Intn(36)).String(), statuses[rng.Intn(len(statuses))]))
		}
		total := 15 * (1 + rng.Intn(8))

		slots := GenerateSlots(tuesday, appts, cat, wh, total, thursdayNoon)
		again := GenerateSlots(tuesday, appts, cat, wh, total, thursdayNoon)
		if !reflect.DeepEqual(slots, again) {
			t.Fatalf("round %d: generation is not idempotent", round)
		}

		for _, s := range slots {
			if !s.Available {
				continue
			}
			if s.Time < tod("09:00") || s.Time.Add(total) > tod("18:30") {
				t.Fatalf("round %d: slot %s+%d outside working hours", round, s.Time, total)
			}
			want := Interval{Start: s.Time, End: s.Time.Add(total)}
			for _, a := range appts {
				if a.Date != tuesday || a.Status == model.StatusCancelled {
					continue
				}
				got := Interval{Start: a.TimeSlot, End: a.TimeSlot.Add(appointmentDuration(a, cat))}
				if want.Overlaps(got) {
					t.Fatalf("round %d: available slot %s overlaps appointment at %s", round, s.Time, a.TimeSlot)
				}
			}
		}
	}
}

func TestInterval_Overlaps(t *testing.T) {
	a := Interval{Start: tod("10:00"), End: tod("11:00")}
	if a.Overlaps(Interval{Start: tod("11:00"), End: tod("12:00")}) {
		t.Fatal("adjacent intervals must not overlap")
	}
	if !a.Overlaps(Interval{Start: tod("10:59"), End: tod("12:00")}) {
		t.Fatal("expected overlap")
	}
	if !a.Overlaps(Interval{Start: tod("10:15"), End: tod("10:30")}) {
		t.Fatal("contained interval must overlap")
	}
}

func TestAvailableTimes(t *testing.T) {
	got := AvailableTimes([]Slot{{Time: tod("10:00"), Available: true}, {Time: tod("10:30")}, {Time: tod("11:00"), Available: true}})
	if len(got) != 2 || got[0] != tod("10:00") || got[1] != tod("11:00") {
		t.Fatalf("unexpected times: %v", got)
	}
}
