package clock

import (
	"errors"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"9:05", 9*60 + 5},
		{"09:05", 9*60 + 5},
		{"00:00", 0},
		{"19:30", 19*60 + 30},
		{"24:00", 24 * 60},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q): %v", tc.in, err)
		}
		if got.Minutes() != tc.want {
			t.Fatalf("ParseTimeOfDay(%q) = %d, want %d", tc.in, got.Minutes(), tc.want)
		}
	}
}

func TestParseTimeOfDay_Invalid(t *testing.T) {
	for _, in := range []string{"", "9", "9:5", "aa:bb", "25:00", "12:60", "24:30", "123:00", "-1:00"} {
		if _, err := ParseTimeOfDay(in); !errors.Is(err, ErrInvalidTimeFormat) {
			t.Fatalf("ParseTimeOfDay(%q) err = %v, want ErrInvalidTimeFormat", in, err)
		}
	}
}

func TestTimeOfDayFormatting(t *testing.T) {
	tod := TimeOfDay(9*60 + 5)
	if tod.String() != "09:05" {
		t.Fatalf("String() = %q, want 09:05", tod.String())
	}
	if tod.Unpadded() != "9:05" {
		t.Fatalf("Unpadded() = %q, want 9:05", tod.Unpadded())
	}
	if got := MustParseTimeOfDay("11:00").Add(45).String(); got != "11:45" {
		t.Fatalf("Add(45) = %q, want 11:45", got)
	}
}

func TestDate(t *testing.T) {
	d := MustParseDate("2026-10-20")
	if d.Weekday() != time.Tuesday {
		t.Fatalf("weekday = %s, want Tuesday", d.Weekday())
	}
	if next := d.AddDays(12); next.String() != "2026-11-01" {
		t.Fatalf("AddDays(12) = %s, want 2026-11-01", next)
	}
	if !d.Before(d.AddDays(1)) || d.Before(d) || !d.AddDays(1).After(d) {
		t.Fatalf("ordering broken for %s", d)
	}
	if _, err := ParseDate("20/10/2026"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDateOfUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	ts := time.Date(2026, 10, 20, 22, 30, 0, 0, time.UTC).In(loc)
	if got := DateOf(ts).String(); got != "2026-10-21" {
		t.Fatalf("DateOf = %s, want 2026-10-21", got)
	}
	if got := TimeOf(ts).String(); got != "01:30" {
		t.Fatalf("TimeOf = %s, want 01:30", got)
	}
	if at := MustParseDate("2026-10-21").At(MustParseTimeOfDay("01:30"), loc); !at.Equal(ts) {
		t.Fatalf("At = %s, want %s", at, ts)
	}
}

func TestMonthDays(t *testing.T) {
	days := MonthDays(2026, time.February)
	if len(days) != 28 {
		t.Fatalf("len = %d, want 28", len(days))
	}
	if days[0].String() != "2026-02-01" || days[27].String() != "2026-02-28" {
		t.Fatalf("unexpected bounds %s..%s", days[0], days[27])
	}
}
