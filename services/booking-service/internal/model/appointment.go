package model

import (
	"sort"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/clock"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Finished reports whether the appointment no longer needs the master's attention.
func (s Status) Finished() bool {
	return s == StatusCancelled || s == StatusCompleted
}

type Appointment struct {
	ID         string
	ClientID   string
	MasterID   string
	ServiceID  string
	Date       clock.Date
	TimeSlot   clock.TimeOfDay
	Status     Status
	Price      float64
	FinalPrice *float64
	Notes      string
	CreatedAt  time.Time
}

// Revenue is the amount actually earned for a completed appointment.
func (a Appointment) Revenue() float64 {
	if a.FinalPrice != nil {
		return *a.FinalPrice
	}
	return a.Price
}

// SortAgenda orders a master's day: open appointments first, then by time slot.
func SortAgenda(appts []Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		fi, fj := appts[i].Status.Finished(), appts[j].Status.Finished()
		if fi != fj {
			return !fi
		}
		if appts[i].Date != appts[j].Date {
			return appts[i].Date.Before(appts[j].Date)
		}
		return appts[i].TimeSlot < appts[j].TimeSlot
	})
}
