package availability

import (
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

type Assignment struct {
	Item  model.CartItem
	Start clock.TimeOfDay
}

// End is the exclusive end of the assignment.
func (a Assignment) End() clock.TimeOfDay {
	return a.Start.Add(a.Item.Service.DurationMinutes)
}

// SequenceCart lays cart items back to back starting at start, keeping the
// cart's insertion order.
func SequenceCart(items []model.CartItem, start clock.TimeOfDay) []Assignment {
	out := make([]Assignment, 0, len(items))
	cursor := start
	for _, it := range items {
		out = append(out, Assignment{Item: it, Start: cursor})
		cursor = cursor.Add(it.Service.DurationMinutes)
	}
	return out
}
