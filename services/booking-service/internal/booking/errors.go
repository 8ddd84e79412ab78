package booking

import (
	"errors"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/lock"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/storage"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrUnknownService    = errors.New("unknown service")
	ErrSlotUnavailable   = errors.New("requested time is not available")
	ErrSlotTaken         = errors.New("time slot already booked")
	ErrBusy              = errors.New("schedule is being changed, retry")
	ErrNotFound          = errors.New("appointment not found")
	ErrForbidden         = errors.New("appointment belongs to another client")
	ErrInvalidTransition = errors.New("appointment can no longer be changed")
)

// translate maps store and lock errors onto the service's sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrConflict):
		return ErrSlotTaken
	case errors.Is(err, lock.ErrNotAcquired):
		return ErrBusy
	default:
		return err
	}
}
