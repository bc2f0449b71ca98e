package usecase

import (
	"artisan-marketplace/internal/data/entity"
	"artisan-marketplace/pkg/apperr"
)

// allowedTransitions is the booking state machine. completed and cancelled
// are terminal.
var allowedTransitions = map[entity.BookingStatus][]entity.BookingStatus{
	entity.BookingStatusPending:    {entity.BookingStatusConfirmed, entity.BookingStatusCancelled},
	entity.BookingStatusConfirmed:  {entity.BookingStatusInProgress, entity.BookingStatusCancelled},
	entity.BookingStatusInProgress: {entity.BookingStatusCompleted, entity.BookingStatusCancelled},
	entity.BookingStatusCompleted:  {},
	entity.BookingStatusCancelled:  {},
}

func CanTransition(from, to entity.BookingStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidateTransition(from, to entity.BookingStatus) error {
	if !CanTransition(from, to) {
		return apperr.InvalidTransition(string(from), string(to))
	}
	return nil
}

// cancellableByRequest lists the states from which the dedicated
// cancellation path is accepted.
func cancellableByRequest(status entity.BookingStatus) bool {
	return status == entity.BookingStatusPending || status == entity.BookingStatusConfirmed
}
