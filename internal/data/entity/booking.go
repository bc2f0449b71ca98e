package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in-progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// Active bookings occupy the artisan's calendar.
func (s BookingStatus) Active() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed || s == BookingStatusInProgress
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

type TimeSlot struct {
	Start string `db:"slot_start"`
	End   string `db:"slot_end"`
}

type Booking struct {
	Base
	CustomerID         uuid.UUID     `db:"customer_id"`
	ArtisanID          uuid.UUID     `db:"artisan_id"`
	ServiceType        string        `db:"service_type"`
	Description        string        `db:"description"`
	ScheduledDate      time.Time     `db:"scheduled_date"`
	TimeSlot           TimeSlot
	Location           string        `db:"location"`
	Notes              *string       `db:"notes"`
	Amount             float64       `db:"amount"`
	Status             BookingStatus `db:"status"`
	PaymentStatus      PaymentStatus `db:"payment_status"`
	PaymentIntentID    *string       `db:"payment_intent_id"`
	EscrowReleased     bool          `db:"escrow_released"`
	CancellationReason *string       `db:"cancellation_reason"`
	Version            int           `db:"version"`
}

func (b *Booking) HasPaymentIntent() bool {
	return b.PaymentIntentID != nil && *b.PaymentIntentID != ""
}
