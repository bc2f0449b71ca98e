package response

import (
	"time"

	"artisan-marketplace/internal/data/entity"
)

type TimeSlotResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type BookingResponse struct {
	ID                 string               `json:"id"`
	CustomerID         string               `json:"customer_id"`
	ArtisanID          string               `json:"artisan_id"`
	ServiceType        string               `json:"service_type"`
	Description        string               `json:"description"`
	ScheduledDate      time.Time            `json:"scheduled_date"`
	TimeSlot           TimeSlotResponse     `json:"time_slot"`
	Location           string               `json:"location"`
	Notes              *string              `json:"notes,omitempty"`
	Amount             float64              `json:"amount"`
	Status             entity.BookingStatus `json:"status"`
	PaymentStatus      entity.PaymentStatus `json:"payment_status"`
	PaymentIntentID    *string              `json:"payment_intent_id,omitempty"`
	EscrowReleased     bool                 `json:"escrow_released"`
	CancellationReason *string              `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

type AvailabilityResponse struct {
	ArtisanID string             `json:"artisan_id"`
	Date      string             `json:"date"`
	Busy      []TimeSlotResponse `json:"busy"`
	Available *bool              `json:"available,omitempty"`
}

// Helper converter
func BookingToResponse(b *entity.Booking) BookingResponse {
	return BookingResponse{
		ID:                 b.ID.String(),
		CustomerID:         b.CustomerID.String(),
		ArtisanID:          b.ArtisanID.String(),
		ServiceType:        b.ServiceType,
		Description:        b.Description,
		ScheduledDate:      b.ScheduledDate,
		TimeSlot:           TimeSlotResponse{Start: b.TimeSlot.Start, End: b.TimeSlot.End},
		Location:           b.Location,
		Notes:              b.Notes,
		Amount:             b.Amount,
		Status:             b.Status,
		PaymentStatus:      b.PaymentStatus,
		PaymentIntentID:    b.PaymentIntentID,
		EscrowReleased:     b.EscrowReleased,
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}
