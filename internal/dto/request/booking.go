package request

type TimeSlotRequest struct {
	Start string `json:"start" validate:"required,hhmm"`
	End   string `json:"end" validate:"required,hhmm"`
}

type CreateBookingRequest struct {
	ArtisanID     string          `json:"artisan_id" validate:"required,uuid"`
	ServiceType   string          `json:"service_type" validate:"required,max=80"`
	Description   string          `json:"description" validate:"required,min=10,max=1000"`
	ScheduledDate string          `json:"scheduled_date" validate:"required"`
	TimeSlot      TimeSlotRequest `json:"time_slot"`
	Location      string          `json:"location" validate:"required,max=500"`
	Notes         *string         `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type UpdateBookingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed in-progress completed cancelled"`
}

type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type ListBookingsRequest struct {
	PaginatedRequest
	Status string `json:"status" validate:"omitempty,oneof=pending confirmed in-progress completed cancelled"`
}

type AvailabilityRequest struct {
	Date  string `json:"date" validate:"required"`
	Start string `json:"start" validate:"omitempty,hhmm"`
	End   string `json:"end" validate:"omitempty,hhmm"`
}
