package request

type CreatePaymentIntentRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required,max=255"`
}

type CreateSubscriptionIntentRequest struct {
	Tier string `json:"tier" validate:"required,oneof=basic premium"`
}

type UpsertPlatformFeeRequest struct {
	FeePercentage *float64 `json:"fee_percentage" validate:"required,gte=0,lte=100"`
	IsActive      *bool    `json:"is_active" validate:"required"`
}
