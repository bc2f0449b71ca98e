package response

import (
	"time"

	"artisan-marketplace/internal/data/entity"
)

type PaymentIntentResponse struct {
	PaymentIntentID string  `json:"payment_intent_id"`
	ClientSecret    string  `json:"client_secret"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
}

type TransactionResponse struct {
	ID                       string                   `json:"id"`
	BookingID                *string                  `json:"booking_id,omitempty"`
	Type                     entity.TransactionType   `json:"type"`
	Amount                   float64                  `json:"amount"`
	PlatformFee              float64                  `json:"platform_fee"`
	NetAmount                float64                  `json:"net_amount"`
	ExternalPaymentReference string                   `json:"external_payment_reference"`
	Status                   entity.TransactionStatus `json:"status"`
	CreatedAt                time.Time                `json:"created_at"`
}

type SubscriptionResponse struct {
	ArtisanID             string                  `json:"artisan_id"`
	SubscriptionTier      entity.SubscriptionTier `json:"subscription_tier"`
	SubscriptionExpiresAt *time.Time              `json:"subscription_expires_at,omitempty"`
}

type PlatformFeeResponse struct {
	Tier          entity.SubscriptionTier `json:"tier"`
	FeePercentage float64                 `json:"fee_percentage"`
	IsActive      bool                    `json:"is_active"`
	Source        string                  `json:"source"`
}

type ReconcileRefundsResponse struct {
	Attempted int `json:"attempted"`
	Refunded  int `json:"refunded"`
	Failed    int `json:"failed"`
}

type SubscriptionSweepResponse struct {
	Warned     int `json:"warned"`
	Downgraded int `json:"downgraded"`
}

func TransactionToResponse(t *entity.Transaction) TransactionResponse {
	var bookingID *string
	if t.BookingID != nil {
		id := t.BookingID.String()
		bookingID = &id
	}

	return TransactionResponse{
		ID:                       t.ID.String(),
		BookingID:                bookingID,
		Type:                     t.Type,
		Amount:                   t.Amount,
		PlatformFee:              t.PlatformFee,
		NetAmount:                t.NetAmount,
		ExternalPaymentReference: t.ExternalPaymentReference,
		Status:                   t.Status,
		CreatedAt:                t.CreatedAt,
	}
}

func SubscriptionToResponse(a *entity.Artisan) SubscriptionResponse {
	return SubscriptionResponse{
		ArtisanID:             a.ID.String(),
		SubscriptionTier:      a.SubscriptionTier,
		SubscriptionExpiresAt: a.SubscriptionExpiresAt,
	}
}
