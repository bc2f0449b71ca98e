package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

const (
	StatusSucceeded = "succeeded"

	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       decimal.Decimal
	Currency     string
	Metadata     map[string]string
}

type Refund struct {
	ID              string
	PaymentIntentID string
	Status          string
	Amount          decimal.Decimal
}

type Event struct {
	ID     string
	Type   string
	Intent *Intent
}

// PaymentGateway is the payment-intent provider boundary. Implementations
// must bound every call with a timeout.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
	CreateRefund(ctx context.Context, intentID string) (*Refund, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit amount to the provider's integer
// minor units, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
