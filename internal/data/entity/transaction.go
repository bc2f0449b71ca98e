package entity

import (
	"github.com/google/uuid"
)

type TransactionType string

const (
	TransactionTypeBooking      TransactionType = "booking"
	TransactionTypeSubscription TransactionType = "subscription"
	TransactionTypeRefund       TransactionType = "refund"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is an immutable ledger entry. Only Status may change after
// insert, and NetAmount is always Amount - PlatformFee.
type Transaction struct {
	Base
	BookingID                *uuid.UUID        `db:"booking_id"`
	UserID                   uuid.UUID         `db:"user_id"`
	Type                     TransactionType   `db:"type"`
	Amount                   float64           `db:"amount"`
	PlatformFee              float64           `db:"platform_fee"`
	NetAmount                float64           `db:"net_amount"`
	ExternalPaymentReference string            `db:"external_payment_reference"`
	Status                   TransactionStatus `db:"status"`
}
