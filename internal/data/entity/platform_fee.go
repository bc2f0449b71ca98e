package entity

import "time"

type PlatformFeeConfig struct {
	Tier          SubscriptionTier `db:"tier"`
	FeePercentage float64          `db:"fee_percentage"`
	IsActive      bool             `db:"is_active"`
	UpdatedAt     time.Time        `db:"updated_at"`
}
