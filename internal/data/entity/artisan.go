package entity

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierBasic   SubscriptionTier = "basic"
	TierPremium SubscriptionTier = "premium"
)

func (t SubscriptionTier) Valid() bool {
	switch t {
	case TierFree, TierBasic, TierPremium:
		return true
	}
	return false
}

// Artisan is a service provider profile. Rating, ReviewCount and
// CompletedJobs are denormalized from reviews and completed bookings.
type Artisan struct {
	Base
	UserID                      uuid.UUID        `db:"user_id"`
	BusinessName                string           `db:"business_name"`
	Category                    string           `db:"category"`
	HourlyRate                  float64          `db:"hourly_rate"`
	Verified                    bool             `db:"verified"`
	Rating                      float64          `db:"rating"`
	ReviewCount                 int              `db:"review_count"`
	CompletedJobs               int              `db:"completed_jobs"`
	SubscriptionTier            SubscriptionTier `db:"subscription_tier"`
	SubscriptionExpiresAt       *time.Time       `db:"subscription_expires_at"`
	SubscriptionExpiryNotified  bool             `db:"subscription_expiry_notified"`
	SubscriptionExpiredNotified bool             `db:"subscription_expired_notified"`
}

// EffectiveTier is the tier used for commission. A paid tier past its
// expiry counts as free even before the sweep downgrades it.
func (a *Artisan) EffectiveTier(now time.Time) SubscriptionTier {
	if !a.SubscriptionTier.Valid() {
		return TierFree
	}
	if a.SubscriptionTier != TierFree && a.SubscriptionExpiresAt != nil && !a.SubscriptionExpiresAt.After(now) {
		return TierFree
	}
	return a.SubscriptionTier
}
