package response

import (
	"time"

	"artisan-marketplace/internal/data/entity"
)

type UserResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      entity.UserRole `json:"role"`
	CreatedAt time.Time       `json:"created_at"`
}

type ArtisanResponse struct {
	ID                    string                  `json:"id"`
	UserID                string                  `json:"user_id"`
	BusinessName          string                  `json:"business_name"`
	Category              string                  `json:"category"`
	HourlyRate            float64                 `json:"hourly_rate"`
	Verified              bool                    `json:"verified"`
	Rating                float64                 `json:"rating"`
	ReviewCount           int                     `json:"review_count"`
	CompletedJobs         int                     `json:"completed_jobs"`
	SubscriptionTier      entity.SubscriptionTier `json:"subscription_tier"`
	SubscriptionExpiresAt *time.Time              `json:"subscription_expires_at,omitempty"`
}

type ProfileResponse struct {
	User    UserResponse     `json:"user"`
	Artisan *ArtisanResponse `json:"artisan,omitempty"`
}

// Helper converters
func UserToResponse(user *entity.User) UserResponse {
	return UserResponse{
		ID:        user.ID.String(),
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

func ArtisanToResponse(a *entity.Artisan) ArtisanResponse {
	return ArtisanResponse{
		ID:                    a.ID.String(),
		UserID:                a.UserID.String(),
		BusinessName:          a.BusinessName,
		Category:              a.Category,
		HourlyRate:            a.HourlyRate,
		Verified:              a.Verified,
		Rating:                a.Rating,
		ReviewCount:           a.ReviewCount,
		CompletedJobs:         a.CompletedJobs,
		SubscriptionTier:      a.SubscriptionTier,
		SubscriptionExpiresAt: a.SubscriptionExpiresAt,
	}
}
