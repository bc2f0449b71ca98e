package response

import (
	"time"

	"artisan-marketplace/internal/data/entity"
)

type ReviewResponse struct {
	ID         string    `json:"id"`
	BookingID  string    `json:"booking_id"`
	ArtisanID  string    `json:"artisan_id"`
	CustomerID string    `json:"customer_id"`
	Rating     int       `json:"rating"`
	Comment    *string   `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type ArtisanRatingResponse struct {
	ArtisanID   string  `json:"artisan_id"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}

type CreateReviewResponse struct {
	Review        ReviewResponse        `json:"review"`
	ArtisanRating ArtisanRatingResponse `json:"artisan_rating"`
}

// Helper converter
func ReviewToResponse(review *entity.Review) ReviewResponse {
	return ReviewResponse{
		ID:         review.ID.String(),
		BookingID:  review.BookingID.String(),
		ArtisanID:  review.ArtisanID.String(),
		CustomerID: review.CustomerID.String(),
		Rating:     review.Rating,
		Comment:    review.Comment,
		CreatedAt:  review.CreatedAt,
	}
}
