package usecase

import (
	"context"
	"fmt"

	"artisan-marketplace/internal/data/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RatingAggregator keeps an artisan's denormalized rating and review count
// in step with the reviews table.
type RatingAggregator struct {
	log *zap.Logger
}

func NewRatingAggregator(log *zap.Logger) *RatingAggregator {
	return &RatingAggregator{log: log.With(zap.String("service", "rating"))}
}

// Recompute derives rating (mean, 1 decimal) and count from all reviews of
// artisanID and persists them through repo, which is usually bound to the
// same transaction as the review write. Zero reviews yield 0 and 0.
func (a *RatingAggregator) Recompute(ctx context.Context, repo *repository.Repository, artisanID uuid.UUID) (float64, int, error) {
	avg, count, err := repo.Review.GetArtisanStats(ctx, artisanID)
	if err != nil {
		return 0, 0, fmt.Errorf("aggregate artisan rating: %w", err)
	}

	rating := 0.0
	if count > 0 {
		rating = round1(avg)
	}

	if err := repo.Artisan.UpdateRating(ctx, artisanID, rating, count); err != nil {
		return 0, 0, fmt.Errorf("update artisan rating: %w", err)
	}

	a.log.Debug("Artisan rating recomputed",
		zap.String("artisan_id", artisanID.String()),
		zap.Float64("rating", rating),
		zap.Int("review_count", count),
	)
	return rating, count, nil
}
