package repository

import (
	"context"
	"fmt"

	"artisan-marketplace/internal/data/entity"
	"artisan-marketplace/pkg/apperr"
	"artisan-marketplace/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Review, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Review, error)
	ListByArtisan(ctx context.Context, artisanID uuid.UUID, limit, offset int) ([]*entity.Review, error)
	CountByArtisan(ctx context.Context, artisanID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// GetArtisanStats returns the unrounded mean rating and review count
	GetArtisanStats(ctx context.Context, artisanID uuid.UUID) (float64, int, error)
}

type reviewRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewReviewRepository(db database.Querier, log *zap.Logger) ReviewRepository {
	return &reviewRepository{
		db:  db,
		log: log.With(zap.String("repository", "review")),
	}
}

const reviewColumns = `id, booking_id, artisan_id, customer_id, rating, comment, created_at`

func scanReview(row rowScanner) (*entity.Review, error) {
	var rv entity.Review
	err := row.Scan(
		&rv.ID,
		&rv.BookingID,
		&rv.ArtisanID,
		&rv.CustomerID,
		&rv.Rating,
		&rv.Comment,
		&rv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) error {
	query := `
		INSERT INTO reviews (id, booking_id, artisan_id, customer_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		review.ID,
		review.BookingID,
		review.ArtisanID,
		review.CustomerID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
	)

	if database.IsUniqueViolation(err) {
		return apperr.DuplicateKey("booking has already been reviewed")
	}
	if err != nil {
		r.log.Error("Failed to create review",
			zap.Error(err),
			zap.String("booking_id", review.BookingID.String()),
		)
		return fmt.Errorf("create review for booking %s: %w", review.BookingID.String(), err)
	}

	return nil
}

func (r *reviewRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`

	review, err := scanReview(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find review by ID",
			zap.Error(err),
			zap.String("review_id", id.String()),
		)
		return nil, fmt.Errorf("find review by ID %s: %w", id.String(), err)
	}

	return review, nil
}

func (r *reviewRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE booking_id = $1`

	review, err := scanReview(r.db.QueryRow(ctx, query, bookingID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find review by booking",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find review by booking %s: %w", bookingID.String(), err)
	}

	return review, nil
}

func (r *reviewRepository) ListByArtisan(ctx context.Context, artisanID uuid.UUID, limit, offset int) ([]*entity.Review, error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE artisan_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, artisanID, limit, offset)
	if err != nil {
		r.log.Error("Failed to list reviews",
			zap.Error(err),
			zap.String("artisan_id", artisanID.String()),
		)
		return nil, fmt.Errorf("list reviews for artisan %s: %w", artisanID.String(), err)
	}
	defer rows.Close()

	var reviews []*entity.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			r.log.Error("Failed to scan review row", zap.Error(err))
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, review)
	}

	return reviews, rows.Err()
}

func (r *reviewRepository) CountByArtisan(ctx context.Context, artisanID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM reviews WHERE artisan_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, artisanID).Scan(&count); err != nil {
		r.log.Error("Failed to count reviews",
			zap.Error(err),
			zap.String("artisan_id", artisanID.String()),
		)
		return 0, fmt.Errorf("count reviews for artisan %s: %w", artisanID.String(), err)
	}

	return count, nil
}

func (r *reviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM reviews WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to delete review",
			zap.Error(err),
			zap.String("review_id", id.String()),
		)
		return fmt.Errorf("delete review %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("review %s not found", id.String())
	}

	return nil
}

func (r *reviewRepository) GetArtisanStats(ctx context.Context, artisanID uuid.UUID) (float64, int, error) {
	query := `SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*) FROM reviews WHERE artisan_id = $1`

	var avg float64
	var count int
	if err := r.db.QueryRow(ctx, query, artisanID).Scan(&avg, &count); err != nil {
		r.log.Error("Failed to aggregate artisan reviews",
			zap.Error(err),
			zap.String("artisan_id", artisanID.String()),
		)
		return 0, 0, fmt.Errorf("aggregate reviews for artisan %s: %w", artisanID.String(), err)
	}

	return avg, count, nil
}
