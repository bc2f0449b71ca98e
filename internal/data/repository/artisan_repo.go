package repository

import (
	"context"
	"fmt"
	"time"

	"artisan-marketplace/internal/data/entity"
	"artisan-marketplace/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ArtisanRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Artisan, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Artisan, error)

	// Denormalized counters
	IncrementCompletedJobs(ctx context.Context, id uuid.UUID) error
	UpdateRating(ctx context.Context, id uuid.UUID, rating float64, reviewCount int) error

	// Subscription lifecycle
	ActivateSubscription(ctx context.Context, id uuid.UUID, tier entity.SubscriptionTier, expiresAt time.Time) error
	FindExpiringSubscriptions(ctx context.Context, now, until time.Time) ([]*entity.Artisan, error)
	FindExpiredSubscriptions(ctx context.Context, now time.Time) ([]*entity.Artisan, error)
	MarkExpiryNotified(ctx context.Context, id uuid.UUID) error
	// DowngradeExpired moves a lapsed subscription to free. Returns false
	// when the subscription was renewed after it was selected.
	DowngradeExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}

type artisanRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewArtisanRepository(db database.Querier, log *zap.Logger) ArtisanRepository {
	return &artisanRepository{
		db:  db,
		log: log.With(zap.String("repository", "artisan")),
	}
}

const artisanColumns = `id, user_id, business_name, category, hourly_rate, verified, rating, review_count,
	completed_jobs, subscription_tier, subscription_expires_at, subscription_expiry_notified,
	subscription_expired_notified, created_at, updated_at`

func scanArtisan(row rowScanner) (*entity.Artisan, error) {
	var a entity.Artisan
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.BusinessName,
		&a.Category,
		&a.HourlyRate,
		&a.Verified,
		&a.Rating,
		&a.ReviewCount,
		&a.CompletedJobs,
		&a.SubscriptionTier,
		&a.SubscriptionExpiresAt,
		&a.SubscriptionExpiryNotified,
		&a.SubscriptionExpiredNotified,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *artisanRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Artisan, error) {
	query := `SELECT ` + artisanColumns + ` FROM artisans WHERE id = $1`

	artisan, err := scanArtisan(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find artisan by ID",
			zap.Error(err),
			zap.String("artisan_id", id.String()),
		)
		return nil, fmt.Errorf("find artisan by ID %s: %w", id.String(), err)
	}

	return artisan, nil
}

func (r *artisanRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Artisan, error) {
	query := `SELECT ` + artisanColumns + ` FROM artisans WHERE user_id = $1`

	artisan, err := scanArtisan(r.db.QueryRow(ctx, query, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find artisan by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find artisan by user ID %s: %w", userID.String(), err)
	}

	return artisan, nil
}

func (r *artisanRepository) IncrementCompletedJobs(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE artisans SET completed_jobs = completed_jobs + 1, updated_at = NOW() WHERE id = $1`

	return r.execOne(ctx, "increment completed jobs", id, query, id)
}

func (r *artisanRepository) UpdateRating(ctx context.Context, id uuid.UUID, rating float64, reviewCount int) error {
	query := `UPDATE artisans SET rating = $2, review_count = $3, updated_at = NOW() WHERE id = $1`

	return r.execOne(ctx, "update rating", id, query, id, rating, reviewCount)
}

func (r *artisanRepository) ActivateSubscription(ctx context.Context, id uuid.UUID, tier entity.SubscriptionTier, expiresAt time.Time) error {
	query := `
		UPDATE artisans
		SET subscription_tier = $2, subscription_expires_at = $3,
		    subscription_expiry_notified = FALSE, subscription_expired_notified = FALSE,
		    updated_at = NOW()
		WHERE id = $1
	`

	return r.execOne(ctx, "activate subscription", id, query, id, tier, expiresAt)
}

func (r *artisanRepository) FindExpiringSubscriptions(ctx context.Context, now, until time.Time) ([]*entity.Artisan, error) {
	query := `
		SELECT ` + artisanColumns + `
		FROM artisans
		WHERE subscription_tier <> 'free'
		  AND subscription_expires_at > $1
		  AND subscription_expires_at <= $2
		  AND subscription_expiry_notified = FALSE
	`

	return r.list(ctx, "find expiring subscriptions", query, now, until)
}

func (r *artisanRepository) FindExpiredSubscriptions(ctx context.Context, now time.Time) ([]*entity.Artisan, error) {
	query := `
		SELECT ` + artisanColumns + `
		FROM artisans
		WHERE subscription_tier <> 'free'
		  AND subscription_expires_at <= $1
		  AND subscription_expired_notified = FALSE
	`

	return r.list(ctx, "find expired subscriptions", query, now)
}

func (r *artisanRepository) MarkExpiryNotified(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE artisans SET subscription_expiry_notified = TRUE, updated_at = NOW() WHERE id = $1`

	return r.execOne(ctx, "mark expiry notified", id, query, id)
}

func (r *artisanRepository) DowngradeExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE artisans
		SET subscription_tier = 'free', subscription_expired_notified = TRUE, updated_at = NOW()
		WHERE id = $1 AND subscription_expires_at <= $2
	`

	result, err := r.db.Exec(ctx, query, id, now)
	if err != nil {
		r.log.Error("Failed to downgrade expired subscription",
			zap.Error(err),
			zap.String("artisan_id", id.String()),
		)
		return false, fmt.Errorf("downgrade expired subscription for artisan %s: %w", id.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *artisanRepository) list(ctx context.Context, op, query string, args ...any) ([]*entity.Artisan, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to "+op, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var artisans []*entity.Artisan
	for rows.Next() {
		artisan, err := scanArtisan(rows)
		if err != nil {
			r.log.Error("Failed to scan artisan row", zap.Error(err))
			return nil, fmt.Errorf("scan artisan row: %w", err)
		}
		artisans = append(artisans, artisan)
	}

	return artisans, rows.Err()
}

func (r *artisanRepository) execOne(ctx context.Context, op string, id uuid.UUID, query string, args ...any) error {
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to "+op,
			zap.Error(err),
			zap.String("artisan_id", id.String()),
		)
		return fmt.Errorf("%s for artisan %s: %w", op, id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("artisan %s not found", id.String())
	}

	return nil
}
