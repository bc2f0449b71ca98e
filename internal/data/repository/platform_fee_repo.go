package repository

import (
	"context"
	"fmt"

	"artisan-marketplace/internal/data/entity"
	"artisan-marketplace/pkg/database"

	"go.uber.org/zap"
)

type PlatformFeeRepository interface {
	ListActive(ctx context.Context) ([]entity.PlatformFeeConfig, error)
	ListAll(ctx context.Context) ([]entity.PlatformFeeConfig, error)
	Upsert(ctx context.Context, cfg *entity.PlatformFeeConfig) error
}

type platformFeeRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewPlatformFeeRepository(db database.Querier, log *zap.Logger) PlatformFeeRepository {
	return &platformFeeRepository{
		db:  db,
		log: log.With(zap.String("repository", "platform_fee")),
	}
}

func (r *platformFeeRepository) ListActive(ctx context.Context) ([]entity.PlatformFeeConfig, error) {
	return r.list(ctx, `SELECT tier, fee_percentage, is_active, updated_at FROM platform_fee_configs WHERE is_active = TRUE`)
}

func (r *platformFeeRepository) ListAll(ctx context.Context) ([]entity.PlatformFeeConfig, error) {
	return r.list(ctx, `SELECT tier, fee_percentage, is_active, updated_at FROM platform_fee_configs ORDER BY tier`)
}

func (r *platformFeeRepository) Upsert(ctx context.Context, cfg *entity.PlatformFeeConfig) error {
	query := `
		INSERT INTO platform_fee_configs (tier, fee_percentage, is_active, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tier) DO UPDATE
		SET fee_percentage = EXCLUDED.fee_percentage,
		    is_active = EXCLUDED.is_active,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(ctx, query, cfg.Tier, cfg.FeePercentage, cfg.IsActive, cfg.UpdatedAt)
	if err != nil {
		r.log.Error("Failed to upsert platform fee config",
			zap.Error(err),
			zap.String("tier", string(cfg.Tier)),
		)
		return fmt.Errorf("upsert platform fee config %s: %w", cfg.Tier, err)
	}

	return nil
}

func (r *platformFeeRepository) list(ctx context.Context, query string) ([]entity.PlatformFeeConfig, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.Error("Failed to list platform fee configs", zap.Error(err))
		return nil, fmt.Errorf("list platform fee configs: %w", err)
	}
	defer rows.Close()

	var configs []entity.PlatformFeeConfig
	for rows.Next() {
		var cfg entity.PlatformFeeConfig
		if err := rows.Scan(&cfg.Tier, &cfg.FeePercentage, &cfg.IsActive, &cfg.UpdatedAt); err != nil {
			r.log.Error("Failed to scan platform fee config row", zap.Error(err))
			return nil, fmt.Errorf("scan platform fee config row: %w", err)
		}
		configs = append(configs, cfg)
	}

	return configs, rows.Err()
}
