package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"artisan-marketplace/internal/data/entity"
	"artisan-marketplace/internal/data/repository"
	"artisan-marketplace/internal/dto/request"
	"artisan-marketplace/internal/dto/response"
	"artisan-marketplace/pkg/apperr"
	"artisan-marketplace/pkg/clock"
	"artisan-marketplace/pkg/utils"

	"go.uber.org/zap"
)

// DefaultFeePercentages apply when no active config row exists for a tier.
var DefaultFeePercentages = map[entity.SubscriptionTier]float64{
	entity.TierFree:    10,
	entity.TierBasic:   7,
	entity.TierPremium: 5,
}

var feeTiers = []entity.SubscriptionTier{entity.TierFree, entity.TierBasic, entity.TierPremium}

// ResolveFee picks the fee percentage for tier: an active config entry
// first, then the tier default, then the free-tier default.
func ResolveFee(tier entity.SubscriptionTier, active []entity.PlatformFeeConfig) float64 {
	for _, cfg := range active {
		if cfg.Tier == tier && cfg.IsActive {
			return cfg.FeePercentage
		}
	}
	if pct, ok := DefaultFeePercentages[tier]; ok {
		return pct
	}
	return DefaultFeePercentages[entity.TierFree]
}

type FeeService interface {
	ResolveFeePercentage(ctx context.Context, tier entity.SubscriptionTier) float64

	// Admin endpoints
	ListConfigs(ctx context.Context) ([]response.PlatformFeeResponse, error)
	UpsertConfig(ctx context.Context, tier string, req *request.UpsertPlatformFeeRequest) (*response.PlatformFeeResponse, error)
}

type feeService struct {
	repo  repository.PlatformFeeRepository
	ttl   time.Duration
	clock clock.Clock
	log   *zap.Logger

	mu       sync.Mutex
	active   []entity.PlatformFeeConfig
	loadedAt time.Time
	loaded   bool
}

func NewFeeService(repo repository.PlatformFeeRepository, config utils.FeeConfig, clk clock.Clock, log *zap.Logger) FeeService {
	if clk == nil {
		clk = clock.Real{}
	}
	return &feeService{
		repo:  repo,
		ttl:   config.CacheTTL,
		clock: clk,
		log:   log.With(zap.String("service", "fee")),
	}
}

// ResolveFeePercentage never fails. A storage error falls back to the
// tier defaults and is not cached.
func (s *feeService) ResolveFeePercentage(ctx context.Context, tier entity.SubscriptionTier) float64 {
	active, err := s.snapshot(ctx)
	if err != nil {
		s.log.Warn("Failed to load platform fee configs, using defaults",
			zap.Error(err),
			zap.String("tier", string(tier)),
		)
		return ResolveFee(tier, nil)
	}
	return ResolveFee(tier, active)
}

func (s *feeService) snapshot(ctx context.Context) ([]entity.PlatformFeeConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if s.loaded && s.ttl > 0 && now.Sub(s.loadedAt) < s.ttl {
		return s.active, nil
	}

	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	s.active = active
	s.loadedAt = now
	s.loaded = true
	return active, nil
}

func (s *feeService) invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.active = nil
	s.mu.Unlock()
}

func (s *feeService) ListConfigs(ctx context.Context) ([]response.PlatformFeeResponse, error) {
	configs, err := s.repo.ListAll(ctx)
	if err != nil {
		s.log.Error("Failed to list platform fee configs", zap.Error(err))
		return nil, fmt.Errorf("list platform fee configs: %w", err)
	}

	byTier := make(map[entity.SubscriptionTier]entity.PlatformFeeConfig, len(configs))
	for _, cfg := range configs {
		byTier[cfg.Tier] = cfg
	}

	result := make([]response.PlatformFeeResponse, 0, len(feeTiers))
	for _, tier := range feeTiers {
		if cfg, ok := byTier[tier]; ok {
			result = append(result, response.PlatformFeeResponse{
				Tier:          tier,
				FeePercentage: cfg.FeePercentage,
				IsActive:      cfg.IsActive,
				Source:        "config",
			})
			continue
		}
		result = append(result, response.PlatformFeeResponse{
			Tier:          tier,
			FeePercentage: DefaultFeePercentages[tier],
			IsActive:      true,
			Source:        "default",
		})
	}

	return result, nil
}

func (s *feeService) UpsertConfig(ctx context.Context, tier string, req *request.UpsertPlatformFeeRequest) (*response.PlatformFeeResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Upsert platform fee validation failed", zap.Any("errors", errs))
		return nil, apperr.Validation(errs)
	}

	t := entity.SubscriptionTier(tier)
	if !t.Valid() {
		return nil, apperr.Validation(map[string]string{"tier": "tier must be one of: free basic premium"})
	}

	cfg := &entity.PlatformFeeConfig{
		Tier:          t,
		FeePercentage: *req.FeePercentage,
		IsActive:      *req.IsActive,
		UpdatedAt:     s.clock.Now(),
	}

	if err := s.repo.Upsert(ctx, cfg); err != nil {
		s.log.Error("Failed to upsert platform fee config",
			zap.Error(err),
			zap.String("tier", tier),
		)
		return nil, fmt.Errorf("upsert platform fee config: %w", err)
	}
	s.invalidate()

	s.log.Info("Platform fee config updated",
		zap.String("tier", tier),
		zap.Float64("fee_percentage", cfg.FeePercentage),
		zap.Bool("is_active", cfg.IsActive),
	)

	return &response.PlatformFeeResponse{
		Tier:          cfg.Tier,
		FeePercentage: cfg.FeePercentage,
		IsActive:      cfg.IsActive,
		Source:        "config",
	}, nil
}
