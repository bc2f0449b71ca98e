package usecase

import (
	"context"
	"fmt"
	"time"

	"artisan-marketplace/internal/data/entity"
	"artisan-marketplace/internal/data/repository"
	"artisan-marketplace/internal/dto/response"
	"artisan-marketplace/pkg/clock"
	"artisan-marketplace/pkg/utils"

	"go.uber.org/zap"
)

type SubscriptionService interface {
	// SweepExpirations warns artisans whose paid tier ends within the
	// warning window and downgrades the ones already expired. Each artisan
	// is handled at most once per subscription period.
	SweepExpirations(ctx context.Context) (*response.SubscriptionSweepResponse, error)
}

type subscriptionService struct {
	repo     *repository.Repository
	config   utils.SubscriptionConfig
	notifier *Dispatcher
	clock    clock.Clock
	log      *zap.Logger
}

func NewSubscriptionService(repo *repository.Repository, config utils.SubscriptionConfig, notifier *Dispatcher, deps Deps, log *zap.Logger) SubscriptionService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	return &subscriptionService{
		repo:     repo,
		config:   config,
		notifier: notifier,
		clock:    clk,
		log:      log.With(zap.String("service", "subscription")),
	}
}

func (s *subscriptionService) SweepExpirations(ctx context.Context) (*response.SubscriptionSweepResponse, error) {
	now := s.clock.Now()
	warningDays := s.config.ExpiryWarningDays
	if warningDays <= 0 {
		warningDays = 3
	}

	result := &response.SubscriptionSweepResponse{}

	expiring, err := s.repo.Artisan.FindExpiringSubscriptions(ctx, now, now.AddDate(0, 0, warningDays))
	if err != nil {
		return nil, fmt.Errorf("find expiring subscriptions: %w", err)
	}
	for _, artisan := range expiring {
		if err := s.repo.Artisan.MarkExpiryNotified(ctx, artisan.ID); err != nil {
			s.log.Warn("Failed to flag expiring subscription", zap.Error(err), zap.String("artisan_id", artisan.ID.String()))
			continue
		}
		result.Warned++

		expires := ""
		if artisan.SubscriptionExpiresAt != nil {
			expires = artisan.SubscriptionExpiresAt.Format(time.DateOnly)
		}
		s.notifier.Notify(NotificationInput{
			UserID:  artisan.UserID,
			Type:    entity.NotificationSubscriptionExpiry,
			Title:   "Subscription expiring soon",
			Message: fmt.Sprintf("Your %s subscription expires on %s. Renew to keep your reduced fee.", artisan.SubscriptionTier, expires),
			Metadata: map[string]string{
				"tier":      string(artisan.SubscriptionTier),
				"expiresAt": expires,
			},
		})
	}

	expired, err := s.repo.Artisan.FindExpiredSubscriptions(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("find expired subscriptions: %w", err)
	}
	for _, artisan := range expired {
		downgraded, err := s.repo.Artisan.DowngradeExpired(ctx, artisan.ID, now)
		if err != nil {
			s.log.Warn("Failed to downgrade expired subscription", zap.Error(err), zap.String("artisan_id", artisan.ID.String()))
			continue
		}
		if !downgraded {
			s.log.Info("Subscription renewed during sweep", zap.String("artisan_id", artisan.ID.String()))
			continue
		}
		result.Downgraded++

		s.notifier.Notify(NotificationInput{
			UserID:  artisan.UserID,
			Type:    entity.NotificationSubscriptionExpired,
			Title:   "Subscription expired",
			Message: fmt.Sprintf("Your %s subscription has expired and your account is back on the free tier.", artisan.SubscriptionTier),
			Metadata: map[string]string{
				"previousTier": string(artisan.SubscriptionTier),
			},
		})
	}

	s.log.Info("Subscription sweep finished",
		zap.Int("warned", result.Warned),
		zap.Int("downgraded", result.Downgraded),
	)
	return result, nil
}
