package usecase

import (
	"context"
	"time"

	"artisan-marketplace/internal/data/entity"
	"artisan-marketplace/internal/data/repository"
	"artisan-marketplace/pkg/clock"
	"artisan-marketplace/pkg/gateway"
	"artisan-marketplace/pkg/metrics"
	"artisan-marketplace/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Locker guards a critical section across processes. TryLock returns
// ok=false when another holder owns key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type EmailSender interface {
	Send(to, subject, body string) error
}

// Deps are the external collaborators. Locker, Publisher and Mailer are
// optional and may be nil.
type Deps struct {
	Gateway   gateway.PaymentGateway
	Locker    Locker
	Publisher EventPublisher
	Mailer    EmailSender
	Metrics   *metrics.Metrics
	Clock     clock.Clock
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uuid.UUID
	Role   entity.UserRole
}

const roleSystem entity.UserRole = "system"

// SystemActor is used for provider-initiated work such as webhooks, which
// bypasses ownership checks.
func SystemActor() Actor {
	return Actor{Role: roleSystem}
}

func (a Actor) IsAdmin() bool  { return a.Role == entity.RoleAdmin }
func (a Actor) IsSystem() bool { return a.Role == roleSystem }

type Service struct {
	Fee          FeeService
	Booking      BookingService
	Payment      PaymentService
	Review       ReviewService
	Notification NotificationService
	Subscription SubscriptionService
	User         UserService
	Dispatcher   *Dispatcher
}

func NewService(repo *repository.Repository, config *utils.Config, log *zap.Logger, deps Deps) *Service {
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}

	dispatcher := NewDispatcher(repo, config.Notification, deps, log)
	fee := NewFeeService(repo.PlatformFee, config.Fee, deps.Clock, log)
	payment := NewPaymentService(repo, config, fee, dispatcher, deps, log)

	return &Service{
		Fee:          fee,
		Booking:      NewBookingService(repo, config.Booking, payment, dispatcher, deps, log),
		Payment:      payment,
		Review:       NewReviewService(repo, NewRatingAggregator(log), dispatcher, deps, log),
		Notification: NewNotificationService(repo.Notification, log),
		Subscription: NewSubscriptionService(repo, config.Subscription, dispatcher, deps, log),
		User:         NewUserService(repo, log),
		Dispatcher:   dispatcher,
	}
}
