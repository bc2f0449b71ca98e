package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"artisan-marketplace/internal/data/entity"
	"artisan-marketplace/internal/data/repository"
	"artisan-marketplace/internal/dto/request"
	"artisan-marketplace/internal/dto/response"
	"artisan-marketplace/pkg/apperr"
	"artisan-marketplace/pkg/clock"
	"artisan-marketplace/pkg/gateway"
	"artisan-marketplace/pkg/metrics"
	"artisan-marketplace/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Intent metadata keys shared with the webhook path.
const (
	metaType    = "type"
	metaBooking = "bookingId"
	metaUser    = "customerId"
	metaArtisan = "artisanId"
	metaTier    = "subscriptionTier"

	intentTypeBooking      = "booking"
	intentTypeSubscription = "subscription"

	defaultLockTTL        = 30 * time.Second
	defaultReconcileLimit = 50
)

type PaymentService interface {
	// Booking payments
	CreatePaymentIntent(ctx context.Context, actor Actor, req *request.CreatePaymentIntentRequest) (*response.PaymentIntentResponse, error)
	ConfirmPayment(ctx context.Context, actor Actor, req *request.ConfirmPaymentRequest) (*response.BookingResponse, error)

	// Subscriptions
	CreateSubscriptionIntent(ctx context.Context, actor Actor, req *request.CreateSubscriptionIntentRequest) (*response.PaymentIntentResponse, error)
	ConfirmSubscription(ctx context.Context, actor Actor, req *request.ConfirmPaymentRequest) (*response.SubscriptionResponse, error)

	// Refunds
	Refund(ctx context.Context, paymentIntentID string) (*gateway.Refund, error)
	RefundBookingPayment(ctx context.Context, booking *entity.Booking) error
	ReconcileRefunds(ctx context.Context, limit int) (*response.ReconcileRefundsResponse, error)

	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	ListTransactions(ctx context.Context, actor Actor, req *request.PaginatedRequest) (*response.PaginatedResponse[response.TransactionResponse], error)
}

type paymentService struct {
	repo         *repository.Repository
	fees         FeeService
	gateway      gateway.PaymentGateway
	locker       Locker
	notifier     *Dispatcher
	metrics      *metrics.Metrics
	clock        clock.Clock
	currency     string
	lockTTL      time.Duration
	subscription utils.SubscriptionConfig
	log          *zap.Logger
}

func NewPaymentService(repo *repository.Repository, config *utils.Config, fees FeeService, notifier *Dispatcher, deps Deps, log *zap.Logger) PaymentService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	lockTTL := config.Redis.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	currency := config.Stripe.Currency
	if currency == "" {
		currency = "usd"
	}

	return &paymentService{
		repo:         repo,
		fees:         fees,
		gateway:      deps.Gateway,
		locker:       deps.Locker,
		notifier:     notifier,
		metrics:      deps.Metrics,
		clock:        clk,
		currency:     currency,
		lockTTL:      lockTTL,
		subscription: config.Subscription,
		log:          log.With(zap.String("service", "payment")),
	}
}

func (s *paymentService) CreatePaymentIntent(ctx context.Context, actor Actor, req *request.CreatePaymentIntentRequest) (*response.PaymentIntentResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create payment intent validation failed", zap.Any("errors", errs))
		return nil, apperr.Validation(errs)
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, apperr.Validation(map[string]string{"booking_id": "invalid booking ID"})
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	if booking == nil {
		return nil, apperr.NotFound("booking")
	}

	if booking.CustomerID != actor.UserID {
		return nil, apperr.Forbidden("only the booking's customer can pay for it")
	}
	if booking.PaymentStatus == entity.PaymentStatusPaid {
		return nil, apperr.InvalidState("booking is already paid")
	}
	if booking.Status == entity.BookingStatusCancelled {
		return nil, apperr.InvalidState("cannot pay for a cancelled booking")
	}

	intent, err := s.gateway.CreateIntent(ctx, decimal.NewFromFloat(booking.Amount), s.currency, map[string]string{
		metaType:    intentTypeBooking,
		metaBooking: booking.ID.String(),
		metaUser:    booking.CustomerID.String(),
	})
	if err != nil {
		s.log.Error("Failed to create payment intent",
			zap.Error(err),
			zap.String("booking_id", req.BookingID),
		)
		return nil, apperr.PaymentGateway(err)
	}

	if err := s.repo.Booking.SetPaymentIntent(ctx, booking.ID, intent.ID); err != nil {
		s.log.Error("Failed to store payment intent on booking",
			zap.Error(err),
			zap.String("booking_id", req.BookingID),
			zap.String("payment_intent_id", intent.ID),
		)
		return nil, fmt.Errorf("store payment intent: %w", err)
	}

	s.log.Info("Payment intent created",
		zap.String("booking_id", req.BookingID),
		zap.String("payment_intent_id", intent.ID),
		zap.Float64("amount", booking.Amount),
	)

	return &response.PaymentIntentResponse{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          booking.Amount,
		Currency:        s.currency,
	}, nil
}

func (s *paymentService) ConfirmPayment(ctx context.Context, actor Actor, req *request.ConfirmPaymentRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation(errs)
	}

	intent, err := s.retrieveSucceeded(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, err
	}

	booking, err := s.settleBooking(ctx, actor, intent)
	if err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *paymentService) retrieveSucceeded(ctx context.Context, ref string) (*gateway.Intent, error) {
	intent, err := s.gateway.RetrieveIntent(ctx, ref)
	if err != nil {
		s.log.Error("Failed to retrieve payment intent", zap.Error(err), zap.String("payment_intent_id", ref))
		return nil, apperr.PaymentGateway(err)
	}
	if intent.Status != gateway.StatusSucceeded {
		s.log.Info("Payment not successful",
			zap.String("payment_intent_id", ref),
			zap.String("gateway_status", intent.Status),
		)
		return nil, apperr.PaymentNotSuccessful(intent.Status)
	}
	return intent, nil
}

// settleBooking records the booking ledger entry and marks the booking
// paid. Settling the same intent twice returns the booking unchanged.
func (s *paymentService) settleBooking(ctx context.Context, actor Actor, intent *gateway.Intent) (*entity.Booking, error) {
	if intent.Metadata[metaType] != intentTypeBooking {
		return nil, apperr.InvalidState("payment intent is not for a booking")
	}
	bookingID, err := uuid.Parse(intent.Metadata[metaBooking])
	if err != nil {
		return nil, apperr.InvalidState("payment intent has no booking reference")
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	if booking == nil {
		return nil, apperr.NotFound("booking")
	}
	if !actor.IsSystem() && booking.CustomerID != actor.UserID {
		return nil, apperr.Forbidden("only the booking's customer can confirm its payment")
	}

	unlock, err := s.acquire(ctx, "payment:confirm:"+intent.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := s.repo.Transaction.FindByReference(ctx, intent.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing transaction: %w", err)
	}
	if existing != nil {
		s.metrics.PaymentSettled(intentTypeBooking, "duplicate")
		s.log.Info("Payment already settled", zap.String("payment_intent_id", intent.ID))
		return s.loadBooking(ctx, bookingID)
	}

	if booking.PaymentStatus == entity.PaymentStatusPaid {
		return nil, s.refundSurplus(ctx, booking, intent)
	}

	artisan, err := s.repo.Artisan.FindByID(ctx, booking.ArtisanID)
	if err != nil {
		return nil, fmt.Errorf("find artisan: %w", err)
	}

	now := s.clock.Now()
	tier := entity.TierFree
	if artisan != nil {
		tier = artisan.EffectiveTier(now)
	}

	pct := s.fees.ResolveFeePercentage(ctx, tier)
	fee, net := CalculatePlatformFee(booking.Amount, pct)

	txn := &entity.Transaction{
		Base:                     entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		BookingID:                &booking.ID,
		UserID:                   booking.CustomerID,
		Type:                     entity.TransactionTypeBooking,
		Amount:                   booking.Amount,
		PlatformFee:              fee,
		NetAmount:                net,
		ExternalPaymentReference: intent.ID,
		Status:                   entity.TransactionStatusCompleted,
	}

	err = s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		if err := tx.Transaction.Create(ctx, txn); err != nil {
			return err
		}
		return tx.Booking.MarkPaid(ctx, booking.ID, intent.ID)
	})
	if apperr.Is(err, apperr.ErrDuplicateKey) {
		s.metrics.PaymentSettled(intentTypeBooking, "duplicate")
		s.log.Info("Payment settled concurrently", zap.String("payment_intent_id", intent.ID))
		return s.loadBooking(ctx, bookingID)
	}
	if errors.Is(err, repository.ErrStaleWrite) {
		return nil, s.refundSurplus(ctx, booking, intent)
	}
	if err != nil {
		s.metrics.PaymentSettled(intentTypeBooking, "failed")
		s.log.Error("Failed to settle booking payment",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("payment_intent_id", intent.ID),
		)
		return nil, fmt.Errorf("settle booking payment: %w", err)
	}

	paid, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if paid.Status == entity.BookingStatusCancelled {
		return nil, s.refundLatePayment(ctx, paid)
	}

	s.metrics.PaymentSettled(intentTypeBooking, "settled")
	if booking.Status == entity.BookingStatusPending {
		s.metrics.BookingTransition(string(entity.BookingStatusPending), string(entity.BookingStatusConfirmed))
	}

	s.log.Info("Booking payment settled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("payment_intent_id", intent.ID),
		zap.String("tier", string(tier)),
		zap.Float64("amount", booking.Amount),
		zap.Float64("platform_fee", fee),
		zap.Float64("net_amount", net),
	)

	meta := map[string]string{"bookingId": booking.ID.String(), "transactionId": txn.ID.String()}
	s.notifier.Notify(NotificationInput{
		UserID:   booking.CustomerID,
		Type:     entity.NotificationPaymentReceived,
		Title:    "Payment confirmed",
		Message:  fmt.Sprintf("Your payment of %.2f for %s was received.", booking.Amount, booking.ServiceType),
		Metadata: meta,
	})
	if artisan != nil {
		s.notifier.Notify(NotificationInput{
			UserID:   artisan.UserID,
			Type:     entity.NotificationPaymentReceived,
			Title:    "Booking paid",
			Message:  fmt.Sprintf("A %s booking was paid. You will receive %.2f after completion.", booking.ServiceType, net),
			Metadata: meta,
		})
	}

	return paid, nil
}

// refundLatePayment handles a payment that succeeded after its booking was
// cancelled. The payment is already recorded, so a failed refund leaves the
// booking cancelled and paid for ReconcileRefunds.
func (s *paymentService) refundLatePayment(ctx context.Context, booking *entity.Booking) error {
	s.metrics.PaymentSettled(intentTypeBooking, "cancelled")
	s.log.Warn("Payment succeeded for cancelled booking, refunding",
		zap.String("booking_id", booking.ID.String()),
		zap.String("payment_intent_id", *booking.PaymentIntentID),
	)

	status := entity.PaymentStatusRefunded
	if err := s.RefundBookingPayment(ctx, booking); err != nil {
		status = entity.PaymentStatusPaid
		s.log.Error("Refund of late payment failed, left for reconciliation",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
	}

	return apperr.InvalidState("booking was cancelled before payment was confirmed").
		WithDetail("payment_status", string(status))
}

// refundSurplus returns a second successful intent for a booking another
// intent already paid. Nothing is written to the booking.
func (s *paymentService) refundSurplus(ctx context.Context, booking *entity.Booking, intent *gateway.Intent) error {
	s.metrics.PaymentSettled(intentTypeBooking, "surplus")
	s.log.Warn("Duplicate payment for already paid booking",
		zap.String("booking_id", booking.ID.String()),
		zap.String("payment_intent_id", intent.ID),
	)

	refund, err := s.Refund(ctx, intent.ID)
	if err != nil {
		s.metrics.Refund("failed")
		s.notifier.NotifyAdmins(NotificationInput{
			Type:    entity.NotificationRefundFailed,
			Title:   "Duplicate payment refund failed",
			Message: fmt.Sprintf("Booking %s was paid twice and the extra payment could not be refunded.", booking.ID),
			Metadata: map[string]string{
				"bookingId":       booking.ID.String(),
				"paymentIntentId": intent.ID,
			},
		})
		return err
	}

	now := s.clock.Now()
	amount := intent.Amount.Round(2).InexactFloat64()
	txn := &entity.Transaction{
		Base:                     entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		BookingID:                &booking.ID,
		UserID:                   booking.CustomerID,
		Type:                     entity.TransactionTypeRefund,
		Amount:                   amount,
		PlatformFee:              0,
		NetAmount:                amount,
		ExternalPaymentReference: refund.ID,
		Status:                   entity.TransactionStatusCompleted,
	}
	if err := s.repo.Transaction.Create(ctx, txn); err != nil && !apperr.Is(err, apperr.ErrDuplicateKey) {
		s.log.Error("Duplicate payment refunded but not recorded",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("refund_id", refund.ID),
		)
	}
	s.metrics.Refund("succeeded")

	return apperr.InvalidState("booking is already paid").WithDetail("refund_id", refund.ID)
}

func (s *paymentService) CreateSubscriptionIntent(ctx context.Context, actor Actor, req *request.CreateSubscriptionIntentRequest) (*response.PaymentIntentResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation(errs)
	}

	artisan, err := s.repo.Artisan.FindByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("find artisan profile: %w", err)
	}
	if artisan == nil {
		return nil, apperr.Forbidden("only artisans can subscribe")
	}

	tier := entity.SubscriptionTier(req.Tier)
	price := s.subscriptionPrice(tier)
	if price <= 0 {
		return nil, apperr.Validation(map[string]string{"tier": "tier has no price configured"})
	}

	intent, err := s.gateway.CreateIntent(ctx, decimal.NewFromFloat(price), s.currency, map[string]string{
		metaType:    intentTypeSubscription,
		metaArtisan: artisan.ID.String(),
		metaTier:    string(tier),
	})
	if err != nil {
		s.log.Error("Failed to create subscription intent", zap.Error(err), zap.String("artisan_id", artisan.ID.String()))
		return nil, apperr.PaymentGateway(err)
	}

	s.log.Info("Subscription intent created",
		zap.String("artisan_id", artisan.ID.String()),
		zap.String("tier", string(tier)),
		zap.String("payment_intent_id", intent.ID),
	)

	return &response.PaymentIntentResponse{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          price,
		Currency:        s.currency,
	}, nil
}

func (s *paymentService) subscriptionPrice(tier entity.SubscriptionTier) float64 {
	switch tier {
	case entity.TierBasic:
		return s.subscription.BasicPrice
	case entity.TierPremium:
		return s.subscription.PremiumPrice
	}
	return 0
}

func (s *paymentService) ConfirmSubscription(ctx context.Context, actor Actor, req *request.ConfirmPaymentRequest) (*response.SubscriptionResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation(errs)
	}

	intent, err := s.retrieveSucceeded(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, err
	}

	artisan, err := s.settleSubscription(ctx, actor, intent)
	if err != nil {
		return nil, err
	}

	resp := response.SubscriptionToResponse(artisan)
	return &resp, nil
}

func (s *paymentService) settleSubscription(ctx context.Context, actor Actor, intent *gateway.Intent) (*entity.Artisan, error) {
	if intent.Metadata[metaType] != intentTypeSubscription {
		return nil, apperr.InvalidState("payment intent is not for a subscription")
	}
	artisanID, err := uuid.Parse(intent.Metadata[metaArtisan])
	if err != nil {
		return nil, apperr.InvalidState("payment intent has no artisan reference")
	}
	tier := entity.SubscriptionTier(intent.Metadata[metaTier])
	if !tier.Valid() || tier == entity.TierFree {
		return nil, apperr.InvalidState("payment intent has no paid subscription tier")
	}

	artisan, err := s.repo.Artisan.FindByID(ctx, artisanID)
	if err != nil {
		return nil, fmt.Errorf("find artisan: %w", err)
	}
	if artisan == nil {
		return nil, apperr.NotFound("artisan")
	}
	if !actor.IsSystem() && artisan.UserID != actor.UserID {
		return nil, apperr.Forbidden("only the subscribing artisan can confirm this payment")
	}

	unlock, err := s.acquire(ctx, "payment:confirm:"+intent.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := s.repo.Transaction.FindByReference(ctx, intent.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing transaction: %w", err)
	}
	if existing != nil {
		s.metrics.PaymentSettled(intentTypeSubscription, "duplicate")
		return s.loadArtisan(ctx, artisanID)
	}

	now := s.clock.Now()
	expiresAt := now.AddDate(0, 0, s.periodDays())
	amount := intent.Amount.Round(2).InexactFloat64()

	txn := &entity.Transaction{
		Base:                     entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		UserID:                   artisan.UserID,
		Type:                     entity.TransactionTypeSubscription,
		Amount:                   amount,
		PlatformFee:              0,
		NetAmount:                amount,
		ExternalPaymentReference: intent.ID,
		Status:                   entity.TransactionStatusCompleted,
	}

	err = s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		if err := tx.Transaction.Create(ctx, txn); err != nil {
			return err
		}
		return tx.Artisan.ActivateSubscription(ctx, artisanID, tier, expiresAt)
	})
	if apperr.Is(err, apperr.ErrDuplicateKey) {
		s.metrics.PaymentSettled(intentTypeSubscription, "duplicate")
		return s.loadArtisan(ctx, artisanID)
	}
	if err != nil {
		s.metrics.PaymentSettled(intentTypeSubscription, "failed")
		s.log.Error("Failed to activate subscription",
			zap.Error(err),
			zap.String("artisan_id", artisanID.String()),
			zap.String("payment_intent_id", intent.ID),
		)
		return nil, fmt.Errorf("activate subscription: %w", err)
	}

	s.metrics.PaymentSettled(intentTypeSubscription, "settled")
	s.log.Info("Subscription activated",
		zap.String("artisan_id", artisanID.String()),
		zap.String("tier", string(tier)),
		zap.Time("expires_at", expiresAt),
	)

	s.notifier.Notify(NotificationInput{
		UserID:  artisan.UserID,
		Type:    entity.NotificationSubscriptionActive,
		Title:   "Subscription activated",
		Message: fmt.Sprintf("Your %s subscription is active until %s.", tier, expiresAt.Format(time.DateOnly)),
		Metadata: map[string]string{
			"tier":          string(tier),
			"transactionId": txn.ID.String(),
		},
	})

	return s.loadArtisan(ctx, artisanID)
}

func (s *paymentService) periodDays() int {
	if s.subscription.PeriodDays > 0 {
		return s.subscription.PeriodDays
	}
	return 30
}

func (s *paymentService) Refund(ctx context.Context, paymentIntentID string) (*gateway.Refund, error) {
	refund, err := s.gateway.CreateRefund(ctx, paymentIntentID)
	if err != nil {
		s.log.Error("Gateway refund failed", zap.Error(err), zap.String("payment_intent_id", paymentIntentID))
		return nil, apperr.PaymentGateway(err)
	}
	return refund, nil
}

// RefundBookingPayment refunds a paid booking and records the refund in
// the ledger. The caller decides what to do when it fails.
func (s *paymentService) RefundBookingPayment(ctx context.Context, booking *entity.Booking) error {
	if booking.PaymentStatus != entity.PaymentStatusPaid || !booking.HasPaymentIntent() {
		return apperr.InvalidState("only paid bookings can be refunded")
	}
	ref := *booking.PaymentIntentID

	refund, err := s.Refund(ctx, ref)
	if err != nil {
		s.metrics.Refund("failed")
		s.notifier.NotifyAdmins(NotificationInput{
			Type:    entity.NotificationRefundFailed,
			Title:   "Refund failed",
			Message: fmt.Sprintf("Refund for booking %s failed and needs reconciliation.", booking.ID),
			Metadata: map[string]string{
				"bookingId":       booking.ID.String(),
				"paymentIntentId": ref,
			},
		})
		return err
	}

	now := s.clock.Now()
	txn := &entity.Transaction{
		Base:                     entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		BookingID:                &booking.ID,
		UserID:                   booking.CustomerID,
		Type:                     entity.TransactionTypeRefund,
		Amount:                   booking.Amount,
		PlatformFee:              0,
		NetAmount:                booking.Amount,
		ExternalPaymentReference: refund.ID,
		Status:                   entity.TransactionStatusCompleted,
	}

	err = s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		if err := tx.Transaction.Create(ctx, txn); err != nil {
			return err
		}
		return tx.Booking.UpdatePaymentStatus(ctx, booking.ID, entity.PaymentStatusRefunded)
	})
	if apperr.Is(err, apperr.ErrDuplicateKey) {
		err = s.repo.Booking.UpdatePaymentStatus(ctx, booking.ID, entity.PaymentStatusRefunded)
	}
	if err != nil {
		s.metrics.Refund("unrecorded")
		s.log.Error("Refund issued but not recorded",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("refund_id", refund.ID),
		)
		return fmt.Errorf("record refund: %w", err)
	}

	s.metrics.Refund("succeeded")
	s.log.Info("Booking refunded",
		zap.String("booking_id", booking.ID.String()),
		zap.String("payment_intent_id", ref),
		zap.String("refund_id", refund.ID),
	)

	s.notifier.Notify(NotificationInput{
		UserID:  booking.CustomerID,
		Type:    entity.NotificationRefundIssued,
		Title:   "Refund issued",
		Message: fmt.Sprintf("Your payment of %.2f for %s was refunded.", booking.Amount, booking.ServiceType),
		Metadata: map[string]string{
			"bookingId": booking.ID.String(),
			"refundId":  refund.ID,
		},
	})
	return nil
}

// ReconcileRefunds retries refunds for cancelled bookings still marked
// paid.
func (s *paymentService) ReconcileRefunds(ctx context.Context, limit int) (*response.ReconcileRefundsResponse, error) {
	if limit <= 0 {
		limit = defaultReconcileLimit
	}

	bookings, err := s.repo.Booking.FindCancelledAwaitingRefund(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("find bookings awaiting refund: %w", err)
	}

	result := &response.ReconcileRefundsResponse{}
	for _, booking := range bookings {
		result.Attempted++
		if err := s.RefundBookingPayment(ctx, booking); err != nil {
			result.Failed++
			s.log.Warn("Refund reconciliation failed",
				zap.Error(err),
				zap.String("booking_id", booking.ID.String()),
			)
			continue
		}
		result.Refunded++
	}

	s.log.Info("Refund reconciliation finished",
		zap.Int("attempted", result.Attempted),
		zap.Int("refunded", result.Refunded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// HandleWebhook only fails on an invalid signature. Once the event is
// authenticated every processing error is logged and acknowledged.
func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidSignature) {
			s.metrics.WebhookEvent("unknown", "rejected")
			s.log.Warn("Webhook signature rejected", zap.Error(err))
			return apperr.New(apperr.ErrValidation, "invalid webhook signature")
		}
		s.metrics.WebhookEvent("unknown", "unparsable")
		s.log.Error("Failed to parse webhook event", zap.Error(err))
		return nil
	}

	log := s.log.With(zap.String("event_id", event.ID), zap.String("event_type", event.Type))

	if event.Intent == nil {
		s.metrics.WebhookEvent(event.Type, "ignored")
		log.Debug("Webhook event ignored")
		return nil
	}

	switch event.Type {
	case gateway.EventPaymentSucceeded:
		err = s.handleIntentSucceeded(ctx, event.Intent)
	case gateway.EventPaymentFailed:
		err = s.handleIntentFailed(ctx, event.Intent)
	default:
		s.metrics.WebhookEvent(event.Type, "ignored")
		log.Debug("Webhook event ignored")
		return nil
	}

	if err != nil {
		s.metrics.WebhookEvent(event.Type, "failed")
		log.Error("Webhook processing failed",
			zap.Error(err),
			zap.String("payment_intent_id", event.Intent.ID),
		)
		return nil
	}

	s.metrics.WebhookEvent(event.Type, "processed")
	log.Info("Webhook processed", zap.String("payment_intent_id", event.Intent.ID))
	return nil
}

func (s *paymentService) handleIntentSucceeded(ctx context.Context, intent *gateway.Intent) error {
	switch intent.Metadata[metaType] {
	case intentTypeBooking:
		_, err := s.settleBooking(ctx, SystemActor(), intent)
		return err
	case intentTypeSubscription:
		_, err := s.settleSubscription(ctx, SystemActor(), intent)
		return err
	}
	return fmt.Errorf("unknown payment intent type %q", intent.Metadata[metaType])
}

func (s *paymentService) handleIntentFailed(ctx context.Context, intent *gateway.Intent) error {
	updated, err := s.repo.Booking.MarkPaymentFailedByIntent(ctx, intent.ID)
	if err != nil {
		return err
	}

	if _, err := s.repo.Transaction.UpdateStatusByReference(ctx, intent.ID, entity.TransactionStatusFailed); err != nil {
		return err
	}

	if updated == 0 {
		return nil
	}

	booking, err := s.repo.Booking.FindByPaymentIntentID(ctx, intent.ID)
	if err != nil || booking == nil {
		return err
	}

	s.notifier.Notify(NotificationInput{
		UserID:  booking.CustomerID,
		Type:    entity.NotificationPaymentFailed,
		Title:   "Payment failed",
		Message: fmt.Sprintf("Your payment for %s did not go through. Please try again.", booking.ServiceType),
		Metadata: map[string]string{
			"bookingId":       booking.ID.String(),
			"paymentIntentId": intent.ID,
		},
	})
	return nil
}

func (s *paymentService) ListTransactions(ctx context.Context, actor Actor, req *request.PaginatedRequest) (*response.PaginatedResponse[response.TransactionResponse], error) {
	limit := req.Limit()
	offset := req.Offset()

	txns, err := s.repo.Transaction.ListByUser(ctx, actor.UserID, limit, offset)
	if err != nil {
		s.log.Error("Failed to list transactions", zap.Error(err), zap.String("user_id", actor.UserID.String()))
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	total, err := s.repo.Transaction.CountByUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}

	result := make([]response.TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = response.TransactionToResponse(t)
	}

	return response.NewPaginatedResponse(result, req.Page, limit, total), nil
}

// acquire takes the distributed lock for key. Without a locker, or when
// the lock backend is unreachable, it proceeds unlocked and relies on the
// unique ledger reference.
func (s *paymentService) acquire(ctx context.Context, key string) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	token, ok, err := s.locker.TryLock(ctx, key, s.lockTTL)
	if err != nil {
		s.log.Warn("Lock backend unavailable, continuing without lock", zap.Error(err), zap.String("key", key))
		return noop, nil
	}
	if !ok {
		return nil, apperr.Conflict("payment confirmation already in progress")
	}

	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Warn("Failed to release lock", zap.Error(err), zap.String("key", key))
		}
	}, nil
}

func (s *paymentService) loadBooking(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload booking: %w", err)
	}
	if booking == nil {
		return nil, apperr.NotFound("booking")
	}
	return booking, nil
}

func (s *paymentService) loadArtisan(ctx context.Context, id uuid.UUID) (*entity.Artisan, error) {
	artisan, err := s.repo.Artisan.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload artisan: %w", err)
	}
	if artisan == nil {
		return nil, apperr.NotFound("artisan")
	}
	return artisan, nil
}
