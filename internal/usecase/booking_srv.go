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
	"artisan-marketplace/pkg/metrics"
	"artisan-marketplace/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingRefunder returns a paid booking's money to the customer.
type BookingRefunder interface {
	RefundBookingPayment(ctx context.Context, booking *entity.Booking) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, actor Actor, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	GetBooking(ctx context.Context, actor Actor, bookingID string) (*response.BookingResponse, error)
	ListBookings(ctx context.Context, actor Actor, req *request.ListBookingsRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	UpdateStatus(ctx context.Context, actor Actor, bookingID string, req *request.UpdateBookingStatusRequest) (*response.BookingResponse, error)
	CancelBooking(ctx context.Context, actor Actor, bookingID string, req *request.CancelBookingRequest) (*response.BookingResponse, error)

	// Scheduling
	FindConflicts(ctx context.Context, artisanID uuid.UUID, date time.Time, slot entity.TimeSlot) ([]*entity.Booking, error)
	GetAvailability(ctx context.Context, artisanID string, req *request.AvailabilityRequest) (*response.AvailabilityResponse, error)
}

type bookingService struct {
	repo     *repository.Repository
	config   utils.BookingConfig
	refunder BookingRefunder
	notifier *Dispatcher
	metrics  *metrics.Metrics
	clock    clock.Clock
	log      *zap.Logger
}

func NewBookingService(repo *repository.Repository, config utils.BookingConfig, refunder BookingRefunder, notifier *Dispatcher, deps Deps, log *zap.Logger) BookingService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	return &bookingService{
		repo:     repo,
		config:   config,
		refunder: refunder,
		notifier: notifier,
		metrics:  deps.Metrics,
		clock:    clk,
		log:      log.With(zap.String("service", "booking")),
	}
}

// parseScheduledDate accepts RFC3339 timestamps and plain YYYY-MM-DD dates.
func parseScheduledDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func (s *bookingService) CreateBooking(ctx context.Context, actor Actor, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, apperr.Validation(errs)
	}

	if actor.Role != entity.RoleCustomer {
		return nil, apperr.Forbidden("only customers can create bookings")
	}

	scheduled, err := parseScheduledDate(req.ScheduledDate)
	if err != nil {
		return nil, apperr.Validation(map[string]string{"scheduled_date": "scheduled_date must be YYYY-MM-DD or RFC3339"})
	}
	if !scheduled.After(s.clock.Now()) {
		return nil, apperr.Validation(map[string]string{"scheduled_date": "scheduled_date must be in the future"})
	}

	slot := entity.TimeSlot{Start: req.TimeSlot.Start, End: req.TimeSlot.End}
	if _, err := SlotMinutes(slot); err != nil {
		return nil, apperr.Validation(map[string]string{"time_slot": "end time must be after start time"})
	}

	artisanID, err := uuid.Parse(req.ArtisanID)
	if err != nil {
		return nil, apperr.Validation(map[string]string{"artisan_id": "invalid artisan ID"})
	}

	artisan, err := s.repo.Artisan.FindByID(ctx, artisanID)
	if err != nil {
		return nil, fmt.Errorf("find artisan: %w", err)
	}
	if artisan == nil {
		return nil, apperr.NotFound("artisan")
	}
	if !artisan.Verified {
		return nil, apperr.NotVerified("artisan is not verified")
	}

	if s.config.StrictConflictCheck {
		conflicts, err := s.FindConflicts(ctx, artisanID, scheduled, slot)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			s.log.Info("Booking rejected, slot already taken",
				zap.String("artisan_id", artisanID.String()),
				zap.String("conflicting_booking_id", conflicts[0].ID.String()),
			)
			return nil, apperr.Conflict("artisan already has a booking in this time slot").
				WithDetail("conflicting_booking_id", conflicts[0].ID.String())
		}
	}

	amount, err := CalculateBookingAmount(slot, artisan.HourlyRate)
	if err != nil {
		return nil, apperr.Validation(map[string]string{"time_slot": err.Error()})
	}

	now := s.clock.Now()
	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		CustomerID:    actor.UserID,
		ArtisanID:     artisanID,
		ServiceType:   req.ServiceType,
		Description:   req.Description,
		ScheduledDate: scheduled,
		TimeSlot:      slot,
		Location:      req.Location,
		Notes:         req.Notes,
		Amount:        amount,
		Status:        entity.BookingStatusPending,
		PaymentStatus: entity.PaymentStatusPending,
		Version:       1,
	}

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		s.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("artisan_id", req.ArtisanID),
		)
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.notifier.Notify(NotificationInput{
		UserID:  artisan.UserID,
		Type:    entity.NotificationBookingCreated,
		Title:   "New booking request",
		Message: fmt.Sprintf("New %s booking on %s from %s to %s.", booking.ServiceType, scheduled.Format(time.DateOnly), slot.Start, slot.End),
		Metadata: map[string]string{
			"bookingId": booking.ID.String(),
		},
	})

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("customer_id", actor.UserID.String()),
		zap.String("artisan_id", req.ArtisanID),
		zap.Float64("amount", amount),
	)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetBooking(ctx context.Context, actor Actor, bookingID string) (*response.BookingResponse, error) {
	booking, artisan, err := s.loadWithArtisan(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && booking.CustomerID != actor.UserID && (artisan == nil || artisan.UserID != actor.UserID) {
		return nil, apperr.Forbidden("you are not a participant of this booking")
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) ListBookings(ctx context.Context, actor Actor, req *request.ListBookingsRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation(errs)
	}

	var filter repository.BookingFilter
	switch actor.Role {
	case entity.RoleAdmin:
	case entity.RoleArtisan:
		artisan, err := s.repo.Artisan.FindByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, fmt.Errorf("find artisan profile: %w", err)
		}
		if artisan == nil {
			return nil, apperr.NotFound("artisan profile")
		}
		filter.ArtisanID = &artisan.ID
	default:
		customerID := actor.UserID
		filter.CustomerID = &customerID
	}

	if req.Status != "" {
		status := entity.BookingStatus(req.Status)
		filter.Status = &status
	}

	limit := req.Limit()
	offset := req.Offset()

	bookings, err := s.repo.Booking.List(ctx, filter, limit, offset)
	if err != nil {
		s.log.Error("Failed to list bookings", zap.Error(err), zap.String("user_id", actor.UserID.String()))
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	total, err := s.repo.Booking.Count(ctx, filter)
	if err != nil {
		s.log.Error("Failed to count bookings", zap.Error(err))
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	result := make([]response.BookingResponse, len(bookings))
	for i, b := range bookings {
		result[i] = response.BookingToResponse(b)
	}

	return response.NewPaginatedResponse(result, req.Page, limit, total), nil
}

func (s *bookingService) UpdateStatus(ctx context.Context, actor Actor, bookingID string, req *request.UpdateBookingStatusRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation(errs)
	}

	booking, artisan, err := s.loadWithArtisan(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && (artisan == nil || artisan.UserID != actor.UserID) {
		s.log.Warn("Status change attempt by non-owner",
			zap.String("booking_id", bookingID),
			zap.String("user_id", actor.UserID.String()),
		)
		return nil, apperr.Forbidden("only the booking's artisan or an admin can change its status")
	}

	to := entity.BookingStatus(req.Status)
	if err := ValidateTransition(booking.Status, to); err != nil {
		return nil, err
	}

	if to == entity.BookingStatusCancelled {
		return s.applyCancellation(ctx, actor, booking, artisan, nil)
	}

	if to == entity.BookingStatusCompleted {
		err = s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
			if err := tx.Booking.TransitionStatus(ctx, booking.ID, booking.Status, booking.Version, to, nil); err != nil {
				return err
			}
			if err := tx.Booking.ReleaseEscrow(ctx, booking.ID); err != nil {
				return err
			}
			return tx.Artisan.IncrementCompletedJobs(ctx, booking.ArtisanID)
		})
	} else {
		err = s.repo.Booking.TransitionStatus(ctx, booking.ID, booking.Status, booking.Version, to, nil)
	}
	if err != nil {
		return nil, s.transitionError(err, booking, to)
	}

	s.metrics.BookingTransition(string(booking.Status), string(to))
	s.log.Info("Booking status updated",
		zap.String("booking_id", bookingID),
		zap.String("from", string(booking.Status)),
		zap.String("to", string(to)),
		zap.String("updated_by", actor.UserID.String()),
	)

	s.notifier.Notify(NotificationInput{
		UserID:  booking.CustomerID,
		Type:    entity.NotificationBookingStatus,
		Title:   "Booking updated",
		Message: fmt.Sprintf("Your %s booking is now %s.", booking.ServiceType, to),
		Metadata: map[string]string{
			"bookingId": booking.ID.String(),
			"status":    string(to),
		},
	})

	return s.reload(ctx, booking.ID)
}

func (s *bookingService) CancelBooking(ctx context.Context, actor Actor, bookingID string, req *request.CancelBookingRequest) (*response.BookingResponse, error) {
	if req == nil {
		req = &request.CancelBookingRequest{}
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation(errs)
	}

	booking, artisan, err := s.loadWithArtisan(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	isArtisan := artisan != nil && artisan.UserID == actor.UserID
	if !actor.IsAdmin() && booking.CustomerID != actor.UserID && !isArtisan {
		return nil, apperr.Forbidden("you are not allowed to cancel this booking")
	}

	if !cancellableByRequest(booking.Status) {
		return nil, apperr.InvalidState(fmt.Sprintf("booking cannot be cancelled from status %s", booking.Status))
	}

	return s.applyCancellation(ctx, actor, booking, artisan, req.Reason)
}

// applyCancellation writes the cancelled status first and only then asks
// for a refund. A failed refund leaves paymentStatus at paid for the
// reconciliation job to pick up.
func (s *bookingService) applyCancellation(ctx context.Context, actor Actor, booking *entity.Booking, artisan *entity.Artisan, reason *string) (*response.BookingResponse, error) {
	to := entity.BookingStatusCancelled
	if err := s.repo.Booking.TransitionStatus(ctx, booking.ID, booking.Status, booking.Version, to, reason); err != nil {
		return nil, s.transitionError(err, booking, to)
	}
	s.metrics.BookingTransition(string(booking.Status), string(to))

	if booking.PaymentStatus == entity.PaymentStatusPaid && booking.HasPaymentIntent() {
		if err := s.refunder.RefundBookingPayment(ctx, booking); err != nil {
			s.log.Error("Refund on cancellation failed, booking left awaiting reconciliation",
				zap.Error(err),
				zap.String("booking_id", booking.ID.String()),
				zap.String("payment_intent_id", *booking.PaymentIntentID),
			)
		}
	}

	s.log.Info("Booking cancelled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("from", string(booking.Status)),
		zap.String("cancelled_by", actor.UserID.String()),
	)

	msg := fmt.Sprintf("The %s booking on %s was cancelled.", booking.ServiceType, booking.ScheduledDate.Format(time.DateOnly))
	if reason != nil && *reason != "" {
		msg += " Reason: " + *reason
	}
	meta := map[string]string{"bookingId": booking.ID.String()}

	recipients := []uuid.UUID{booking.CustomerID}
	if artisan != nil {
		recipients = append(recipients, artisan.UserID)
	}
	for _, userID := range recipients {
		if userID == actor.UserID {
			continue
		}
		s.notifier.Notify(NotificationInput{
			UserID:   userID,
			Type:     entity.NotificationBookingCancelled,
			Title:    "Booking cancelled",
			Message:  msg,
			Metadata: meta,
		})
	}
	s.notifier.NotifyAdmins(NotificationInput{
		Type:     entity.NotificationBookingCancelled,
		Title:    "Booking cancelled",
		Message:  msg,
		Metadata: meta,
	})

	return s.reload(ctx, booking.ID)
}

func (s *bookingService) FindConflicts(ctx context.Context, artisanID uuid.UUID, date time.Time, slot entity.TimeSlot) ([]*entity.Booking, error) {
	active, err := s.repo.Booking.FindActiveByArtisanOnDay(ctx, artisanID, date)
	if err != nil {
		return nil, fmt.Errorf("find artisan bookings: %w", err)
	}

	var conflicts []*entity.Booking
	for _, b := range active {
		if slotsOverlap(b.TimeSlot, slot) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts, nil
}

func (s *bookingService) GetAvailability(ctx context.Context, artisanID string, req *request.AvailabilityRequest) (*response.AvailabilityResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation(errs)
	}

	id, err := uuid.Parse(artisanID)
	if err != nil {
		return nil, apperr.Validation(map[string]string{"id": "invalid artisan ID"})
	}

	day, err := parseScheduledDate(req.Date)
	if err != nil {
		return nil, apperr.Validation(map[string]string{"date": "date must be YYYY-MM-DD or RFC3339"})
	}

	artisan, err := s.repo.Artisan.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find artisan: %w", err)
	}
	if artisan == nil {
		return nil, apperr.NotFound("artisan")
	}

	active, err := s.repo.Booking.FindActiveByArtisanOnDay(ctx, id, day)
	if err != nil {
		s.log.Error("Failed to load artisan bookings", zap.Error(err), zap.String("artisan_id", artisanID))
		return nil, fmt.Errorf("find artisan bookings: %w", err)
	}

	resp := &response.AvailabilityResponse{
		ArtisanID: artisanID,
		Date:      day.Format(time.DateOnly),
		Busy:      make([]response.TimeSlotResponse, 0, len(active)),
	}
	for _, b := range active {
		resp.Busy = append(resp.Busy, response.TimeSlotResponse{Start: b.TimeSlot.Start, End: b.TimeSlot.End})
	}

	if req.Start != "" && req.End != "" {
		slot := entity.TimeSlot{Start: req.Start, End: req.End}
		if _, err := SlotMinutes(slot); err != nil {
			return nil, apperr.Validation(map[string]string{"end": "end time must be after start time"})
		}
		available := true
		for _, b := range active {
			if slotsOverlap(b.TimeSlot, slot) {
				available = false
				break
			}
		}
		resp.Available = &available
	}

	return resp, nil
}

func (s *bookingService) loadWithArtisan(ctx context.Context, bookingID string) (*entity.Booking, *entity.Artisan, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, nil, apperr.Validation(map[string]string{"id": "invalid booking ID"})
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("find booking: %w", err)
	}
	if booking == nil {
		return nil, nil, apperr.NotFound("booking")
	}

	artisan, err := s.repo.Artisan.FindByID(ctx, booking.ArtisanID)
	if err != nil {
		return nil, nil, fmt.Errorf("find artisan: %w", err)
	}

	return booking, artisan, nil
}

func (s *bookingService) reload(ctx context.Context, id uuid.UUID) (*response.BookingResponse, error) {
	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload booking: %w", err)
	}
	if booking == nil {
		return nil, apperr.NotFound("booking")
	}
	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) transitionError(err error, booking *entity.Booking, to entity.BookingStatus) error {
	if errors.Is(err, repository.ErrStaleWrite) {
		s.log.Warn("Booking modified concurrently",
			zap.String("booking_id", booking.ID.String()),
			zap.String("to", string(to)),
		)
		return apperr.Conflict("booking was modified concurrently, reload and retry")
	}
	s.log.Error("Failed to update booking status",
		zap.Error(err),
		zap.String("booking_id", booking.ID.String()),
		zap.String("to", string(to)),
	)
	return fmt.Errorf("update booking status: %w", err)
}
