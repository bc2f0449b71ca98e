package usecase

import (
	"context"
	"fmt"

	"artisan-marketplace/internal/data/entity"
	"artisan-marketplace/internal/data/repository"
	"artisan-marketplace/internal/dto/request"
	"artisan-marketplace/internal/dto/response"
	"artisan-marketplace/pkg/apperr"
	"artisan-marketplace/pkg/clock"
	"artisan-marketplace/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReviewService interface {
	CreateReview(ctx context.Context, actor Actor, req *request.CreateReviewRequest) (*response.CreateReviewResponse, error)
	DeleteReview(ctx context.Context, actor Actor, reviewID string) (*response.ArtisanRatingResponse, error)
	GetArtisanReviews(ctx context.Context, artisanID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ReviewResponse], error)
}

type reviewService struct {
	repo       *repository.Repository
	aggregator *RatingAggregator
	notifier   *Dispatcher
	clock      clock.Clock
	log        *zap.Logger
}

func NewReviewService(repo *repository.Repository, aggregator *RatingAggregator, notifier *Dispatcher, deps Deps, log *zap.Logger) ReviewService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	return &reviewService{
		repo:       repo,
		aggregator: aggregator,
		notifier:   notifier,
		clock:      clk,
		log:        log.With(zap.String("service", "review")),
	}
}

func (s *reviewService) CreateReview(ctx context.Context, actor Actor, req *request.CreateReviewRequest) (*response.CreateReviewResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create review validation failed", zap.Any("errors", errs))
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
		s.log.Warn("Review attempt by non-owner",
			zap.String("booking_id", req.BookingID),
			zap.String("user_id", actor.UserID.String()),
		)
		return nil, apperr.Forbidden("only the booking's customer can review it")
	}

	if booking.Status != entity.BookingStatusCompleted {
		return nil, apperr.InvalidState("only completed bookings can be reviewed")
	}

	existing, err := s.repo.Review.FindByBookingID(ctx, bookingID)
	if err != nil {
		s.log.Error("Failed to check existing review", zap.Error(err))
		return nil, fmt.Errorf("check existing review: %w", err)
	}
	if existing != nil {
		return nil, apperr.DuplicateKey("booking has already been reviewed")
	}

	review := &entity.Review{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: s.clock.Now(),
		},
		BookingID:  booking.ID,
		ArtisanID:  booking.ArtisanID,
		CustomerID: actor.UserID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}

	var rating float64
	var count int
	err = s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		if err := tx.Review.Create(ctx, review); err != nil {
			return err
		}
		var aggErr error
		rating, count, aggErr = s.aggregator.Recompute(ctx, tx, booking.ArtisanID)
		return aggErr
	})
	if err != nil {
		if apperr.Is(err, apperr.ErrDuplicateKey) {
			return nil, err
		}
		s.log.Error("Failed to create review",
			zap.Error(err),
			zap.String("booking_id", req.BookingID),
		)
		return nil, fmt.Errorf("create review: %w", err)
	}

	if artisan, err := s.repo.Artisan.FindByID(ctx, booking.ArtisanID); err == nil && artisan != nil {
		s.notifier.Notify(NotificationInput{
			UserID:  artisan.UserID,
			Type:    entity.NotificationReviewReceived,
			Title:   "New review",
			Message: fmt.Sprintf("You received a %d-star review for %s.", review.Rating, booking.ServiceType),
			Metadata: map[string]string{
				"bookingId": booking.ID.String(),
				"reviewId":  review.ID.String(),
			},
		})
	}

	s.log.Info("Review created",
		zap.String("review_id", review.ID.String()),
		zap.String("booking_id", req.BookingID),
		zap.Int("rating", req.Rating),
		zap.Float64("artisan_rating", rating),
	)

	return &response.CreateReviewResponse{
		Review: response.ReviewToResponse(review),
		ArtisanRating: response.ArtisanRatingResponse{
			ArtisanID:   booking.ArtisanID.String(),
			Rating:      rating,
			ReviewCount: count,
		},
	}, nil
}

func (s *reviewService) DeleteReview(ctx context.Context, actor Actor, reviewID string) (*response.ArtisanRatingResponse, error) {
	id, err := uuid.Parse(reviewID)
	if err != nil {
		return nil, apperr.Validation(map[string]string{"id": "invalid review ID"})
	}

	review, err := s.repo.Review.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find review: %w", err)
	}
	if review == nil {
		return nil, apperr.NotFound("review")
	}

	if review.CustomerID != actor.UserID && !actor.IsAdmin() {
		return nil, apperr.Forbidden("you can only delete your own reviews")
	}

	var rating float64
	var count int
	err = s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		if err := tx.Review.Delete(ctx, id); err != nil {
			return err
		}
		var aggErr error
		rating, count, aggErr = s.aggregator.Recompute(ctx, tx, review.ArtisanID)
		return aggErr
	})
	if err != nil {
		s.log.Error("Failed to delete review", zap.Error(err), zap.String("review_id", reviewID))
		return nil, fmt.Errorf("delete review: %w", err)
	}

	s.log.Info("Review deleted",
		zap.String("review_id", reviewID),
		zap.String("deleted_by", actor.UserID.String()),
	)

	return &response.ArtisanRatingResponse{
		ArtisanID:   review.ArtisanID.String(),
		Rating:      rating,
		ReviewCount: count,
	}, nil
}

func (s *reviewService) GetArtisanReviews(ctx context.Context, artisanID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ReviewResponse], error) {
	id, err := uuid.Parse(artisanID)
	if err != nil {
		return nil, apperr.Validation(map[string]string{"id": "invalid artisan ID"})
	}

	limit := req.Limit()
	offset := req.Offset()

	reviews, err := s.repo.Review.ListByArtisan(ctx, id, limit, offset)
	if err != nil {
		s.log.Error("Failed to get artisan reviews", zap.Error(err), zap.String("artisan_id", artisanID))
		return nil, fmt.Errorf("get artisan reviews: %w", err)
	}

	total, err := s.repo.Review.CountByArtisan(ctx, id)
	if err != nil {
		s.log.Error("Failed to count artisan reviews", zap.Error(err))
		return nil, fmt.Errorf("count artisan reviews: %w", err)
	}

	result := make([]response.ReviewResponse, len(reviews))
	for i, review := range reviews {
		result[i] = response.ReviewToResponse(review)
	}

	return response.NewPaginatedResponse(result, req.Page, limit, total), nil
}
