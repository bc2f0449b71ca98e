package usecase

import (
	"context"
	"fmt"

	"artisan-marketplace/internal/data/entity"
	"artisan-marketplace/internal/data/repository"
	"artisan-marketplace/internal/dto/response"
	"artisan-marketplace/pkg/apperr"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService interface {
	GetProfile(ctx context.Context, actor Actor) (*response.ProfileResponse, error)
	GetArtisan(ctx context.Context, artisanID string) (*response.ArtisanResponse, error)
}

type userService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewUserService(repo *repository.Repository, log *zap.Logger) UserService {
	return &userService{
		repo: repo,
		log:  log.With(zap.String("service", "user")),
	}
}

// GetProfile returns the caller's account and, for artisans, their profile
// with the current rating and subscription.
func (us *userService) GetProfile(ctx context.Context, actor Actor) (*response.ProfileResponse, error) {
	user, err := us.repo.User.FindByID(ctx, actor.UserID)
	if err != nil {
		us.log.Error("Failed to find user", zap.Error(err), zap.String("user_id", actor.UserID.String()))
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user")
	}

	profile := &response.ProfileResponse{User: response.UserToResponse(user)}
	if user.Role != entity.RoleArtisan {
		return profile, nil
	}

	artisan, err := us.repo.Artisan.FindByUserID(ctx, user.ID)
	if err != nil {
		us.log.Error("Failed to find artisan profile", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("get artisan profile: %w", err)
	}
	if artisan != nil {
		resp := response.ArtisanToResponse(artisan)
		profile.Artisan = &resp
	}

	return profile, nil
}

func (us *userService) GetArtisan(ctx context.Context, artisanID string) (*response.ArtisanResponse, error) {
	id, err := uuid.Parse(artisanID)
	if err != nil {
		return nil, apperr.Validation(map[string]string{"id": "invalid artisan ID"})
	}

	artisan, err := us.repo.Artisan.FindByID(ctx, id)
	if err != nil {
		us.log.Error("Failed to find artisan", zap.Error(err), zap.String("artisan_id", artisanID))
		return nil, fmt.Errorf("find artisan: %w", err)
	}
	if artisan == nil {
		return nil, apperr.NotFound("artisan")
	}

	resp := response.ArtisanToResponse(artisan)
	return &resp, nil
}
