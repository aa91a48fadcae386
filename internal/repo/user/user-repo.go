package user_repo

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/iamKIVOUS/CampusConnect/internal/entity"
	app_error "github.com/iamKIVOUS/CampusConnect/internal/errors"
)

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepoContract {
	return &UserRepo{db: db}
}

func (r *UserRepo) FindUser(ctx context.Context, userID string) (*entity.User, *app_error.AppError) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NewNotFoundError("user not found")
		}
		log.Error().Err(err).Msg("user repo: failed to fetch user")
		return nil, app_error.NewServerError("db-error")
	}
	return &user, nil
}

func (r *UserRepo) FindUsers(ctx context.Context, userIDs []string) ([]entity.User, *app_error.AppError) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var users []entity.User
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		log.Error().Err(err).Msg("user repo: failed to fetch users")
		return nil, app_error.NewServerError("db-error")
	}
	return users, nil
}
