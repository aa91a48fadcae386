package user_repo

import (
	"context"

	"github.com/iamKIVOUS/CampusConnect/internal/entity"
	app_error "github.com/iamKIVOUS/CampusConnect/internal/errors"
)

// UserRepoContract resolves profile data for conversation projections and
// system messages. Identity issuance lives in the external auth service.
type UserRepoContract interface {
	FindUser(ctx context.Context, userID string) (*entity.User, *app_error.AppError)
	FindUsers(ctx context.Context, userIDs []string) ([]entity.User, *app_error.AppError)
}
