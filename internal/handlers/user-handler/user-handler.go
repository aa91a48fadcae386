package user_handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iamKIVOUS/CampusConnect/internal/dtos/chat_dto"
	app_error "github.com/iamKIVOUS/CampusConnect/internal/errors"
	"github.com/iamKIVOUS/CampusConnect/internal/handlers"
	"github.com/iamKIVOUS/CampusConnect/internal/middleware"
	user_repo "github.com/iamKIVOUS/CampusConnect/internal/repo/user"
)

// UserHandler is the read-only directory clients use to resolve enrollment
// numbers to display profiles. Account management lives in the identity
// service, not here.
type UserHandler struct {
	Users user_repo.UserRepoContract
}

func NewUserHandler(users user_repo.UserRepoContract) *UserHandler {
	return &UserHandler{Users: users}
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		return app_error.NewAppError(http.StatusBadRequest, "user id is required", "params")
	}

	user, err := h.Users.FindUser(r.Context(), userID)
	if err != nil {
		return err
	}

	profile := chat_dto.UserProfile{
		EnrollmentNumber: user.ID,
		Name:             user.Name,
		PhotoURL:         user.PhotoURL,
	}
	writeJSON(w, r, "user fetched successfully", profile)
	return nil
}

// GetUsers resolves a comma-separated ids query parameter in one round trip.
func (h *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		return app_error.NewAppError(http.StatusBadRequest, "ids query parameter is required", "params")
	}

	ids := strings.Split(raw, ",")
	users, err := h.Users.FindUsers(r.Context(), ids)
	if err != nil {
		return err
	}

	profiles := make([]chat_dto.UserProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, chat_dto.UserProfile{
			EnrollmentNumber: u.ID,
			Name:             u.Name,
			PhotoURL:         u.PhotoURL,
		})
	}
	writeJSON(w, r, "users fetched successfully", profiles)
	return nil
}

func writeJSON[T any](w http.ResponseWriter, r *http.Request, message string, data T) {
	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(handlers.CreateResponse(message, data, reqID))
}
