package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/services"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/utils"
)

const userKey contextKey = "user"

// UserLoader resolves the user named by a token. A deleted user is reported
// as services.ErrUserNotFound.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Protect requires a valid bearer token and puts the user in the context.
func Protect(secret string, users UserLoader, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := utils.VerifyToken(r, secret)
			if errors.Is(err, utils.ErrMissingAuthHeader) {
				utils.JSONError(w, http.StatusUnauthorized, "unauthorized", "Not authorized, no token")
				return
			}
			if err != nil {
				utils.JSONError(w, http.StatusUnauthorized, "unauthorized", "Not authorized, token failed")
				return
			}
			userID, err := utils.GetUserIDFromClaims(claims)
			if err != nil {
				utils.JSONError(w, http.StatusUnauthorized, "unauthorized", "Not authorized, token failed")
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if errors.Is(err, services.ErrUserNotFound) {
				utils.JSONError(w, http.StatusUnauthorized, "unauthorized", "Not authorized, user not found")
				return
			}
			if err != nil {
				logger.Error("Failed to load user for token", zap.String("userId", userID), zap.Error(err))
				utils.JSONError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// UserFromContext returns the user set by Protect, or nil.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}
