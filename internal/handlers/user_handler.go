package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/auth"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/middleware"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/services"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/utils"
)

// Accounts is the user service as seen by the HTTP layer.
type Accounts interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	GoogleLogin(ctx context.Context, req models.GoogleLoginRequest) (*models.AuthResponse, error)
	Profile(user *models.User) (*models.AuthResponse, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, req models.UpdateProfileRequest) (*models.AuthResponse, error)
}

var _ Accounts = (*services.UserService)(nil)

type UserHandler struct {
	accounts Accounts
	logger   *zap.Logger
}

func NewUserHandler(accounts Accounts, logger *zap.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger}
}

func (h *UserHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.RegisterRequest](r)

	resp, err := h.accounts.Register(r.Context(), *req)
	if errors.Is(err, services.ErrUserExists) {
		utils.JSONError(w, http.StatusBadRequest, "user_exists", "User already exists with this email address.")
		return
	}
	if err != nil {
		h.internalError(w, "Failed to register user", err)
		return
	}

	h.logger.Info("User registered", zap.String("userId", resp.ID))
	utils.JSON(w, http.StatusCreated, resp)
}

func (h *UserHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.LoginRequest](r)

	resp, err := h.accounts.Login(r.Context(), *req)
	if errors.Is(err, services.ErrInvalidCredentials) {
		utils.JSONError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password.")
		return
	}
	if err != nil {
		h.internalError(w, "Failed to log in", err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

func (h *UserHandler) GoogleLoginHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.GoogleLoginRequest](r)

	resp, err := h.accounts.GoogleLogin(r.Context(), *req)
	switch {
	case err == nil:
		utils.JSON(w, http.StatusOK, resp)
	case errors.Is(err, auth.ErrEmailNotVerified):
		utils.JSONError(w, http.StatusUnauthorized, "email_not_verified", "Google email not verified. Login failed.")
	case errors.Is(err, auth.ErrGoogleNotEnabled):
		utils.JSONError(w, http.StatusNotImplemented, "google_disabled", "Google login is not configured.")
	default:
		h.logger.Warn("Google login failed", zap.Error(err))
		utils.JSONError(w, http.StatusBadRequest, "google_login_failed", "Could not process user creation or login via Google.")
	}
}

func (h *UserHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		utils.JSONError(w, http.StatusNotFound, "not_found", "User not found")
		return
	}

	resp, err := h.accounts.Profile(user)
	if err != nil {
		h.internalError(w, "Failed to build profile", err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

func (h *UserHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		utils.JSONError(w, http.StatusNotFound, "not_found", "User not found")
		return
	}
	req := middleware.GetValidatedRequest[*models.UpdateProfileRequest](r)

	resp, err := h.accounts.UpdateProfile(r.Context(), user.ID, *req)
	switch {
	case err == nil:
		utils.JSON(w, http.StatusOK, resp)
	case errors.Is(err, services.ErrUserNotFound):
		utils.JSONError(w, http.StatusNotFound, "not_found", "User not found")
	case errors.Is(err, services.ErrUserExists):
		utils.JSONError(w, http.StatusBadRequest, "user_exists", "User already exists with this email address.")
	default:
		h.internalError(w, "Failed to update profile", err)
	}
}

func (h *UserHandler) internalError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	utils.JSONError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
}
