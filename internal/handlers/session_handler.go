package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/middleware"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/services"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/utils"
)

const (
	audioField     = "audioFile"
	multipartSlack = 1 << 20 // room for the text fields around the file
	memoryLimit    = 1 << 20
)

// Sessions is the session service as seen by the HTTP layer.
type Sessions interface {
	Create(ctx context.Context, userID primitive.ObjectID, req models.CreateSessionRequest) (*models.Session, error)
	List(ctx context.Context, userID primitive.ObjectID) ([]models.Session, error)
	Get(ctx context.Context, userID primitive.ObjectID, id string) (*models.Session, error)
	Delete(ctx context.Context, userID primitive.ObjectID, id string) error
	Submit(ctx context.Context, userID primitive.ObjectID, id string, in services.SubmitInput) (int, error)
	End(ctx context.Context, userID primitive.ObjectID, id string) (*models.Session, error)
}

var _ Sessions = (*services.SessionService)(nil)

type SessionHandler struct {
	sessions       Sessions
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewSessionHandler(sessions Sessions, maxUploadBytes int64, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions:       sessions,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func (h *SessionHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	req := middleware.GetValidatedRequest[*models.CreateSessionRequest](r)

	session, err := h.sessions.Create(r.Context(), user.ID, *req)
	if err != nil {
		h.logger.Error("Failed to create session", zap.String("userId", user.ID.Hex()), zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "internal_error", "Failed to create session")
		return
	}

	utils.JSON(w, http.StatusAccepted, models.CreateSessionResponse{
		Message:   "Session created. Generating questions asynchronously...",
		SessionID: session.ID.Hex(),
		Status:    "processing",
	})
}

func (h *SessionHandler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	sessions, err := h.sessions.List(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to list sessions", zap.String("userId", user.ID.Hex()), zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "internal_error", "Failed to fetch sessions")
		return
	}
	utils.JSON(w, http.StatusOK, sessions)
}

func (h *SessionHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	session, err := h.sessions.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, session)
}

func (h *SessionHandler) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	err := h.sessions.Delete(r.Context(), user.ID, id)
	switch {
	case err == nil:
		utils.JSON(w, http.StatusOK, models.DeleteSessionResponse{ID: id})
	case errors.Is(err, services.ErrSessionNotFound):
		utils.JSONError(w, http.StatusNotFound, "not_found", "Session not found")
	case errors.Is(err, services.ErrNotOwner):
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized", "Not authorized")
	default:
		h.writeError(w, err)
	}
}

func (h *SessionHandler) SubmitAnswerHandler(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartSlack)
	if err := r.ParseMultipartForm(memoryLimit); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.JSONError(w, http.StatusBadRequest, "file_too_large", "File too large")
			return
		}
		utils.JSONError(w, http.StatusBadRequest, "invalid_form", "Invalid multipart form")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	in := services.SubmitInput{
		QuestionIndex: r.FormValue("questionIndex"),
		Code:          r.FormValue("code"),
	}

	file, header, err := r.FormFile(audioField)
	switch {
	case err == nil:
		defer file.Close()
		if msg := h.checkAudio(header); msg != "" {
			utils.JSONError(w, http.StatusBadRequest, "invalid_audio", msg)
			return
		}
		in.Audio = file
		in.AudioName = header.Filename
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// audio is optional
	default:
		utils.JSONError(w, http.StatusBadRequest, "invalid_form", "Invalid multipart form")
		return
	}

	_, err = h.sessions.Submit(r.Context(), user.ID, chi.URLParam(r, "id"), in)
	if errors.Is(err, services.ErrQuestionNotFound) {
		utils.JSONError(w, http.StatusBadRequest, "question_not_found",
			fmt.Sprintf("Question at index %s not found.", in.QuestionIndex))
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusAccepted, models.SubmitAnswerResponse{
		Message: "Answer received. Processing asynchronously...",
		Status:  "received",
	})
}

func (h *SessionHandler) EndSessionHandler(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	session, err := h.sessions.End(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, models.EndSessionResponse{
		Message: "Session ended successfully.",
		Session: session,
	})
}

// checkAudio returns a rejection message, or "" when the upload is acceptable.
func (h *SessionHandler) checkAudio(header *multipart.FileHeader) string {
	if header.Size > h.maxUploadBytes {
		return "File too large"
	}
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "audio/") && contentType != "application/octet-stream" {
		return "Not an audio file"
	}
	return ""
}

func (h *SessionHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		utils.JSONError(w, http.StatusNotFound, "not_found", "Session not found or user unauthorized.")
	case errors.Is(err, services.ErrProcessing):
		utils.JSONError(w, http.StatusBadRequest, "processing", "Cannot end interview while AI is processing answers.")
	case errors.Is(err, services.ErrAlreadyCompleted):
		utils.JSONError(w, http.StatusBadRequest, "already_completed", "Session is already completed.")
	default:
		h.logger.Error("Session request failed", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
