package llm

import (
	"context"
	"errors"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
)

// Provider is the AI collaborator used by the interview workers.
type Provider interface {
	GenerateQuestions(ctx context.Context, req models.QuestionGenerationRequest) ([]string, error)
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
	Evaluate(ctx context.Context, req models.EvaluationRequest) (*models.EvaluationResult, error)
	GetProviderName() string
}

// represents an error from an LLM provider
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + " error: " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Provider + " error: " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Common error codes
const (
	ErrCodeAPIKey       = "invalid_api_key"
	ErrCodeRateLimit    = "rate_limit_exceeded"
	ErrCodeServiceDown  = "service_unavailable"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeTimeout      = "timeout"
	ErrCodeCircuitOpen  = "circuit_open"
)

// IsRetryable reports whether another attempt could succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Code {
		case ErrCodeAPIKey, ErrCodeInvalidInput, ErrCodeCircuitOpen:
			return false
		}
	}
	return true
}

// ErrorCode returns the ProviderError code carried by err, or "" if none.
func ErrorCode(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
