package models

// uniform error responses
type ErrorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Details []ValidationErrorDetail `json:"details,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

// single field validation error
type ValidationErrorDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type CreateSessionResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
}

type SubmitAnswerResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type EndSessionResponse struct {
	Message string   `json:"message"`
	Session *Session `json:"session"`
}

type DeleteSessionResponse struct {
	ID string `json:"id"`
}
