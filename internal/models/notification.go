package models

// UpdateStatus is the status carried by a sessionUpdate push event.
type UpdateStatus string

const (
	UpdateGenerating         UpdateStatus = "AI_GENERATING_QUESTIONS"
	UpdateQuestionsReady     UpdateStatus = "QUESTIONS_READY"
	UpdateGenerationFailed   UpdateStatus = "GENERATION_FAILED"
	UpdateTranscribing       UpdateStatus = "AI_TRANSCRIBING"
	UpdateEvaluating         UpdateStatus = "AI_EVALUATING"
	UpdateEvaluationComplete UpdateStatus = "EVALUATION_COMPLETE"
	UpdateSessionCompleted   UpdateStatus = "SESSION_COMPLETED"
	UpdateEvaluationFailed   UpdateStatus = "EVALUATION_FAILED"
)

const SessionUpdateEvent = "sessionUpdate"

type SessionUpdate struct {
	SessionID string       `json:"sessionId"`
	Status    UpdateStatus `json:"status"`
	Message   string       `json:"message"`
	Session   *Session     `json:"session"`
}

// WSFrame is the envelope written to websocket clients.
type WSFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}
