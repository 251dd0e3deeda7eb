package models

// payloads exchanged with the AI collaborator

type QuestionGenerationRequest struct {
	Role          string        `json:"role"`
	Level         string        `json:"level"`
	Count         int           `json:"count"`
	InterviewType InterviewType `json:"interview_type"`
}

type QuestionGenerationResponse struct {
	Questions []string `json:"questions"`
	ModelUsed string   `json:"model_used"`
}

type TranscriptionResponse struct {
	Transcription string `json:"transcription"`
}

type EvaluationRequest struct {
	Question     string       `json:"question"`
	QuestionType QuestionType `json:"question_type"`
	Role         string       `json:"role"`
	Level        string       `json:"level"`
	UserAnswer   string       `json:"user_answer"`
	UserCode     string       `json:"user_code"`
}

// EvaluationResult is stored as returned, scores are not clamped.
type EvaluationResult struct {
	TechnicalScore  float64 `json:"technicalScore"`
	ConfidenceScore float64 `json:"confidenceScore"`
	AIFeedback      string  `json:"aiFeedback"`
	IdealAnswer     string  `json:"idealAnswer"`
}
