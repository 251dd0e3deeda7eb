package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type InterviewType string

const (
	InterviewOralOnly  InterviewType = "oral-only"
	InterviewCodingMix InterviewType = "coding-mix"
)

type SessionStatus string

const (
	SessionPending    SessionStatus = "pending"
	SessionInProgress SessionStatus = "in-progress"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
)

type QuestionType string

const (
	QuestionCoding QuestionType = "coding"
	QuestionOral   QuestionType = "oral"
)

// share of a coding-mix interview that is tagged as coding, taken from the front
const CodingShare = 0.2

const (
	DefaultIdealAnswer = "pending"
	DefaultFeedback    = "Not yet submitted or evaluated"
)

// Question is embedded in a Session and addressed by its index.
type Question struct {
	QuestionText      string       `bson:"questionText" json:"questionText"`
	QuestionType      QuestionType `bson:"questionType" json:"questionType"`
	IdealAnswer       string       `bson:"idealAnswer" json:"idealAnswer"`
	UserAnswerText    string       `bson:"userAnswerText,omitempty" json:"userAnswerText,omitempty"`
	UserSubmittedCode string       `bson:"userSubmittedCode,omitempty" json:"userSubmittedCode,omitempty"`
	IsSubmitted       bool         `bson:"isSubmitted" json:"isSubmitted"`
	IsEvaluated       bool         `bson:"isEvaluated" json:"isEvaluated"`
	TechnicalScore    float64      `bson:"technicalScore" json:"technicalScore"`
	ConfidenceScore   float64      `bson:"confidenceScore" json:"confidenceScore"`
	AIFeedback        string       `bson:"aiFeedback" json:"aiFeedback"`
}

func NewQuestion(text string, qType QuestionType) Question {
	return Question{
		QuestionText: text,
		QuestionType: qType,
		IdealAnswer:  DefaultIdealAnswer,
		AIFeedback:   DefaultFeedback,
	}
}

type Metrics struct {
	AvgTechnical  float64 `bson:"avgTechnical" json:"avgTechnical"`
	AvgConfidence float64 `bson:"avgConfidence" json:"avgConfidence"`
}

// Session is one interview attempt. Version is bumped on every write and
// used as the optimistic concurrency token.
type Session struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	User          primitive.ObjectID `bson:"user" json:"user"`
	Role          string             `bson:"role" json:"role"`
	Level         string             `bson:"level" json:"level"`
	InterviewType InterviewType      `bson:"interviewType" json:"interviewType"`
	Status        SessionStatus      `bson:"status" json:"status"`
	OverallScore  float64            `bson:"overallScore" json:"overallScore"`
	Metrics       Metrics            `bson:"metrics" json:"metrics"`
	Questions     []Question         `bson:"questions" json:"questions"`
	StartTime     time.Time          `bson:"startTime" json:"startTime"`
	EndTime       *time.Time         `bson:"endTime,omitempty" json:"endTime,omitempty"`
	Version       int64              `bson:"version" json:"version"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func NewSession(userID primitive.ObjectID, role, level string, interviewType InterviewType) *Session {
	now := time.Now().UTC()
	return &Session{
		User:          userID,
		Role:          role,
		Level:         level,
		InterviewType: interviewType,
		Status:        SessionPending,
		Questions:     []Question{},
		StartTime:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s *Session) OwnedBy(userID primitive.ObjectID) bool {
	return s != nil && s.User == userID
}

// Question returns the question at idx, or nil when idx is out of range.
func (s *Session) Question(idx int) *Question {
	if idx < 0 || idx >= len(s.Questions) {
		return nil
	}
	return &s.Questions[idx]
}

// IsProcessing reports whether any answer is submitted but not yet evaluated.
func (s *Session) IsProcessing() bool {
	for _, q := range s.Questions {
		if q.IsSubmitted && !q.IsEvaluated {
			return true
		}
	}
	return false
}

func (s *Session) AllEvaluated() bool {
	for _, q := range s.Questions {
		if !q.IsEvaluated {
			return false
		}
	}
	return true
}

// BuildQuestions maps generated question texts to Questions. For coding-mix
// interviews the first floor(count*CodingShare) are coding questions.
func BuildQuestions(texts []string, interviewType InterviewType, count int) []Question {
	codingCount := 0
	if interviewType == InterviewCodingMix {
		codingCount = int(float64(count) * CodingShare)
	}

	questions := make([]Question, 0, len(texts))
	for i, text := range texts {
		qType := QuestionOral
		if i < codingCount {
			qType = QuestionCoding
		}
		questions = append(questions, NewQuestion(text, qType))
	}
	return questions
}
