package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/jobs"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/llm"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/realtime"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/repositories"
)

const maxMutateAttempts = 5

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrNotOwner         = errors.New("session belongs to another user")
	ErrQuestionNotFound = errors.New("question not found")
	ErrProcessing       = errors.New("answers are still being evaluated")
	ErrAlreadyCompleted = errors.New("session is already completed")

	errSkipWrite = errors.New("no change")
)

// JobQueue is the part of the job queue the service needs.
type JobQueue interface {
	Enqueue(ctx context.Context, job *jobs.Job) error
}

// AudioStore holds uploaded answer audio between submit and transcription.
type AudioStore interface {
	Save(sessionID, originalName string, r io.Reader) (string, error)
	Read(path string) ([]byte, error)
	Remove(path string) error
}

// SubmitInput carries one answer. Code and Audio are both optional.
type SubmitInput struct {
	QuestionIndex string
	Code          string
	Audio         io.Reader
	AudioName     string
}

// SessionService drives the interview lifecycle. The HTTP side persists the
// initial state and enqueues jobs; the worker side performs the AI calls.
type SessionService struct {
	sessions repositories.SessionRepository
	queue    JobQueue
	ai       llm.Provider
	notifier realtime.Notifier
	audio    AudioStore
	logger   *zap.Logger
}

func NewSessionService(
	sessions repositories.SessionRepository,
	queue JobQueue,
	ai llm.Provider,
	notifier realtime.Notifier,
	audio AudioStore,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		queue:    queue,
		ai:       ai,
		notifier: notifier,
		audio:    audio,
		logger:   logger,
	}
}

// RegisterWorkers binds the background handlers to the pool.
func (s *SessionService) RegisterWorkers(pool *jobs.WorkerPool) {
	pool.Register(jobs.TypeGenerateQuestions, s.HandleGeneration, s.FailGeneration)
	pool.Register(jobs.TypeEvaluateAnswer, s.HandleEvaluation, s.FailEvaluation)
}

func (s *SessionService) Create(ctx context.Context, userID primitive.ObjectID, req models.CreateSessionRequest) (*models.Session, error) {
	session := models.NewSession(userID, req.Role, req.Level, req.InterviewType)
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	job := &jobs.Job{
		Type:      jobs.TypeGenerateQuestions,
		SessionID: session.ID.Hex(),
		UserID:    userID.Hex(),
		Count:     req.Count,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.logger.Error("Failed to enqueue question generation",
			zap.String("sessionId", session.ID.Hex()), zap.Error(err))
		s.markGenerationFailed(ctx, session.ID)
		return nil, fmt.Errorf("enqueue generation: %w", err)
	}

	return session, nil
}

func (s *SessionService) List(ctx context.Context, userID primitive.ObjectID) ([]models.Session, error) {
	return s.sessions.ListByUser(ctx, userID)
}

// Get answers ErrSessionNotFound for both a missing and a foreign session.
func (s *SessionService) Get(ctx context.Context, userID primitive.ObjectID, id string) (*models.Session, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.OwnedBy(userID) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Delete distinguishes a foreign session (ErrNotOwner) from a missing one.
func (s *SessionService) Delete(ctx context.Context, userID primitive.ObjectID, id string) error {
	session, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !session.OwnedBy(userID) {
		return ErrNotOwner
	}
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Submit records an answer and hands it to the evaluation worker. It returns
// the parsed question index.
func (s *SessionService) Submit(ctx context.Context, userID primitive.ObjectID, id string, in SubmitInput) (int, error) {
	session, err := s.Get(ctx, userID, id)
	if err != nil {
		return 0, err
	}

	idx, err := strconv.Atoi(in.QuestionIndex)
	if err != nil || session.Question(idx) == nil {
		return idx, ErrQuestionNotFound
	}

	var audioPath string
	if in.Audio != nil {
		audioPath, err = s.audio.Save(session.ID.Hex(), in.AudioName, in.Audio)
		if err != nil {
			return idx, fmt.Errorf("save audio: %w", err)
		}
	}

	var wasSubmitted bool
	_, err = s.mutateSession(ctx, session.ID, func(sess *models.Session) error {
		q := sess.Question(idx)
		if q == nil {
			return ErrQuestionNotFound
		}
		wasSubmitted = q.IsSubmitted
		q.IsSubmitted = true
		return nil
	})
	if err != nil {
		s.discardAudio(audioPath)
		return idx, err
	}

	job := &jobs.Job{
		Type:          jobs.TypeEvaluateAnswer,
		SessionID:     session.ID.Hex(),
		UserID:        userID.Hex(),
		QuestionIndex: idx,
		AudioPath:     audioPath,
		Code:          in.Code,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.discardAudio(audioPath)
		if !wasSubmitted {
			// nothing will evaluate it, so do not leave the session looking busy
			_, _ = s.mutateSession(ctx, session.ID, func(sess *models.Session) error {
				if q := sess.Question(idx); q != nil && !q.IsEvaluated {
					q.IsSubmitted = false
					return nil
				}
				return errSkipWrite
			})
		}
		return idx, fmt.Errorf("enqueue evaluation: %w", err)
	}

	return idx, nil
}

// End finalises a session early.
func (s *SessionService) End(ctx context.Context, userID primitive.ObjectID, id string) (*models.Session, error) {
	session, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.mutateSession(ctx, session.ID, func(sess *models.Session) error {
		if sess.IsProcessing() {
			return ErrProcessing
		}
		if sess.Status == models.SessionCompleted {
			return ErrAlreadyCompleted
		}
		applyScores(sess)
		sess.Status = models.SessionCompleted
		now := time.Now().UTC()
		sess.EndTime = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, userID.Hex(), updated.ID.Hex(), models.UpdateSessionCompleted, "Interview session ended early.", updated)
	return updated, nil
}

// HandleGeneration is the generate_questions worker.
func (s *SessionService) HandleGeneration(ctx context.Context, job *jobs.Job) error {
	id, err := primitive.ObjectIDFromHex(job.SessionID)
	if err != nil {
		return jobs.Permanent(fmt.Errorf("invalid session id %q: %w", job.SessionID, err))
	}

	session, err := s.sessions.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		s.logger.Info("Session deleted before generation, dropping job", zap.String("sessionId", job.SessionID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session.Status != models.SessionPending {
		// redelivered after a successful run
		return nil
	}

	s.notify(ctx, job.UserID, job.SessionID, models.UpdateGenerating,
		fmt.Sprintf("Generating %d questions for %s...", job.Count, session.Role), nil)

	texts, err := s.ai.GenerateQuestions(ctx, models.QuestionGenerationRequest{
		Role:          session.Role,
		Level:         session.Level,
		Count:         job.Count,
		InterviewType: session.InterviewType,
	})
	if err != nil {
		return jobs.Permanent(err)
	}

	questions := models.BuildQuestions(texts, session.InterviewType, job.Count)
	updated, err := s.mutateSession(ctx, id, func(sess *models.Session) error {
		if sess.Status != models.SessionPending {
			return errSkipWrite
		}
		sess.Questions = questions
		sess.Status = models.SessionInProgress
		return nil
	})
	if errors.Is(err, errSkipWrite) {
		return nil
	}
	if errors.Is(err, ErrSessionNotFound) {
		s.logger.Info("Session deleted during generation, dropping result", zap.String("sessionId", job.SessionID))
		return nil
	}
	if err != nil {
		return jobs.Permanent(fmt.Errorf("save questions: %w", err))
	}

	s.notify(ctx, job.UserID, job.SessionID, models.UpdateQuestionsReady,
		"Questions generated successfully. Starting session.", updated)
	return nil
}

// FailGeneration marks the session failed once generation has given up.
func (s *SessionService) FailGeneration(ctx context.Context, job *jobs.Job, cause error) {
	id, err := primitive.ObjectIDFromHex(job.SessionID)
	if err != nil {
		return
	}
	s.logger.Error("Question generation failed",
		zap.String("sessionId", job.SessionID), zap.Error(cause))

	if !s.markGenerationFailed(ctx, id) {
		return
	}
	s.notify(ctx, job.UserID, job.SessionID, models.UpdateGenerationFailed,
		fmt.Sprintf("Question generation failed. Reason: %s.", cause.Error()), nil)
}

func (s *SessionService) markGenerationFailed(ctx context.Context, id primitive.ObjectID) bool {
	_, err := s.mutateSession(ctx, id, func(sess *models.Session) error {
		if sess.Status != models.SessionPending {
			return errSkipWrite
		}
		sess.Status = models.SessionFailed
		return nil
	})
	if err != nil && !errors.Is(err, errSkipWrite) && !errors.Is(err, ErrSessionNotFound) {
		s.logger.Error("Failed to mark session failed", zap.String("sessionId", id.Hex()), zap.Error(err))
	}
	return err == nil
}

// HandleEvaluation is the evaluate_answer worker.
func (s *SessionService) HandleEvaluation(ctx context.Context, job *jobs.Job) error {
	id, err := primitive.ObjectIDFromHex(job.SessionID)
	if err != nil {
		s.discardAudio(job.AudioPath)
		return jobs.Permanent(fmt.Errorf("invalid session id %q: %w", job.SessionID, err))
	}

	session, err := s.sessions.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		s.logger.Info("Session deleted before evaluation, dropping job", zap.String("sessionId", job.SessionID))
		s.discardAudio(job.AudioPath)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	label := fmt.Sprintf("Q%d", job.QuestionIndex+1)
	question := session.Question(job.QuestionIndex)
	if question == nil {
		s.discardAudio(job.AudioPath)
		s.notify(ctx, job.UserID, job.SessionID, models.UpdateEvaluationFailed, label+" not found.", nil)
		return nil
	}

	transcript := ""
	if job.AudioPath != "" {
		if transcript, err = s.transcribe(ctx, job, label); err != nil {
			return err
		}
	}

	s.notify(ctx, job.UserID, job.SessionID, models.UpdateEvaluating, "AI is analyzing "+label+"...", nil)

	result, err := s.ai.Evaluate(ctx, models.EvaluationRequest{
		Question:     question.QuestionText,
		QuestionType: question.QuestionType,
		Role:         session.Role,
		Level:        session.Level,
		UserAnswer:   transcript,
		UserCode:     job.Code,
	})
	if err != nil {
		return jobs.Permanent(err)
	}

	completed := false
	updated, err := s.mutateSession(ctx, id, func(sess *models.Session) error {
		q := sess.Question(job.QuestionIndex)
		if q == nil {
			return ErrQuestionNotFound
		}
		q.UserAnswerText = transcript
		q.UserSubmittedCode = job.Code
		q.TechnicalScore = result.TechnicalScore
		q.ConfidenceScore = result.ConfidenceScore
		q.AIFeedback = result.AIFeedback
		q.IdealAnswer = result.IdealAnswer
		q.IsSubmitted = true
		q.IsEvaluated = true

		allEvaluated := sess.AllEvaluated()
		completed = allEvaluated || sess.Status == models.SessionCompleted
		if completed {
			applyScores(sess)
			if allEvaluated {
				sess.Status = models.SessionCompleted
				if sess.EndTime == nil {
					now := time.Now().UTC()
					sess.EndTime = &now
				}
			}
		}
		return nil
	})
	if err != nil && ctx.Err() != nil {
		// released for redelivery, the upload is still needed
		return err
	}
	s.discardAudio(job.AudioPath)
	if errors.Is(err, ErrSessionNotFound) {
		s.logger.Info("Session deleted during evaluation, dropping result", zap.String("sessionId", job.SessionID))
		return nil
	}
	if errors.Is(err, ErrQuestionNotFound) {
		s.notify(ctx, job.UserID, job.SessionID, models.UpdateEvaluationFailed, label+" not found.", nil)
		return nil
	}
	if err != nil {
		return jobs.Permanent(fmt.Errorf("save evaluation: %w", err))
	}

	if completed {
		s.notify(ctx, job.UserID, job.SessionID, models.UpdateSessionCompleted, "Scores finalized.", updated)
	} else {
		s.notify(ctx, job.UserID, job.SessionID, models.UpdateEvaluationComplete,
			fmt.Sprintf("Feedback for %s is ready!", label), updated)
	}
	return nil
}

// FailEvaluation leaves the question submitted but unevaluated, drops the
// upload and tells the user.
func (s *SessionService) FailEvaluation(ctx context.Context, job *jobs.Job, cause error) {
	s.logger.Error("Answer evaluation failed",
		zap.String("sessionId", job.SessionID),
		zap.Int("questionIndex", job.QuestionIndex),
		zap.Error(cause))
	s.discardAudio(job.AudioPath)

	var session *models.Session
	if id, err := primitive.ObjectIDFromHex(job.SessionID); err == nil {
		session, _ = s.sessions.GetByID(ctx, id)
	}
	s.notify(ctx, job.UserID, job.SessionID, models.UpdateEvaluationFailed, "Evaluation failed.", session)
}

// transcribe leaves the transcript empty when the audio cannot be read or
// the provider fails. Only cancellation is returned, so the job goes back to
// the queue with its upload intact.
func (s *SessionService) transcribe(ctx context.Context, job *jobs.Job, label string) (string, error) {
	s.notify(ctx, job.UserID, job.SessionID, models.UpdateTranscribing, "Transcribing audio for "+label+"...", nil)

	audio, err := s.audio.Read(job.AudioPath)
	if err != nil {
		s.logger.Warn("Failed to read answer audio", zap.String("path", job.AudioPath), zap.Error(err))
		return "", nil
	}

	text, err := s.ai.Transcribe(ctx, job.AudioPath, audio)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		s.logger.Warn("Transcription failed, continuing without transcript",
			zap.String("sessionId", job.SessionID), zap.Error(err))
		return "", nil
	}
	return text, nil
}

func (s *SessionService) discardAudio(path string) {
	if path == "" {
		return
	}
	if err := s.audio.Remove(path); err != nil {
		s.logger.Warn("Failed to remove answer audio", zap.String("path", path), zap.Error(err))
	}
}

// mutateSession re-reads the session, applies fn and writes it back under
// the version check, retrying on conflict. A session deleted in the meantime
// yields ErrSessionNotFound and is never re-created.
func (s *SessionService) mutateSession(ctx context.Context, id primitive.ObjectID, fn func(*models.Session) error) (*models.Session, error) {
	for attempt := 0; attempt < maxMutateAttempts; attempt++ {
		session, err := s.sessions.GetByID(ctx, id)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}

		if err := fn(session); err != nil {
			return nil, err
		}

		err = s.sessions.Update(ctx, session)
		switch {
		case err == nil:
			return session, nil
		case errors.Is(err, repositories.ErrVersionConflict):
			continue
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrSessionNotFound
		default:
			return nil, fmt.Errorf("update session: %w", err)
		}
	}
	return nil, fmt.Errorf("update session %s: %w", id.Hex(), repositories.ErrVersionConflict)
}

func (s *SessionService) load(ctx context.Context, id string) (*models.Session, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	session, err := s.sessions.GetByID(ctx, oid)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return session, nil
}

func (s *SessionService) notify(ctx context.Context, userID, sessionID string, status models.UpdateStatus, message string, session *models.Session) {
	s.notifier.Notify(ctx, userID, models.SessionUpdate{
		SessionID: sessionID,
		Status:    status,
		Message:   message,
		Session:   session,
	})
}
