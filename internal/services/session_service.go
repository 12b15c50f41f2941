package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quizforge/quiz-service/internal/events"
	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/repositories"
	"github.com/quizforge/quiz-service/internal/scoring"
	"github.com/quizforge/quiz-service/internal/validator"
	"gorm.io/datatypes"
)

// SessionService drives a quiz attempt from start to scored submission.
//
// The lifecycle is strictly in_progress -> completed, with no other
// transitions: answers may only change while in progress, and the submit
// transition happens exactly once per session.
type SessionService interface {
	// Start begins a new attempt or resumes the student's active session
	// for the quiz. The attempt limit counts completed submissions only.
	Start(ctx context.Context, quizID uint, studentID string) (*SessionResponse, error)

	GetByID(ctx context.Context, id uint, userID string) (*SessionResponse, error)
	GetByStudent(ctx context.Context, studentID string, filters repositories.SessionFilters) ([]*models.QuizSession, int64, error)

	// SubmitAnswer records the latest answer for one question,
	// last-write-wins. Only valid while the session is in progress.
	SubmitAnswer(ctx context.Context, sessionID uint, req *SubmitAnswerRequest, studentID string) error

	// Submit flips the session to completed, scores every answer against
	// the quiz's answer keys and persists the immutable submission.
	// Answers carried in the request override the stored rows
	// last-write-wins, so an incremental save that never reached the
	// server cannot lose the answer. Concurrent submits of the same
	// session are serialized: the loser gets ErrAlreadySubmitted.
	Submit(ctx context.Context, sessionID uint, req *SubmitSessionRequest, studentID string) (*models.QuizSubmission, error)

	// HandleTimeout auto-submits an expired session when the quiz opts in
	// via AutoSubmitOnTimeout. Called by the timeout sweeper.
	HandleTimeout(ctx context.Context, sessionID uint) error

	// SweepExpired finds expired in-progress sessions and times them out.
	SweepExpired(ctx context.Context) (int, error)
}

type sessionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewSessionService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) SessionService {
	return &sessionService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== REQUEST / RESPONSE TYPES =====

type SubmitAnswerRequest struct {
	QuestionID uint           `json:"question_id" validate:"required"`
	AnswerData datatypes.JSON `json:"answer_data" validate:"required"`
}

// SubmitSessionRequest optionally carries the client's full answer set on
// final submit. Incremental saves are best-effort; this is the retry path.
type SubmitSessionRequest struct {
	Answers []SubmitAnswerRequest `json:"answers" validate:"omitempty,dive"`
}

type SessionResponse struct {
	Session *models.QuizSession `json:"session"`

	// Resumed is true when Start returned an existing in-progress session
	// instead of creating a new one.
	Resumed bool `json:"resumed"`

	// TimeRemaining is the advisory seconds left; 0 for untimed sessions.
	TimeRemaining int `json:"time_remaining"`
}

// ===== CORE OPERATIONS =====

func (s *sessionService) Start(ctx context.Context, quizID uint, studentID string) (*SessionResponse, error) {
	s.logger.Info("Starting quiz session", "quiz_id", quizID, "student_id", studentID)

	quiz, err := s.repo.Quiz().GetByID(ctx, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if !quiz.IsPublished() {
		return nil, ErrQuizNotPublished
	}

	// An active session is resumed, never duplicated, and never counts as
	// a fresh attempt.
	if active, err := s.repo.Session().GetActive(ctx, quizID, studentID); err == nil {
		s.logger.Info("Resuming existing session", "session_id", active.ID)
		return &SessionResponse{
			Session:       active,
			Resumed:       true,
			TimeRemaining: active.TimeRemaining(time.Now()),
		}, nil
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check active session: %w", err)
	}

	count, err := s.repo.Submission().CountByQuizAndStudent(ctx, quizID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}
	if err := CheckAttemptLimit(quiz.Settings.MaxAttempts, count); err != nil {
		return nil, err
	}

	session := &models.QuizSession{
		QuizID:    quizID,
		StudentID: studentID,
		Status:    models.SessionInProgress,
		StartedAt: time.Now(),
		TimeLimit: quiz.Settings.TimeLimit * 60,
	}
	if session.TimeLimit > 0 {
		endTime := session.StartedAt.Add(time.Duration(session.TimeLimit) * time.Second)
		session.EndTime = &endTime
	}

	if err := s.repo.Session().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	event := events.NewSessionStartedEvent(session.ID, quizID, quiz.Title, studentID, session.StartedAt, session.TimeLimit)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish session event", "session_id", session.ID, "error", err)
	}

	s.logger.Info("Quiz session started", "session_id", session.ID, "quiz_id", quizID, "student_id", studentID)
	return &SessionResponse{
		Session:       session,
		TimeRemaining: session.TimeRemaining(time.Now()),
	}, nil
}

func (s *sessionService) GetByID(ctx context.Context, id uint, userID string) (*SessionResponse, error) {
	session, err := s.repo.Session().GetByIDWithDetails(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if session.StudentID != userID && session.Quiz.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "session", "read", "not the session owner")
	}

	// Anyone who is not the quiz creator gets the student view: answer
	// keys must not leave the server while an attempt is open.
	if session.Quiz.CreatedBy != userID {
		for i := range session.Quiz.Questions {
			content, err := session.Quiz.Questions[i].StudentContent()
			if err != nil {
				return nil, fmt.Errorf("failed to prepare question content: %w", err)
			}
			session.Quiz.Questions[i].Content = content
		}
	}

	return &SessionResponse{
		Session:       session,
		TimeRemaining: session.TimeRemaining(time.Now()),
	}, nil
}

func (s *sessionService) GetByStudent(ctx context.Context, studentID string, filters repositories.SessionFilters) ([]*models.QuizSession, int64, error) {
	sessions, total, err := s.repo.Session().GetByStudent(ctx, studentID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, total, nil
}

func (s *sessionService) SubmitAnswer(ctx context.Context, sessionID uint, req *SubmitAnswerRequest, studentID string) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	session, err := s.repo.Session().GetByIDWithDetails(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to get session: %w", err)
	}

	if session.StudentID != studentID {
		return NewPermissionError(studentID, sessionID, "session", "answer", "not the session owner")
	}
	if session.Status != models.SessionInProgress {
		return ErrSessionClosed
	}
	if session.Expired(time.Now()) {
		return ErrSessionExpired
	}

	if !questionInQuiz(session.Quiz.Questions, req.QuestionID) {
		return ErrQuestionNotInQuiz
	}

	if err := s.repo.Session().UpsertAnswer(ctx, sessionID, req.QuestionID, req.AnswerData); err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}

	s.logger.Debug("Answer saved", "session_id", sessionID, "question_id", req.QuestionID)
	return nil
}

func (s *sessionService) Submit(ctx context.Context, sessionID uint, req *SubmitSessionRequest, studentID string) (*models.QuizSubmission, error) {
	s.logger.Info("Submitting quiz session", "session_id", sessionID, "student_id", studentID)

	session, err := s.repo.Session().GetByIDWithDetails(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.StudentID != studentID {
		return nil, NewPermissionError(studentID, sessionID, "session", "submit", "not the session owner")
	}

	var carried map[uint]json.RawMessage
	if req != nil && len(req.Answers) > 0 {
		if err := s.validator.Validate(req); err != nil {
			return nil, err
		}
		carried = make(map[uint]json.RawMessage, len(req.Answers))
		for _, answer := range req.Answers {
			if !questionInQuiz(session.Quiz.Questions, answer.QuestionID) {
				return nil, ErrQuestionNotInQuiz
			}
			carried[answer.QuestionID] = json.RawMessage(answer.AnswerData)
		}
	}

	return s.finalize(ctx, session, time.Now(), carried)
}

// finalize performs the submit transition and scoring. Answers carried on
// the submit request win over stored rows. The status flip is a conditional
// update, so of two racing submits exactly one scores.
func (s *sessionService) finalize(ctx context.Context, session *models.QuizSession, submittedAt time.Time, carried map[uint]json.RawMessage) (*models.QuizSubmission, error) {
	quiz, err := s.repo.Quiz().GetByIDWithDetails(ctx, session.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	keys, err := scoring.NormalizeAll(quiz.Questions)
	if err != nil {
		// Published quizzes always normalize; this means the quiz was
		// edited out from under an open session.
		return nil, fmt.Errorf("failed to build answer keys: %w", err)
	}

	answers := make(map[uint]json.RawMessage, len(session.Answers)+len(carried))
	for i := range session.Answers {
		answers[session.Answers[i].QuestionID] = json.RawMessage(session.Answers[i].AnswerData)
	}
	for questionID, raw := range carried {
		answers[questionID] = raw
	}

	result := scoring.Score(quiz.Questions, keys, answers)

	var submission *models.QuizSubmission
	err = s.repo.Transaction(ctx, func(tx repositories.Repository) error {
		won, err := tx.Session().MarkSubmitted(ctx, session.ID, submittedAt)
		if err != nil {
			return fmt.Errorf("failed to mark session submitted: %w", err)
		}
		if !won {
			return ErrAlreadySubmitted
		}

		submission = buildSubmission(session, quiz, result, answers, submittedAt)
		if err := tx.Submission().Create(ctx, submission); err != nil {
			return fmt.Errorf("failed to create submission: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := events.NewSubmissionScoredEvent(events.SubmissionScoredEvent{
		SubmissionID:  submission.ID,
		SessionID:     session.ID,
		QuizID:        quiz.ID,
		StudentID:     session.StudentID,
		SubmittedAt:   submittedAt,
		Percentage:    submission.Percentage,
		Passed:        submission.Passed,
		PendingReview: submission.PendingReview,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish submission event", "submission_id", submission.ID, "error", err)
	}

	s.logger.Info("Quiz session submitted",
		"session_id", session.ID,
		"submission_id", submission.ID,
		"percentage", submission.Percentage,
		"pending_review", submission.PendingReview)
	return submission, nil
}

// ===== TIMEOUT HANDLING =====

func (s *sessionService) HandleTimeout(ctx context.Context, sessionID uint) error {
	session, err := s.repo.Session().GetByIDWithDetails(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to get session: %w", err)
	}

	if session.Status != models.SessionInProgress {
		return nil
	}
	if !session.Expired(time.Now()) {
		return nil
	}
	if !session.Quiz.Settings.AutoSubmitOnTimeout {
		// The time budget is advisory; without opt-in the session stays
		// open and the client decides what to do.
		return nil
	}

	s.logger.Info("Auto-submitting expired session", "session_id", sessionID)

	// Score whatever was answered before time ran out, at the deadline.
	if _, err := s.finalize(ctx, session, *session.EndTime, nil); err != nil {
		if errors.Is(err, ErrAlreadySubmitted) {
			return nil
		}
		return err
	}
	return nil
}

func (s *sessionService) SweepExpired(ctx context.Context) (int, error) {
	sessions, err := s.repo.Session().GetExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to find expired sessions: %w", err)
	}

	submitted := 0
	for _, session := range sessions {
		if err := s.HandleTimeout(ctx, session.ID); err != nil {
			s.logger.Error("Failed to time out session", "session_id", session.ID, "error", err)
			continue
		}
		submitted++
	}
	return submitted, nil
}

// ===== HELPERS =====

func buildSubmission(session *models.QuizSession, quiz *models.Quiz, result scoring.Result, answers map[uint]json.RawMessage, submittedAt time.Time) *models.QuizSubmission {
	submission := &models.QuizSubmission{
		QuizID:         quiz.ID,
		StudentID:      session.StudentID,
		SessionID:      session.ID,
		EarnedPoints:   result.EarnedPoints,
		GradablePoints: result.GradablePoints,
		Percentage:     result.Percentage,
		Passed:         result.Percentage >= quiz.Settings.PassingScore,
		PendingReview:  result.PendingReview,
		SubmittedAt:    submittedAt,
	}

	for _, qr := range result.PerQuestion {
		answer := models.SubmissionAnswer{
			QuestionID:    qr.QuestionID,
			IsCorrect:     qr.IsCorrect,
			PointsAwarded: qr.PointsAwarded,
			PendingReview: qr.PendingReview,
		}
		if raw, ok := answers[qr.QuestionID]; ok {
			answer.AnswerData = datatypes.JSON(raw)
		}
		submission.Answers = append(submission.Answers, answer)
	}
	return submission
}

func questionInQuiz(questions []models.Question, questionID uint) bool {
	for i := range questions {
		if questions[i].ID == questionID {
			return true
		}
	}
	return false
}
