package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quizforge/quiz-service/internal/events"
	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/repositories"
	"github.com/quizforge/quiz-service/internal/scoring"
	"github.com/quizforge/quiz-service/internal/validator"
)

// GradingService covers everything that happens to a submission after
// scoring: reading results and manually grading essay answers.
type GradingService interface {
	GetSubmission(ctx context.Context, id uint, userID string) (*models.QuizSubmission, error)
	GetByStudent(ctx context.Context, studentID string, filters repositories.SubmissionFilters) ([]*models.QuizSubmission, int64, error)
	GetByQuiz(ctx context.Context, quizID uint, filters repositories.SubmissionFilters, userID string) ([]*models.QuizSubmission, int64, error)
	GetPendingReview(ctx context.Context, quizID uint, userID string) ([]*models.QuizSubmission, error)

	// GradeEssay records an instructor's grade for one essay answer and
	// folds the question's points into the submission's percentage. The
	// essay's points join the denominator only now.
	GradeEssay(ctx context.Context, submissionID, questionID uint, req *GradeEssayRequest, graderID string) (*models.QuizSubmission, error)
}

type gradingService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewGradingService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) GradingService {
	return &gradingService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== REQUEST TYPES =====

type GradeEssayRequest struct {
	PointsAwarded int     `json:"points_awarded" validate:"min=0"`
	Feedback      *string `json:"feedback" validate:"omitempty,max=2000"`
}

// ===== READ OPERATIONS =====

func (s *gradingService) GetSubmission(ctx context.Context, id uint, userID string) (*models.QuizSubmission, error) {
	submission, err := s.repo.Submission().GetByIDWithDetails(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	if submission.StudentID != userID && submission.Quiz.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "submission", "read", "not the owner or quiz creator")
	}
	return submission, nil
}

func (s *gradingService) GetByStudent(ctx context.Context, studentID string, filters repositories.SubmissionFilters) ([]*models.QuizSubmission, int64, error) {
	submissions, total, err := s.repo.Submission().GetByStudent(ctx, studentID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, total, nil
}

func (s *gradingService) GetByQuiz(ctx context.Context, quizID uint, filters repositories.SubmissionFilters, userID string) ([]*models.QuizSubmission, int64, error) {
	if err := s.checkQuizOwnership(ctx, quizID, userID, "view_submissions"); err != nil {
		return nil, 0, err
	}

	submissions, total, err := s.repo.Submission().GetByQuiz(ctx, quizID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, total, nil
}

func (s *gradingService) GetPendingReview(ctx context.Context, quizID uint, userID string) ([]*models.QuizSubmission, error) {
	if err := s.checkQuizOwnership(ctx, quizID, userID, "grade"); err != nil {
		return nil, err
	}

	submissions, err := s.repo.Submission().GetPendingReview(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending submissions: %w", err)
	}
	return submissions, nil
}

// ===== MANUAL GRADING =====

func (s *gradingService) GradeEssay(ctx context.Context, submissionID, questionID uint, req *GradeEssayRequest, graderID string) (*models.QuizSubmission, error) {
	s.logger.Info("Grading essay answer",
		"submission_id", submissionID,
		"question_id", questionID,
		"grader_id", graderID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	submission, err := s.repo.Submission().GetByIDWithDetails(ctx, submissionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	quiz, err := s.repo.Quiz().GetByIDWithDetails(ctx, submission.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz.CreatedBy != graderID {
		return nil, NewPermissionError(graderID, submissionID, "submission", "grade", "not the quiz creator")
	}

	question := findQuestion(quiz.Questions, questionID)
	if question == nil {
		return nil, ErrQuestionNotFound
	}
	if question.Type.AutoGradable() {
		return nil, ErrGradingNotAllowed
	}

	answer := findAnswer(submission.Answers, questionID)
	if answer == nil {
		return nil, ErrQuestionNotFound
	}
	if !answer.PendingReview {
		return nil, ErrGradingAlreadyCompleted
	}

	if req.PointsAwarded > question.Points {
		return nil, ErrGradingInvalidScore
	}

	grade := repositories.AnswerGrade{
		IsCorrect:     req.PointsAwarded == question.Points,
		PointsAwarded: req.PointsAwarded,
		Feedback:      req.Feedback,
		GraderID:      graderID,
		GradedAt:      time.Now(),
	}

	// The graded essay joins the score: its points enter the denominator
	// and the awarded points the numerator.
	earned := submission.EarnedPoints + req.PointsAwarded
	gradable := submission.GradablePoints + question.Points
	percentage := scoring.Percentage(earned, gradable)
	passed := percentage >= quiz.Settings.PassingScore
	stillPending := anyOtherPending(submission.Answers, questionID)

	err = s.repo.Transaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Submission().UpdateAnswerGrade(ctx, submissionID, questionID, grade); err != nil {
			return fmt.Errorf("failed to update answer grade: %w", err)
		}
		if err := tx.Submission().UpdateScore(ctx, submissionID, earned, gradable, percentage, passed, stillPending); err != nil {
			return fmt.Errorf("failed to update submission score: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := events.NewSubmissionRegradedEvent(events.SubmissionRegradedEvent{
		SubmissionID:  submissionID,
		QuizID:        quiz.ID,
		StudentID:     submission.StudentID,
		GraderID:      graderID,
		GradedAt:      grade.GradedAt,
		Percentage:    percentage,
		Passed:        passed,
		PendingReview: stillPending,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish regrade event", "submission_id", submissionID, "error", err)
	}

	s.logger.Info("Essay graded",
		"submission_id", submissionID,
		"question_id", questionID,
		"points_awarded", req.PointsAwarded,
		"percentage", percentage)

	return s.repo.Submission().GetByIDWithDetails(ctx, submissionID)
}

// ===== HELPERS =====

func (s *gradingService) checkQuizOwnership(ctx context.Context, quizID uint, userID, action string) error {
	quiz, err := s.repo.Quiz().GetByID(ctx, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz.CreatedBy != userID {
		return NewPermissionError(userID, quizID, "quiz", action, "not the quiz creator")
	}
	return nil
}

func findQuestion(questions []models.Question, id uint) *models.Question {
	for i := range questions {
		if questions[i].ID == id {
			return &questions[i]
		}
	}
	return nil
}

func findAnswer(answers []models.SubmissionAnswer, questionID uint) *models.SubmissionAnswer {
	for i := range answers {
		if answers[i].QuestionID == questionID {
			return &answers[i]
		}
	}
	return nil
}

func anyOtherPending(answers []models.SubmissionAnswer, gradedQuestionID uint) bool {
	for i := range answers {
		if answers[i].QuestionID != gradedQuestionID && answers[i].PendingReview {
			return true
		}
	}
	return false
}
