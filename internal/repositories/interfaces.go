package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/quizforge/quiz-service/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Repository aggregates the per-entity repositories. Transaction runs fn
// against a repository bound to a single database transaction.
type Repository interface {
	Quiz() QuizRepository
	Session() SessionRepository
	Submission() SubmissionRepository
	User() UserRepository

	Transaction(ctx context.Context, fn func(Repository) error) error
}

type QuizRepository interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	GetByID(ctx context.Context, id uint) (*models.Quiz, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Quiz, error) // include settings + questions
	Update(ctx context.Context, quiz *models.Quiz) error
	Delete(ctx context.Context, id uint) error

	List(ctx context.Context, filters QuizFilters) ([]*models.Quiz, int64, error)
	UpdateStatus(ctx context.Context, id uint, status models.QuizStatus) error
	GetStats(ctx context.Context, id uint) (*QuizStats, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.QuizSession) error
	GetByID(ctx context.Context, id uint) (*models.QuizSession, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.QuizSession, error) // include answers
	Update(ctx context.Context, session *models.QuizSession) error

	GetActive(ctx context.Context, quizID uint, studentID string) (*models.QuizSession, error)
	GetByStudent(ctx context.Context, studentID string, filters SessionFilters) ([]*models.QuizSession, int64, error)
	GetExpired(ctx context.Context, cutoff time.Time) ([]*models.QuizSession, error)

	// UpsertAnswer applies a last-write-wins answer update for one question.
	UpsertAnswer(ctx context.Context, sessionID, questionID uint, data datatypes.JSON) error
	GetAnswers(ctx context.Context, sessionID uint) ([]*models.SessionAnswer, error)

	// MarkSubmitted performs the atomic check-and-set for the submit
	// transition: a conditional update keyed on status=in_progress.
	// Returns false when the session was already completed, so concurrent
	// submits of the same session are serialized to exactly one scoring.
	MarkSubmitted(ctx context.Context, id uint, at time.Time) (bool, error)
}

type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.QuizSubmission) error
	GetByID(ctx context.Context, id uint) (*models.QuizSubmission, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.QuizSubmission, error) // include answers

	CountByQuizAndStudent(ctx context.Context, quizID uint, studentID string) (int, error)
	GetByStudent(ctx context.Context, studentID string, filters SubmissionFilters) ([]*models.QuizSubmission, int64, error)
	GetByQuiz(ctx context.Context, quizID uint, filters SubmissionFilters) ([]*models.QuizSubmission, int64, error)
	GetPendingReview(ctx context.Context, quizID uint) ([]*models.QuizSubmission, error)

	// Grading mutations (essay review only; everything else is immutable).
	UpdateAnswerGrade(ctx context.Context, submissionID, questionID uint, grade AnswerGrade) error
	UpdateScore(ctx context.Context, id uint, earned, gradable, percentage int, passed, pendingReview bool) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
}

// ===== SHARED FILTER STRUCTS =====

type QuizFilters struct {
	Status    *models.QuizStatus `json:"status"`
	CreatedBy *string            `json:"created_by"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
	SortBy    string             `json:"sort_by"`    // "created_at", "title"
	SortOrder string             `json:"sort_order"` // "asc", "desc"
}

type SessionFilters struct {
	QuizID *uint                 `json:"quiz_id"`
	Status *models.SessionStatus `json:"status"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

type SubmissionFilters struct {
	QuizID        *uint   `json:"quiz_id"`
	StudentID     *string `json:"student_id"`
	PendingReview *bool   `json:"pending_review"`
	Limit         int     `json:"limit"`
	Offset        int     `json:"offset"`
}

// ===== SHARED HELPER STRUCTS =====

type AnswerGrade struct {
	IsCorrect     bool      `json:"is_correct"`
	PointsAwarded int       `json:"points_awarded"`
	Feedback      *string   `json:"feedback"`
	GraderID      string    `json:"grader_id"`
	GradedAt      time.Time `json:"graded_at"`
}

// ===== SHARED STATISTICS STRUCTS =====

type QuizStats struct {
	TotalSubmissions int     `json:"total_submissions"`
	AverageScore     float64 `json:"average_score"`
	PassRate         float64 `json:"pass_rate"`
	PendingReview    int     `json:"pending_review"`
	QuestionCount    int     `json:"question_count"`
	TotalPoints      int     `json:"total_points"`
}

// IsNotFoundError reports whether err represents a missing record.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
