package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/repositories"
	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"
)

// MockRepository aggregates per-entity mocks and satisfies
// repositories.Repository. Transaction runs fn against the same mocks.
type MockRepository struct {
	QuizRepo       MockQuizRepository
	SessionRepo    MockSessionRepository
	SubmissionRepo MockSubmissionRepository
	UserRepo       MockUserRepository
}

func (m *MockRepository) Quiz() repositories.QuizRepository             { return &m.QuizRepo }
func (m *MockRepository) Session() repositories.SessionRepository       { return &m.SessionRepo }
func (m *MockRepository) Submission() repositories.SubmissionRepository { return &m.SubmissionRepo }
func (m *MockRepository) User() repositories.UserRepository             { return &m.UserRepo }

func (m *MockRepository) Transaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *MockRepository) AssertExpectations(t mock.TestingT) {
	m.QuizRepo.AssertExpectations(t)
	m.SessionRepo.AssertExpectations(t)
	m.SubmissionRepo.AssertExpectations(t)
	m.UserRepo.AssertExpectations(t)
}

// ===== QUIZ =====

type MockQuizRepository struct {
	mock.Mock
}

func (m *MockQuizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	args := m.Called(ctx, quiz)
	return args.Error(0)
}

func (m *MockQuizRepository) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quiz), args.Error(1)
}

func (m *MockQuizRepository) GetByIDWithDetails(ctx context.Context, id uint) (*models.Quiz, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quiz), args.Error(1)
}

func (m *MockQuizRepository) Update(ctx context.Context, quiz *models.Quiz) error {
	args := m.Called(ctx, quiz)
	return args.Error(0)
}

func (m *MockQuizRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockQuizRepository) List(ctx context.Context, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.Quiz), args.Get(1).(int64), args.Error(2)
}

func (m *MockQuizRepository) UpdateStatus(ctx context.Context, id uint, status models.QuizStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockQuizRepository) GetStats(ctx context.Context, id uint) (*repositories.QuizStats, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.QuizStats), args.Error(1)
}

// ===== SESSION =====

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.QuizSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id uint) (*models.QuizSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizSession), args.Error(1)
}

func (m *MockSessionRepository) GetByIDWithDetails(ctx context.Context, id uint) (*models.QuizSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizSession), args.Error(1)
}

func (m *MockSessionRepository) Update(ctx context.Context, session *models.QuizSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetActive(ctx context.Context, quizID uint, studentID string) (*models.QuizSession, error) {
	args := m.Called(ctx, quizID, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizSession), args.Error(1)
}

func (m *MockSessionRepository) GetByStudent(ctx context.Context, studentID string, filters repositories.SessionFilters) ([]*models.QuizSession, int64, error) {
	args := m.Called(ctx, studentID, filters)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.QuizSession), args.Get(1).(int64), args.Error(2)
}

func (m *MockSessionRepository) GetExpired(ctx context.Context, cutoff time.Time) ([]*models.QuizSession, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.QuizSession), args.Error(1)
}

func (m *MockSessionRepository) UpsertAnswer(ctx context.Context, sessionID, questionID uint, data datatypes.JSON) error {
	args := m.Called(ctx, sessionID, questionID, data)
	return args.Error(0)
}

func (m *MockSessionRepository) GetAnswers(ctx context.Context, sessionID uint) ([]*models.SessionAnswer, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SessionAnswer), args.Error(1)
}

func (m *MockSessionRepository) MarkSubmitted(ctx context.Context, id uint, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

// ===== SUBMISSION =====

type MockSubmissionRepository struct {
	mock.Mock
}

func (m *MockSubmissionRepository) Create(ctx context.Context, submission *models.QuizSubmission) error {
	args := m.Called(ctx, submission)
	return args.Error(0)
}

func (m *MockSubmissionRepository) GetByID(ctx context.Context, id uint) (*models.QuizSubmission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizSubmission), args.Error(1)
}

func (m *MockSubmissionRepository) GetByIDWithDetails(ctx context.Context, id uint) (*models.QuizSubmission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizSubmission), args.Error(1)
}

func (m *MockSubmissionRepository) CountByQuizAndStudent(ctx context.Context, quizID uint, studentID string) (int, error) {
	args := m.Called(ctx, quizID, studentID)
	return args.Int(0), args.Error(1)
}

func (m *MockSubmissionRepository) GetByStudent(ctx context.Context, studentID string, filters repositories.SubmissionFilters) ([]*models.QuizSubmission, int64, error) {
	args := m.Called(ctx, studentID, filters)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.QuizSubmission), args.Get(1).(int64), args.Error(2)
}

func (m *MockSubmissionRepository) GetByQuiz(ctx context.Context, quizID uint, filters repositories.SubmissionFilters) ([]*models.QuizSubmission, int64, error) {
	args := m.Called(ctx, quizID, filters)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.QuizSubmission), args.Get(1).(int64), args.Error(2)
}

func (m *MockSubmissionRepository) GetPendingReview(ctx context.Context, quizID uint) ([]*models.QuizSubmission, error) {
	args := m.Called(ctx, quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.QuizSubmission), args.Error(1)
}

func (m *MockSubmissionRepository) UpdateAnswerGrade(ctx context.Context, submissionID, questionID uint, grade repositories.AnswerGrade) error {
	args := m.Called(ctx, submissionID, questionID, grade)
	return args.Error(0)
}

func (m *MockSubmissionRepository) UpdateScore(ctx context.Context, id uint, earned, gradable, percentage int, passed, pendingReview bool) error {
	args := m.Called(ctx, id, earned, gradable, percentage, passed, pendingReview)
	return args.Error(0)
}

// ===== USER =====

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// ===== TEST HELPERS =====

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func boolPtr(b bool) *bool {
	return &b
}
