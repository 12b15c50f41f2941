package postgres

import (
	"context"
	"time"

	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/repositories"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sessionRepository struct {
	db *gorm.DB
}

func (r *sessionRepository) Create(ctx context.Context, session *models.QuizSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) GetByID(ctx context.Context, id uint) (*models.QuizSession, error) {
	var session models.QuizSession
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) GetByIDWithDetails(ctx context.Context, id uint) (*models.QuizSession, error) {
	var session models.QuizSession
	err := r.db.WithContext(ctx).
		Preload("Answers").
		Preload("Quiz").
		Preload("Quiz.Settings").
		Preload("Quiz.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.\"order\" ASC, questions.id ASC")
		}).
		First(&session, id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Update(ctx context.Context, session *models.QuizSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

func (r *sessionRepository) GetActive(ctx context.Context, quizID uint, studentID string) (*models.QuizSession, error) {
	var session models.QuizSession
	err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ? AND status = ?", quizID, studentID, models.SessionInProgress).
		Order("started_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) GetByStudent(ctx context.Context, studentID string, filters repositories.SessionFilters) ([]*models.QuizSession, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.QuizSession{}).Where("student_id = ?", studentID)

	if filters.QuizID != nil {
		query = query.Where("quiz_id = ?", *filters.QuizID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query.Order("started_at DESC"), filters.Limit, filters.Offset)

	var sessions []*models.QuizSession
	if err := query.Find(&sessions).Error; err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

func (r *sessionRepository) GetExpired(ctx context.Context, cutoff time.Time) ([]*models.QuizSession, error) {
	var sessions []*models.QuizSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_time IS NOT NULL AND end_time < ?", models.SessionInProgress, cutoff).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepository) UpsertAnswer(ctx context.Context, sessionID, questionID uint, data datatypes.JSON) error {
	answer := &models.SessionAnswer{
		SessionID:  sessionID,
		QuestionID: questionID,
		AnswerData: data,
		UpdatedAt:  time.Now(),
	}

	// Last-write-wins on the (session, question) unique index.
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"answer_data", "updated_at"}),
		}).
		Create(answer).Error
}

func (r *sessionRepository) GetAnswers(ctx context.Context, sessionID uint) ([]*models.SessionAnswer, error) {
	var answers []*models.SessionAnswer
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Find(&answers).Error
	if err != nil {
		return nil, err
	}
	return answers, nil
}

func (r *sessionRepository) MarkSubmitted(ctx context.Context, id uint, at time.Time) (bool, error) {
	// Conditional update keyed on status: of two concurrent submits only
	// one sees RowsAffected == 1.
	result := r.db.WithContext(ctx).
		Model(&models.QuizSession{}).
		Where("id = ? AND status = ?", id, models.SessionInProgress).
		Updates(map[string]interface{}{
			"status":       models.SessionCompleted,
			"submitted_at": at,
			"updated_at":   at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
