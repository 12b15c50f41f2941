package postgres

import (
	"context"

	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

type quizRepository struct {
	db *gorm.DB
}

func (r *quizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	return r.db.WithContext(ctx).Create(quiz).Error
}

func (r *quizRepository) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.WithContext(ctx).
		Preload("Settings").
		First(&quiz, id).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *quizRepository) GetByIDWithDetails(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.WithContext(ctx).
		Preload("Settings").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.\"order\" ASC, questions.id ASC")
		}).
		First(&quiz, id).Error
	if err != nil {
		return nil, err
	}

	quiz.QuestionsCount = len(quiz.Questions)
	for _, q := range quiz.Questions {
		quiz.TotalPoints += q.Points
	}
	return &quiz, nil
}

func (r *quizRepository) Update(ctx context.Context, quiz *models.Quiz) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(quiz).Error
}

func (r *quizRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Quiz{}, id).Error
}

func (r *quizRepository) List(ctx context.Context, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Quiz{})

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applySort(query, filters.SortBy, filters.SortOrder, "created_at")
	query = applyPagination(query, filters.Limit, filters.Offset)

	var quizzes []*models.Quiz
	if err := query.Preload("Settings").Find(&quizzes).Error; err != nil {
		return nil, 0, err
	}
	return quizzes, total, nil
}

func (r *quizRepository) UpdateStatus(ctx context.Context, id uint, status models.QuizStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Quiz{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *quizRepository) GetStats(ctx context.Context, id uint) (*repositories.QuizStats, error) {
	stats := &repositories.QuizStats{}

	type questionAgg struct {
		Count  int
		Points int
	}
	var qa questionAgg
	err := r.db.WithContext(ctx).
		Model(&models.Question{}).
		Select("COUNT(*) AS count, COALESCE(SUM(points), 0) AS points").
		Where("quiz_id = ?", id).
		Scan(&qa).Error
	if err != nil {
		return nil, err
	}
	stats.QuestionCount = qa.Count
	stats.TotalPoints = qa.Points

	type submissionAgg struct {
		Total   int
		Avg     float64
		Passed  int
		Pending int
	}
	var sa submissionAgg
	err = r.db.WithContext(ctx).
		Model(&models.QuizSubmission{}).
		Select("COUNT(*) AS total, "+
			"COALESCE(AVG(percentage), 0) AS avg, "+
			"COUNT(*) FILTER (WHERE passed) AS passed, "+
			"COUNT(*) FILTER (WHERE pending_review) AS pending").
		Where("quiz_id = ?", id).
		Scan(&sa).Error
	if err != nil {
		return nil, err
	}

	stats.TotalSubmissions = sa.Total
	stats.AverageScore = sa.Avg
	stats.PendingReview = sa.Pending
	if sa.Total > 0 {
		stats.PassRate = 100 * float64(sa.Passed) / float64(sa.Total)
	}
	return stats, nil
}

// ===== SHARED QUERY HELPERS =====

func applySort(query *gorm.DB, sortBy, sortOrder, fallback string) *gorm.DB {
	column := fallback
	switch sortBy {
	case "created_at", "title", "submitted_at", "started_at":
		column = sortBy
	}

	direction := "DESC"
	if sortOrder == "asc" {
		direction = "ASC"
	}
	return query.Order(column + " " + direction)
}

func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return query.Limit(limit).Offset(offset)
}
