package postgres

import (
	"context"

	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

type submissionRepository struct {
	db *gorm.DB
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.QuizSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (*models.QuizSubmission, error) {
	var submission models.QuizSubmission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *submissionRepository) GetByIDWithDetails(ctx context.Context, id uint) (*models.QuizSubmission, error) {
	var submission models.QuizSubmission
	err := r.db.WithContext(ctx).
		Preload("Answers").
		Preload("Quiz").
		Preload("Quiz.Settings").
		First(&submission, id).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *submissionRepository) CountByQuizAndStudent(ctx context.Context, quizID uint, studentID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.QuizSubmission{}).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *submissionRepository) GetByStudent(ctx context.Context, studentID string, filters repositories.SubmissionFilters) ([]*models.QuizSubmission, int64, error) {
	filters.StudentID = &studentID
	return r.list(ctx, filters)
}

func (r *submissionRepository) GetByQuiz(ctx context.Context, quizID uint, filters repositories.SubmissionFilters) ([]*models.QuizSubmission, int64, error) {
	filters.QuizID = &quizID
	return r.list(ctx, filters)
}

func (r *submissionRepository) list(ctx context.Context, filters repositories.SubmissionFilters) ([]*models.QuizSubmission, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.QuizSubmission{})

	if filters.QuizID != nil {
		query = query.Where("quiz_id = ?", *filters.QuizID)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.PendingReview != nil {
		query = query.Where("pending_review = ?", *filters.PendingReview)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query.Order("submitted_at DESC"), filters.Limit, filters.Offset)

	var submissions []*models.QuizSubmission
	if err := query.Preload("Quiz").Find(&submissions).Error; err != nil {
		return nil, 0, err
	}
	return submissions, total, nil
}

func (r *submissionRepository) GetPendingReview(ctx context.Context, quizID uint) ([]*models.QuizSubmission, error) {
	var submissions []*models.QuizSubmission
	err := r.db.WithContext(ctx).
		Preload("Answers").
		Where("quiz_id = ? AND pending_review = ?", quizID, true).
		Order("submitted_at ASC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) UpdateAnswerGrade(ctx context.Context, submissionID, questionID uint, grade repositories.AnswerGrade) error {
	result := r.db.WithContext(ctx).
		Model(&models.SubmissionAnswer{}).
		Where("submission_id = ? AND question_id = ?", submissionID, questionID).
		Updates(map[string]interface{}{
			"is_correct":     grade.IsCorrect,
			"points_awarded": grade.PointsAwarded,
			"pending_review": false,
			"feedback":       grade.Feedback,
			"graded_by":      grade.GraderID,
			"graded_at":      grade.GradedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *submissionRepository) UpdateScore(ctx context.Context, id uint, earned, gradable, percentage int, passed, pendingReview bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.QuizSubmission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"earned_points":   earned,
			"gradable_points": gradable,
			"percentage":      percentage,
			"passed":          passed,
			"pending_review":  pendingReview,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
