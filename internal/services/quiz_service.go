package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quizforge/quiz-service/internal/cache"
	"github.com/quizforge/quiz-service/internal/events"
	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/repositories"
	"github.com/quizforge/quiz-service/internal/validator"
	"gorm.io/datatypes"
)

const publishedQuizTTL = 5 * time.Minute

// QuizService manages quiz authoring and the publish lifecycle.
type QuizService interface {
	Create(ctx context.Context, req *CreateQuizRequest, creatorID string) (*models.Quiz, error)
	GetByID(ctx context.Context, id uint) (*models.Quiz, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Quiz, error)
	GetPublished(ctx context.Context, id uint) (*models.Quiz, error)
	Update(ctx context.Context, id uint, req *UpdateQuizRequest, userID string) (*models.Quiz, error)
	Delete(ctx context.Context, id uint, userID string) error
	List(ctx context.Context, filters repositories.QuizFilters) ([]*models.Quiz, int64, error)

	// Publish validates every question before flipping status; a quiz with
	// defective questions cannot be published.
	Publish(ctx context.Context, id uint, userID string) (*models.Quiz, error)
	Archive(ctx context.Context, id uint, userID string) error

	GetStats(ctx context.Context, id uint, userID string) (*repositories.QuizStats, error)
}

type quizService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	cache     cache.CacheService
	publisher events.EventPublisher
}

func NewQuizService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, cacheService cache.CacheService, publisher events.EventPublisher) QuizService {
	return &quizService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		cache:     cacheService,
		publisher: publisher,
	}
}

// ===== REQUEST TYPES =====

type CreateQuizRequest struct {
	Title       string                `json:"title" validate:"required,min=1,max=200"`
	Description *string               `json:"description" validate:"omitempty,max=1000"`
	Settings    *QuizSettingsRequest  `json:"settings"`
	Questions   []CreateQuestionInput `json:"questions" validate:"omitempty,dive"`
}

type UpdateQuizRequest struct {
	Title       *string               `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string               `json:"description" validate:"omitempty,max=1000"`
	Settings    *QuizSettingsRequest  `json:"settings"`
	Questions   []CreateQuestionInput `json:"questions" validate:"omitempty,dive"`
}

type QuizSettingsRequest struct {
	TimeLimit           *int  `json:"time_limit" validate:"omitempty,min=0,max=300"`
	AutoSubmitOnTimeout *bool `json:"auto_submit_on_timeout"`
	MaxAttempts         *int  `json:"max_attempts" validate:"omitempty,min=0,max=10"`
	PassingScore        *int  `json:"passing_score" validate:"omitempty,min=0,max=100"`
	ShowCorrectAnswers  *bool `json:"show_correct_answers"`
	RandomizeQuestions  *bool `json:"randomize_questions"`
}

type CreateQuestionInput struct {
	Type    models.QuestionType `json:"type" validate:"required,question_type"`
	Text    string              `json:"text" validate:"required,min=1"`
	Points  int                 `json:"points" validate:"min=1,max=100"`
	Order   int                 `json:"order"`
	Content datatypes.JSON      `json:"content" validate:"required"`
}

// ===== CORE CRUD OPERATIONS =====

func (s *quizService) Create(ctx context.Context, req *CreateQuizRequest, creatorID string) (*models.Quiz, error) {
	s.logger.Info("Creating quiz", "creator_id", creatorID, "title", req.Title)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	quiz := &models.Quiz{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.QuizStatusDraft,
		CreatedBy:   creatorID,
		Settings:    buildSettings(req.Settings),
		Questions:   buildQuestions(req.Questions),
	}

	// Draft questions may be incomplete; structural validation happens at
	// publish time. Still reject questions whose content is not valid JSON.
	for i := range quiz.Questions {
		if len(quiz.Questions[i].Content) == 0 {
			return nil, NewValidationError(fmt.Sprintf("questions[%d].content", i), "question content is required", nil)
		}
	}

	if err := s.repo.Quiz().Create(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	s.logger.Info("Quiz created successfully", "quiz_id", quiz.ID)
	return s.GetByIDWithDetails(ctx, quiz.ID)
}

func (s *quizService) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return quiz, nil
}

func (s *quizService) GetByIDWithDetails(ctx context.Context, id uint) (*models.Quiz, error) {
	quiz, err := s.repo.Quiz().GetByIDWithDetails(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz with details: %w", err)
	}
	return quiz, nil
}

// GetPublished returns a published quiz for students, served from cache
// when possible. Draft and archived quizzes are invisible here.
func (s *quizService) GetPublished(ctx context.Context, id uint) (*models.Quiz, error) {
	key := publishedQuizKey(id)

	var cached models.Quiz
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Quiz cache read failed", "quiz_id", id, "error", err)
	}

	quiz, err := s.GetByIDWithDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if !quiz.IsPublished() {
		return nil, ErrQuizNotPublished
	}

	if err := s.cache.Set(ctx, key, quiz, publishedQuizTTL); err != nil {
		s.logger.Warn("Quiz cache write failed", "quiz_id", id, "error", err)
	}
	return quiz, nil
}

func (s *quizService) Update(ctx context.Context, id uint, req *UpdateQuizRequest, userID string) (*models.Quiz, error) {
	s.logger.Info("Updating quiz", "quiz_id", id, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	quiz, err := s.GetByIDWithDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if quiz.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "quiz", "update", "not the quiz creator")
	}
	if quiz.Status == models.QuizStatusArchived {
		return nil, ErrQuizNotEditable
	}

	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = req.Description
	}
	if req.Settings != nil {
		applySettings(&quiz.Settings, req.Settings)
	}
	if req.Questions != nil {
		quiz.Questions = buildQuestions(req.Questions)
		for i := range quiz.Questions {
			quiz.Questions[i].QuizID = id
		}
	}

	if err := s.repo.Quiz().Update(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to update quiz: %w", err)
	}

	s.invalidateQuizCache(ctx, id)

	s.logger.Info("Quiz updated successfully", "quiz_id", id)
	return s.GetByIDWithDetails(ctx, id)
}

func (s *quizService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting quiz", "quiz_id", id, "user_id", userID)

	quiz, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if quiz.CreatedBy != userID {
		return NewPermissionError(userID, id, "quiz", "delete", "not the quiz creator")
	}

	stats, err := s.repo.Quiz().GetStats(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check quiz submissions: %w", err)
	}
	if stats.TotalSubmissions > 0 {
		return ErrQuizNotDeletable
	}

	if err := s.repo.Quiz().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}

	s.purgeQuizCache(ctx, id)
	return nil
}

func (s *quizService) List(ctx context.Context, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	quizzes, total, err := s.repo.Quiz().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list quizzes: %w", err)
	}
	return quizzes, total, nil
}

// ===== LIFECYCLE OPERATIONS =====

func (s *quizService) Publish(ctx context.Context, id uint, userID string) (*models.Quiz, error) {
	s.logger.Info("Publishing quiz", "quiz_id", id, "user_id", userID)

	quiz, err := s.GetByIDWithDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if quiz.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "quiz", "publish", "not the quiz creator")
	}
	if quiz.IsPublished() {
		return quiz, nil
	}

	// The publish gate: every question must normalize to a valid answer
	// key, so scoring can never encounter a defective published question.
	if err := s.validator.Question().ValidateBatch(quiz.Questions); err != nil {
		return nil, err
	}

	if err := s.repo.Quiz().UpdateStatus(ctx, id, models.QuizStatusPublished); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to publish quiz: %w", err)
	}

	event := events.NewQuizPublishedEvent(id, quiz.Title, quiz.CreatedBy, time.Now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish quiz event", "quiz_id", id, "error", err)
	}

	s.logger.Info("Quiz published successfully", "quiz_id", id)
	return s.GetByIDWithDetails(ctx, id)
}

func (s *quizService) Archive(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Archiving quiz", "quiz_id", id, "user_id", userID)

	quiz, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if quiz.CreatedBy != userID {
		return NewPermissionError(userID, id, "quiz", "archive", "not the quiz creator")
	}

	if err := s.repo.Quiz().UpdateStatus(ctx, id, models.QuizStatusArchived); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to archive quiz: %w", err)
	}

	s.purgeQuizCache(ctx, id)

	event := events.NewQuizArchivedEvent(id, quiz.Title, quiz.CreatedBy, time.Now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish quiz event", "quiz_id", id, "error", err)
	}
	return nil
}

func (s *quizService) GetStats(ctx context.Context, id uint, userID string) (*repositories.QuizStats, error) {
	quiz, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if quiz.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "quiz", "view_stats", "not the quiz creator")
	}

	stats, err := s.repo.Quiz().GetStats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz stats: %w", err)
	}
	return stats, nil
}

// ===== HELPERS =====

func (s *quizService) invalidateQuizCache(ctx context.Context, id uint) {
	if err := s.cache.Delete(ctx, publishedQuizKey(id)); err != nil {
		s.logger.Warn("Quiz cache invalidation failed", "quiz_id", id, "error", err)
	}
}

// purgeQuizCache drops every cached projection of the quiz, not just the
// published entry. Used when the quiz leaves circulation for good.
func (s *quizService) purgeQuizCache(ctx context.Context, id uint) {
	if err := s.cache.DeletePattern(ctx, fmt.Sprintf("quiz:*:%d", id)); err != nil {
		s.logger.Warn("Quiz cache purge failed", "quiz_id", id, "error", err)
	}
}

func publishedQuizKey(id uint) string {
	return fmt.Sprintf("quiz:published:%d", id)
}

func buildSettings(req *QuizSettingsRequest) models.QuizSettings {
	settings := models.QuizSettings{
		TimeLimit:          30,
		MaxAttempts:        1,
		PassingScore:       70,
		ShowCorrectAnswers: true,
	}
	applySettings(&settings, req)
	return settings
}

func applySettings(settings *models.QuizSettings, req *QuizSettingsRequest) {
	if req == nil {
		return
	}
	if req.TimeLimit != nil {
		settings.TimeLimit = *req.TimeLimit
	}
	if req.AutoSubmitOnTimeout != nil {
		settings.AutoSubmitOnTimeout = *req.AutoSubmitOnTimeout
	}
	if req.MaxAttempts != nil {
		settings.MaxAttempts = *req.MaxAttempts
	}
	if req.PassingScore != nil {
		settings.PassingScore = *req.PassingScore
	}
	if req.ShowCorrectAnswers != nil {
		settings.ShowCorrectAnswers = *req.ShowCorrectAnswers
	}
	if req.RandomizeQuestions != nil {
		settings.RandomizeQuestions = *req.RandomizeQuestions
	}
}

func buildQuestions(inputs []CreateQuestionInput) []models.Question {
	questions := make([]models.Question, len(inputs))
	for i, input := range inputs {
		order := input.Order
		if order == 0 {
			order = i
		}
		questions[i] = models.Question{
			Type:    input.Type,
			Text:    input.Text,
			Points:  input.Points,
			Order:   order,
			Content: input.Content,
		}
	}
	return questions
}
