package validator

import (
	"fmt"

	apperrors "github.com/quizforge/quiz-service/internal/errors"
	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/scoring"
)

const maxOptionsPerQuestion = 10

// QuestionValidator handles question-specific validation. Structural
// correctness of the type-specific content is delegated to the answer-key
// normalizer so authoring and grading agree on what "valid" means.
type QuestionValidator struct{}

// NewQuestionValidator creates a new question validator
func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidateQuestion validates a complete question object
func (v *QuestionValidator) ValidateQuestion(question *models.Question) error {
	if question.Text == "" {
		return apperrors.NewQuestionValidationError(question.ID, "question text is required")
	}

	if question.Points < 1 || question.Points > 100 {
		return apperrors.NewQuestionValidationError(question.ID, "question points must be between 1 and 100")
	}

	key, err := scoring.Normalize(question)
	if err != nil {
		return err
	}

	return v.validateSizeLimits(question, key)
}

// ValidateBatch validates every question of a quiz, collecting all defects.
// A quiz must not be published while this returns an error.
func (v *QuestionValidator) ValidateBatch(questions []models.Question) error {
	if len(questions) == 0 {
		return apperrors.NewValidationError("questions", "quiz must have at least 1 question", nil)
	}

	var errs apperrors.ValidationErrors
	for i := range questions {
		if err := v.ValidateQuestion(&questions[i]); err != nil {
			if ve, ok := err.(*apperrors.ValidationError); ok {
				errs = append(errs, *ve)
				continue
			}
			return err
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validateSizeLimits applies authoring caps the normalizer does not care
// about but the UI depends on.
func (v *QuestionValidator) validateSizeLimits(question *models.Question, key *scoring.AnswerKey) error {
	switch question.Type {
	case models.SelectAll:
		if len(key.Options) > maxOptionsPerQuestion {
			return apperrors.NewQuestionValidationError(question.ID,
				fmt.Sprintf("cannot have more than %d correct options", maxOptionsPerQuestion))
		}
	case models.Ordering:
		if len(key.Order) > maxOptionsPerQuestion {
			return apperrors.NewQuestionValidationError(question.ID,
				fmt.Sprintf("cannot have more than %d items", maxOptionsPerQuestion))
		}
	case models.Matching:
		if len(key.Pairs) > maxOptionsPerQuestion {
			return apperrors.NewQuestionValidationError(question.ID,
				fmt.Sprintf("cannot have more than %d pairs", maxOptionsPerQuestion))
		}
	}

	return nil
}
