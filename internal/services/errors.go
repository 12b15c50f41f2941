package services

import (
	"errors"
	"fmt"

	apperrors "github.com/quizforge/quiz-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("resource conflict")

	// Quiz specific errors
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrQuizNotPublished = errors.New("quiz is not published")
	ErrQuizNotEditable  = errors.New("quiz cannot be edited in current status")
	ErrQuizNotDeletable = errors.New("quiz cannot be deleted - has existing submissions")
	ErrQuizNoQuestions  = errors.New("quiz has no questions")

	// Session specific errors
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionClosed       = errors.New("session is not in progress")
	ErrSessionExpired      = errors.New("session time has expired")
	ErrAlreadySubmitted    = errors.New("session already submitted")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrQuestionNotInQuiz   = errors.New("question does not belong to this quiz")
	ErrAttemptLimitReached = errors.New("maximum attempts exceeded")

	// Submission / grading errors
	ErrSubmissionNotFound      = errors.New("submission not found")
	ErrGradingNotAllowed       = errors.New("grading not allowed for this question type")
	ErrGradingAlreadyCompleted = errors.New("answer already graded")
	ErrGradingInvalidScore     = errors.New("invalid score value")

	// User errors
	ErrUserNotFound = errors.New("user not found")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// AttemptLimitError carries the attempt counts so callers can tell the
// student exactly where they stand. It wraps ErrAttemptLimitReached.
type AttemptLimitError struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

func (ale *AttemptLimitError) Error() string {
	return fmt.Sprintf("maximum attempts exceeded: %d of %d used", ale.Used, ale.Limit)
}

func (ale *AttemptLimitError) Unwrap() error {
	return ErrAttemptLimitReached
}

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// ===== ERROR HELPERS =====

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrQuizNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrSubmissionNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsForbidden checks if error represents a permission failure
func IsForbidden(err error) bool {
	if errors.Is(err, ErrForbidden) {
		return true
	}
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrAlreadySubmitted) ||
		errors.Is(err, ErrAttemptLimitReached) ||
		errors.Is(err, ErrQuizNotDeletable) ||
		errors.Is(err, ErrGradingAlreadyCompleted)
}
