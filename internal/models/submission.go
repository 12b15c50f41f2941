package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuizSubmission is the immutable, scored record of a completed attempt.
// Exactly one submission exists per session (SessionID is unique); the
// only field that changes after creation is essay grading state.
type QuizSubmission struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	QuizID    uint   `json:"quiz_id" gorm:"not null;index:idx_submissions_quiz_student"`
	StudentID string `json:"student_id" gorm:"not null;size:255;index:idx_submissions_quiz_student"`
	SessionID uint   `json:"session_id" gorm:"not null;uniqueIndex"`

	// Aggregate score over auto-gradable questions. Percentage is rounded
	// to the nearest whole percent; essays join the denominator only after
	// manual grading.
	EarnedPoints   int  `json:"earned_points"`
	GradablePoints int  `json:"gradable_points"`
	Percentage     int  `json:"percentage"`
	Passed         bool `json:"passed"`

	// PendingReview is true while any essay answer awaits manual grading.
	PendingReview bool `json:"pending_review" gorm:"index"`

	SubmittedAt time.Time `json:"submitted_at" gorm:"not null;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Quiz    Quiz               `json:"quiz" gorm:"foreignKey:QuizID"`
	Student User               `json:"student" gorm:"foreignKey:StudentID"`
	Answers []SubmissionAnswer `json:"answers" gorm:"foreignKey:SubmissionID"`
}

// SubmissionAnswer is one question's scored answer within a submission.
type SubmissionAnswer struct {
	ID           uint `json:"id" gorm:"primaryKey"`
	SubmissionID uint `json:"submission_id" gorm:"not null;uniqueIndex:idx_submission_question"`
	QuestionID   uint `json:"question_id" gorm:"not null;uniqueIndex:idx_submission_question"`

	AnswerData datatypes.JSON `json:"answer_data" gorm:"type:jsonb"`

	// IsCorrect is nil while an essay answer awaits manual review.
	IsCorrect     *bool `json:"is_correct"`
	PointsAwarded int   `json:"points_awarded"`
	PendingReview bool  `json:"pending_review"`

	// Manual grading metadata, essay answers only.
	GradedBy *string    `json:"graded_by" gorm:"size:255"`
	GradedAt *time.Time `json:"graded_at"`
	Feedback *string    `json:"feedback" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QuizSubmission) TableName() string {
	return "quiz_submissions"
}

func (SubmissionAnswer) TableName() string {
	return "submission_answers"
}
