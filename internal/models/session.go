package models

import (
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// QuizSession is the mutable record of a single attempt before submission.
// Once Status flips to completed the session is never mutated again; its
// scored counterpart is the QuizSubmission.
type QuizSession struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	QuizID    uint          `json:"quiz_id" gorm:"not null;index:idx_sessions_quiz_student"`
	StudentID string        `json:"student_id" gorm:"not null;size:255;index:idx_sessions_quiz_student"`
	Status    SessionStatus `json:"status" gorm:"not null;default:in_progress;index"`

	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	SubmittedAt *time.Time `json:"submitted_at"`

	// TimeLimit is the attempt budget in seconds (quiz setting * 60);
	// 0 means untimed. EndTime is nil for untimed sessions.
	TimeLimit int        `json:"time_limit"`
	EndTime   *time.Time `json:"end_time"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Quiz    Quiz            `json:"quiz" gorm:"foreignKey:QuizID"`
	Answers []SessionAnswer `json:"answers" gorm:"foreignKey:SessionID"`
}

// SessionAnswer holds the latest answer for one question in one session.
// Updates are last-write-wins; no history is kept.
type SessionAnswer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	SessionID  uint `json:"session_id" gorm:"not null;uniqueIndex:idx_session_question"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_session_question"`

	// AnswerData is one of the *Answer payload shapes, selected by the
	// question's type. Nil until the student answers.
	AnswerData datatypes.JSON `json:"answer_data" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QuizSession) TableName() string {
	return "quiz_sessions"
}

func (SessionAnswer) TableName() string {
	return "session_answers"
}

// Expired reports whether the advisory time budget has run out.
func (s *QuizSession) Expired(now time.Time) bool {
	return s.EndTime != nil && now.After(*s.EndTime)
}

// TimeRemaining returns the advisory seconds left, never negative.
func (s *QuizSession) TimeRemaining(now time.Time) int {
	if s.EndTime == nil {
		return 0
	}
	remaining := int(s.EndTime.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}
