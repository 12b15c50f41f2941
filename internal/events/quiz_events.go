package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

// EventType represents different types of domain events
type EventType string

const (
	// Quiz lifecycle events
	EventQuizPublished EventType = "quiz.published"
	EventQuizArchived  EventType = "quiz.archived"

	// Session events
	EventSessionStarted EventType = "session.started"

	// Submission events
	EventSubmissionScored   EventType = "submission.scored"
	EventSubmissionRegraded EventType = "submission.regraded"
)

// QuizEvent is the base structure for all published domain events
type QuizEvent struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Data      interface{} `json:"data"`
}

// Event payloads

type QuizPublishedEvent struct {
	QuizID    uint      `json:"quiz_id"`
	QuizTitle string    `json:"quiz_title"`
	CreatorID string    `json:"creator_id"`
	Published time.Time `json:"published_at"`
}

type QuizArchivedEvent struct {
	QuizID    uint      `json:"quiz_id"`
	QuizTitle string    `json:"quiz_title"`
	CreatorID string    `json:"creator_id"`
	Archived  time.Time `json:"archived_at"`
}

type SessionStartedEvent struct {
	SessionID uint      `json:"session_id"`
	QuizID    uint      `json:"quiz_id"`
	QuizTitle string    `json:"quiz_title"`
	StudentID string    `json:"student_id"`
	StartedAt time.Time `json:"started_at"`

	// TimeLimit in seconds, 0 for untimed sessions.
	TimeLimit int `json:"time_limit"`
}

type SubmissionScoredEvent struct {
	SubmissionID  uint      `json:"submission_id"`
	SessionID     uint      `json:"session_id"`
	QuizID        uint      `json:"quiz_id"`
	StudentID     string    `json:"student_id"`
	SubmittedAt   time.Time `json:"submitted_at"`
	Percentage    int       `json:"percentage"`
	Passed        bool      `json:"passed"`
	PendingReview bool      `json:"pending_review"`
}

type SubmissionRegradedEvent struct {
	SubmissionID  uint      `json:"submission_id"`
	QuizID        uint      `json:"quiz_id"`
	StudentID     string    `json:"student_id"`
	GraderID      string    `json:"grader_id"`
	GradedAt      time.Time `json:"graded_at"`
	Percentage    int       `json:"percentage"`
	Passed        bool      `json:"passed"`
	PendingReview bool      `json:"pending_review"`
}

// Event factory functions

func NewQuizPublishedEvent(quizID uint, title, creatorID string, at time.Time) *QuizEvent {
	return newEvent(EventQuizPublished, QuizPublishedEvent{
		QuizID:    quizID,
		QuizTitle: title,
		CreatorID: creatorID,
		Published: at,
	})
}

func NewQuizArchivedEvent(quizID uint, title, creatorID string, at time.Time) *QuizEvent {
	return newEvent(EventQuizArchived, QuizArchivedEvent{
		QuizID:    quizID,
		QuizTitle: title,
		CreatorID: creatorID,
		Archived:  at,
	})
}

func NewSessionStartedEvent(sessionID, quizID uint, title, studentID string, startedAt time.Time, timeLimit int) *QuizEvent {
	return newEvent(EventSessionStarted, SessionStartedEvent{
		SessionID: sessionID,
		QuizID:    quizID,
		QuizTitle: title,
		StudentID: studentID,
		StartedAt: startedAt,
		TimeLimit: timeLimit,
	})
}

func NewSubmissionScoredEvent(data SubmissionScoredEvent) *QuizEvent {
	return newEvent(EventSubmissionScored, data)
}

func NewSubmissionRegradedEvent(data SubmissionRegradedEvent) *QuizEvent {
	return newEvent(EventSubmissionRegraded, data)
}

func newEvent(eventType EventType, data interface{}) *QuizEvent {
	return &QuizEvent{
		ID:        watermill.NewUUID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    "quiz-service",
		Version:   "1.0",
		Data:      data,
	}
}
