package models

import (
	"time"

	"gorm.io/gorm"
)

type QuizStatus string

const (
	QuizStatusDraft     QuizStatus = "draft"
	QuizStatusPublished QuizStatus = "published"
	QuizStatusArchived  QuizStatus = "archived"
)

type Quiz struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Title       string     `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string    `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	Status      QuizStatus `json:"status" gorm:"default:draft;index" validate:"omitempty,quiz_status"`

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"not null;size:255;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Settings  QuizSettings `json:"settings" gorm:"foreignKey:QuizID"`
	Questions []Question   `json:"questions" gorm:"foreignKey:QuizID"`
	Creator   User         `json:"creator" gorm:"foreignKey:CreatedBy"`

	// Computed fields (not stored)
	QuestionsCount int `json:"questions_count" gorm:"-"`
	TotalPoints    int `json:"total_points" gorm:"-"`
}

type QuizSettings struct {
	QuizID uint `json:"quiz_id" gorm:"primaryKey"`

	// Time settings. TimeLimit is in minutes; 0 disables the countdown.
	TimeLimit           int  `json:"time_limit" gorm:"default:30" validate:"min=0,max=300"`
	AutoSubmitOnTimeout bool `json:"auto_submit_on_timeout" gorm:"default:false"`

	// Attempt settings. MaxAttempts 0 means unlimited.
	MaxAttempts int `json:"max_attempts" gorm:"default:1" validate:"min=0,max=10"`

	// Result settings
	PassingScore       int  `json:"passing_score" gorm:"default:70" validate:"min=0,max=100"`
	ShowCorrectAnswers bool `json:"show_correct_answers" gorm:"default:true"`

	// Question display settings
	RandomizeQuestions bool `json:"randomize_questions" gorm:"default:false"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (QuizSettings) TableName() string {
	return "quiz_settings"
}

// IsPublished reports whether students may start attempts against the quiz.
func (q *Quiz) IsPublished() bool {
	return q.Status == QuizStatusPublished
}
