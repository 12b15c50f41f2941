package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
	FillInBlank    QuestionType = "fill_in_blank"
	SelectAll      QuestionType = "select_all"
	Matching       QuestionType = "matching"
	Ordering       QuestionType = "ordering"
)

// AllQuestionTypes lists every supported type, in authoring order.
var AllQuestionTypes = []QuestionType{
	MultipleChoice,
	TrueFalse,
	ShortAnswer,
	Essay,
	FillInBlank,
	SelectAll,
	Matching,
	Ordering,
}

// AutoGradable reports whether answers of this type can be scored without
// manual review. Essays always require an instructor.
func (t QuestionType) AutoGradable() bool {
	return t != Essay
}

type Question struct {
	ID     uint         `json:"id" gorm:"primaryKey"`
	QuizID uint         `json:"quiz_id" gorm:"not null;index"`
	Type   QuestionType `json:"type" gorm:"not null;size:30" validate:"required,question_type"`
	Text   string       `json:"text" gorm:"not null;type:text" validate:"required,min=1"`
	Points int          `json:"points" gorm:"default:1" validate:"min=1,max=100"`
	Order  int          `json:"order" gorm:"not null;default:0"`

	// Type-specific authoring content (options, correct answers, pairs...).
	// The shape is one of the *Content structs below, selected by Type.
	Content datatypes.JSON `json:"content" gorm:"type:jsonb;not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

// ===== AUTHORING CONTENT SHAPES =====

// ChoiceOption is one selectable option of a choice-based question.
type ChoiceOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// MultipleChoiceContent has exactly one correct option.
type MultipleChoiceContent struct {
	Options       []ChoiceOption `json:"options"`
	CorrectAnswer string         `json:"correct_answer"` // option ID
}

type TrueFalseContent struct {
	CorrectAnswer bool `json:"correct_answer"`
}

// SelectAllContent is graded as exact set equality over CorrectAnswers.
type SelectAllContent struct {
	Options        []ChoiceOption `json:"options"`
	CorrectAnswers []string       `json:"correct_answers"` // option IDs
}

// ShortAnswerContent carries acceptable keywords as a single comma-separated
// string, the way the authoring form collects them.
type ShortAnswerContent struct {
	Keywords string `json:"keywords"`
}

// FillBlankContent is a prompt with a blank plus acceptable keywords,
// comma-separated like ShortAnswerContent.
type FillBlankContent struct {
	Template string `json:"template"`
	Keywords string `json:"keywords"`
}

type EssayContent struct {
	MinWords *int `json:"min_words,omitempty"`
	MaxWords *int `json:"max_words,omitempty"`
}

// MatchItem is one side of a matching pair or one ordering item.
type MatchItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type MatchPair struct {
	LeftID  string `json:"left_id"`
	RightID string `json:"right_id"`
}

type MatchingContent struct {
	LeftItems    []MatchItem `json:"left_items"`
	RightItems   []MatchItem `json:"right_items"`
	CorrectPairs []MatchPair `json:"correct_pairs"`
}

type OrderingContent struct {
	Items        []MatchItem `json:"items"`
	CorrectOrder []string    `json:"correct_order"` // item IDs
}
