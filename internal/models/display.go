package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// StudentContent returns the question content with all answer material
// stripped, safe to send to a student taking the quiz. Keywords, correct
// option IDs, pair assignments and the correct order never leave the server
// during an attempt.
func (q *Question) StudentContent() (datatypes.JSON, error) {
	switch q.Type {
	case MultipleChoice:
		var content MultipleChoiceContent
		if err := json.Unmarshal(q.Content, &content); err != nil {
			return nil, err
		}
		return marshalContent(struct {
			Options []ChoiceOption `json:"options"`
		}{Options: content.Options})

	case SelectAll:
		var content SelectAllContent
		if err := json.Unmarshal(q.Content, &content); err != nil {
			return nil, err
		}
		return marshalContent(struct {
			Options []ChoiceOption `json:"options"`
		}{Options: content.Options})

	case TrueFalse, ShortAnswer:
		// Nothing displayable beyond the question text.
		return marshalContent(struct{}{})

	case FillInBlank:
		var content FillBlankContent
		if err := json.Unmarshal(q.Content, &content); err != nil {
			return nil, err
		}
		return marshalContent(struct {
			Template string `json:"template"`
		}{Template: content.Template})

	case Essay:
		// Word limits are shown to the student.
		return q.Content, nil

	case Matching:
		var content MatchingContent
		if err := json.Unmarshal(q.Content, &content); err != nil {
			return nil, err
		}
		return marshalContent(struct {
			LeftItems  []MatchItem `json:"left_items"`
			RightItems []MatchItem `json:"right_items"`
		}{LeftItems: content.LeftItems, RightItems: content.RightItems})

	case Ordering:
		var content OrderingContent
		if err := json.Unmarshal(q.Content, &content); err != nil {
			return nil, err
		}
		return marshalContent(struct {
			Items []MatchItem `json:"items"`
		}{Items: content.Items})

	default:
		return marshalContent(struct{}{})
	}
}

func marshalContent(v interface{}) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}
