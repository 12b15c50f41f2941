package scoring

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	apperrors "github.com/quizforge/quiz-service/internal/errors"
	"github.com/quizforge/quiz-service/internal/models"
)

// AnswerKey is the canonical correct-answer representation for one question,
// independent of how the authoring UI collected it. Exactly one of the
// type-specific fields is populated, selected by Type. Keys are produced
// once per question and reused for all grading.
type AnswerKey struct {
	Type models.QuestionType

	// multiple_choice: correct option ID. true_false: "true" or "false".
	Option string

	// select_all: correct option IDs as a set.
	Options map[string]struct{}

	// short_answer, fill_in_blank: acceptable keywords, trimmed and
	// lowercased. Grading is case-insensitive substring containment of at
	// least one keyword.
	Keywords []string

	// matching: left item ID -> right item ID.
	Pairs map[string]string

	// ordering: item IDs in the correct order.
	Order []string
}

// Normalize converts a stored question into its canonical answer key.
// It is pure and deterministic: the same question always yields an
// identical key. Malformed content fails with a *ValidationError naming
// the question and the defect; a quiz must not be published while any
// question fails normalization.
func Normalize(q *models.Question) (*AnswerKey, error) {
	switch q.Type {
	case models.MultipleChoice:
		return normalizeMultipleChoice(q)
	case models.TrueFalse:
		return normalizeTrueFalse(q)
	case models.ShortAnswer:
		return normalizeShortAnswer(q)
	case models.FillInBlank:
		return normalizeFillBlank(q)
	case models.Essay:
		return normalizeEssay(q)
	case models.SelectAll:
		return normalizeSelectAll(q)
	case models.Matching:
		return normalizeMatching(q)
	case models.Ordering:
		return normalizeOrdering(q)
	default:
		return nil, apperrors.NewQuestionValidationError(q.ID, fmt.Sprintf("unknown question type %q", q.Type))
	}
}

// NormalizeAll builds keys for every question, collecting all defects so
// authors see the full list at once.
func NormalizeAll(questions []models.Question) (map[uint]*AnswerKey, error) {
	keys := make(map[uint]*AnswerKey, len(questions))
	var errs apperrors.ValidationErrors

	for i := range questions {
		q := &questions[i]
		key, err := Normalize(q)
		if err != nil {
			var ve *apperrors.ValidationError
			if stderrors.As(err, &ve) {
				errs = append(errs, *ve)
				continue
			}
			return nil, err
		}
		keys[q.ID] = key
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return keys, nil
}

func normalizeMultipleChoice(q *models.Question) (*AnswerKey, error) {
	var content models.MultipleChoiceContent
	if err := json.Unmarshal(q.Content, &content); err != nil {
		return nil, apperrors.NewQuestionValidationError(q.ID, "invalid multiple choice content")
	}

	optionIDs, err := collectOptionIDs(q.ID, content.Options)
	if err != nil {
		return nil, err
	}

	if content.CorrectAnswer == "" {
		return nil, apperrors.NewQuestionValidationError(q.ID, "must have a correct answer")
	}
	if _, ok := optionIDs[content.CorrectAnswer]; !ok {
		return nil, apperrors.NewQuestionValidationError(q.ID,
			fmt.Sprintf("correct answer %q does not match any option", content.CorrectAnswer))
	}

	return &AnswerKey{Type: q.Type, Option: content.CorrectAnswer}, nil
}

func normalizeTrueFalse(q *models.Question) (*AnswerKey, error) {
	var content models.TrueFalseContent
	if err := json.Unmarshal(q.Content, &content); err != nil {
		return nil, apperrors.NewQuestionValidationError(q.ID, "invalid true/false content")
	}

	option := "false"
	if content.CorrectAnswer {
		option = "true"
	}
	return &AnswerKey{Type: q.Type, Option: option}, nil
}

func normalizeSelectAll(q *models.Question) (*AnswerKey, error) {
	var content models.SelectAllContent
	if err := json.Unmarshal(q.Content, &content); err != nil {
		return nil, apperrors.NewQuestionValidationError(q.ID, "invalid select-all content")
	}

	optionIDs, err := collectOptionIDs(q.ID, content.Options)
	if err != nil {
		return nil, err
	}

	if len(content.CorrectAnswers) == 0 {
		return nil, apperrors.NewQuestionValidationError(q.ID, "must have at least 1 correct answer")
	}

	correct := make(map[string]struct{}, len(content.CorrectAnswers))
	for _, id := range content.CorrectAnswers {
		if _, ok := optionIDs[id]; !ok {
			return nil, apperrors.NewQuestionValidationError(q.ID,
				fmt.Sprintf("correct answer %q does not match any option", id))
		}
		correct[id] = struct{}{}
	}

	return &AnswerKey{Type: q.Type, Options: correct}, nil
}

func normalizeShortAnswer(q *models.Question) (*AnswerKey, error) {
	var content models.ShortAnswerContent
	if err := json.Unmarshal(q.Content, &content); err != nil {
		return nil, apperrors.NewQuestionValidationError(q.ID, "invalid short answer content")
	}

	keywords := splitKeywords(content.Keywords)
	if len(keywords) == 0 {
		return nil, apperrors.NewQuestionValidationError(q.ID, "must have at least 1 keyword")
	}

	return &AnswerKey{Type: q.Type, Keywords: keywords}, nil
}

func normalizeFillBlank(q *models.Question) (*AnswerKey, error) {
	var content models.FillBlankContent
	if err := json.Unmarshal(q.Content, &content); err != nil {
		return nil, apperrors.NewQuestionValidationError(q.ID, "invalid fill-in-the-blank content")
	}

	if strings.TrimSpace(content.Template) == "" {
		return nil, apperrors.NewQuestionValidationError(q.ID, "template is required")
	}

	keywords := splitKeywords(content.Keywords)
	if len(keywords) == 0 {
		return nil, apperrors.NewQuestionValidationError(q.ID, "must have at least 1 keyword")
	}

	return &AnswerKey{Type: q.Type, Keywords: keywords}, nil
}

func normalizeEssay(q *models.Question) (*AnswerKey, error) {
	var content models.EssayContent
	if err := json.Unmarshal(q.Content, &content); err != nil {
		return nil, apperrors.NewQuestionValidationError(q.ID, "invalid essay content")
	}

	if content.MinWords != nil && content.MaxWords != nil && *content.MinWords > *content.MaxWords {
		return nil, apperrors.NewQuestionValidationError(q.ID, "minimum word count cannot exceed maximum")
	}

	// Essays carry no automatic key; they always require manual review.
	return &AnswerKey{Type: q.Type}, nil
}

func normalizeMatching(q *models.Question) (*AnswerKey, error) {
	var content models.MatchingContent
	if err := json.Unmarshal(q.Content, &content); err != nil {
		return nil, apperrors.NewQuestionValidationError(q.ID, "invalid matching content")
	}

	if len(content.LeftItems) < 2 || len(content.RightItems) < 2 {
		return nil, apperrors.NewQuestionValidationError(q.ID, "must have at least 2 items on each side")
	}

	leftIDs, err := collectItemIDs(q.ID, content.LeftItems, "left")
	if err != nil {
		return nil, err
	}
	rightIDs, err := collectItemIDs(q.ID, content.RightItems, "right")
	if err != nil {
		return nil, err
	}

	if len(content.CorrectPairs) == 0 {
		return nil, apperrors.NewQuestionValidationError(q.ID, "must have at least 1 correct pair")
	}

	pairs := make(map[string]string, len(content.CorrectPairs))
	for _, pair := range content.CorrectPairs {
		if _, ok := leftIDs[pair.LeftID]; !ok {
			return nil, apperrors.NewQuestionValidationError(q.ID,
				fmt.Sprintf("correct pair references unknown left item %q", pair.LeftID))
		}
		if _, ok := rightIDs[pair.RightID]; !ok {
			return nil, apperrors.NewQuestionValidationError(q.ID,
				fmt.Sprintf("correct pair references unknown right item %q", pair.RightID))
		}
		if _, dup := pairs[pair.LeftID]; dup {
			return nil, apperrors.NewQuestionValidationError(q.ID,
				fmt.Sprintf("left item %q is paired more than once", pair.LeftID))
		}
		pairs[pair.LeftID] = pair.RightID
	}

	return &AnswerKey{Type: q.Type, Pairs: pairs}, nil
}

func normalizeOrdering(q *models.Question) (*AnswerKey, error) {
	var content models.OrderingContent
	if err := json.Unmarshal(q.Content, &content); err != nil {
		return nil, apperrors.NewQuestionValidationError(q.ID, "invalid ordering content")
	}

	if len(content.Items) < 2 {
		return nil, apperrors.NewQuestionValidationError(q.ID, "must have at least 2 items")
	}

	itemIDs, err := collectItemIDs(q.ID, content.Items, "ordering")
	if err != nil {
		return nil, err
	}

	if len(content.CorrectOrder) != len(content.Items) {
		return nil, apperrors.NewQuestionValidationError(q.ID, "correct order must include every item exactly once")
	}

	seen := make(map[string]struct{}, len(content.CorrectOrder))
	order := make([]string, 0, len(content.CorrectOrder))
	for _, id := range content.CorrectOrder {
		if _, ok := itemIDs[id]; !ok {
			return nil, apperrors.NewQuestionValidationError(q.ID,
				fmt.Sprintf("correct order references unknown item %q", id))
		}
		if _, dup := seen[id]; dup {
			return nil, apperrors.NewQuestionValidationError(q.ID,
				fmt.Sprintf("correct order contains duplicate item %q", id))
		}
		seen[id] = struct{}{}
		order = append(order, id)
	}

	return &AnswerKey{Type: q.Type, Order: order}, nil
}

// ===== HELPERS =====

func collectOptionIDs(questionID uint, options []models.ChoiceOption) (map[string]struct{}, error) {
	if len(options) < 2 {
		return nil, apperrors.NewQuestionValidationError(questionID, "must have at least 2 options")
	}

	ids := make(map[string]struct{}, len(options))
	for _, opt := range options {
		if opt.ID == "" || opt.Text == "" {
			return nil, apperrors.NewQuestionValidationError(questionID, "options must have both ID and text")
		}
		if _, dup := ids[opt.ID]; dup {
			return nil, apperrors.NewQuestionValidationError(questionID,
				fmt.Sprintf("duplicate option ID %q", opt.ID))
		}
		ids[opt.ID] = struct{}{}
	}
	return ids, nil
}

func collectItemIDs(questionID uint, items []models.MatchItem, side string) (map[string]struct{}, error) {
	ids := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ID == "" || item.Text == "" {
			return nil, apperrors.NewQuestionValidationError(questionID,
				fmt.Sprintf("%s items must have both ID and text", side))
		}
		if _, dup := ids[item.ID]; dup {
			return nil, apperrors.NewQuestionValidationError(questionID,
				fmt.Sprintf("duplicate %s item ID %q", side, item.ID))
		}
		ids[item.ID] = struct{}{}
	}
	return ids, nil
}

// splitKeywords applies the fixed keyword policy: comma-split, trim,
// lowercase, drop empties. Authoring and grading share this path.
func splitKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		kw := strings.ToLower(strings.TrimSpace(part))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}
