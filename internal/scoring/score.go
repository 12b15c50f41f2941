package scoring

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/quizforge/quiz-service/internal/models"
)

// QuestionResult is the scored outcome for one question.
type QuestionResult struct {
	QuestionID uint `json:"question_id"`
	Answered   bool `json:"answered"`

	// IsCorrect is nil for essay answers awaiting manual review.
	IsCorrect     *bool `json:"is_correct"`
	PendingReview bool  `json:"pending_review"`
	Points        int   `json:"points"`
	PointsAwarded int   `json:"points_awarded"`
}

// Result aggregates a full attempt's scoring.
type Result struct {
	PerQuestion    []QuestionResult `json:"per_question"`
	EarnedPoints   int              `json:"earned_points"`
	GradablePoints int              `json:"gradable_points"`
	Percentage     int              `json:"percentage"`
	PendingReview  bool             `json:"pending_review"`
}

// Score compares submitted answers against canonical keys and computes
// per-question correctness plus the aggregate percentage. It is a pure
// function of its inputs.
//
// Fixed policies (mirroring the normalizer):
//   - option identifiers compare exactly; true/false case-insensitively
//   - select_all requires exact set equality, no partial credit
//   - keyword types are correct iff the submitted text contains at least
//     one keyword, case-insensitive substring match
//   - matching and ordering are all-or-nothing
//   - essays are never auto-scored: marked pending review and excluded
//     from the percentage denominator until manually graded
//   - unanswered questions are incorrect, never an error
func Score(questions []models.Question, keys map[uint]*AnswerKey, answers map[uint]json.RawMessage) Result {
	result := Result{PerQuestion: make([]QuestionResult, 0, len(questions))}

	for i := range questions {
		q := &questions[i]
		key := keys[q.ID]
		qr := scoreQuestion(q, key, answers[q.ID])

		result.PerQuestion = append(result.PerQuestion, qr)
		if qr.PendingReview {
			result.PendingReview = true
			continue
		}
		result.GradablePoints += qr.Points
		result.EarnedPoints += qr.PointsAwarded
	}

	result.Percentage = Percentage(result.EarnedPoints, result.GradablePoints)
	return result
}

// Percentage rounds 100*earned/gradable to the nearest whole percent.
// A zero denominator yields 0.
func Percentage(earned, gradable int) int {
	if gradable <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(earned) / float64(gradable)))
}

func scoreQuestion(q *models.Question, key *AnswerKey, raw json.RawMessage) QuestionResult {
	qr := QuestionResult{QuestionID: q.ID, Points: q.Points}

	if q.Type == models.Essay {
		qr.PendingReview = true
		qr.Answered = essayAnswered(raw)
		return qr
	}

	// A missing key means the quiz was published with an invalid question,
	// which the publish gate prevents. Treat defensively as incorrect.
	if key == nil {
		qr.IsCorrect = boolPtr(false)
		return qr
	}

	if len(raw) == 0 {
		qr.IsCorrect = boolPtr(false)
		return qr
	}

	correct := false
	answered := false

	switch q.Type {
	case models.MultipleChoice:
		correct, answered = compareSelection(raw, key.Option, false)
	case models.TrueFalse:
		correct, answered = compareSelection(raw, key.Option, true)
	case models.SelectAll:
		correct, answered = compareMultiSelection(raw, key.Options)
	case models.ShortAnswer, models.FillInBlank:
		correct, answered = compareKeywords(raw, key.Keywords)
	case models.Matching:
		correct, answered = compareMatching(raw, key.Pairs)
	case models.Ordering:
		correct, answered = compareOrdering(raw, key.Order)
	}

	qr.Answered = answered
	qr.IsCorrect = boolPtr(correct)
	if correct {
		qr.PointsAwarded = q.Points
	}
	return qr
}

func compareSelection(raw json.RawMessage, want string, foldCase bool) (correct, answered bool) {
	var answer models.SelectionAnswer
	if err := json.Unmarshal(raw, &answer); err != nil || answer.Selected == "" {
		return false, false
	}
	if foldCase {
		return strings.EqualFold(answer.Selected, want), true
	}
	return answer.Selected == want, true
}

func compareMultiSelection(raw json.RawMessage, want map[string]struct{}) (correct, answered bool) {
	var answer models.MultiSelectionAnswer
	if err := json.Unmarshal(raw, &answer); err != nil || len(answer.Selected) == 0 {
		return false, false
	}

	got := make(map[string]struct{}, len(answer.Selected))
	for _, id := range answer.Selected {
		got[id] = struct{}{}
	}
	if len(got) != len(want) {
		return false, true
	}
	for id := range want {
		if _, ok := got[id]; !ok {
			return false, true
		}
	}
	return true, true
}

func compareKeywords(raw json.RawMessage, keywords []string) (correct, answered bool) {
	var answer models.TextAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return false, false
	}
	text := strings.ToLower(strings.TrimSpace(answer.Text))
	if text == "" {
		return false, false
	}

	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true, true
		}
	}
	return false, true
}

func compareMatching(raw json.RawMessage, want map[string]string) (correct, answered bool) {
	var answer models.MatchingAnswer
	if err := json.Unmarshal(raw, &answer); err != nil || len(answer.Pairs) == 0 {
		return false, false
	}

	if len(answer.Pairs) != len(want) {
		return false, true
	}
	seen := make(map[string]struct{}, len(answer.Pairs))
	for _, pair := range answer.Pairs {
		if _, dup := seen[pair.LeftID]; dup {
			return false, true
		}
		seen[pair.LeftID] = struct{}{}
		if want[pair.LeftID] != pair.RightID {
			return false, true
		}
	}
	return true, true
}

func compareOrdering(raw json.RawMessage, want []string) (correct, answered bool) {
	var answer models.OrderingAnswer
	if err := json.Unmarshal(raw, &answer); err != nil || len(answer.Order) == 0 {
		return false, false
	}

	if len(answer.Order) != len(want) {
		return false, true
	}
	for i, id := range answer.Order {
		if id != want[i] {
			return false, true
		}
	}
	return true, true
}

func essayAnswered(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var answer models.TextAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return false
	}
	return strings.TrimSpace(answer.Text) != ""
}

func boolPtr(b bool) *bool {
	return &b
}
