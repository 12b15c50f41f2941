package models

// Submitted answer payload shapes, one per question type. Stored raw as
// SessionAnswer.AnswerData / SubmissionAnswer.AnswerData and decoded by the
// scoring package according to the question's type.

// SelectionAnswer covers multiple_choice (option ID) and true_false
// (literal "true"/"false").
type SelectionAnswer struct {
	Selected string `json:"selected"`
}

// MultiSelectionAnswer covers select_all.
type MultiSelectionAnswer struct {
	Selected []string `json:"selected"`
}

// TextAnswer covers short_answer, fill_in_blank and essay.
type TextAnswer struct {
	Text string `json:"text"`
}

// MatchingAnswer carries the student's left→right pairing.
type MatchingAnswer struct {
	Pairs []MatchPair `json:"pairs"`
}

// OrderingAnswer carries item IDs in the student's chosen order.
type OrderingAnswer struct {
	Order []string `json:"order"`
}
