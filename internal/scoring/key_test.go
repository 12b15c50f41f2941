package scoring

import (
	"errors"
	"reflect"
	"testing"

	apperrors "github.com/quizforge/quiz-service/internal/errors"
	"github.com/quizforge/quiz-service/internal/models"
	"gorm.io/datatypes"
)

func question(id uint, qtype models.QuestionType, content string) *models.Question {
	return &models.Question{
		ID:      id,
		Type:    qtype,
		Text:    "question text",
		Points:  2,
		Content: datatypes.JSON(content),
	}
}

func TestNormalize_MultipleChoice(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantOption string
		wantErr    bool
	}{
		{
			name:       "valid",
			content:    `{"options":[{"id":"a","text":"Paris"},{"id":"b","text":"Lyon"}],"correct_answer":"a"}`,
			wantOption: "a",
		},
		{
			name:    "correct answer not an option",
			content: `{"options":[{"id":"a","text":"Paris"},{"id":"b","text":"Lyon"}],"correct_answer":"z"}`,
			wantErr: true,
		},
		{
			name:    "missing correct answer",
			content: `{"options":[{"id":"a","text":"Paris"},{"id":"b","text":"Lyon"}]}`,
			wantErr: true,
		},
		{
			name:    "single option",
			content: `{"options":[{"id":"a","text":"Paris"}],"correct_answer":"a"}`,
			wantErr: true,
		},
		{
			name:    "duplicate option ids",
			content: `{"options":[{"id":"a","text":"Paris"},{"id":"a","text":"Lyon"}],"correct_answer":"a"}`,
			wantErr: true,
		},
		{
			name:    "option without text",
			content: `{"options":[{"id":"a","text":""},{"id":"b","text":"Lyon"}],"correct_answer":"a"}`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			key, err := Normalize(question(1, models.MultipleChoice, tc.content))
			if tc.wantErr {
				requireValidationError(t, err)
				return
			}
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if key.Option != tc.wantOption {
				t.Errorf("Option = %q, want %q", key.Option, tc.wantOption)
			}
		})
	}
}

func TestNormalize_TrueFalse(t *testing.T) {
	key, err := Normalize(question(1, models.TrueFalse, `{"correct_answer":true}`))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if key.Option != "true" {
		t.Errorf("Option = %q, want %q", key.Option, "true")
	}

	key, err = Normalize(question(1, models.TrueFalse, `{"correct_answer":false}`))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if key.Option != "false" {
		t.Errorf("Option = %q, want %q", key.Option, "false")
	}
}

func TestNormalize_Keywords(t *testing.T) {
	tests := []struct {
		name    string
		qtype   models.QuestionType
		content string
		want    []string
		wantErr bool
	}{
		{
			name:    "short answer comma separated",
			qtype:   models.ShortAnswer,
			content: `{"keywords":"Paris, capital of France ,PARIS"}`,
			want:    []string{"paris", "capital of france", "paris"},
		},
		{
			name:    "short answer empty",
			qtype:   models.ShortAnswer,
			content: `{"keywords":" , ,"}`,
			wantErr: true,
		},
		{
			name:    "fill in blank",
			qtype:   models.FillInBlank,
			content: `{"template":"The capital is ___","keywords":"paris"}`,
			want:    []string{"paris"},
		},
		{
			name:    "fill in blank without template",
			qtype:   models.FillInBlank,
			content: `{"template":"  ","keywords":"paris"}`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			key, err := Normalize(question(1, tc.qtype, tc.content))
			if tc.wantErr {
				requireValidationError(t, err)
				return
			}
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if !reflect.DeepEqual(key.Keywords, tc.want) {
				t.Errorf("Keywords = %v, want %v", key.Keywords, tc.want)
			}
		})
	}
}

func TestNormalize_SelectAll(t *testing.T) {
	content := `{"options":[{"id":"a","text":"2"},{"id":"b","text":"3"},{"id":"c","text":"4"}],"correct_answers":["a","b"]}`
	key, err := Normalize(question(1, models.SelectAll, content))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	want := map[string]struct{}{"a": {}, "b": {}}
	if !reflect.DeepEqual(key.Options, want) {
		t.Errorf("Options = %v, want %v", key.Options, want)
	}

	_, err = Normalize(question(1, models.SelectAll,
		`{"options":[{"id":"a","text":"2"},{"id":"b","text":"3"}],"correct_answers":[]}`))
	requireValidationError(t, err)

	_, err = Normalize(question(1, models.SelectAll,
		`{"options":[{"id":"a","text":"2"},{"id":"b","text":"3"}],"correct_answers":["z"]}`))
	requireValidationError(t, err)
}

func TestNormalize_Matching(t *testing.T) {
	valid := `{
		"left_items":[{"id":"l1","text":"France"},{"id":"l2","text":"Italy"}],
		"right_items":[{"id":"r1","text":"Paris"},{"id":"r2","text":"Rome"}],
		"correct_pairs":[{"left_id":"l1","right_id":"r1"},{"left_id":"l2","right_id":"r2"}]}`

	key, err := Normalize(question(1, models.Matching, valid))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if key.Pairs["l1"] != "r1" || key.Pairs["l2"] != "r2" {
		t.Errorf("Pairs = %v", key.Pairs)
	}

	tests := []struct {
		name    string
		content string
	}{
		{
			name: "unknown left item",
			content: `{
				"left_items":[{"id":"l1","text":"France"},{"id":"l2","text":"Italy"}],
				"right_items":[{"id":"r1","text":"Paris"},{"id":"r2","text":"Rome"}],
				"correct_pairs":[{"left_id":"zz","right_id":"r1"}]}`,
		},
		{
			name: "duplicate left pairing",
			content: `{
				"left_items":[{"id":"l1","text":"France"},{"id":"l2","text":"Italy"}],
				"right_items":[{"id":"r1","text":"Paris"},{"id":"r2","text":"Rome"}],
				"correct_pairs":[{"left_id":"l1","right_id":"r1"},{"left_id":"l1","right_id":"r2"}]}`,
		},
		{
			name: "too few items",
			content: `{
				"left_items":[{"id":"l1","text":"France"}],
				"right_items":[{"id":"r1","text":"Paris"}],
				"correct_pairs":[{"left_id":"l1","right_id":"r1"}]}`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(question(1, models.Matching, tc.content))
			requireValidationError(t, err)
		})
	}
}

func TestNormalize_Ordering(t *testing.T) {
	valid := `{
		"items":[{"id":"i1","text":"first"},{"id":"i2","text":"second"},{"id":"i3","text":"third"}],
		"correct_order":["i2","i1","i3"]}`

	key, err := Normalize(question(1, models.Ordering, valid))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if !reflect.DeepEqual(key.Order, []string{"i2", "i1", "i3"}) {
		t.Errorf("Order = %v", key.Order)
	}

	tests := []struct {
		name    string
		content string
	}{
		{
			name: "order misses an item",
			content: `{
				"items":[{"id":"i1","text":"first"},{"id":"i2","text":"second"}],
				"correct_order":["i1"]}`,
		},
		{
			name: "order duplicates an item",
			content: `{
				"items":[{"id":"i1","text":"first"},{"id":"i2","text":"second"}],
				"correct_order":["i1","i1"]}`,
		},
		{
			name: "order references unknown item",
			content: `{
				"items":[{"id":"i1","text":"first"},{"id":"i2","text":"second"}],
				"correct_order":["i1","zz"]}`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(question(1, models.Ordering, tc.content))
			requireValidationError(t, err)
		})
	}
}

func TestNormalize_Essay(t *testing.T) {
	if _, err := Normalize(question(1, models.Essay, `{}`)); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if _, err := Normalize(question(1, models.Essay, `{"min_words":50,"max_words":200}`)); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	_, err := Normalize(question(1, models.Essay, `{"min_words":200,"max_words":50}`))
	requireValidationError(t, err)
}

func TestNormalize_Deterministic(t *testing.T) {
	q := question(7, models.MultipleChoice,
		`{"options":[{"id":"a","text":"Paris"},{"id":"b","text":"Lyon"}],"correct_answer":"a"}`)

	first, err := Normalize(q)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	second, err := Normalize(q)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Normalize is not deterministic: %v vs %v", first, second)
	}
}

func TestNormalizeAll_CollectsDefects(t *testing.T) {
	questions := []models.Question{
		*question(1, models.MultipleChoice, `{"options":[{"id":"a","text":"x"},{"id":"b","text":"y"}],"correct_answer":"a"}`),
		*question(2, models.ShortAnswer, `{"keywords":""}`),
		*question(3, models.TrueFalse, `{"correct_answer":true}`),
		*question(4, models.Ordering, `{"items":[{"id":"i1","text":"a"},{"id":"i2","text":"b"}],"correct_order":["i1"]}`),
	}

	_, err := NormalizeAll(questions)
	var errs apperrors.ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 collected defects, got %d: %v", len(errs), errs)
	}
}

func requireValidationError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a validation error, got nil")
	}
	var ve *apperrors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
}
