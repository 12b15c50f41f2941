package services

import (
	"errors"
	"testing"
)

func TestCheckAttemptLimit(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
		submissions int
		wantErr     bool
	}{
		{"zero means unlimited", 0, 100, false},
		{"first attempt allowed", 1, 0, false},
		{"limit reached", 1, 1, true},
		{"over the limit", 1, 2, true},
		{"under a higher limit", 3, 2, false},
		{"at a higher limit", 3, 3, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckAttemptLimit(tc.maxAttempts, tc.submissions)
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("CheckAttemptLimit(%d, %d) = %v, want nil", tc.maxAttempts, tc.submissions, err)
				}
				return
			}
			if !errors.Is(err, ErrAttemptLimitReached) {
				t.Fatalf("expected ErrAttemptLimitReached, got %v", err)
			}
		})
	}
}

func TestCheckAttemptLimit_ErrorDetails(t *testing.T) {
	err := CheckAttemptLimit(2, 5)

	var limitErr *AttemptLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected *AttemptLimitError, got %T", err)
	}
	if limitErr.Used != 5 {
		t.Errorf("Used = %d, want 5", limitErr.Used)
	}
	if limitErr.Limit != 2 {
		t.Errorf("Limit = %d, want 2", limitErr.Limit)
	}
}
