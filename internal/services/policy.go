package services

// CheckAttemptLimit decides whether a student may start another attempt,
// given the quiz's configured maximum and the number of submissions the
// student already has. A maximum of 0 means unlimited attempts.
//
// Only completed submissions count against the limit; an in-progress
// session is a resume, not a new attempt, and is handled before this gate.
func CheckAttemptLimit(maxAttempts, submissionCount int) error {
	if maxAttempts == 0 {
		return nil
	}
	if submissionCount >= maxAttempts {
		return &AttemptLimitError{Used: submissionCount, Limit: maxAttempts}
	}
	return nil
}
