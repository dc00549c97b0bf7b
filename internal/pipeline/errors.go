package pipeline

import "fmt"

// StageError tags a failure with the pipeline stage it happened in and,
// when candidate-scoped, the candidate involved. Candidate-scoped errors
// are logged and isolated; only orchestration-level errors propagate out of
// Process.
type StageError struct {
	Stage       string
	CandidateID string
	Err         error
}

func (e *StageError) Error() string {
	if e.CandidateID != "" {
		return fmt.Sprintf("%s: candidate %s: %v", e.Stage, e.CandidateID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
