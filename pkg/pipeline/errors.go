package pipeline

import "fmt"

// Stages that can originate a pipeline error.
const (
	StageTransport   = "transport"
	StageRecognition = "recognition"
	StageSynthesis   = "synthesis"
	StageDialog      = "dialog"
)

// StageError tags an error with the component it originated in, so the
// session owner can decide between recovery and teardown.
type StageError struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline [%s]: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// stageErr wraps err with its originating stage, passing nil through.
func stageErr(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
