package pipeline

import "fmt"

// Stage names the pipeline step an error came from.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageLoad      Stage = "load"
	StageAssemble  Stage = "assemble"
	StageJoin      Stage = "join"
	StageAggregate Stage = "aggregate"
	StagePersist   Stage = "persist"
	StageCache     Stage = "cache"
)

// StageError wraps a pipeline failure with the stage and, for per-state
// steps, the state it happened in. errors.As reaches the wrapped error, so
// callers can still match a *domain.MissingColumnError.
type StageError struct {
	Stage Stage
	State string
	Err   error
}

func (e *StageError) Error() string {
	if e.State != "" {
		return fmt.Sprintf("%s %s: %v", e.Stage, e.State, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageError(stage Stage, state string, err error) error {
	return &StageError{Stage: stage, State: state, Err: err}
}
