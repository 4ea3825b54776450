package diagnosis

import (
	"errors"
	"fmt"
)

// PublicMessage is the only failure text shown to end users.
const PublicMessage = "analysis failed, please try again"

// ErrorKind classifies why an analysis failed.
type ErrorKind string

const (
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindUpstreamTimeout     ErrorKind = "upstream_timeout"
	KindMalformedOutput     ErrorKind = "malformed_model_output"
	KindInvariantViolation  ErrorKind = "internal_invariant_violation"
	KindInvalidInput        ErrorKind = "invalid_input"
	KindUnknown             ErrorKind = "unknown"
)

// Stage names the orchestrator state an error came from.
type Stage string

const (
	StageResolve         Stage = "resolve"
	StageValidate        Stage = "validate"
	StageExplain         Stage = "explain"
	StageCheckConfidence Stage = "check_confidence"
	StageRefine          Stage = "refine"
	StageDone            Stage = "done"
	StageFailed          Stage = "failed"
)

// AnalysisError is the terminal failure of an analysis. It never carries a
// partial result.
type AnalysisError struct {
	Kind  ErrorKind
	Stage Stage
	Err   error
}

func (e *AnalysisError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("analysis failed at %s: %s", e.Stage, e.Kind)
	}
	return fmt.Sprintf("analysis failed at %s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// PublicMessage returns the user-safe message for this error.
func (e *AnalysisError) PublicMessage() string { return PublicMessage }

// KindOf returns the kind of err if it is (or wraps) an AnalysisError.
func KindOf(err error) ErrorKind {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

type invariantError struct{ msg string }

func (e *invariantError) Error() string { return "invariant violated: " + e.msg }

func errInvariant(format string, args ...any) error {
	return &invariantError{msg: fmt.Sprintf(format, args...)}
}
