package analysis

import (
	"fmt"
	"strings"
)

// Outcome labels, also used as metric label values and in API responses.
const (
	KindInput           = "input_error"
	KindProcessFailure  = "process_failure"
	KindMalformedOutput = "malformed_output"
	KindAnalysisFailure = "analysis_failure"
	KindSuccess         = "success"
)

// InputError reports a request the job was never started for.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid analysis input %s: %s", e.Field, e.Reason)
}

// ProcessFailure reports that the job did not terminate normally.
// ExitCode is -1 when it was killed or could not be started.
type ProcessFailure struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessFailure) Error() string {
	msg := fmt.Sprintf("analysis process failed with code %d", e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProcessFailure) Unwrap() error { return e.Err }

// MalformedOutput reports that the job exited cleanly but stdout did not
// hold a valid envelope. Raw is the captured stdout.
type MalformedOutput struct {
	Raw string
	Err error
}

func (e *MalformedOutput) Error() string {
	return fmt.Sprintf("failed to parse analysis output: %v", e.Err)
}

func (e *MalformedOutput) Unwrap() error { return e.Err }

// AnalysisFailure reports an envelope with success=false.
type AnalysisFailure struct {
	Message string
}

func (e *AnalysisFailure) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "no error message"
	}
	return "analysis failed: " + msg
}
