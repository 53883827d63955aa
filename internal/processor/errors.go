package processor

import (
	"errors"
	"fmt"
)

// Stages of one upload.
const (
	StageReceived = "received"
	StageSave     = "save"
	StageAnalysis = "analysis"
	StagePersist  = "persist"
	StageDone     = "done"
)

// Reason classifies an UploadError.
type Reason string

const (
	ReasonMissingFile       Reason = "missing_file"
	ReasonMissingCredential Reason = "missing_credential"
)

// UploadError reports an upload rejected before any file was written.
type UploadError struct {
	Reason Reason
}

func (e *UploadError) Error() string {
	switch e.Reason {
	case ReasonMissingFile:
		return "no file uploaded"
	case ReasonMissingCredential:
		return "analysis credential is not configured"
	default:
		return fmt.Sprintf("upload rejected: %s", e.Reason)
	}
}

// StageError attaches the failing stage to an error.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageOf returns the stage carried by err, or "" if there is none.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
