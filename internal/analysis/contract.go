// Package analysis owns the boundary with the external analysis job:
// the JSON envelope it prints and the classification of each run.
package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nguyentantai21042004/minutes-flow/internal/meeting"
)

// CredentialEnv is the environment variable the job reads its API key from.
const CredentialEnv = "GEMINI_API_KEY"

// ModelEnv optionally selects the model the job uses.
const ModelEnv = "MINUTES_GEMINI_MODEL"

// OutputDirFlag names the directory the job writes its artifact into.
const OutputDirFlag = "--output-dir"

// StructuredData is the structured part of a successful analysis.
type StructuredData struct {
	Participants  []meeting.Participant `json:"participants"`
	KeyPoints     []meeting.KeyPoint    `json:"key_points"`
	NextSteps     []meeting.NextStep    `json:"next_steps"`
	Summary       string                `json:"summary"`
	MeetingTopics []string              `json:"meeting_topics"`
}

// Normalize replaces nil lists with empty ones.
func (d *StructuredData) Normalize() {
	if d.Participants == nil {
		d.Participants = []meeting.Participant{}
	}
	if d.KeyPoints == nil {
		d.KeyPoints = []meeting.KeyPoint{}
	}
	if d.NextSteps == nil {
		d.NextSteps = []meeting.NextStep{}
	}
	if d.MeetingTopics == nil {
		d.MeetingTopics = []string{}
	}
}

// Envelope is the single JSON document the job prints on stdout.
// Success is a pointer so a missing field can be told apart from false.
type Envelope struct {
	Success        *bool           `json:"success"`
	Filename       string          `json:"filename,omitempty"`
	Transcription  string          `json:"transcription,omitempty"`
	StructuredData *StructuredData `json:"structured_data,omitempty"`
	Error          string          `json:"error,omitempty"`
	DocPath        string          `json:"doc_path,omitempty"`
}

// SuccessEnvelope builds the envelope a job prints after a good run.
func SuccessEnvelope(filename, transcription string, data StructuredData, docPath string) Envelope {
	ok := true
	data.Normalize()
	return Envelope{
		Success:        &ok,
		Filename:       filename,
		Transcription:  transcription,
		StructuredData: &data,
		DocPath:        docPath,
	}
}

// FailureEnvelope builds the envelope a job prints when analysis failed.
func FailureEnvelope(msg string) Envelope {
	ok := false
	return Envelope{Success: &ok, Error: msg}
}

// ParseEnvelope decodes stdout into an Envelope.
// Exactly one JSON object is accepted, optionally surrounded by whitespace.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty output")
	}
	if trimmed[0] != '{' {
		return nil, errors.New("output is not a JSON object")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var env Envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected content after envelope")
	}

	if env.Success == nil {
		return nil, errors.New("envelope has no success field")
	}
	if *env.Success && env.StructuredData == nil {
		return nil, errors.New("successful envelope has no structured_data")
	}
	if env.StructuredData != nil {
		env.StructuredData.Normalize()
	}

	return &env, nil
}
