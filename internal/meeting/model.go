// Package meeting holds the persisted meeting record and its entry types.
package meeting

import "time"

// Record is the structured outcome of analyzing one uploaded recording.
// It is created once and never updated.
type Record struct {
	ID            int64         `json:"id"`
	Filename      string        `json:"filename"`
	Transcription *string       `json:"transcription"`
	Participants  []Participant `json:"participants"`
	KeyPoints     []KeyPoint    `json:"key_points"`
	NextSteps     []NextStep    `json:"next_steps"`
	MeetingTopics []string      `json:"meeting_topics"`
	Summary       *string       `json:"summary"`
	Document      *string       `json:"document,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Summary is the listing view of a Record.
type Summary struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
	Summary   *string   `json:"summary"`
}

// Normalize replaces nil list fields with empty slices so they encode as [].
func (r *Record) Normalize() {
	if r.Participants == nil {
		r.Participants = []Participant{}
	}
	if r.KeyPoints == nil {
		r.KeyPoints = []KeyPoint{}
	}
	if r.NextSteps == nil {
		r.NextSteps = []NextStep{}
	}
	if r.MeetingTopics == nil {
		r.MeetingTopics = []string{}
	}
}
