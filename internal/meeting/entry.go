package meeting

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entry is either a bare text value or a structured object of type F.
// Exactly one form is set: Fields != nil means structured.
type Entry[F any] struct {
	Text   string
	Fields *F
}

// TextEntry builds the bare-text form.
func TextEntry[F any](text string) Entry[F] {
	return Entry[F]{Text: text}
}

// StructuredEntry builds the structured form.
func StructuredEntry[F any](fields F) Entry[F] {
	return Entry[F]{Fields: &fields}
}

// IsStructured reports whether e holds the structured form.
func (e Entry[F]) IsStructured() bool {
	return e.Fields != nil
}

func (e Entry[F]) MarshalJSON() ([]byte, error) {
	if e.Fields != nil {
		return json.Marshal(e.Fields)
	}
	return json.Marshal(e.Text)
}

func (e *Entry[F]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty entry")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = Entry[F]{Text: s}
		return nil
	case '{':
		var f F
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*e = Entry[F]{Fields: &f}
		return nil
	default:
		return fmt.Errorf("entry must be a string or an object, got %s", truncate(data, 32))
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

type ParticipantFields struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type KeyPointFields struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type NextStepFields struct {
	Action string `json:"action"`
	Owner  string `json:"owner"`
}

// Participant is a bare name or a {name, role} pair.
type Participant = Entry[ParticipantFields]

// KeyPoint is free text or a {title, content} pair.
type KeyPoint = Entry[KeyPointFields]

// NextStep is free text or an {action, owner} pair.
type NextStep = Entry[NextStepFields]

// DecodeList decodes a serialized JSON array column.
// NULL or empty input yields an empty, non-nil slice.
func DecodeList[T any](raw []byte) ([]T, error) {
	out := []T{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return []T{}, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// EncodeList serializes a list column; nil encodes as [].
func EncodeList[T any](items []T) ([]byte, error) {
	if items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(items)
}
