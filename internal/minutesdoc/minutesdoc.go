// Package minutesdoc renders meeting minutes as a .docx document.
package minutesdoc

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"

	"github.com/nguyentantai21042004/minutes-flow/internal/meeting"
)

const (
	fontName = "Times New Roman"
	fontSize = 12
)

// Minutes is the content of one minutes document.
type Minutes struct {
	Title        string
	Topics       []string
	Participants []meeting.Participant
	KeyPoints    []meeting.KeyPoint
	NextSteps    []meeting.NextStep
	Summary      string
}

// FromRecord builds minutes from a stored record.
func FromRecord(rec *meeting.Record) Minutes {
	m := Minutes{
		Title:        rec.Filename,
		Topics:       rec.MeetingTopics,
		Participants: rec.Participants,
		KeyPoints:    rec.KeyPoints,
		NextSteps:    rec.NextSteps,
	}
	if rec.Summary != nil {
		m.Summary = *rec.Summary
	}
	return m
}

// FileName returns the artifact name for a source recording.
func FileName(source string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return "Meeting_Minutes_" + base + ".docx"
}

// Write renders m to outputPath.
func Write(m Minutes, outputPath string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	addStyledRun(doc.AddParagraph(""), m.Title+" Meeting Minutes", true, 16)

	if len(m.Topics) > 0 {
		addHeading(doc.AddParagraph(""), "Meeting Topics")
		for _, topic := range m.Topics {
			addStyledRun(doc.AddParagraph(""), "• "+topic, false, fontSize)
		}
	}

	addHeading(doc.AddParagraph(""), "Participants")
	for _, line := range ParticipantLines(m.Participants) {
		addStyledRun(doc.AddParagraph(""), "• "+line, false, fontSize)
	}

	addHeading(doc.AddParagraph(""), "Key Points")
	for i, kp := range m.KeyPoints {
		p := doc.AddParagraph("")
		if kp.IsStructured() {
			addStyledRun(p, fmt.Sprintf("%d. %s: ", i+1, kp.Fields.Title), true, fontSize)
			addStyledRun(p, kp.Fields.Content, false, fontSize)
			continue
		}
		addStyledRun(p, fmt.Sprintf("%d. %s", i+1, kp.Text), false, fontSize)
	}

	addHeading(doc.AddParagraph(""), "Next Steps")
	for _, line := range NextStepLines(m.NextSteps) {
		addStyledRun(doc.AddParagraph(""), "• "+line, false, fontSize)
	}

	if m.Summary != "" {
		addHeading(doc.AddParagraph(""), "Summary")
		addStyledRun(doc.AddParagraph(""), m.Summary, false, fontSize)
	}

	return doc.SaveTo(outputPath)
}

// ParticipantLines formats participants as "Name (Role)" or the bare name.
func ParticipantLines(items []meeting.Participant) []string {
	lines := make([]string, 0, len(items))
	for _, p := range items {
		switch {
		case !p.IsStructured():
			lines = append(lines, p.Text)
		case p.Fields.Role != "":
			lines = append(lines, fmt.Sprintf("%s (%s)", p.Fields.Name, p.Fields.Role))
		default:
			lines = append(lines, p.Fields.Name)
		}
	}
	return lines
}

// NextStepLines formats action items as "Action - Owner" or the bare text.
func NextStepLines(items []meeting.NextStep) []string {
	lines := make([]string, 0, len(items))
	for _, s := range items {
		switch {
		case !s.IsStructured():
			lines = append(lines, s.Text)
		case s.Fields.Owner != "":
			lines = append(lines, fmt.Sprintf("%s - %s", s.Fields.Action, s.Fields.Owner))
		default:
			lines = append(lines, s.Fields.Action)
		}
	}
	return lines
}

func addHeading(p *docx.Paragraph, text string) {
	addStyledRun(p, text, true, 14)
}

func addStyledRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}
