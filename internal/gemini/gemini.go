// Package gemini implements meeting analysis on the Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/nguyentantai21042004/minutes-flow/internal/analysis"
)

// maxTranscriptRunes caps the transcript sent for structuring.
const maxTranscriptRunes = 30000

const transcribePrompt = `Transcribe this meeting recording verbatim.
Return only the transcript text. Start a new line whenever the speaker changes.`

const structurePrompt = `You are a professional meeting secretary. Read the meeting transcript and
organize it into structured JSON. Pay particular attention to each participant's
responsibilities and to who owns each action item.

Return JSON matching this schema:
{
  "meeting_topics": ["topic 1", "topic 2"],
  "participants": [{"name": "name", "role": "title or responsibility in the meeting"}],
  "key_points": [{"title": "key point title", "content": "details"}],
  "next_steps": [{"action": "concrete action item", "owner": "owner or coordinator"}],
  "summary": "a 100-200 word summary of the meeting"
}

Meeting transcript:
---
%s
---`

var errNoKeys = errors.New("no Gemini API key configured")

// Transcribe uploads the recording, waits until it is ready and asks the
// model for a verbatim transcript.
func (a *implAnalyzer) Transcribe(ctx context.Context, audioPath string) (string, error) {
	var text string
	err := a.withClient(ctx, func(client *genai.Client) error {
		file, err := a.uploadAudio(ctx, client, audioPath)
		if err != nil {
			return err
		}
		defer a.deleteFile(ctx, client, file.Name)

		contents := []*genai.Content{
			genai.NewContentFromParts([]*genai.Part{
				genai.NewPartFromURI(file.URI, file.MIMEType),
				genai.NewPartFromText(transcribePrompt),
			}, genai.RoleUser),
		}

		resp, err := client.Models.GenerateContent(ctx, a.model, contents, nil)
		if err != nil {
			return fmt.Errorf("generate transcript: %w", err)
		}
		text = strings.TrimSpace(resp.Text())
		if text == "" {
			return fmt.Errorf("empty transcript from Gemini")
		}
		return nil
	})
	return text, err
}

// Structure asks the model for structured minutes as JSON.
func (a *implAnalyzer) Structure(ctx context.Context, transcript string) (*analysis.StructuredData, error) {
	prompt := fmt.Sprintf(structurePrompt, truncateRunes(transcript, maxTranscriptRunes))

	var data *analysis.StructuredData
	err := a.withClient(ctx, func(client *genai.Client) error {
		resp, err := client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		})
		if err != nil {
			return fmt.Errorf("generate content: %w", err)
		}
		data, err = ParseStructured(resp.Text())
		return err
	})
	return data, err
}

// withClient runs fn with a client for the current key and moves on to the
// next key when the current one is rate limited.
func (a *implAnalyzer) withClient(ctx context.Context, fn func(*genai.Client) error) error {
	if len(a.apiKeys) == 0 {
		return errNoKeys
	}

	var lastErr error
	for range len(a.apiKeys) {
		key := a.apiKeys[a.currentKey]

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			lastErr = fmt.Errorf("create client: %w", err)
			a.rotateKey()
			continue
		}

		err = fn(client)
		if err == nil {
			return nil
		}
		if !isRateLimited(err) {
			return err
		}

		a.logger.Warn(ctx, "Key %d rate limited, rotating...", a.currentKey+1)
		a.rotateKey()
		lastErr = err
	}

	return fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (a *implAnalyzer) uploadAudio(ctx context.Context, client *genai.Client, audioPath string) (*genai.File, error) {
	a.logger.Info(ctx, "Uploading %s to Gemini", filepath.Base(audioPath))

	file, err := client.Files.UploadFromPath(ctx, audioPath, &genai.UploadFileConfig{
		MIMEType:    audioMIMEType(audioPath),
		DisplayName: filepath.Base(audioPath),
	})
	if err != nil {
		return nil, fmt.Errorf("upload audio: %w", err)
	}

	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.pollInterval):
		}
		a.logger.Debug(ctx, "Waiting for %s to become active", file.Name)
		if file, err = client.Files.Get(ctx, file.Name, nil); err != nil {
			return nil, fmt.Errorf("poll uploaded file: %w", err)
		}
	}

	if file.State == genai.FileStateFailed {
		return nil, fmt.Errorf("audio processing failed on Gemini for %s", file.Name)
	}
	return file, nil
}

func (a *implAnalyzer) deleteFile(ctx context.Context, client *genai.Client, name string) {
	if _, err := client.Files.Delete(ctx, name, nil); err != nil {
		a.logger.Warn(ctx, "Failed to delete uploaded file %s: %v", name, err)
	}
}

func (a *implAnalyzer) rotateKey() {
	a.currentKey = (a.currentKey + 1) % len(a.apiKeys)
}

func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

// ParseStructured decodes the model's JSON answer, tolerating a Markdown
// code fence around it.
func ParseStructured(text string) (*analysis.StructuredData, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var data analysis.StructuredData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("decode structured response: %w", err)
	}
	data.Normalize()
	return &data, nil
}

func audioMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".webm":
		return "audio/webm"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
