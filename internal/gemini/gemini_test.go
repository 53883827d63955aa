package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nguyentantai21042004/minutes-flow/internal/logger"
)

func TestSplitKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitKeys(" a, ,b,"))
	assert.Nil(t, SplitKeys(""))
}

func TestParseStructured(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "plain json", input: `{"summary":"ok","participants":[{"name":"Alice","role":"Lead"}]}`},
		{name: "fenced json", input: "```json\n{\"summary\":\"ok\"}\n```"},
		{name: "bare fence", input: "```\n{\"summary\":\"ok\"}\n```"},
		{name: "empty", input: "  ", wantErr: true},
		{name: "not json", input: "Sorry, I cannot help", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ParseStructured(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", data.Summary)
			assert.NotNil(t, data.KeyPoints)
			assert.NotNil(t, data.MeetingTopics)
		})
	}
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, isRateLimited(errors.New("Error 429, Message: too many requests")))
	assert.True(t, isRateLimited(errors.New("RESOURCE_EXHAUSTED")))
	assert.True(t, isRateLimited(errors.New("quota exceeded for metric")))
	assert.False(t, isRateLimited(errors.New("invalid argument")))
}

func TestAudioMIMEType(t *testing.T) {
	assert.Equal(t, "audio/mpeg", audioMIMEType("a.MP3"))
	assert.Equal(t, "audio/mp4", audioMIMEType("/x/y.m4a"))
	assert.Equal(t, "application/octet-stream", audioMIMEType("noext"))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "會議", truncateRunes("會議記錄", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Len(t, []rune(truncateRunes(strings.Repeat("x", 40000), maxTranscriptRunes)), maxTranscriptRunes)
}

func TestWithClientNoKeys(t *testing.T) {
	a := New(nil, "", logger.NewNop())
	_, err := a.Structure(context.Background(), "hello")
	assert.ErrorIs(t, err, errNoKeys)
}

func TestRotateKey(t *testing.T) {
	a := New([]string{"k1", "k2"}, "", logger.NewNop()).(*implAnalyzer)
	assert.Equal(t, DefaultModel, a.model)
	a.rotateKey()
	assert.Equal(t, 1, a.currentKey)
	a.rotateKey()
	assert.Equal(t, 0, a.currentKey)
}
