package gemini

import (
	"context"

	"github.com/nguyentantai21042004/minutes-flow/internal/analysis"
)

// Analyzer turns a meeting recording into a transcript and structured minutes.
type Analyzer interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
	Structure(ctx context.Context, transcript string) (*analysis.StructuredData, error)
}
