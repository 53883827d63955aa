package processor

import (
	"context"
	"io"

	"github.com/nguyentantai21042004/minutes-flow/internal/analysis"
	"github.com/nguyentantai21042004/minutes-flow/internal/meeting"
)

// Processor coordinates one upload from received payload to stored record.
type Processor interface {
	// Process runs save, analyze and persist for one upload. Every error
	// is a *StageError naming the stage that failed.
	Process(ctx context.Context, up Upload) (*Outcome, error)
	// Ready reports whether uploads can currently be accepted. It needs no
	// payload, so callers can reject a request before reading its body.
	Ready() error
	// ProcessFile feeds a file from the drop folder through Process.
	ProcessFile(ctx context.Context, path string) error
}

// Analyzer runs the external analysis for one staged file.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// RecordWriter appends a record and returns its id.
type RecordWriter interface {
	Insert(ctx context.Context, rec *meeting.Record) (int64, error)
}

// Upload is one received file. Filename is the client-supplied name.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Outcome is returned only after the record is committed.
type Outcome struct {
	ID       int64
	Filename string
	Document string
	Analysis *analysis.Result
}
