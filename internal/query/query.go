// Package query is the read path over stored meeting records.
package query

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/nguyentantai21042004/minutes-flow/internal/logger"
	"github.com/nguyentantai21042004/minutes-flow/internal/meeting"
	"github.com/nguyentantai21042004/minutes-flow/internal/minutesdoc"
)

// Reader is the part of the store the query service needs.
type Reader interface {
	ListSummaries(ctx context.Context) ([]meeting.Summary, error)
	GetByID(ctx context.Context, id int64) (*meeting.Record, error)
}

// Service serves stored records. Get and Document return
// meeting.ErrNotFound for an unknown id.
type Service interface {
	List(ctx context.Context) ([]meeting.Summary, error)
	Get(ctx context.Context, id int64) (*meeting.Record, error)
	Document(ctx context.Context, id int64, dir string) (*Export, error)
}

// Export is one rendered minutes file. Path is unique per call and owned by
// the caller, who removes it once served. Name is the download name.
type Export struct {
	Path string
	Name string
}

type implService struct {
	reader Reader
	logger logger.Logger
}

func New(reader Reader, log logger.Logger) Service {
	return &implService{
		reader: reader,
		logger: log.With("component", "query"),
	}
}

func (s *implService) List(ctx context.Context) ([]meeting.Summary, error) {
	return s.reader.ListSummaries(ctx)
}

func (s *implService) Get(ctx context.Context, id int64) (*meeting.Record, error) {
	return s.reader.GetByID(ctx, id)
}

// Document renders the record's minutes into a fresh file under dir.
func (s *implService) Document(ctx context.Context, id int64, dir string) (*Export, error) {
	rec, err := s.reader.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	exp := &Export{
		Path: filepath.Join(dir, uuid.NewString()+".docx"),
		Name: strconv.FormatInt(id, 10) + "_" + minutesdoc.FileName(rec.Filename),
	}
	if err := minutesdoc.Write(minutesdoc.FromRecord(rec), exp.Path); err != nil {
		_ = os.Remove(exp.Path)
		return nil, fmt.Errorf("render minutes for meeting %d: %w", id, err)
	}

	s.logger.Debug(ctx, "Rendered minutes for meeting %d: %s", id, exp.Path)
	return exp, nil
}
