package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nguyentantai21042004/minutes-flow/internal/analysis"
	"github.com/nguyentantai21042004/minutes-flow/internal/events"
	"github.com/nguyentantai21042004/minutes-flow/internal/meeting"
)

// Process orchestrates one upload: Received -> Saved -> Analyzing -> Persisting -> Done.
func (p *implProcessor) Process(ctx context.Context, up Upload) (*Outcome, error) {
	startTime := time.Now()
	filename := filepath.Base(strings.TrimSpace(up.Filename))

	ctx, span := p.tracer.Start(ctx, "processor.Process", trace.WithAttributes(
		attribute.String("upload.filename", filename),
	))
	defer span.End()

	// Step 1: Reject before touching the disk
	if up.Body == nil || filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, p.fail(ctx, span, StageReceived, &UploadError{Reason: ReasonMissingFile})
	}
	if err := p.checkCredential(); err != nil {
		return nil, p.fail(ctx, span, StageReceived, err)
	}

	p.logger.Info(ctx, "Starting upload processing: %s", filename)

	// Step 2: Stage the payload under a per-request name
	stagedPath, err := p.saveUpload(ctx, up.Body, filename)
	if err != nil {
		return nil, p.fail(ctx, span, StageSave, err)
	}
	defer p.cleanupTempFile(ctx, stagedPath)

	p.metrics.UploadStarted()
	defer p.metrics.UploadFinished()

	// Step 3: Run the external analysis
	res, err := p.analyze(ctx, stagedPath)
	if err != nil {
		return nil, p.fail(ctx, span, StageAnalysis, err)
	}

	// Step 4: Persist the record
	rec := newRecord(filename, res)
	id, err := p.persist(ctx, rec)
	if err != nil {
		p.logger.Error(ctx, "Analysis of %s succeeded but the record was not stored: %v", filename, err)
		return nil, p.fail(ctx, span, StagePersist, err)
	}

	p.publishCreated(ctx, id, rec)
	p.metrics.ObserveUpload(StageDone, "ok")
	span.SetAttributes(attribute.Int64("meeting.id", id))

	p.logger.Info(ctx, "Processing completed: meeting %d from %s in %s", id, filename, time.Since(startTime))

	outcome := &Outcome{
		ID:       id,
		Filename: filename,
		Analysis: res,
	}
	if rec.Document != nil {
		outcome.Document = *rec.Document
	}
	return outcome, nil
}

func (p *implProcessor) Ready() error {
	if err := p.checkCredential(); err != nil {
		return &StageError{Stage: StageReceived, Err: err}
	}
	return nil
}

func (p *implProcessor) checkCredential() error {
	if strings.TrimSpace(p.cfg.Analysis.APIKey) == "" {
		return &UploadError{Reason: ReasonMissingCredential}
	}
	return nil
}

// saveUpload writes body to the staging directory. The name is random so
// concurrent uploads of the same file never collide.
func (p *implProcessor) saveUpload(ctx context.Context, body io.Reader, filename string) (string, error) {
	_, span := p.tracer.Start(ctx, "processor.save")
	defer span.End()

	if err := os.MkdirAll(p.cfg.Paths.Staging, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	stagedPath := filepath.Join(p.cfg.Paths.Staging, uuid.NewString()+strings.ToLower(filepath.Ext(filename)))
	f, err := os.OpenFile(stagedPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}

	n, copyErr := io.Copy(f, body)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		p.cleanupTempFile(ctx, stagedPath)
		if copyErr != nil {
			return "", fmt.Errorf("write staged file: %w", copyErr)
		}
		return "", fmt.Errorf("close staged file: %w", closeErr)
	}

	p.logger.Debug(ctx, "Saved upload %s to %s (%d bytes)", filename, stagedPath, n)
	return stagedPath, nil
}

func (p *implProcessor) analyze(ctx context.Context, stagedPath string) (*analysis.Result, error) {
	ctx, span := p.tracer.Start(ctx, "processor.analyze")
	defer span.End()

	if err := os.MkdirAll(p.cfg.Paths.Artifacts, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts dir: %w", err)
	}

	if err := p.sem.acquire(ctx); err != nil {
		return nil, fmt.Errorf("wait for analysis slot: %w", err)
	}
	defer p.sem.release()

	res, err := p.analyzer.Analyze(ctx, analysis.Request{
		AudioPath:  stagedPath,
		Credential: p.cfg.Analysis.APIKey,
		OutputDir:  p.cfg.Paths.Artifacts,
	})
	span.SetAttributes(attribute.String("analysis.outcome", analysis.Kind(err)))
	return res, err
}

func (p *implProcessor) persist(ctx context.Context, rec *meeting.Record) (int64, error) {
	ctx, span := p.tracer.Start(ctx, "processor.persist")
	defer span.End()

	return p.store.Insert(ctx, rec)
}

func (p *implProcessor) publishCreated(ctx context.Context, id int64, rec *meeting.Record) {
	ev := events.MeetingCreated{
		BaseEvent:       events.NewBaseEvent(ctx, "meeting.created"),
		MeetingID:       id,
		Filename:        rec.Filename,
		Document:        rec.Document,
		TopicCount:      len(rec.MeetingTopics),
		ActionItemCount: len(rec.NextSteps),
	}
	if err := p.publisher.PublishMeetingCreated(ctx, ev); err != nil {
		p.logger.Warn(ctx, "Failed to publish meeting.created for %d: %v", id, err)
	}
}

// fail records the failed stage and wraps err with it.
func (p *implProcessor) fail(ctx context.Context, span trace.Span, stage string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
	p.metrics.ObserveUpload(stage, "error")
	if stage != StagePersist {
		p.logger.Warn(ctx, "Upload failed at %s: %v", stage, err)
	}
	return &StageError{Stage: stage, Err: err}
}

// newRecord maps a successful analysis onto a record.
func newRecord(filename string, res *analysis.Result) *meeting.Record {
	transcription := res.Transcription
	summary := res.Data.Summary

	rec := &meeting.Record{
		Filename:      filename,
		Transcription: &transcription,
		Participants:  res.Data.Participants,
		KeyPoints:     res.Data.KeyPoints,
		NextSteps:     res.Data.NextSteps,
		MeetingTopics: res.Data.MeetingTopics,
		Summary:       &summary,
	}
	if res.DocumentPath != "" {
		doc := filepath.Base(res.DocumentPath)
		rec.Document = &doc
	}
	rec.Normalize()
	return rec
}
