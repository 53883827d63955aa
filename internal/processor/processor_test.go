package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nguyentantai21042004/minutes-flow/internal/analysis"
	"github.com/nguyentantai21042004/minutes-flow/internal/config"
	"github.com/nguyentantai21042004/minutes-flow/internal/events"
	"github.com/nguyentantai21042004/minutes-flow/internal/logger"
	"github.com/nguyentantai21042004/minutes-flow/internal/meeting"
)

type fakeAnalyzer struct {
	mu      sync.Mutex
	reqs    []analysis.Request
	analyze func(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return f.analyze(ctx, req)
}

func (f *fakeAnalyzer) calls() []analysis.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]analysis.Request(nil), f.reqs...)
}

type fakeStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*meeting.Record
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[int64]*meeting.Record)}
}

func (s *fakeStore) Insert(_ context.Context, rec *meeting.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, &meeting.StoreWriteError{Filename: rec.Filename, Err: s.err}
	}
	s.nextID++
	rec.ID = s.nextID
	s.records[rec.ID] = rec
	return rec.ID, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.MeetingCreated
	err    error
}

func (p *fakePublisher) PublishMeetingCreated(_ context.Context, ev events.MeetingCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

// successFor echoes the staged file contents into the transcription so
// concurrent tests can detect cross-contamination.
func successFor(_ context.Context, req analysis.Request) (*analysis.Result, error) {
	body, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return nil, err
	}
	data := analysis.StructuredData{
		Participants:  []meeting.Participant{meeting.StructuredEntry(meeting.ParticipantFields{Name: "Alice", Role: "Lead"})},
		Summary:       "summary of " + string(body),
		MeetingTopics: []string{"budget"},
	}
	data.Normalize()
	return &analysis.Result{
		Transcription: string(body),
		Data:          data,
		DocumentPath:  filepath.Join(req.OutputDir, "Meeting_Minutes_x.docx"),
	}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		Analysis: config.AnalysisConfig{APIKey: "key"},
		Paths: config.PathsConfig{
			Staging:   filepath.Join(root, "staging"),
			Artifacts: filepath.Join(root, "artifacts"),
			Failed:    filepath.Join(root, "failed"),
		},
	}
}

func stagedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestProcessSuccess(t *testing.T) {
	cfg := testConfig(t)
	analyzer := &fakeAnalyzer{analyze: successFor}
	store := newFakeStore()
	pub := &fakePublisher{}
	p := New(cfg, analyzer, store, pub, logger.NewNop(), nil)

	out, err := p.Process(context.Background(), Upload{Filename: "Weekly Sync.MP3", Body: strings.NewReader("hello")})
	require.NoError(t, err)

	assert.Equal(t, int64(1), out.ID)
	assert.Equal(t, "Weekly Sync.MP3", out.Filename)
	assert.Equal(t, "Meeting_Minutes_x.docx", out.Document)
	assert.Equal(t, "hello", out.Analysis.Transcription)

	rec := store.records[out.ID]
	require.NotNil(t, rec)
	assert.Equal(t, "Weekly Sync.MP3", rec.Filename)
	assert.Equal(t, "hello", *rec.Transcription)
	assert.Equal(t, "summary of hello", *rec.Summary)
	assert.Equal(t, []string{"budget"}, rec.MeetingTopics)
	assert.NotNil(t, rec.KeyPoints)

	calls := analyzer.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "key", calls[0].Credential)
	assert.Equal(t, cfg.Paths.Artifacts, calls[0].OutputDir)
	assert.Equal(t, ".mp3", filepath.Ext(calls[0].AudioPath))
	assert.NotContains(t, calls[0].AudioPath, "Weekly")
	assert.DirExists(t, cfg.Paths.Artifacts)

	assert.NoFileExists(t, calls[0].AudioPath)
	assert.Empty(t, stagedFiles(t, cfg.Paths.Staging))

	require.Len(t, pub.events, 1)
	assert.Equal(t, int64(1), pub.events[0].MeetingID)
	assert.Equal(t, 1, pub.events[0].TopicCount)
}

func TestProcessAnalysisFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{name: "process failure", err: &analysis.ProcessFailure{ExitCode: 1, Stderr: "boom"}, kind: analysis.KindProcessFailure},
		{name: "malformed output", err: &analysis.MalformedOutput{Raw: "junk", Err: errors.New("not json")}, kind: analysis.KindMalformedOutput},
		{name: "analysis failure", err: &analysis.AnalysisFailure{Message: "quota"}, kind: analysis.KindAnalysisFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			analyzer := &fakeAnalyzer{analyze: func(context.Context, analysis.Request) (*analysis.Result, error) {
				return nil, tt.err
			}}
			store := newFakeStore()
			pub := &fakePublisher{}
			p := New(cfg, analyzer, store, pub, logger.NewNop(), nil)

			out, err := p.Process(context.Background(), Upload{Filename: "a.wav", Body: strings.NewReader("x")})

			assert.Nil(t, out)
			assert.Equal(t, StageAnalysis, StageOf(err))
			assert.Equal(t, tt.kind, analysis.Kind(err))
			assert.Equal(t, 0, store.count())
			assert.Empty(t, pub.events)
			assert.Empty(t, stagedFiles(t, cfg.Paths.Staging))
		})
	}
}

func TestProcessMissingCredentialWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.APIKey = ""
	analyzer := &fakeAnalyzer{analyze: successFor}
	store := newFakeStore()
	p := New(cfg, analyzer, store, nil, logger.NewNop(), nil)

	_, err := p.Process(context.Background(), Upload{Filename: "a.mp3", Body: strings.NewReader("x")})

	var ue *UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, ReasonMissingCredential, ue.Reason)
	assert.Equal(t, StageReceived, StageOf(err))
	assert.NoDirExists(t, cfg.Paths.Staging)
	assert.Empty(t, analyzer.calls())
}

func TestProcessMissingFile(t *testing.T) {
	tests := []struct {
		name string
		up   Upload
	}{
		{name: "nil body", up: Upload{Filename: "a.mp3"}},
		{name: "empty filename", up: Upload{Body: strings.NewReader("x")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			p := New(cfg, &fakeAnalyzer{analyze: successFor}, newFakeStore(), nil, logger.NewNop(), nil)

			_, err := p.Process(context.Background(), tt.up)

			var ue *UploadError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, ReasonMissingFile, ue.Reason)
			assert.NoDirExists(t, cfg.Paths.Staging)
		})
	}
}

func TestProcessMissingFileReportedBeforeCredential(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.APIKey = ""
	p := New(cfg, &fakeAnalyzer{analyze: successFor}, newFakeStore(), nil, logger.NewNop(), nil)

	_, err := p.Process(context.Background(), Upload{})

	var ue *UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, ReasonMissingFile, ue.Reason)
}

func TestReady(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, &fakeAnalyzer{analyze: successFor}, newFakeStore(), nil, logger.NewNop(), nil)
	assert.NoError(t, p.Ready())

	cfg.Analysis.APIKey = "  "
	err := p.Ready()

	var ue *UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, ReasonMissingCredential, ue.Reason)
	assert.Equal(t, StageReceived, StageOf(err))
	assert.NoDirExists(t, cfg.Paths.Staging)
}

func TestProcessStoreWriteError(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeStore()
	store.err = errors.New("connection refused")
	pub := &fakePublisher{}
	p := New(cfg, &fakeAnalyzer{analyze: successFor}, store, pub, logger.NewNop(), nil)

	out, err := p.Process(context.Background(), Upload{Filename: "a.mp3", Body: strings.NewReader("x")})

	assert.Nil(t, out)
	assert.Equal(t, StagePersist, StageOf(err))
	var we *meeting.StoreWriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "a.mp3", we.Filename)
	assert.Equal(t, "unknown", analysis.Kind(err))
	assert.Empty(t, pub.events)
	assert.Empty(t, stagedFiles(t, cfg.Paths.Staging))
}

func TestProcessConcurrentUploads(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeStore()
	analyzer := &fakeAnalyzer{analyze: func(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
		time.Sleep(5 * time.Millisecond)
		return successFor(ctx, req)
	}}
	p := New(cfg, analyzer, store, nil, logger.NewNop(), nil)

	const n = 10
	outcomes := make([]*Outcome, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = p.Process(context.Background(), Upload{
				Filename: "same-name.mp3",
				Body:     strings.NewReader(fmt.Sprintf("payload-%d", i)),
			})
		}(i)
	}
	wg.Wait()

	ids := make(map[int64]bool)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, ids[outcomes[i].ID], "duplicate id %d", outcomes[i].ID)
		ids[outcomes[i].ID] = true

		rec := store.records[outcomes[i].ID]
		assert.Equal(t, fmt.Sprintf("payload-%d", i), *rec.Transcription)
	}

	paths := make(map[string]bool)
	for _, req := range analyzer.calls() {
		assert.False(t, paths[req.AudioPath], "staged path reused: %s", req.AudioPath)
		paths[req.AudioPath] = true
	}
	assert.Len(t, paths, n)
	assert.Empty(t, stagedFiles(t, cfg.Paths.Staging))
}

func TestProcessBoundsConcurrentAnalyses(t *testing.T) {
	cfg := testConfig(t)
	cfg.Performance.MaxConcurrent = 2

	var running, peak int32
	analyzer := &fakeAnalyzer{analyze: func(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
		now := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return successFor(ctx, req)
	}}
	p := New(cfg, analyzer, newFakeStore(), nil, logger.NewNop(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Process(context.Background(), Upload{Filename: "a.mp3", Body: strings.NewReader("x")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestProcessCancellationCleansUp(t *testing.T) {
	cfg := testConfig(t)
	started := make(chan string, 1)
	analyzer := &fakeAnalyzer{analyze: func(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
		started <- req.AudioPath
		<-ctx.Done()
		return nil, &analysis.ProcessFailure{ExitCode: -1, Err: ctx.Err()}
	}}
	store := newFakeStore()
	p := New(cfg, analyzer, store, nil, logger.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Process(ctx, Upload{Filename: "a.mp3", Body: strings.NewReader("x")})
		done <- err
	}()

	staged := <-started
	assert.FileExists(t, staged)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, analysis.KindProcessFailure, analysis.Kind(err))
	case <-time.After(5 * time.Second):
		t.Fatal("Process did not return after cancel")
	}
	assert.NoFileExists(t, staged)
	assert.Equal(t, 0, store.count())
}

func TestProcessCleanupFailureDoesNotMaskSuccess(t *testing.T) {
	cfg := testConfig(t)
	analyzer := &fakeAnalyzer{analyze: func(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
		res, err := successFor(ctx, req)
		_ = os.Remove(req.AudioPath)
		return res, err
	}}
	p := New(cfg, analyzer, newFakeStore(), nil, logger.NewNop(), nil)

	out, err := p.Process(context.Background(), Upload{Filename: "a.mp3", Body: strings.NewReader("x")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.ID)
}

func TestProcessPublishFailureIsAbsorbed(t *testing.T) {
	cfg := testConfig(t)
	pub := &fakePublisher{err: errors.New("redis down")}
	p := New(cfg, &fakeAnalyzer{analyze: successFor}, newFakeStore(), pub, logger.NewNop(), nil)

	out, err := p.Process(context.Background(), Upload{Filename: "a.mp3", Body: strings.NewReader("x")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.ID)
	assert.Len(t, pub.events, 1)
}

func TestProcessFile(t *testing.T) {
	t.Run("success removes inbox file", func(t *testing.T) {
		cfg := testConfig(t)
		store := newFakeStore()
		p := New(cfg, &fakeAnalyzer{analyze: successFor}, store, nil, logger.NewNop(), nil)

		inbox := filepath.Join(t.TempDir(), "standup.m4a")
		require.NoError(t, os.WriteFile(inbox, []byte("audio"), 0o644))

		require.NoError(t, p.ProcessFile(context.Background(), inbox))
		assert.NoFileExists(t, inbox)
		assert.Equal(t, 1, store.count())
		assert.Equal(t, "standup.m4a", store.records[1].Filename)
	})

	t.Run("failure moves to failed folder", func(t *testing.T) {
		cfg := testConfig(t)
		analyzer := &fakeAnalyzer{analyze: func(context.Context, analysis.Request) (*analysis.Result, error) {
			return nil, &analysis.AnalysisFailure{Message: "no speech"}
		}}
		p := New(cfg, analyzer, newFakeStore(), nil, logger.NewNop(), nil)

		inbox := filepath.Join(t.TempDir(), "silence.wav")
		require.NoError(t, os.WriteFile(inbox, []byte("audio"), 0o644))

		err := p.ProcessFile(context.Background(), inbox)
		assert.Equal(t, analysis.KindAnalysisFailure, analysis.Kind(err))
		assert.NoFileExists(t, inbox)
		assert.FileExists(t, filepath.Join(cfg.Paths.Failed, "silence.wav"))
	})

	t.Run("missing file", func(t *testing.T) {
		cfg := testConfig(t)
		p := New(cfg, &fakeAnalyzer{analyze: successFor}, newFakeStore(), nil, logger.NewNop(), nil)

		err := p.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "gone.mp3"))
		assert.Error(t, err)
	})
}

func TestSemaphore(t *testing.T) {
	var unbounded *semaphore
	require.NoError(t, unbounded.acquire(context.Background()))
	unbounded.release()

	s := newSemaphore(1)
	require.NoError(t, s.acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.acquire(ctx), context.DeadlineExceeded)

	s.release()
	assert.NoError(t, s.acquire(context.Background()))
}
