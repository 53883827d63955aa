package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nguyentantai21042004/minutes-flow/internal/logger"
)

// audioExtensions are the recording formats picked up from the inbox.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".wav":  true,
	".ogg":  true,
	".flac": true,
	".webm": true,
	".aac":  true,
}

type implWatcher struct {
	dir       string
	handler   Handler
	logger    logger.Logger
	fsw       *fsnotify.Watcher
	opts      Options
	semaphore chan struct{}
	wg        sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
}

func (w *implWatcher) Start(ctx context.Context) error {
	w.logger.Info(ctx, "Inbox watcher started (max concurrent: %d). Monitoring: %s", w.opts.MaxConcurrent, w.dir)

	defer func() {
		w.wg.Wait()
		w.logger.Info(ctx, "Inbox watcher stopped")
	}()

	if err := w.drainExisting(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Waiting for in-flight recordings...")
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !IsAudioFile(event.Name) {
				w.logger.Debug(ctx, "Ignoring non-audio file: %s", event.Name)
				continue
			}

			w.logger.Info(ctx, "New recording detected: %s", event.Name)
			if err := w.dispatch(ctx, event.Name, w.opts.SettleDelay); err != nil {
				return err
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error(ctx, "Watcher error: %v", err)
		}
	}
}

func (w *implWatcher) Stop() error {
	return w.fsw.Close()
}

// drainExisting dispatches recordings that were dropped while the
// service was down, oldest name first.
func (w *implWatcher) drainExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsAudioFile(e.Name()) {
			paths = append(paths, filepath.Join(w.dir, e.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) > 0 {
		w.logger.Info(ctx, "Found %d recordings already in inbox", len(paths))
	}
	for _, p := range paths {
		if err := w.dispatch(ctx, p, 0); err != nil {
			return err
		}
	}
	return nil
}

// dispatch hands path to the handler in its own goroutine. The goroutine
// waits settle for the writer to finish, then for a free slot. A path
// already being handled is skipped.
func (w *implWatcher) dispatch(ctx context.Context, path string, settle time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !w.claim(path) {
		w.logger.Debug(ctx, "Already processing %s", path)
		return nil
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.release(path)

		if err := sleepCtx(ctx, settle); err != nil {
			return
		}

		select {
		case w.semaphore <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-w.semaphore }()

		if err := w.handler(ctx, path); err != nil {
			w.logger.Error(ctx, "Failed to process %s: %v", path, err)
		}
	}()
	return nil
}

func (w *implWatcher) claim(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.inflight[path]; ok {
		return false
	}
	w.inflight[path] = struct{}{}
	return true
}

func (w *implWatcher) release(path string) {
	w.mu.Lock()
	delete(w.inflight, path)
	w.mu.Unlock()
}

// IsAudioFile reports whether path has a supported recording extension.
func IsAudioFile(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
