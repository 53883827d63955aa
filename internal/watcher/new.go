package watcher

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nguyentantai21042004/minutes-flow/internal/logger"
)

const (
	defaultMaxConcurrent = 2
	defaultSettleDelay   = 500 * time.Millisecond
)

// Options tunes a Watcher. Zero values fall back to defaults.
type Options struct {
	MaxConcurrent int
	// SettleDelay is how long to wait after a create event before handing
	// the file over, so writers can finish.
	SettleDelay time.Duration
}

// New watches dir and hands every audio file to handler.
func New(dir string, handler Handler, log logger.Logger, opts Options) (Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = defaultSettleDelay
	}

	return &implWatcher{
		dir:       dir,
		handler:   handler,
		logger:    log.With("component", "watcher"),
		fsw:       fsw,
		opts:      opts,
		semaphore: make(chan struct{}, opts.MaxConcurrent),
		inflight:  make(map[string]struct{}),
	}, nil
}
