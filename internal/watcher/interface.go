package watcher

import "context"

// Watcher feeds recordings dropped into a folder to a Handler.
type Watcher interface {
	// Start drains files already in the folder, then watches for new ones
	// until ctx is done. It waits for in-flight handlers before returning.
	Start(ctx context.Context) error
	Stop() error
}

// Handler processes one recording path.
type Handler func(ctx context.Context, path string) error
