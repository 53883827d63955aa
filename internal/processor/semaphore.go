package processor

import "context"

// semaphore bounds concurrent analysis jobs. A nil semaphore never blocks.
type semaphore struct {
	ch chan struct{}
}

// newSemaphore returns nil for capacity <= 0.
func newSemaphore(capacity int) *semaphore {
	if capacity <= 0 {
		return nil
	}
	return &semaphore{
		ch: make(chan struct{}, capacity),
	}
}

// acquire blocks until a slot is free or ctx is done.
func (s *semaphore) acquire(ctx context.Context) error {
	if s == nil {
		return ctx.Err()
	}
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *semaphore) release() {
	if s == nil {
		return
	}
	<-s.ch
}
