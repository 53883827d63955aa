package analysis

import "context"

// Invoker runs one external analysis job and classifies its outcome.
type Invoker interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}
