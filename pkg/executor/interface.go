package executor

import "context"

// Executor defines the interface for executing external commands
type Executor interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}
