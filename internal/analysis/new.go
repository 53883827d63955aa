package analysis

import (
	"github.com/nguyentantai21042004/minutes-flow/internal/config"
	"github.com/nguyentantai21042004/minutes-flow/internal/logger"
	"github.com/nguyentantai21042004/minutes-flow/internal/metrics"
	"github.com/nguyentantai21042004/minutes-flow/pkg/executor"
)

type implInvoker struct {
	cfg      config.AnalysisConfig
	executor executor.Executor
	logger   logger.Logger
	metrics  *metrics.Metrics
}

// New creates a new Invoker instance. m may be nil.
func New(cfg config.AnalysisConfig, exec executor.Executor, log logger.Logger, m *metrics.Metrics) Invoker {
	return &implInvoker{
		cfg:      cfg,
		executor: exec,
		logger:   log.With("component", "analysis"),
		metrics:  m,
	}
}
