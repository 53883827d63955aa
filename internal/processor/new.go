package processor

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/nguyentantai21042004/minutes-flow/internal/config"
	"github.com/nguyentantai21042004/minutes-flow/internal/events"
	"github.com/nguyentantai21042004/minutes-flow/internal/logger"
	"github.com/nguyentantai21042004/minutes-flow/internal/metrics"
)

const tracerName = "github.com/nguyentantai21042004/minutes-flow/internal/processor"

type implProcessor struct {
	cfg       *config.Config
	analyzer  Analyzer
	store     RecordWriter
	publisher events.Publisher
	logger    logger.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	sem       *semaphore
}

// New creates a new Processor instance.
// publisher and m may be nil.
func New(cfg *config.Config, analyzer Analyzer, store RecordWriter, publisher events.Publisher, log logger.Logger, m *metrics.Metrics) Processor {
	if publisher == nil {
		publisher = events.NewNop()
	}
	return &implProcessor{
		cfg:       cfg,
		analyzer:  analyzer,
		store:     store,
		publisher: publisher,
		logger:    log.With("component", "processor"),
		metrics:   m,
		tracer:    otel.Tracer(tracerName),
		sem:       newSemaphore(cfg.Performance.MaxConcurrent),
	}
}
