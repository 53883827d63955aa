// Package httpapi exposes the upload and query endpoints over gin.
package httpapi

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nguyentantai21042004/minutes-flow/internal/logger"
	"github.com/nguyentantai21042004/minutes-flow/internal/processor"
	"github.com/nguyentantai21042004/minutes-flow/internal/query"
	"github.com/nguyentantai21042004/minutes-flow/internal/version"
)

// ServiceName is reported by /version.
const ServiceName = "minutesd"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the router. Zero values disable the related feature.
type Options struct {
	MaxUploadBytes int64
	ArtifactsDir   string
	ExportsDir     string
	Gatherer       prometheus.Gatherer
}

type handler struct {
	processor processor.Processor
	query     query.Service
	health    Pinger
	logger    logger.Logger
	opts      Options
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(proc processor.Processor, q query.Service, health Pinger, log logger.Logger, opts Options) *gin.Engine {
	h := &handler{
		processor: proc,
		query:     q,
		health:    health,
		logger:    log.With("component", "http"),
		opts:      opts,
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(h.logger))

	api := router.Group("/api")
	{
		api.POST("/upload", h.upload)
		api.GET("/meetings", h.listMeetings)
		api.GET("/meetings/:id", h.getMeeting)
		api.GET("/meetings/:id/document", h.meetingDocument)
		api.GET("/download/:filename", h.download)
	}

	router.GET("/healthz", h.healthz)
	router.GET("/version", gin.WrapF(version.Handler(ServiceName)))
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	return router
}
