package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/nguyentantai21042004/minutes-flow/internal/analysis"
	"github.com/nguyentantai21042004/minutes-flow/internal/config"
	"github.com/nguyentantai21042004/minutes-flow/internal/events"
	"github.com/nguyentantai21042004/minutes-flow/internal/httpapi"
	"github.com/nguyentantai21042004/minutes-flow/internal/logger"
	"github.com/nguyentantai21042004/minutes-flow/internal/metrics"
	"github.com/nguyentantai21042004/minutes-flow/internal/processor"
	"github.com/nguyentantai21042004/minutes-flow/internal/query"
	"github.com/nguyentantai21042004/minutes-flow/internal/store"
	"github.com/nguyentantai21042004/minutes-flow/internal/version"
	"github.com/nguyentantai21042004/minutes-flow/internal/watcher"
	"github.com/nguyentantai21042004/minutes-flow/pkg/executor"
)

// processWaitDelay bounds how long a cancelled analysis job may keep its
// output pipes open.
const processWaitDelay = 5 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the inbox watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info(ctx, "Starting %s %s (%s/%s, %d CPUs)", httpapi.ServiceName, version.Version, runtime.GOOS, runtime.GOARCH, runtime.NumCPU())

	if err := ensureDirectories(cfg); err != nil {
		return err
	}

	// Step 1: Store and schema
	st, err := store.New(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := st.Init(ctx)
	if err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	log.Info(ctx, "Schema ready (%d applied, %d already present)", len(res.Applied), len(res.Skipped))

	// Step 2: Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		st.Collector(),
	)
	m := metrics.New(reg)

	// Step 3: Pipeline
	publisher := newPublisher(ctx, cfg, log)
	defer publisher.Close()

	invoker := analysis.New(cfg.Analysis, executor.New(processWaitDelay), log, m)
	proc := processor.New(cfg, invoker, st, publisher, log, m)
	if cfg.Analysis.APIKey == "" {
		log.Warn(ctx, "No analysis credential configured; uploads will be rejected until %s is set", analysis.CredentialEnv)
	}

	// Step 4: HTTP
	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(proc, query.New(st, log), st, log, httpapi.Options{
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
		ArtifactsDir:   cfg.Paths.Artifacts,
		ExportsDir:     cfg.Paths.Exports,
		Gatherer:       reg,
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 2)
	go func() {
		log.Info(ctx, "Listening on %s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Step 5: Inbox watcher
	watchDone := make(chan struct{})
	if cfg.Paths.Inbox != "" {
		w, err := watcher.New(cfg.Paths.Inbox, proc.ProcessFile, log, watcher.Options{
			MaxConcurrent: cfg.Performance.MaxConcurrent,
		})
		if err != nil {
			return err
		}
		defer w.Stop()

		go func() {
			defer close(watchDone)
			if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- fmt.Errorf("inbox watcher: %w", err)
			}
		}()
	} else {
		close(watchDone)
	}

	select {
	case <-ctx.Done():
		log.Info(ctx, "Shutdown signal received")
	case err := <-errChan:
		log.Error(ctx, "Fatal: %v", err)
		shutdown(srv, cfg.HTTP.ShutdownTimeout, log)
		return err
	}

	shutdown(srv, cfg.HTTP.ShutdownTimeout, log)
	<-watchDone
	log.Info(ctx, "Stopped")
	return nil
}

func shutdown(srv *http.Server, timeout time.Duration, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.Info(ctx, "Draining HTTP connections (timeout %s)", timeout)
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn(ctx, "HTTP shutdown: %v", err)
	}
}

// newPublisher falls back to a no-op publisher when redis is not
// configured or not reachable at startup.
func newPublisher(ctx context.Context, cfg *config.Config, log logger.Logger) events.Publisher {
	if cfg.Events.RedisAddr == "" {
		return events.NewNop()
	}
	pub, err := events.NewRedisPublisher(ctx, cfg.Events.RedisAddr, cfg.Events.Channel, log)
	if err != nil {
		log.Warn(ctx, "Event publishing disabled: %v", err)
		return events.NewNop()
	}
	return pub
}

// ensureDirectories creates the working folders if they do not exist.
func ensureDirectories(cfg *config.Config) error {
	dirs := []string{cfg.Paths.Staging, cfg.Paths.Artifacts, cfg.Paths.Failed, cfg.Paths.Exports, cfg.Paths.Inbox}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
