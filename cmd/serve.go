package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/open-crosspost/scheduler-service/internal/archive"
	"github.com/open-crosspost/scheduler-service/internal/config"
	"github.com/open-crosspost/scheduler-service/internal/engine"
	"github.com/open-crosspost/scheduler-service/internal/events"
	"github.com/open-crosspost/scheduler-service/internal/heartbeat"
	"github.com/open-crosspost/scheduler-service/internal/httpapi"
	"github.com/open-crosspost/scheduler-service/internal/queue"
	"github.com/open-crosspost/scheduler-service/internal/queue/memqueue"
	"github.com/open-crosspost/scheduler-service/internal/queue/redisqueue"
	"github.com/open-crosspost/scheduler-service/internal/store"
	"github.com/open-crosspost/scheduler-service/internal/store/memstore"
	"github.com/open-crosspost/scheduler-service/internal/store/pg"
	"github.com/open-crosspost/scheduler-service/internal/tracing"
	"github.com/open-crosspost/scheduler-service/internal/worker"
)

func serveCmd() *cobra.Command {
	var standalone bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the delivery worker, and the DLQ monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), standalone)
		},
	}
	cmd.Flags().BoolVar(&standalone, "standalone", false, "run against in-memory store and queue instead of Postgres/Redis (no persistence across restarts)")
	return cmd
}

func runServe(ctx context.Context, standalone bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !standalone {
		if err := cfg.RequirePostgresURL(); err != nil {
			return err
		}
	}

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{Endpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")})
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	var jobStore store.JobStore
	var deliveryLog store.DeliveryLogStore
	var dispatchQueue queue.DispatchQueue
	var closers []func() error

	if standalone {
		slog.Warn("running in --standalone mode: jobs and deliveries are not persisted across restarts")
		jobStore = memstore.New()
		deliveryLog = memstore.NewDeliveryLogStore()
		dispatchQueue = memqueue.New()
	} else {
		db, err := pg.OpenDB(cfg.PostgresURL)
		if err != nil {
			return err
		}
		closers = append(closers, db.Close)
		jobStore = pg.NewJobStore(db)
		deliveryLog = pg.NewDeliveryLogStore(db)

		redisClient := redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		})
		closers = append(closers, redisClient.Close)
		dispatchQueue = redisqueue.New(redisClient)
	}
	defer func() {
		for _, closeFn := range closers {
			_ = closeFn()
		}
	}()

	bus := events.New()
	coordinator := engine.New(jobStore, dispatchQueue)

	var archiver *archive.Archiver
	if cfg.ArchiveBucket != "" {
		archiver, err = archive.New(ctx, cfg.ArchiveBucket)
		if err != nil {
			return err
		}
	}

	w := worker.New(jobStore, dispatchQueue, cfg.AllowedTargetHosts).WithDeliveryLog(deliveryLog)
	if archiver != nil {
		w = w.WithArchiver(archiver)
	}

	dlqPollInterval, err := time.ParseDuration(cfg.DLQPollInterval)
	if err != nil {
		return err
	}
	monitor := heartbeat.NewService(heartbeat.Config{
		Interval:  dlqPollInterval,
		Threshold: cfg.DLQThreshold,
	}, coordinator, bus)

	server := httpapi.NewServer(coordinator, deliveryLog, cfg.AuthToken, cfg.AllowedOrigins, bus)

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		w.Run(runCtx, 2*time.Second)
	}()
	monitor.Start()
	defer monitor.Stop()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: server,
	}

	go func() {
		<-runCtx.Done()
		slog.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown", "error", err)
		}
	}()

	slog.Info("scheduler-service listening", "port", cfg.Port)
	err = httpServer.ListenAndServe()
	cancel()
	<-workerDone
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
