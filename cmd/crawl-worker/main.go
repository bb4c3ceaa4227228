package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/recipepipe/crawl-worker/internal/core"
	"github.com/recipepipe/crawl-worker/internal/crawl"
	"github.com/recipepipe/crawl-worker/internal/metrics"
	"github.com/recipepipe/crawl-worker/internal/rabbit"
	"github.com/recipepipe/crawl-worker/internal/retry"
	"github.com/recipepipe/crawl-worker/internal/scheduler"
	"github.com/recipepipe/crawl-worker/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := server.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := rabbit.Dial(ctx, cfg.AMQPURL, cfg.DialTimeout, logger)
	if err != nil {
		logger.Error("failed to connect to broker", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	policy := core.NewPolicyTable(cfg.MaxAttempts)

	topo := rabbit.Topology{
		PrimaryQueue:    cfg.CrawlQueue,
		ResultsQueue:    cfg.ResultsQueue,
		FailedQueue:     cfg.FailedQueue,
		Strategy:        rabbit.DelayStrategy(cfg.DelayStrategy),
		DelayedExchange: cfg.DelayedExchange,
		Ladder:          policy.DistinctDelays(),
	}

	// Topology must exist before the first delivery is consumed. A conflict
	// with pre-existing topology is a fatal startup error, not a retryable
	// one.
	if err := rabbit.EnsureTopology(client.Channel(), topo); err != nil {
		logger.Error("topology bootstrap failed", "error", err)
		os.Exit(1)
	}
	if err := client.Qos(cfg.PrefetchCount); err != nil {
		logger.Error("failed to set prefetch", "error", err)
		os.Exit(1)
	}
	logger.Info("broker topology ready",
		"primary", cfg.CrawlQueue,
		"failed", cfg.FailedQueue,
		"strategy", cfg.DelayStrategy,
	)

	router, err := rabbit.NewDelayRouter(client.Channel(), topo)
	if err != nil {
		logger.Error("failed to build delay router", "error", err)
		os.Exit(1)
	}
	sink := rabbit.NewFailureSink(client.Channel(), cfg.FailedQueue, logger)
	results := rabbit.NewResultsPublisher(client.Channel(), cfg.ResultsQueue)

	extractor := crawl.NewOEmbedExtractor(cfg.ExtractorEndpoint, cfg.ExtractorTimeout)
	handler := crawl.NewHandler(extractor, results, logger)
	coordinator := retry.New(handler, policy, router, sink, logger)

	metrics.Init(core.Version, cfg.DelayStrategy)

	sched := scheduler.New(client.Channel(), []string{cfg.CrawlQueue, cfg.FailedQueue}, logger)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start depth sampler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	var ready atomic.Bool
	opsServer := &http.Server{
		Addr:    ":" + cfg.OpsPort,
		Handler: server.NewRouter(ready.Load),
	}
	go func() {
		logger.Info("ops server listening", "port", cfg.OpsPort)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server error", "error", err)
		}
	}()

	deliveries, err := client.Consume(cfg.CrawlQueue)
	if err != nil {
		logger.Error("failed to start consuming", "error", err)
		os.Exit(1)
	}
	ready.Store(true)
	logger.Info("worker consuming", "queue", cfg.CrawlQueue, "prefetch", cfg.PrefetchCount)

	runErr := make(chan error, 1)
	go func() {
		runErr <- coordinator.Run(ctx, deliveries)
	}()

	connClosed := client.NotifyClose()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
		ready.Store(false)
		cancel()
		<-runErr
	case amqpErr := <-connClosed:
		// The ack/publish invariants cannot be upheld without the broker;
		// die and let the supervisor restart us.
		logger.Error("broker connection lost", "error", amqpErr)
		exitCode = 1
	case err := <-runErr:
		if err != nil {
			logger.Error("coordinator stopped", "error", err)
			exitCode = 1
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "error", err)
	}

	logger.Info("worker stopped")
	os.Exit(exitCode)
}
