package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookfeed/internal/app"
	"bookfeed/internal/book"
	"bookfeed/internal/domain"
	"bookfeed/internal/infra"
	"bookfeed/internal/infra/ws"
	"bookfeed/internal/pipeline"

	_ "net/http/pprof" // For pprof profiling
)

const (
	reconnectPoll   = 2 * time.Second
	metricsInterval = 60 * time.Second
)

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := bootstrap.Config

	// 4. Pipeline wiring: publisher, engine + transport factories, controller
	publisher := pipeline.NewPublisher()
	controller := pipeline.NewController(
		cfg.Feed.Depth,
		book.Factory(),
		ws.Factory(cfg.Feed.WSURL),
		publisher,
	)
	defer controller.Close()

	initial := bootstrap.InitialInstrument()
	if err := controller.SwitchInstrument(ctx, initial); err != nil {
		slog.Error("Failed to start session", slog.String("symbol", initial.Symbol), slog.Any("error", err))
		os.Exit(1)
	}
	if err := bootstrap.Storage.TouchWatched(initial.Symbol); err != nil {
		slog.Warn("Failed to record watched instrument", slog.Any("error", err))
	}
	slog.InfoContext(ctx, "Session started",
		slog.String("symbol", initial.Symbol), slog.Int("depth", cfg.Feed.Depth))

	// 5. Caller-level reconnect policy. The pipeline core never retries; this
	// loop rebuilds the session (forcing a fresh snapshot) with backoff when
	// the published state reports a disconnect.
	go reconnectLoop(ctx, controller, publisher)

	// 6. Periodic metrics log
	go logMetrics(ctx)

	slog.InfoContext(ctx, "bookfeed operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.Info("Shutting down gracefully...")
}

func reconnectLoop(ctx context.Context, controller *pipeline.Controller, publisher *pipeline.Publisher) {
	ticker := time.NewTicker(reconnectPoll)
	defer ticker.Stop()

	retry := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if publisher.View().ConnState != domain.StateDisconnected {
			retry = 0
			continue
		}

		delay := infra.CalculateBackoff(retry)
		retry++
		slog.Info("Reconnecting feed", slog.Int("attempt", retry), slog.Duration("backoff", delay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		if err := controller.Reconnect(ctx); err != nil {
			slog.Warn("Reconnect failed", slog.Any("error", err))
			continue
		}
		if publisher.View().ConnState == domain.StateConnected {
			retry = 0
		}
	}
}

func logMetrics(ctx context.Context) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := infra.GlobalMetrics.Snapshot()
			slog.Info("pipeline metrics",
				slog.Uint64("enqueued", snap.MessagesEnqueued),
				slog.Uint64("applied", snap.MessagesApplied),
				slog.Uint64("dropped", snap.MessagesDropped),
				slog.Uint64("ignored", snap.MessagesIgnored),
				slog.Uint64("integrity_failures", snap.IntegrityFailures),
				slog.Uint64("errors", snap.ErrorsTotal),
				slog.Int64("avg_apply_ns", snap.AvgApplyLatencyNs),
				slog.Bool("connected", snap.Connected),
			)
		}
	}
}
