package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/stock-keeper/internal/adapter/handler"
	"github.com/rl1809/stock-keeper/internal/adapter/metrics"
	"github.com/rl1809/stock-keeper/internal/adapter/storage"
	"github.com/rl1809/stock-keeper/internal/config"
	"github.com/rl1809/stock-keeper/internal/core/domain"
	"github.com/rl1809/stock-keeper/internal/core/service"
	"github.com/rl1809/stock-keeper/internal/logging"
	"github.com/rl1809/stock-keeper/internal/port"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "stock-keeper",
		Short:        "Session-scoped in-memory inventory tracker",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	return root
}

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inventory API over HTTP and gRPC",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// Initialize cache
	var cache port.CacheRepository = storage.NewMemoryAdapter()
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
		cache = storage.NewRedisAdapter(rdb)
	}

	// Initialize metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	// Initialize service
	sessions := service.NewSessionService(cache, logger, service.Options{
		IdleTTL:   cfg.Session.IdleTTL,
		QueueSize: cfg.Events.QueueSize,
	})

	// Start event workers
	var wg sync.WaitGroup
	for i := 0; i < cfg.Events.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, sessions.Events(), recorder, logger)
		}(i)
	}
	logger.Info("started event workers", zap.Int("count", cfg.Events.Workers))

	// Start reaper
	reapCtx, stopReaper := context.WithCancel(context.Background())
	reaperDone := make(chan struct{})
	go func() {
		defer close(reaperDone)
		reapLoop(reapCtx, sessions, cfg.Session.ReapInterval, logger)
	}()

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterInventoryServiceServer(grpcServer, handler.NewGRPCHandler(sessions, logger))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(handler.InventoryServiceName, healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPC.Addr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	mux := http.NewServeMux()
	handler.NewHTTPHandler(sessions, logger, cfg.Session.SeedExamples).Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: mux,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	stopReaper()
	<-reaperDone

	// Close event queue and wait for workers
	sessions.Shutdown()
	wg.Wait()
	logger.Info("event workers stopped")

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Warn("close redis", zap.Error(err))
		}
	}
	logger.Info("connections closed")
	return nil
}

func workerLoop(id int, events <-chan domain.Event, recorder *metrics.Recorder, logger *zap.Logger) {
	for ev := range events {
		recorder.Observe(ev)

		fields := []zap.Field{
			zap.Int("worker", id),
			zap.String("event", string(ev.Type)),
			zap.String("session_id", ev.SessionID),
		}
		if ev.RecordName != "" {
			fields = append(fields, zap.String("record", ev.RecordName))
		}
		if ev.Kind != "" {
			fields = append(fields, zap.String("kind", string(ev.Kind)))
		}
		logger.Debug("session activity", fields...)
	}
}

func reapLoop(ctx context.Context, sessions *service.SessionService, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.Reap(ctx)
			if err != nil {
				logger.Error("reap sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("reaped idle sessions", zap.Int("count", n))
			}
		}
	}
}
