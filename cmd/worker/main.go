package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/unclebandit/clippilot-backend/internal/config"
	"github.com/unclebandit/clippilot-backend/internal/logging"
	"github.com/unclebandit/clippilot-backend/internal/metrics"
	"github.com/unclebandit/clippilot-backend/internal/queue"
	"github.com/unclebandit/clippilot-backend/internal/service"
)

// The worker consumes post.published events from RabbitMQ.
func main() {
	conf, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(conf.Log.Level)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if conf.AMQP.URL == "" {
		logger.Fatal("AMQP_URL is required")
	}
	q, err := queue.DialAMQP(conf.AMQP.URL, logger)
	if err != nil {
		logger.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	worker := service.NewWorker(service.LogAnnouncer{Logger: logger}, m, logger)
	if err := worker.Start(q, conf.AMQP.Queue); err != nil {
		logger.Fatal("failed to start worker", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: ":" + getenv("WORKER_METRICS_PORT", "9091"), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info("worker running, waiting for messages", zap.String("queue", conf.AMQP.Queue))
	<-ctx.Done()

	logger.Info("worker shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	if err := q.Close(); err != nil {
		logger.Error("closing queue", zap.Error(err))
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
