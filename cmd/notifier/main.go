package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tazhibayda/posts-service/internal/config"
	"github.com/tazhibayda/posts-service/internal/log"
	"github.com/tazhibayda/posts-service/internal/metrics"
	"github.com/tazhibayda/posts-service/internal/notify"
	"github.com/tazhibayda/posts-service/internal/queue"
)

func main() {
	cfg := config.Load()

	logger, err := log.Init(cfg.Prod())
	if err != nil {
		stdlog.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if cfg.RabbitURL == "" {
		logger.Fatal("RABBIT_URL is required for the notifier")
	}
	cons, err := queue.NewConsumer(cfg.RabbitURL, cfg.Exchange, cfg.Queue, cfg.BindKey)
	if err != nil {
		logger.Fatal("rabbit consumer init failed", zap.Error(err)) // <- не даём программе идти дальше
	}
	defer cons.Close()

	metrics.MustRegister()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
			logger.Error("metrics listener", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("notifier up",
		zap.String("exchange", cfg.Exchange), zap.String("queue", cfg.Queue),
		zap.String("key", cfg.BindKey), zap.Int("workers", cfg.Concurrency))

	n := notify.New(notify.LogSender{})
	if err := cons.Consume(ctx, cfg.Concurrency, n.Handle); err != nil {
		logger.Fatal("consumer stopped", zap.Error(err))
	}
}
