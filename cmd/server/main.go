package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/posts-service/docs"
	"github.com/tazhibayda/posts-service/internal/config"
	httpapi "github.com/tazhibayda/posts-service/internal/http"
	"github.com/tazhibayda/posts-service/internal/log"
	"github.com/tazhibayda/posts-service/internal/metrics"
	"github.com/tazhibayda/posts-service/internal/queue"
	"github.com/tazhibayda/posts-service/internal/repo"
	"github.com/tazhibayda/posts-service/internal/security"
	"github.com/tazhibayda/posts-service/internal/service"
)

type backend interface {
	service.PostStore
	service.UserStore
	httpapi.Pinger
}

// @title Posts API
// @version 0.1.0
// @description Topic posts with expiry, likes, dislikes and comments.
// @schemes http https
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()

	logger, err := log.Init(cfg.Prod())
	if err != nil {
		stdlog.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if cfg.DDEnabled {
		tracer.Start(tracer.WithService("posts-service"), tracer.WithEnv(cfg.Env))
		defer tracer.Stop()
	}
	metrics.MustRegister()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var store backend
	switch cfg.Driver {
	case "memory":
		logger.Warn("using in-memory store, data is lost on restart")
		store = repo.NewMemStore()
	default:
		ms, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			logger.Fatal("mongo connect", zap.Error(err))
		}
		defer ms.Close(context.Background())
		if err := ms.EnsureIndexes(ctx); err != nil {
			logger.Fatal("mongo indexes", zap.Error(err))
		}
		store = ms
	}

	pub := queue.NewNoop()
	if cfg.RabbitURL != "" {
		pub, err = queue.NewRabbit(cfg.RabbitURL, cfg.Exchange)
		if err != nil {
			logger.Fatal("rabbit publisher", zap.Error(err))
		}
	}
	defer pub.Close()

	var limiter httpapi.Limiter = httpapi.NewRateLimiter(cfg.RateLimitPerMin, time.Minute)
	if cfg.RedisAddr != "" {
		rds := repo.NewRedis(cfg.RedisAddr)
		if err := rds.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, rate limiting per instance", zap.Error(err))
		} else {
			defer rds.Close()
			limiter = httpapi.RedisLimiter{R: rds, Limit: cfg.RateLimitPerMin, Window: time.Minute}
		}
	}

	var verifier security.Verifier
	switch {
	case cfg.AuthJWKSURL != "":
		verifier = security.NewFetcher(cfg.AuthJWKSURL, cfg.JWKSCacheTTL())
	case cfg.JWTSecret != "":
		verifier = security.HMACVerifier{Secret: cfg.JWTSecret}
	default:
		logger.Fatal("either JWT or AUTH_JWKS_URL must be set")
	}

	posts := service.NewPosts(store, pub, cfg.Exchange, cfg.CommentMaxLen)
	var users *service.Users
	if cfg.JWTSecret != "" {
		users = &service.Users{Store: store, JWTSecret: cfg.JWTSecret, AccessTTL: cfg.AccessTTL()}
	}

	docs.SwaggerInfo.BasePath = "/"

	h := httpapi.NewHandler(posts, users, store)
	r := httpapi.NewRouter(h, verifier, limiter)

	root, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if every := cfg.SweepEvery(); every > 0 {
		logger.Info("expiry sweeper on", zap.Duration("every", every))
		go posts.RunSweeper(root, every)
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.ListenAndServe() }()

	logger.Info("posts-service listening", zap.String("port", cfg.Port), zap.String("store", cfg.Driver))

	// graceful shutdown
	select {
	case <-root.Done():
		logger.Info("shutting down")
	case err := <-srvErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
