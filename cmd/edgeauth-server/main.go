package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/edgeauth"
	"github.com/MrEthical07/edgeauth/internal/config"
	"github.com/MrEthical07/edgeauth/internal/httpapi"
	"github.com/MrEthical07/edgeauth/internal/obs"
	"github.com/MrEthical07/edgeauth/kv"
	otelexport "github.com/MrEthical07/edgeauth/metrics/export/otel"
	promexport "github.com/MrEthical07/edgeauth/metrics/export/prometheus"
	"go.uber.org/zap"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("EDGEAUTH_CONFIG"))
	if err != nil {
		panic(err)
	}

	logger, err := obs.NewLogger(cfg.LoggerConfig())
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting edgeauth", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))
	logger.Debug("config", zap.Stringer("config", cfg))

	tel, err := obs.SetupOTel(rootCtx, cfg.OTELConfig())
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			logger.Warn("otel shutdown", zap.Error(err))
		}
	}()

	engine, err := buildEngine(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("build engine", zap.Error(err))
	}
	defer engine.Close()

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = promexport.Handler(promexport.NewCollector(engine))
		if meter := tel.Meter("edgeauth"); meter != nil {
			exp, err := otelexport.NewOTelExporter(meter, engine)
			if err != nil {
				logger.Fatal("otel metrics", zap.Error(err))
			}
			defer func() { _ = exp.Close() }()
		}
	}

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpapi.NewRouter(httpapi.Options{
			Engine:  engine,
			Logger:  logger,
			Metrics: metricsHandler,
			Service: cfg.App.Name,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.GracefulTimeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	logger.Info("bye")
}

func buildEngine(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*edgeauth.Engine, error) {
	engineCfg := cfg.Engine()
	for _, w := range engineCfg.Lint() {
		logger.Warn("config lint", zap.String("code", w.Code), zap.String("message", w.Message))
	}

	auth, err := edgeauth.NewStaticAuthenticator(cfg.StaticAuthenticator())
	if err != nil {
		return nil, err
	}
	for _, w := range auth.Lint() {
		logger.Warn("authenticator lint", zap.String("code", w.Code), zap.String("message", w.Message))
	}

	b := edgeauth.New().
		WithConfig(engineCfg).
		WithLogger(logger).
		WithAuthenticator(auth).
		WithAuditSink(edgeauth.NewZapSink(logger.Named("audit")))

	if cfg.Redis.Addr != "" {
		rdb, err := kv.OpenRedis(ctx, cfg.RedisConfig())
		if err != nil {
			return nil, err
		}
		logger.Info("redis connected", zap.Stringer("redis", cfg.RedisConfig()))
		b = b.WithRedis(rdb)
	} else {
		logger.Warn("REDIS_ADDR not set, using in-memory store")
	}

	return b.Build()
}
