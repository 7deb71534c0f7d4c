package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/homevault/notifier/internal/bus"
	config "github.com/homevault/notifier/internal/config/notifier"
	"github.com/homevault/notifier/internal/obs"
	pg "github.com/homevault/notifier/internal/repository/postgres"
	"github.com/homevault/notifier/internal/services/notifier"
)

func main() {
	configPath := flag.String("config", "config/notifier.yaml", "path to config file")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting notifier", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	otelShutdown, err := initOTel(rootCtx, cfg)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	db, err := initDB(rootCtx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	deliveryBus := bus.New(logger)

	svc := notifier.NewService(logger,
		pg.NewNotificationRepo(db),
		deliveryBus,
		pg.NewTransactor(db, logger),
	)
	handler := notifier.NewHandler(logger, svc,
		pg.NewRecipientRepo(db),
		deliveryBus,
		cfg.Stream.KeepaliveInterval,
		cfg.Stream.SendBuffer,
	)

	httpSrv := buildHTTPServer(rootCtx, cfg, handler)
	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, cfg, logger) }()

	metricsSrv := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		return db.Pool.Ping(ctx)
	}, logger)

	ingestErrCh := make(chan error, 1)
	ingestClose := startIngest(rootCtx, cfg, logger, db, svc, ingestErrCh)
	defer ingestClose()

	var runErr error
	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal")
	case runErr = <-httpErrCh:
		if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(runErr))
		}
	case runErr = <-ingestErrCh:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			logger.Error("ingest run", zap.Error(runErr))
		}
	}

	// Cancel the base context first so open stream sessions exit and their
	// deferred cleanup runs; only then can Shutdown drain promptly.
	stop()

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	_ = httpSrv.Shutdown(shCtx)
	_ = metricsSrv.Shutdown(shCtx)

	time.Sleep(100 * time.Millisecond)
	logger.Info("bye")
}
