package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BruksfildServices01/clinic-scheduler/internal/archive"
	"github.com/BruksfildServices01/clinic-scheduler/internal/audit"
	"github.com/BruksfildServices01/clinic-scheduler/internal/config"
	dbpkg "github.com/BruksfildServices01/clinic-scheduler/internal/db"
	"github.com/BruksfildServices01/clinic-scheduler/internal/events"
	"github.com/BruksfildServices01/clinic-scheduler/internal/gateway"
	"github.com/BruksfildServices01/clinic-scheduler/internal/jobs"
	"github.com/BruksfildServices01/clinic-scheduler/internal/lock"
	"github.com/BruksfildServices01/clinic-scheduler/internal/logger"
	"github.com/BruksfildServices01/clinic-scheduler/internal/routes"
	"github.com/BruksfildServices01/clinic-scheduler/internal/validators"
)

func main() {

	cfg := config.Load()

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := validators.Register(); err != nil {
		log.Fatal("register validators", zap.Error(err))
	}

	db, err := dbpkg.NewDB(cfg, log)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ======================================================
	// 🔧 INFRA OPCIONAL
	// ======================================================
	var locker lock.Locker = lock.NewMemoryLocker()
	if cfg.RedisURL != "" {
		client, err := lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("redis", zap.Error(err))
		}
		defer func() { _ = client.Close() }()
		locker = lock.NewRedisLocker(client, log)
	} else {
		log.Warn("REDIS_URL not set, using in-process slot lock")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPUrl != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPUrl, cfg.AMQPExchange, log)
		if err != nil {
			log.Fatal("rabbitmq", zap.Error(err))
		}
		publisher = p
	}
	defer func() { _ = publisher.Close() }()

	var store archive.Store = archive.NopStore{}
	if cfg.S3.Bucket != "" {
		store = archive.NewS3Store(archive.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		}, log)
	}

	// ======================================================
	// 💳 GATEWAY
	// ======================================================
	gwCfg := gateway.Config{
		BaseURL:      cfg.QPay.BaseURL,
		ClientID:     cfg.QPay.ClientID,
		ClientSecret: cfg.QPay.ClientSecret,
		InvoiceCode:  cfg.QPay.InvoiceCode,
		ReceiverCode: cfg.QPay.ReceiverCode,
		Timeout:      cfg.QPay.Timeout,
	}
	if gwCfg.ClientID == "" || gwCfg.InvoiceCode == "" {
		log.Warn("QPay credentials missing, hold creation will fail", zap.String("env", cfg.QPay.Env))
	}
	tokens := gateway.NewTokenProvider(gwCfg, nil, log)
	gw := gateway.NewClient(gwCfg, tokens, nil, log)

	auditDispatcher := audit.NewDispatcher(audit.New(db), log)
	defer auditDispatcher.Close()

	// ======================================================
	// 🌍 HTTP
	// ======================================================
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	uc := routes.RegisterRoutes(r, routes.Deps{
		DB:        db,
		Config:    cfg,
		Log:       log,
		Gateway:   gw,
		Auditor:   auditDispatcher,
		Locker:    locker,
		Publisher: publisher,
		Store:     store,
	})

	if cfg.ExpirySweepSchedule != "" {
		sweeper := jobs.NewExpirySweeper(uc.Sweep, locker, cfg.ExpirySweepSchedule, log)
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server running", zap.String("addr", cfg.Addr()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}

	// webhooks já respondidos ainda gravam e auditam
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelDrain()
	if err := uc.Callbacks.Wait(drainCtx); err != nil {
		log.Warn("gateway callbacks still running at exit", zap.Error(err))
	}
}
