package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/weeklyworks-api/api/swagger"
	"github.com/noah-isme/weeklyworks-api/internal/events"
	"github.com/noah-isme/weeklyworks-api/internal/handler"
	"github.com/noah-isme/weeklyworks-api/internal/middleware"
	"github.com/noah-isme/weeklyworks-api/internal/repository"
	"github.com/noah-isme/weeklyworks-api/internal/service"
	"github.com/noah-isme/weeklyworks-api/migrations"
	"github.com/noah-isme/weeklyworks-api/pkg/cache"
	"github.com/noah-isme/weeklyworks-api/pkg/config"
	"github.com/noah-isme/weeklyworks-api/pkg/database"
	"github.com/noah-isme/weeklyworks-api/pkg/jobs"
	"github.com/noah-isme/weeklyworks-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/weeklyworks-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/weeklyworks-api/pkg/middleware/requestid"
	"github.com/noah-isme/weeklyworks-api/pkg/storage"
)

// @title WeeklyWorks API
// @version 1.0.0
// @description Students and recurring weekly training sessions for a coach
// @BasePath /
// @schemes http

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database)
	if err != nil {
		logr.Fatal("failed to open database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := migrations.Up(ctx, db.DB, cfg.Database.Driver); err != nil {
			logr.Fatal("migration failed", zap.Error(err))
		}
		logr.Info("migrations applied")
		return
	}

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(ctx, db.DB, cfg.Database.Driver); err != nil {
			logr.Fatal("migration failed", zap.Error(err))
		}
	}

	if err := run(ctx, cfg, db, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, db *sqlx.DB, logr *zap.Logger) error {
	metrics := service.NewMetricsService()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, export cache disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}
	exportCache := service.NewCacheService(
		repository.NewCacheRepository(redisClient, "weeklyworks:exports:", logr),
		metrics, cfg.Redis.CacheTTL, logr, redisClient != nil,
	)

	broker := events.NewBroker(cfg.Events.BufferSize, logr, metrics, eventSinks(cfg.Events, redisClient, logr)...)
	defer broker.Close()

	store := repository.NewStore(db, logr, metrics)
	uow := service.NewUnitOfWork(store)
	validate, err := service.NewValidator()
	if err != nil {
		return err
	}

	students := service.NewStudentService(uow, broker, exportCache, validate, logr)
	sessions := service.NewTrainingSessionService(uow, broker, exportCache, metrics, validate, logr)

	calendar, err := service.NewCalendarService(sessions, exportCache, service.CalendarOptions{
		Timezone:  cfg.Calendar.Timezone,
		ProductID: cfg.Calendar.ProductID,
	}, logr)
	if err != nil {
		return err
	}

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return err
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exports := service.NewExportService(sessions, calendar, exportCache, files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr, nil, nil)

	var shares *service.ShareService
	queue := jobs.NewQueue("exports", func(ctx context.Context, job jobs.Job) error {
		return shares.Handle(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})
	shares = service.NewShareService(exports, queue, broker, queue.MaxRetries(), logr)
	queue.Start(ctx)
	defer queue.Stop()

	scheduler, err := service.NewScheduler(sessions, exports, shares, service.SchedulerConfig{
		WeekResetEnabled:  cfg.WeekReset.Enabled,
		WeekResetSchedule: cfg.WeekReset.Schedule,
		CleanupInterval:   cfg.Exports.CleanupInterval,
		ResultTTL:         cfg.Exports.SignedURLTTL,
		Location:          calendar.Location(),
	}, logr)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		scheduler.Stop(stopCtx)
	}()

	if _, err := students.FetchAll(ctx); err != nil {
		return fmt.Errorf("load students: %w", err)
	}
	if _, err := sessions.FetchAll(ctx); err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(corsmiddleware.Config{AllowedOrigins: cfg.CORS.AllowedOrigins}))
	r.Use(middleware.Metrics(metrics, cfg.APIPrefix+"/events"))

	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	handler.Handlers{
		Students: handler.NewStudentHandler(students),
		Sessions: handler.NewSessionHandler(sessions, calendar),
		Exports:  handler.NewExportHandler(exports, shares),
		Events:   handler.NewEventsHandler(broker, 0),
		Metrics:  handler.NewMetricsHandler(metrics, checks),
	}.Register(r, cfg.APIPrefix)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "db", cfg.Database.Driver, "events", cfg.Events.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	// SSE subscribers hold connections open; closing the broker ends their streams.
	broker.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func eventSinks(cfg config.EventsConfig, redisClient *redis.Client, logr *zap.Logger) []events.Sink {
	switch cfg.Driver {
	case config.EventsNATS:
		publisher, err := events.NewNatsPublisher(cfg.NATSURL, cfg.Subject, logr)
		if err != nil {
			logr.Warn("nats unavailable, events stay in-process", zap.String("url", cfg.NATSURL), zap.Error(err))
			return nil
		}
		return []events.Sink{publisher}
	case config.EventsRedis:
		if redisClient == nil {
			logr.Warn("redis events requested but redis is disabled")
			return nil
		}
		return []events.Sink{events.NewRedisPublisher(redisClient, cfg.RedisChannel)}
	default:
		return nil
	}
}
