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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/classroom-reservation-api/api/swagger"
	"github.com/noah-isme/classroom-reservation-api/internal/handler"
	"github.com/noah-isme/classroom-reservation-api/internal/middleware"
	"github.com/noah-isme/classroom-reservation-api/internal/models"
	"github.com/noah-isme/classroom-reservation-api/internal/repository"
	"github.com/noah-isme/classroom-reservation-api/internal/service"
	"github.com/noah-isme/classroom-reservation-api/pkg/cache"
	"github.com/noah-isme/classroom-reservation-api/pkg/config"
	"github.com/noah-isme/classroom-reservation-api/pkg/database"
	"github.com/noah-isme/classroom-reservation-api/pkg/jobs"
	"github.com/noah-isme/classroom-reservation-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/classroom-reservation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/classroom-reservation-api/pkg/middleware/requestid"
	"github.com/noah-isme/classroom-reservation-api/pkg/storage"
)

// @title Classroom Reservation API
// @version 1.0.0
// @description Room reservation and scheduling service with key cabinet integration
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}

	validate := validator.New()

	scheduleRepo := repository.NewScheduleRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	queue := jobs.NewDelayedQueue("key-verifier", redisClient, jobs.DelayedQueueConfig{
		PollInterval: cfg.Verifier.PollInterval,
		MaxRetries:   cfg.Verifier.MaxRetries,
		RetryDelay:   cfg.Verifier.RetryDelay,
		Logger:       logr,
	})

	exportStore, err := storage.NewStore(cfg.Export.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export store", "error", err)
	}
	exportSigner := storage.NewSigner(cfg.Export.SignSecret, cfg.Export.LinkTTL)
	go func() {
		deleted, err := exportStore.CleanupOlderThan(cfg.Export.LinkTTL)
		if err != nil {
			logr.Sugar().Warnw("export cleanup failed", "error", err)
			return
		}
		if len(deleted) > 0 {
			logr.Sugar().Infow("removed stale export artifacts", "count", len(deleted))
		}
	}()

	calendarSvc := service.NewCalendarService(scheduleRepo, roomRepo, userRepo, cacheRepo, exportStore, exportSigner, cfg.Calendar.CacheTTL, logr)
	verifierSvc := service.NewKeyVerifierService(scheduleRepo, roomRepo, queue, calendarSvc, logr)
	queue.Register(service.JobTypeVerifyKeyUsage, verifierSvc.HandleVerifyKeyUsage)

	scheduleSvc := service.NewScheduleService(scheduleRepo, roomRepo, verifierSvc, calendarSvc, validate, logr)
	bulkSvc := service.NewBulkScheduleService(scheduleRepo, roomRepo, calendarSvc, validate, logr,
		cfg.Bulk.MaxWeekdayOccurrences, cfg.Bulk.MaxPatternOccurrences)
	searchSvc := service.NewSearchService(scheduleRepo, logr)
	keySvc := service.NewKeyService(roomRepo, validate, logr)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret, logr)

	metricsSvc := service.NewMetricsService(func() float64 {
		depth, err := queue.Depth(context.Background())
		if err != nil {
			return 0
		}
		return float64(depth)
	})

	queueCtx, queueCancel := context.WithCancel(context.Background())
	queue.Start(queueCtx)

	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, bulkSvc, searchSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)
	roomHandler := handler.NewRoomHandler(keySvc)
	keyHandler := handler.NewKeyHandler(keySvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	rooms := api.Group("/rooms")
	rooms.GET("", roomHandler.List)
	rooms.GET("/:id", roomHandler.Get)

	schedules := api.Group("/schedules")
	schedules.GET("", scheduleHandler.List)
	schedules.GET("/search", scheduleHandler.Search)
	schedules.GET("/calendar", middleware.OptionalJWT(tokenSvc), calendarHandler.Events)
	schedules.GET("/export/download", calendarHandler.Download)

	authed := schedules.Group("", middleware.JWT(tokenSvc))
	authed.GET("/:id", scheduleHandler.Get)
	authed.POST("/requests", scheduleHandler.CreateRequest)
	authed.POST("/:id/cancel", scheduleHandler.Cancel)
	authed.POST("/:id/override", scheduleHandler.RequestOverride)

	admin := schedules.Group("", middleware.JWT(tokenSvc), middleware.RequireRoles(models.RoleAdmin))
	admin.POST("", scheduleHandler.CreateApproved)
	admin.GET("/pending", scheduleHandler.PendingForSlot)
	admin.GET("/export", calendarHandler.Export)
	admin.POST("/:id/approve", scheduleHandler.Approve)
	admin.POST("/:id/reject", scheduleHandler.Reject)
	admin.POST("/:id/complete", scheduleHandler.Complete)
	admin.POST("/bulk/weekdays", scheduleHandler.BulkWeekdays)
	admin.POST("/bulk/pattern", scheduleHandler.BulkPattern)

	iot := api.Group("/iot", middleware.APIKey(cfg.IoT.APIKey))
	iot.POST("/keys/status", keyHandler.UpdateStatus)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}

	queueCancel()
	queue.Stop()
	if err := cacheRepo.Close(); err != nil {
		logr.Sugar().Warnw("redis close failed", "error", err)
	}
}
