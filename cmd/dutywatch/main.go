package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/dutywatch/dutywatch/api/swagger"
	"github.com/dutywatch/dutywatch/internal/caldav"
	"github.com/dutywatch/dutywatch/internal/handler"
	"github.com/dutywatch/dutywatch/internal/middleware"
	"github.com/dutywatch/dutywatch/internal/repository"
	"github.com/dutywatch/dutywatch/internal/service"
	"github.com/dutywatch/dutywatch/pkg/cache"
	"github.com/dutywatch/dutywatch/pkg/config"
	"github.com/dutywatch/dutywatch/pkg/database"
	"github.com/dutywatch/dutywatch/pkg/jobs"
	"github.com/dutywatch/dutywatch/pkg/logger"
	reqidmiddleware "github.com/dutywatch/dutywatch/pkg/middleware/requestid"
)

// @title DutyWatch API
// @version 0.1.0
// @description Crew schedule dashboard backed by an iCloud CalDAV calendar.
// @BasePath /api/v1
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
	sugar := logr.Sugar()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	db, err := database.NewSQLite(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to open database", "path", cfg.Database.Path, "error", err)
	}
	defer db.Close()

	snapshotRepo := repository.NewSnapshotRepository(db)
	markerRepo := repository.NewMarkerRepository(db)
	if err := snapshotRepo.InitSchema(ctx); err != nil {
		sugar.Fatalw("failed to init snapshot schema", "error", err)
	}
	if err := markerRepo.InitSchema(ctx); err != nil {
		sugar.Fatalw("failed to init marker schema", "error", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			sugar.Warnw("redis unavailable, table cache disabled", "error", err)
			redisClient = nil
		}
	}

	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Schedule.CacheTTL, logr, redisClient != nil)

	calClient := caldav.NewClient(caldav.Config{
		BaseURL:        cfg.CalDAV.URL,
		Username:       cfg.CalDAV.Username,
		AppPassword:    cfg.CalDAV.AppPassword,
		CalendarFilter: cfg.CalDAV.CalendarFilter,
		Timeout:        cfg.CalDAV.Timeout,
	}, logr)

	scheduleSvc := service.NewScheduleService(service.ScheduleParams{
		Source:          calClient,
		Snapshots:       snapshotRepo,
		Markers:         markerRepo,
		Cache:           cacheSvc,
		Metrics:         metricsSvc,
		Logger:          logr,
		Schedule:        cfg.Schedule,
		Lookahead:       time.Duration(cfg.CalDAV.LookaheadHours) * time.Hour,
		RefreshInterval: cfg.Refresh.Interval,
	})
	exportSvc := service.NewExportService(logr)

	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	calendarHandler := handler.NewCalendarHandler(scheduleSvc)
	exportHandler := handler.NewExportHandler(exportSvc, scheduleSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/schedule/table", scheduleHandler.Table)
		api.POST("/schedule/refresh", scheduleHandler.Refresh)
		api.GET("/calendar/upcoming", calendarHandler.Upcoming)
		api.GET("/calendar/debug", calendarHandler.Debug)
		api.POST("/rows/:key/hide", scheduleHandler.Hide)
		api.DELETE("/rows/:key/hide", scheduleHandler.Unhide)
		if cfg.Export.Enabled {
			api.GET("/export/schedule", exportHandler.Schedule)
		}
	}

	if cfg.Refresh.Enabled {
		queue := startRefreshJob(ctx, cfg.Refresh, scheduleSvc, logr)
		defer queue.Stop()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	sugar.Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		sugar.Fatalw("server failed", "error", err)
	}
}

// startRefreshJob wires the background calendar poller. Refresh jobs run on a
// single-worker queue so overlapping triggers cannot pull the calendar
// concurrently; a cron spec takes precedence over the fixed interval.
func startRefreshJob(ctx context.Context, cfg config.RefreshConfig, scheduleSvc *service.ScheduleService, logr *zap.Logger) *jobs.Queue {
	queue := jobs.NewQueue("calendar-refresh", func(ctx context.Context, job jobs.Job) error {
		result, err := scheduleSvc.Refresh(ctx)
		if err != nil {
			return err
		}
		logr.Sugar().Infow("scheduled refresh complete",
			"job_id", job.ID, "hash", result.Hash, "changed", result.Changed, "events", result.EventCount)
		return nil
	}, jobs.QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Minute, Logger: logr})
	queue.Start(ctx)

	enqueue := func() {
		if err := queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "refresh"}); err != nil {
			logr.Sugar().Warnw("failed to enqueue refresh", "error", err)
		}
	}

	if cfg.CronSpec != "" {
		c := cron.New()
		if _, err := c.AddFunc(cfg.CronSpec, enqueue); err != nil {
			logr.Sugar().Errorw("invalid refresh cron spec, falling back to interval",
				"spec", cfg.CronSpec, "error", err)
		} else {
			c.Start()
			logr.Sugar().Infow("refresh job scheduled", "cron", cfg.CronSpec)
			return queue
		}
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				enqueue()
			}
		}
	}()
	logr.Sugar().Infow("refresh job scheduled", "interval", interval)
	return queue
}
