package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/yuvalweil/RoomAssignmentSolver/internal/handler"
	"github.com/yuvalweil/RoomAssignmentSolver/internal/middleware"
	"github.com/yuvalweil/RoomAssignmentSolver/internal/repository"
	"github.com/yuvalweil/RoomAssignmentSolver/internal/service"
	"github.com/yuvalweil/RoomAssignmentSolver/internal/solver"
	"github.com/yuvalweil/RoomAssignmentSolver/pkg/cache"
	"github.com/yuvalweil/RoomAssignmentSolver/pkg/config"
	"github.com/yuvalweil/RoomAssignmentSolver/pkg/database"
	"github.com/yuvalweil/RoomAssignmentSolver/pkg/logger"
	corsmiddleware "github.com/yuvalweil/RoomAssignmentSolver/pkg/middleware/cors"
	reqidmiddleware "github.com/yuvalweil/RoomAssignmentSolver/pkg/middleware/requestid"
)

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

	rules, err := solver.LoadConfig(cfg.Solver.RulesFile)
	if err != nil {
		logr.Sugar().Fatalw("failed to load placement rules", "error", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, result cache disabled", "error", err)
			redisClient = nil
		}
	}

	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)

	assignmentSvc := service.NewAssignmentService(
		repository.NewBookingRepository(db),
		repository.NewRoomRepository(db),
		repository.NewAssignmentRepository(db),
		cacheSvc,
		metrics,
		nil,
		service.AssignmentConfig{
			Budget:      solver.Budget{TimeLimit: cfg.Solver.TimeLimit, NodeLimit: cfg.Solver.NodeLimit},
			Rules:       rules,
			CacheTTL:    cfg.Cache.TTL,
			ExportTitle: cfg.Export.Title,
		},
		logr,
	)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group(cfg.APIPrefix)
	handler.NewAssignmentHandler(assignmentSvc).RegisterRoutes(api)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
