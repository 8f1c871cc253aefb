package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"liveness_survey/internal/config"
	"liveness_survey/internal/handler"
	"liveness_survey/internal/middleware"
	"liveness_survey/internal/repository"
	"liveness_survey/internal/service"
	"liveness_survey/pkg/logger"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger := logger.New(cfg.Log.Level)

	// Подключение к PostgreSQL
	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		appLogger.Fatal("Failed to ping database", "error", err)
	}
	appLogger.Info("Database connection established")

	// Схема создается при старте
	if err := repository.Migrate(context.Background(), dbPool); err != nil {
		appLogger.Fatal("Failed to migrate database schema", "error", err)
	}

	// Подключение к Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	// Инициализация репозиториев
	repos := repository.NewRepositories(dbPool, rdb, appLogger)

	// Инициализация сервисов
	services := service.NewServices(repos, cfg, appLogger)

	// Инициализация middleware
	authMiddleware := middleware.NewAuthMiddleware(services.Auth, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)

	// Инициализация handlers
	handlers := handler.NewHandlers(services, cfg, appLogger)

	// Настройка роутера
	router := setupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg)

	// Запуск HTTP сервера
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

func setupRouter(
	handlers *handler.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.ErrorHandler())

	// Health check
	router.GET("/health", handlers.Health.Check)

	api := router.Group("/api")
	{
		api.POST("/auth/login", rateLimitMiddleware.Limit("admin_login", 10, 60), handlers.Auth.Login)

		// Публичные endpoints прохождения опроса
		api.GET("/surveys/:id", handlers.Survey.Get)
		api.POST("/surveys/:id/start", rateLimitMiddleware.Limit("submission_start", 30, 60), handlers.Submission.Start)

		submissions := api.Group("/submissions")
		{
			submissions.POST("/:id/media", handlers.Submission.UploadMedia)
			submissions.POST("/:id/answers", handlers.Submission.SaveAnswer)
			submissions.POST("/:id/complete", handlers.Submission.Complete)
			submissions.GET("/:id/export", handlers.Submission.Export)
		}

		// Управление опросами только для администратора
		admin := api.Group("/surveys")
		admin.Use(authMiddleware.RequireAdmin())
		{
			admin.POST("", handlers.Survey.Create)
			admin.POST("/:id/questions", handlers.Survey.AddQuestion)
			admin.POST("/:id/publish", handlers.Survey.Publish)
		}
	}

	// Мониторинг прохождения в реальном времени
	router.GET("/ws/submissions/:id/monitor", handlers.Monitor.Stream)

	return router
}
