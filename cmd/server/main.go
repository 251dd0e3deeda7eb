package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/auth"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/config"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/handlers"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/jobs"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/llm"
	_ "github.com/siddhantsaxena45/AI-Interviewer/internal/llm/aiservice"
	_ "github.com/siddhantsaxena45/AI-Interviewer/internal/llm/gemini"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/metrics"
	authmw "github.com/siddhantsaxena45/AI-Interviewer/internal/middleware"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/realtime"
	mongorepo "github.com/siddhantsaxena45/AI-Interviewer/internal/repositories/mongo"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/routers"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/services"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/uploads"
)

type appHandlers struct {
	user    *handlers.UserHandler
	session *handlers.SessionHandler
	ws      *handlers.WSHandler
	health  *handlers.HealthHandler
}

func registerRoutes(router *chi.Mux, h appHandlers, protect func(http.Handler) http.Handler) {
	routers.HealthRoutes(router, h.health)
	routers.UserRoutes(router, h.user, protect)
	routers.SessionRoutes(router, h.session, protect)
	routers.WSRoutes(router, h.ws)
}

func newRouter(cfg *config.Config, h appHandlers, protect func(http.Handler) http.Handler) *chi.Mux {
	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	router.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer, middleware.Timeout(60*time.Second))
	router.Use(metrics.Middleware("interviewer"))

	registerRoutes(router, h, protect)
	return router
}

func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	logger.Info("Configuration loaded",
		zap.String("provider", cfg.AIProvider),
		zap.Int("workers", cfg.WorkerCount))

	rootCtx, stopRoot := context.WithCancel(context.Background())
	defer stopRoot()

	// storage
	mongoClient, err := mongorepo.NewClient(rootCtx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	db, err := mongoClient.DB()
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	userRepo := mongorepo.NewUserRepo(db)
	sessionRepo := mongorepo.NewSessionRepo(db)
	if err := userRepo.EnsureIndexes(rootCtx); err != nil {
		logger.Fatal("Failed to create user indexes", zap.Error(err))
	}
	if err := sessionRepo.EnsureIndexes(rootCtx); err != nil {
		logger.Fatal("Failed to create session indexes", zap.Error(err))
	}

	rdb := newRedisClient(cfg)
	if err := rdb.Ping(rootCtx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	audioStore, err := uploads.NewStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal("Failed to prepare upload directory", zap.Error(err))
	}

	// AI provider based on configuration
	baseProvider, err := llm.NewProvider(cfg.AIProvider)
	if err != nil {
		logger.Fatal("Failed to initialize AI provider", zap.Error(err))
	}
	aiProvider := llm.NewResilientProvider(baseProvider, llm.ResilienceOptions{
		Timeout:         cfg.AITimeout,
		MaxRetries:      cfg.AIMaxRetries,
		BreakerFailures: uint32(cfg.AIBreakerFailures),
		BreakerCooldown: cfg.AIBreakerCooldown,
	}, logger)

	// push channel
	hub := realtime.NewHub()
	notifier := realtime.NewRedisNotifier(hub, rdb, logger)
	go func() {
		if err := notifier.Subscribe(rootCtx); err != nil {
			logger.Error("Notification subscriber stopped", zap.Error(err))
		}
	}()

	// background work
	queue := jobs.NewQueue(rdb)
	pool := jobs.NewWorkerPool(queue, jobs.PoolOptions{
		Workers:     cfg.WorkerCount,
		MaxAttempts: cfg.JobMaxAttempts,
	}, logger)

	sessionService := services.NewSessionService(sessionRepo, queue, aiProvider, notifier, audioStore, logger)
	sessionService.RegisterWorkers(pool)
	pool.Start(rootCtx)

	sweeper := jobs.NewSweeper(queue, audioStore, cfg.JobStaleAfter, cfg.UploadMaxAge, logger)
	if err := sweeper.Start(cfg.SweepSchedule); err != nil {
		logger.Fatal("Failed to start sweeper", zap.Error(err))
	}

	userService := services.NewUserService(userRepo, auth.NewTokenInfoVerifier(cfg.GoogleClientID), cfg.JWTSecret, cfg.JWTTTL, logger)

	h := appHandlers{
		user:    handlers.NewUserHandler(userService, logger),
		session: handlers.NewSessionHandler(sessionService, cfg.MaxUploadBytes, logger),
		ws:      handlers.NewWSHandler(hub, cfg.JWTSecret, cfg.AllowedOrigins, logger),
		health: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"mongo": mongoClient,
			"redis": queue,
			"ai":    aiProvider,
		}),
	}
	router := newRouter(cfg, h, authmw.Protect(cfg.JWTSecret, userService, logger))

	serverAddr := ":" + cfg.Port

	// http server with timeouts
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Interview service starting", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shutdown the server
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("Interview service shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// in-flight jobs are released back to the queue for the next instance
	sweeper.Stop()
	pool.Stop()
	stopRoot()

	if err := rdb.Close(); err != nil {
		logger.Warn("Failed to close Redis client", zap.Error(err))
	}
	if err := mongoClient.Disconnect(ctx); err != nil {
		logger.Warn("Failed to disconnect MongoDB", zap.Error(err))
	}

	logger.Info("Interview service exited")
}
