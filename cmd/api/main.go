package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "onboarding/api/swagger" // swagger docs
	"onboarding/internal/config"
	"onboarding/internal/database"
	"onboarding/internal/handler"
	"onboarding/internal/logger"
	"onboarding/internal/middleware"
	"onboarding/internal/realtime"
	"onboarding/internal/repository"
	"onboarding/internal/service"
	"onboarding/internal/stage"
	"onboarding/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Employee Onboarding API
// @version         1.0
// @description     Module catalog, employee progression and administration for the onboarding portal.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, loaded := config.Load("configs/.env")

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if !loaded {
		log.Info("no configs/.env file found, using process environment")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required in release mode")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.DBDriver, cfg.DSN(), log)
	if err != nil {
		log.Fatal("database connection failed", "driver", cfg.DBDriver, "error", err)
	}
	log.Info("connected to database", "driver", cfg.DBDriver)

	// Catalog change feed: local hub, fanned out through Redis when configured
	wsHub := websocket.NewHub(log)
	go wsHub.Run(ctx)

	bus := realtime.NewLocalBus()
	if cfg.RedisAddr != "" {
		redisBus, err := realtime.NewRedisBus(log, cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			log.Fatal("redis bus unavailable", "addr", cfg.RedisAddr, "error", err)
		}
		bus = redisBus
	}
	defer bus.Close()
	if err := bus.StartForwarder(ctx, wsHub.Broadcast); err != nil {
		log.Fatal("failed to start catalog forwarder", "error", err)
	}

	// Repositories -> Services -> Handlers
	txManager := repository.NewTransactionManager(db)
	moduleRepo := repository.NewModuleRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	eventRepo := repository.NewCatalogEventRepository(db)

	issuer := service.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	authService, err := service.NewAuthService(cfg.AdminUsername, cfg.AdminPassword, issuer)
	if err != nil {
		log.Fatal("failed to init auth", "error", err)
	}
	moduleService := service.NewModuleService(moduleRepo, eventRepo, txManager, bus, log)
	employeeService := service.NewEmployeeService(employeeRepo, historyRepo, txManager, issuer, log)
	progressService := service.NewProgressService(employeeRepo, moduleRepo, txManager, cfg.CompletionDelay, log)
	policy := stage.Policy{MaxAttempts: cfg.QuizMaxAttempts, PassingScore: cfg.QuizPassingScore}
	sessionService := service.NewSessionService(employeeRepo, moduleRepo, progressService, policy, cfg.SessionTTL, log)
	exportService := service.NewExportService(employeeRepo, time.Local)

	go sessionService.RunSweeper(ctx, time.Minute)

	if cfg.SeedDefaultsOnStart {
		if _, err := moduleService.SeedDefaults(ctx); err != nil {
			log.Fatal("failed to seed default catalog", "error", err)
		}
	}

	secret := []byte(cfg.JWTSecret)
	secureCookies := cfg.GinMode == gin.ReleaseMode

	authHandler := handler.NewAuthHandler(authService, employeeService, secureCookies)
	meHandler := handler.NewMeHandler(employeeService, progressService, sessionService, secret)
	moduleHandler := handler.NewModuleHandler(moduleService, secret)
	employeeHandler := handler.NewEmployeeHandler(employeeService, progressService, exportService, secret)

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, secret, moduleService.EventsSince)
	})

	api := router.Group("/api")
	authHandler.RegisterRoutes(api)
	meHandler.RegisterRoutes(api)
	moduleHandler.RegisterRoutes(api)
	employeeHandler.RegisterRoutes(api)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
