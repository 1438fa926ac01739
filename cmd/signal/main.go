package main

import (
	"context"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meetrix/internal/core/domain"
	"meetrix/internal/core/ports"
	"meetrix/internal/core/services"
	httphandlers "meetrix/internal/handlers/http"
	"meetrix/internal/infrastructure/distributed"
	"meetrix/internal/infrastructure/middleware"
	"meetrix/internal/infrastructure/monitoring"
	"meetrix/internal/infrastructure/repositories"
	"meetrix/internal/infrastructure/signal"
	webrtcinfra "meetrix/internal/infrastructure/webrtc"
	"meetrix/pkg/config"
	"meetrix/pkg/logger"
	"meetrix/pkg/tracing"
	"meetrix/pkg/utils"
)

func main() {
	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		cfg = config.DefaultConfig()
	}

	// Initialize logger
	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Initialize store factory (Redis with memory fallback)
	storeFactory, err := repositories.NewFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create store factory", "error", err)
	}
	defer storeFactory.Close()

	violationStore := storeFactory.CreateViolationStore()

	// Cross-instance event fanout runs only when Redis backs the stores
	var eventBus *distributed.EventBus
	if client := storeFactory.RedisClient(); client != nil {
		eventBus = distributed.NewEventBus(client, utils.GenerateID("signal"), log)
		defer eventBus.Close()
	}

	// WebRTC engine configuration (including STUN/TURN from config)
	var iceServers []webrtc.ICEServer
	if len(cfg.WebRTC.ICEServers) > 0 {
		for _, s := range cfg.WebRTC.ICEServers {
			iceServers = append(iceServers, webrtc.ICEServer{
				URLs:       s.URLs,
				Username:   s.Username,
				Credential: s.Credential,
			})
		}
	} else {
		iceServers = []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		}
	}

	engineCfg := webrtcinfra.Config{
		ICEServers:         iceServers,
		NegotiationTimeout: cfg.Room.NegotiationTimeout,
	}
	engineCfg.PortRange.Min = cfg.WebRTC.PortRange.Min
	engineCfg.PortRange.Max = cfg.WebRTC.PortRange.Max
	for _, layer := range cfg.WebRTC.SimulcastLayers {
		engineCfg.SimulcastLayers = append(engineCfg.SimulcastLayers, domain.SimulcastLayer{
			MaxBitrate:  layer.MaxBitrate,
			ScaleDownBy: layer.ScaleDownBy,
		})
	}

	engine, err := webrtcinfra.NewEngine(engineCfg)
	if err != nil {
		log.Fatalw("failed to create webrtc engine", "error", err)
	}

	// Metrics
	prometheusCollector := monitoring.NewPrometheusCollector()
	metricsService := services.NewMetricsService()
	recorder := monitoring.NewCompositeRecorder(metricsService, prometheusCollector)

	manager := webrtcinfra.NewManager(engine, log)
	manager.SetMetricsRecorder(recorder)
	defer manager.Close()

	// Signaling coordinator
	coordinatorCfg := services.CoordinatorConfig{
		Capacity:           cfg.Room.Capacity,
		WaitingRoomEnabled: cfg.Room.WaitingRoom,
		GraceTimeout:       cfg.Room.GraceTimeout,
		QualityInterval:    cfg.Room.QualityInterval,
	}
	var publisher ports.EventPublisher
	if eventBus != nil {
		publisher = eventBus
	}
	coordinator := services.NewCoordinator(coordinatorCfg, manager, violationStore, recorder, publisher, log)

	// Mirror sibling instances' room events into local fanout
	if eventBus != nil {
		busCtx, busCancel := context.WithCancel(context.Background())
		defer busCancel()
		go func() {
			err := eventBus.Subscribe(busCtx, func(env distributed.Envelope) error {
				return coordinator.ApplyRemoteEvent(busCtx, env.MeetingID, env.Event)
			})
			if err != nil && busCtx.Err() == nil {
				log.Warnw("event bus subscription ended", "error", err)
			}
		}()
	}

	// Network quality monitor
	networkMonitor := services.NewNetworkMonitor(coordinator, manager, services.NewQualityService(), 5*time.Second, log)
	networkMonitor.Start(context.Background())
	defer networkMonitor.Stop()

	// Session token validation
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)

	// WebSocket signaling server
	wsServer := signal.NewServer(signal.Config{
		PingInterval:      cfg.Signal.PingInterval,
		PongTimeout:       cfg.Signal.PongTimeout,
		WriteTimeout:      cfg.Signal.WriteTimeout,
		MessagesPerSecond: cfg.RateLimiting.WebSocket.MessagesPerSecond,
		Burst:             cfg.RateLimiting.WebSocket.Burst,
		MaxMessageSize:    cfg.RateLimiting.WebSocket.MaxMessageSizeBytes,
		AllowedOrigins:    cfg.Auth.AllowedOrigins,
	}, coordinator, authService, log)

	// Health checks
	healthChecker := monitoring.NewHealthChecker(metricsService)
	healthChecker.AddCheck("stores", storeFactory.HealthCheck, 2*time.Second)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(logger.NewContextLogger(zapLogger)))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	// Signaling channel
	router.GET("/ws", gin.WrapF(wsServer.HandleWebSocket))

	// Transport negotiation endpoints
	mediaHandler := httphandlers.NewMediaHandler(manager, coordinator)
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(authService))
	mediaHandler.SetupRoutes(api)

	router.GET("/healthz", healthChecker.Handler())

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting Meetrix signal server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	ossignal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down Meetrix signal server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := coordinator.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error closing rooms", "error", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Errorw("Error shutting down tracer", "error", err)
		}
	}

	log.Info("Meetrix signal server stopped")
}
