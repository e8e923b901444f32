package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"relaychat-backend/internal/config"
	"relaychat-backend/internal/database"
	"relaychat-backend/internal/handlers"
	"relaychat-backend/internal/logging"
	"relaychat-backend/internal/middleware"
	"relaychat-backend/internal/repository"
	"relaychat-backend/internal/router"
	"relaychat-backend/internal/services"
	"relaychat-backend/internal/webhook"
	"relaychat-backend/internal/websocket"
	"relaychat-backend/internal/worker"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.IsProduction())
	log.Info().Str("env", cfg.Env).Msg("🚀 Starting relay chat backend")

	// ──── Step 2: Optional PostgreSQL transcript store ────
	var messageRepo *repository.MessageRepo
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("✗ PostgreSQL connection failed")
		}
		defer pool.Close()

		if err := database.RunMigrations(pool, cfg.MigrationsDir); err != nil {
			log.Fatal().Err(err).Msg("✗ Database migration failed")
		}
		messageRepo = repository.NewMessageRepo(pool)
		log.Info().Msg("✓ PostgreSQL connected, migrations applied")
	} else {
		log.Info().Msg("– DATABASE_URL not set; chat history disabled")
	}

	// ──── Step 3: Optional Redis ────
	var redisClients *database.RedisClients
	if cfg.RedisURL != "" {
		var err error
		redisClients, err = database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("✗ Redis connection failed")
		}
		defer redisClients.Close()
		log.Info().Msg("✓ Redis connected")
	}

	// ──── Step 4: Reply backend ────
	var replier services.Replier
	switch cfg.ReplyBackend {
	case config.BackendGemini:
		gemini, err := services.NewGeminiReplier(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
		if err != nil {
			log.Fatal().Err(err).Msg("✗ Gemini client initialization failed")
		}
		defer gemini.Close()
		replier = gemini
		log.Info().Str("model", cfg.GeminiModel).Msg("✓ Gemini reply backend initialized")
	default:
		replier = webhook.NewClient(config.WebhookURL, cfg.WebhookUser, &http.Client{})
		if config.WebhookURL() == "" {
			log.Warn().Msg("WEBHOOK_URL is not set; chat requests will fail until it is")
		}
		log.Info().Msg("✓ Webhook reply backend initialized")
	}

	// ──── Step 5: Transcript sink & workers ────
	var sink services.TranscriptSink
	var workerPool *worker.Pool
	switch {
	case messageRepo != nil && redisClients != nil:
		sink = worker.NewQueueSink(redisClients.Queue)
		workerPool = worker.NewPool(redisClients.Queue, messageRepo, 2)
		workerPool.Start()
		log.Info().Msg("✓ Transcript worker pool started (2 goroutines)")
	case messageRepo != nil:
		sink = messageRepo
	}

	var pruner *services.RetentionPruner
	if messageRepo != nil {
		pruner = services.NewRetentionPruner(messageRepo, cfg.TranscriptRetention)
		pruner.Start()
	}

	// ──── Step 6: Services, WebSocket hub & handlers ────
	deps := router.Deps{FrontendURL: cfg.FrontendURL}

	var publisher services.Publisher
	var hub *websocket.Hub
	if cfg.SessionsEnabled() {
		deps.JWTAuth = middleware.NewJWTAuth(cfg.JWTSecret)
		if redisClients != nil {
			hub = websocket.NewHub(redisClients.PubSub, deps.JWTAuth)
		} else {
			hub = websocket.NewHub(nil, deps.JWTAuth)
		}
		publisher = hub
		log.Info().Dur("ttl", cfg.SessionTTL).Msg("✓ Sessions enabled")
	} else {
		log.Info().Msg("– JWT_SECRET not set; sessions, history and WebSocket disabled")
	}

	chatService := services.NewChatService(replier, sink, publisher, cfg.WebhookTimeout)
	deps.ChatHandler = handlers.NewChatHandler(chatService)

	if deps.JWTAuth != nil {
		deps.SessionHandler = handlers.NewSessionHandler(services.NewSessionService(deps.JWTAuth, cfg.SessionTTL))
		if messageRepo != nil {
			deps.HistoryHandler = handlers.NewHistoryHandler(messageRepo)
		} else {
			deps.HistoryHandler = handlers.NewHistoryHandler(nil)
		}
		deps.WebSocket = hub.Handler(chatService)
	}

	chatLimiter := middleware.NewRateLimiter(cfg.ChatRateLimit, cfg.ChatRateWindow)
	defer chatLimiter.Stop()

	// ──── Step 7: Start HTTP Server ────
	deps.ChatLimiter = chatLimiter
	deps.RequestTimeout = cfg.WebhookTimeout + 5*time.Second
	r := router.New(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.WebhookTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down...")
		if workerPool != nil {
			workerPool.Stop()
		}
		if pruner != nil {
			pruner.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Info().Msgf("✓ Relay chat backend ready on http://localhost:%s", cfg.Port)
	log.Info().Msgf("  API: http://localhost:%s/api/chat", cfg.Port)
	if deps.WebSocket != nil {
		log.Info().Msgf("  WS:  ws://localhost:%s/api/ws", cfg.Port)
	}

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server error")
	}
}
