package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anon-relay/internal/config"
	"anon-relay/internal/db"
	apihttp "anon-relay/internal/http"
	"anon-relay/internal/repository"
	"anon-relay/internal/service"
	"anon-relay/internal/transport"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.LogMode)
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	sessionTTL := time.Duration(cfg.SessionTTLMinutes) * time.Minute
	sessions := newSessionStore(ctx, cfg, sessionTTL, logger)

	telegram := transport.NewTelegramClient(cfg.TelegramAPIURL, cfg.TelegramBotToken, nil, logger)
	if cfg.TelegramBotToken == "" {
		logger.Warn("telegram bot token not configured")
	}

	userRepo := repository.NewPgUserRepository(pool)
	channelRepo := repository.NewPgChannelRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)

	identitySvc := service.NewIdentityService(logger, userRepo)
	chatroomSvc := service.NewChatroomService(channelRepo)
	ledgerSvc := service.NewLedgerService(messageRepo)
	relaySvc := service.NewRelayService(logger, identitySvc, telegram)
	engine := service.NewConversationEngine(logger, sessions, identitySvc, chatroomSvc, ledgerSvc, relaySvc, telegram)

	if cfg.RegisterCommands && cfg.TelegramBotToken != "" {
		if err := telegram.SetCommands(ctx, service.BotCommands()); err != nil {
			logger.Warn("register bot commands failed", zap.Error(err))
		}
	}

	var webhookHandler *apihttp.WebhookHandler
	if cfg.TransportMode == config.TransportWebhook {
		webhookHandler = apihttp.NewWebhookHandler(logger, engine, cfg.TelegramWebhookSecret)
		if cfg.TelegramWebhookSecret == "" {
			logger.Warn("telegram webhook secret not configured")
		}
	}
	router := apihttp.NewRouter(logger, webhookHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server",
			zap.String("port", cfg.HTTPPort),
			zap.String("transport", cfg.TransportMode),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	if cfg.TransportMode == config.TransportPolling {
		poller := transport.NewPoller(
			telegram,
			engine,
			logger,
			time.Duration(cfg.PollTimeoutSeconds)*time.Second,
			cfg.PollWorkers,
		)
		go func() {
			if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("poller stopped", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}

func newLogger(mode string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if mode == "dev" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	return logger
}

// newSessionStore usa Redis si responde; si no, sesiones en memoria con janitor.
func newSessionStore(ctx context.Context, cfg *config.Config, ttl time.Duration, logger *zap.Logger) service.SessionStore {
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := redisClient.Ping(ctxPing).Err()
		cancel()
		if err == nil {
			logger.Info("session store: redis", zap.String("addr", cfg.RedisAddr))
			return service.NewRedisSessionStore(redisClient, ttl)
		}
		logger.Warn("redis ping failed, using memory sessions", zap.Error(err))
		_ = redisClient.Close()
	}

	store := service.NewMemorySessionStore(ttl)
	go store.RunJanitor(ctx, time.Minute)
	return store
}
