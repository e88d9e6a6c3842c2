package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del relay.
type Config struct {
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL   string `env:"DATABASE_URL,required"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	LogMode       string `env:"LOG_MODE" envDefault:"prod"`

	DBMaxConns               int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns               int32 `env:"DB_MIN_CONNS" envDefault:"1"`
	DBMaxConnLifetimeMinutes int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"30"`
	DBMaxConnIdleMinutes     int   `env:"DB_MAX_CONN_IDLE_MINUTES" envDefault:"5"`
	DBConnectTimeoutSeconds  int   `env:"DB_CONNECT_TIMEOUT_SECONDS" envDefault:"5"`

	TelegramBotToken      string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramAPIURL        string `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
	TelegramWebhookSecret string `env:"TELEGRAM_WEBHOOK_SECRET"`
	TransportMode         string `env:"TRANSPORT_MODE" envDefault:"polling"`
	PollTimeoutSeconds    int    `env:"POLL_TIMEOUT_SECONDS" envDefault:"30"`
	PollWorkers           int    `env:"POLL_WORKERS" envDefault:"8"`
	RegisterCommands      bool   `env:"REGISTER_COMMANDS" envDefault:"true"`

	SessionTTLMinutes int `env:"SESSION_TTL_MINUTES" envDefault:"15"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

const (
	TransportPolling = "polling"
	TransportWebhook = "webhook"
)

var ErrInvalidTransportMode = errors.New("invalid transport mode")

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.TransportMode = strings.ToLower(strings.TrimSpace(cfg.TransportMode))
	switch cfg.TransportMode {
	case TransportPolling, TransportWebhook:
	default:
		return nil, fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidTransportMode, cfg.TransportMode, TransportPolling, TransportWebhook)
	}
	return &cfg, nil
}
