package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET, required"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Yandex   YandexConfig
	Telegram TelegramConfig
	Queue    QueueConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=identity"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type YandexConfig struct {
	ClientID     string `env:"YANDEX_CLIENT_ID,     required"`
	ClientSecret string `env:"YANDEX_CLIENT_SECRET, required"`
}

type TelegramConfig struct {
	BotToken string `env:"TELEGRAM_BOT_TOKEN, required"`
}

type QueueConfig struct {
	Stream string `env:"QUEUE_STREAM, default=link_requests"`
	Group  string `env:"QUEUE_GROUP,  default=notifier"`
}

// Load reads configuration from environment variables using go-envconfig.
// Required secrets missing at process start fail here, never lazily.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
