package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN        string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL        string `env:"RABBITMQ_URL,required=true"`
	RedisURL           string `env:"REDIS_URL,required=true"`
	UserServiceURL     string `env:"USER_SERVICE_URL,required=true"`
	TemplateServiceURL string `env:"TEMPLATE_SERVICE_URL,required=true"`
	TransportURL       string `env:"TRANSPORT_URL,required=true"`
	WorkerConcurrency  int    `env:"WORKER_CONCURRENCY,default=8"`
	MaxRetries         int    `env:"MAX_RETRIES,default=3"`
	RetryBaseDelayMS   int    `env:"RETRY_BASE_DELAY_MS,default=1000"`
	SendRatePerSec     int    `env:"SEND_RATE_PER_SEC,default=50"`
	DownstreamTimeoutS int    `env:"DOWNSTREAM_TIMEOUT_SECONDS,default=10"`
	HTTPPort           int    `env:"HTTP_PORT,default=8080"`
	LogLevel           string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// RetryBaseDelay returns the redelivery backoff base as a duration.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMS) * time.Millisecond
}

// DownstreamTimeout returns the per-call timeout for downstream services.
func (c *Config) DownstreamTimeout() time.Duration {
	return time.Duration(c.DownstreamTimeoutS) * time.Second
}
