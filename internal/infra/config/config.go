package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	NLPAgent struct {
		URL     string        `envconfig:"NLP_AGENT_URL" default:"http://localhost:8081"`
		Timeout time.Duration `envconfig:"NLP_AGENT_TIMEOUT" default:"5s"`
	} `envconfig:""`

	OpenAI struct {
		APIKey  string        `envconfig:"OPENAI_API_KEY"`
		BaseURL string        `envconfig:"OPENAI_BASE_URL"`
		Model   string        `envconfig:"OPENAI_MODEL" default:"gpt-4.1-mini"`
		Timeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"15s"`
	} `envconfig:""`

	Queues struct {
		Driver        string `envconfig:"QUEUE_DRIVER" default:"redis"`
		Backfill      string `envconfig:"BACKFILL_QUEUE_KEY" default:"insight_backfill"`
		AMQPURL       string `envconfig:"AMQP_URL"`
		ManagementURL string `envconfig:"AMQP_MANAGEMENT_URL"`
	} `envconfig:""`

	Limits struct {
		PageSize    int `envconfig:"PAGE_SIZE_DEFAULT" default:"20"`
		PageSizeMax int `envconfig:"PAGE_SIZE_MAX" default:"100"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
