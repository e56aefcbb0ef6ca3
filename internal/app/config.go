package app

import (
	"os"
	"time"
)

// Config описывает настройки запуска приложения. Все значения читаются
// из окружения с префиксом COURSEPAY_.
type Config struct {
	// HTTPAddr — адрес основного API (checkout, webhook, админка).
	HTTPAddr string
	// MetricsAddr — отдельный адрес для /metrics и health-проверок.
	MetricsAddr string
	// PostgresDSN включает постоянное хранилище; пустое значение
	// оставляет in-memory реализацию (dev/demo режим).
	PostgresDSN string
	// KafkaBrokers — список брокеров через запятую; пустое значение
	// отключает публикацию событий.
	KafkaBrokers string
	// LMSTimeout ограничивает каждый HTTP-вызов к LMS арендатора.
	LMSTimeout time.Duration
}

// DefaultConfig возвращает адреса по умолчанию.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
		LMSTimeout:  15 * time.Second,
	}
}

// LoadConfig собирает конфигурацию из переменных окружения поверх
// значений по умолчанию.
func LoadConfig() Config {
	cfg := DefaultConfig()
	cfg.HTTPAddr = envOr("COURSEPAY_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = envOr("COURSEPAY_METRICS_ADDR", cfg.MetricsAddr)
	cfg.PostgresDSN = os.Getenv("COURSEPAY_POSTGRES_DSN")
	cfg.KafkaBrokers = os.Getenv("COURSEPAY_KAFKA_BROKERS")
	if raw := os.Getenv("COURSEPAY_LMS_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.LMSTimeout = d
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
