// Package config содержит логику чтения конфигурации витрины.
package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации витрины.
type Config struct {
	RunAddress     string   `env:"RUN_ADDRESS"`
	DatabaseURI    string   `env:"DATABASE_URI"`
	RedisAddress   string   `env:"REDIS_ADDRESS"`
	SQLitePath     string   `env:"SQLITE_PATH"`
	CatalogAddress string   `env:"CATALOG_ADDRESS"`
	CatalogAPIKey  string   `env:"CATALOG_API_KEY"`
	KafkaBrokers   []string `env:"KAFKA_BROKERS" envSeparator:","`
	SessionSecret  string   `env:"SESSION_SECRET"`

	InstallmentsEnabled  bool          `env:"INSTALLMENTS_ENABLED" envDefault:"true"`
	OverdueSweepInterval time.Duration `env:"OVERDUE_SWEEP_INTERVAL" envDefault:"1m"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envRedisAddress := cfg.RedisAddress
	envSQLitePath := cfg.SQLitePath
	envCatalogAddress := cfg.CatalogAddress
	envKafkaBrokers := cfg.KafkaBrokers

	var kafkaBrokers string
	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RedisAddress, "r", "", "redis address for cart storage")
	flag.StringVar(&cfg.SQLitePath, "s", "", "sqlite file for cart storage")
	flag.StringVar(&cfg.CatalogAddress, "c", "", "product catalog address")
	flag.StringVar(&kafkaBrokers, "k", "", "comma separated kafka brokers")

	flag.Parse()

	if kafkaBrokers != "" {
		cfg.KafkaBrokers = splitList(kafkaBrokers)
	}

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envRedisAddress != "" {
		cfg.RedisAddress = envRedisAddress
	}
	if envSQLitePath != "" {
		cfg.SQLitePath = envSQLitePath
	}
	if envCatalogAddress != "" {
		cfg.CatalogAddress = envCatalogAddress
	}
	if len(envKafkaBrokers) > 0 {
		cfg.KafkaBrokers = splitList(strings.Join(envKafkaBrokers, ","))
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}

func splitList(s string) []string {
	var res []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}
