// Package config содержит логику чтения конфигурации сервиса погашения предложений.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress    = "localhost:8080"
	defaultSweepInterval = time.Minute
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress                 string        `env:"RUN_ADDRESS"`
	DatabaseURI                string        `env:"DATABASE_URI"`
	RestaurantDirectoryAddress string        `env:"RESTAURANT_DIRECTORY_ADDRESS"`
	ExpirySweepInterval        time.Duration `env:"EXPIRY_SWEEP_INTERVAL"`
	KafkaBrokers               []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic                 string        `env:"KAFKA_TOPIC"`
	SeedFile                   string        `env:"SEED_FILE"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения из окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	envCfg := Config{}
	if err := env.Parse(&envCfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := &Config{}
	var brokers string

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI, empty for in-memory storage")
	flag.StringVar(&cfg.RestaurantDirectoryAddress, "r", "", "restaurant directory address")
	flag.DurationVar(&cfg.ExpirySweepInterval, "s", defaultSweepInterval, "offer expiry sweep interval, 0 disables the sweep")
	flag.StringVar(&brokers, "k", "", "comma separated Kafka brokers")
	flag.StringVar(&cfg.KafkaTopic, "t", "", "Kafka topic for redemption events")
	flag.StringVar(&cfg.SeedFile, "f", "", "JSON file with restaurants and users for in-memory storage")

	flag.Parse()

	cfg.KafkaBrokers = splitList(brokers)

	if envCfg.RunAddress != "" {
		cfg.RunAddress = envCfg.RunAddress
	}
	if envCfg.DatabaseURI != "" {
		cfg.DatabaseURI = envCfg.DatabaseURI
	}
	if envCfg.RestaurantDirectoryAddress != "" {
		cfg.RestaurantDirectoryAddress = envCfg.RestaurantDirectoryAddress
	}
	// Нулевой интервал из окружения тоже переопределяет флаг и отключает проверку сроков.
	if _, ok := os.LookupEnv("EXPIRY_SWEEP_INTERVAL"); ok {
		cfg.ExpirySweepInterval = envCfg.ExpirySweepInterval
	}
	if len(envCfg.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = splitList(strings.Join(envCfg.KafkaBrokers, ","))
	}
	if envCfg.KafkaTopic != "" {
		cfg.KafkaTopic = envCfg.KafkaTopic
	}
	if envCfg.SeedFile != "" {
		cfg.SeedFile = envCfg.SeedFile
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.ExpirySweepInterval < 0 {
		return nil, fmt.Errorf("expiry sweep interval must not be negative: %s", cfg.ExpirySweepInterval)
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
