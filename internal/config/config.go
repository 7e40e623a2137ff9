// Package config содержит логику чтения конфигурации конвейера.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации конвейера.
type Config struct {
	RunAddress   string        `env:"RUN_ADDRESS"`
	DatabaseURI  string        `env:"DATABASE_URI"`
	InputDir     string        `env:"INPUT_DIR"`
	ProcessedDir string        `env:"PROCESSED_DIR"`
	FailedDir    string        `env:"FAILED_DIR"`
	StateFile    string        `env:"STATE_FILE"`
	PollInterval time.Duration `env:"POLL_INTERVAL"`
	APIKey       string        `env:"API_KEY"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envInputDir := cfg.InputDir
	envProcessedDir := cfg.ProcessedDir
	envFailedDir := cfg.FailedDir
	envStateFile := cfg.StateFile
	envPollInterval := cfg.PollInterval
	envAPIKey := cfg.APIKey

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.InputDir, "i", "input", "input directory for daily files")
	flag.StringVar(&cfg.ProcessedDir, "p", "processed", "directory for processed files")
	flag.StringVar(&cfg.FailedDir, "f", "failed", "directory for failed files")
	flag.StringVar(&cfg.StateFile, "s", "processor_state.json", "path to processor state file")
	flag.DurationVar(&cfg.PollInterval, "t", time.Second, "input directory poll interval")
	flag.StringVar(&cfg.APIKey, "k", "", "inspection API key")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envInputDir != "" {
		cfg.InputDir = envInputDir
	}
	if envProcessedDir != "" {
		cfg.ProcessedDir = envProcessedDir
	}
	if envFailedDir != "" {
		cfg.FailedDir = envFailedDir
	}
	if envStateFile != "" {
		cfg.StateFile = envStateFile
	}
	if envPollInterval != 0 {
		cfg.PollInterval = envPollInterval
	}
	if envAPIKey != "" {
		cfg.APIKey = envAPIKey
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	return cfg, nil
}
