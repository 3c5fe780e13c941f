package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type AdminConfig struct {
	Port int `yaml:"port"`
}

// StorageConfig selects the persistence backend. "postgres" needs a DSN,
// "sqlite" a file path (":memory:" works for throwaway runs).
type StorageConfig struct {
	Backend string `yaml:"backend"` // postgres | sqlite
	URL     string `yaml:"url"`
	Path    string `yaml:"path"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AIConfig struct {
	Provider  string `yaml:"provider"` // openai | gemini | noop
	OpenAIKey string `yaml:"openai_key"`
	GeminiKey string `yaml:"gemini_key"`
	Model     string `yaml:"model"`
}

// BatchConfig carries enrichment sweep defaults; per-request parameters
// override them.
type BatchConfig struct {
	MaxParallel     int           `yaml:"max_parallel"`
	Limit           int           `yaml:"limit"`
	LockTTL         time.Duration `yaml:"lock_ttl"`
	ReviewThreshold float64       `yaml:"review_threshold"`
	MinFitScore     float64       `yaml:"min_fit_score"`
	SweepInterval   time.Duration `yaml:"sweep_interval"` // 0 disables the background sweep
}

type Config struct {
	Log     LogConfig     `yaml:"log"`
	Admin   AdminConfig   `yaml:"admin"`
	Storage StorageConfig `yaml:"storage"`
	Redis   RedisConfig   `yaml:"redis"`
	AI      AIConfig      `yaml:"ai"`
	Batch   BatchConfig   `yaml:"batch"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 8080
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "sqlite"
	}
	if cfg.Storage.Backend == "sqlite" && cfg.Storage.Path == "" {
		cfg.Storage.Path = "jobpilot.db"
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "noop"
	}
	if cfg.Batch.MaxParallel <= 0 {
		cfg.Batch.MaxParallel = 4
	}
	if cfg.Batch.LockTTL <= 0 {
		cfg.Batch.LockTTL = 10 * time.Minute
	}
	if cfg.Batch.ReviewThreshold <= 0 {
		cfg.Batch.ReviewThreshold = 0.7
	}
	if cfg.Batch.MinFitScore <= 0 {
		cfg.Batch.MinFitScore = 0.6
	}
}

func validate(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "postgres":
		if cfg.Storage.URL == "" {
			return errors.New("storage.url is required for the postgres backend")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unknown storage.backend %q", cfg.Storage.Backend)
	}
	switch cfg.AI.Provider {
	case "openai":
		if cfg.AI.OpenAIKey == "" {
			return errors.New("ai.openai_key is required for the openai provider")
		}
	case "gemini":
		if cfg.AI.GeminiKey == "" {
			return errors.New("ai.gemini_key is required for the gemini provider")
		}
	case "noop":
	default:
		return fmt.Errorf("unknown ai.provider %q", cfg.AI.Provider)
	}
	return nil
}
