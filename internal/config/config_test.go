package config

import "testing"

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	applyDefaults(&cfg)
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.Path == "" {
		t.Fatalf("sqlite default missing: %+v", cfg.Storage)
	}
	if cfg.Batch.MaxParallel != 4 || cfg.Batch.ReviewThreshold != 0.7 || cfg.Batch.MinFitScore != 0.6 {
		t.Fatalf("batch defaults missing: %+v", cfg.Batch)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Fatalf("log defaults missing: %+v", cfg.Log)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Config{Storage: StorageConfig{Backend: "postgres"}, AI: AIConfig{Provider: "noop"}}
	if err := validate(&cfg); err == nil {
		t.Fatalf("postgres without url must fail")
	}
	cfg.Storage.URL = "postgres://localhost/jobpilot"
	if err := validate(&cfg); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	cfg.AI.Provider = "openai"
	if err := validate(&cfg); err == nil {
		t.Fatalf("openai without key must fail")
	}
	cfg.Storage.Backend = "mongodb"
	cfg.AI = AIConfig{Provider: "noop"}
	if err := validate(&cfg); err == nil {
		t.Fatalf("unknown backend must fail")
	}
}
