package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPPort != 8000 || cfg.WorkerMetricsPort != 8001 {
		t.Fatalf("unexpected ports: %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "kafka:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.RequestsTopic != "ml.prediction.requests" || cfg.ResultsTopic != "ml.prediction.results" {
		t.Fatalf("unexpected topics: %+v", cfg)
	}
	if cfg.ResultStoreCapacity != 10000 || cfg.MaxRequestsPerMinute != 60 {
		t.Fatalf("unexpected pipeline limits: %+v", cfg)
	}
	if cfg.ConnectRetries != 10 || cfg.ConnectBackoff != 500*time.Millisecond {
		t.Fatalf("unexpected connect settings: %+v", cfg)
	}
	if cfg.ModelName != "distilbert-base-uncased-finetuned-sst-2-english" {
		t.Fatalf("unexpected model name: %q", cfg.ModelName)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, `
service:
  version: 1.2.3
  log_level: DEBUG
  http_port: 9000
dependencies:
  kafka_brokers: ["broker-a:9092", "broker-b:9092"]
  requests_topic: reviews.in
  results_topic: reviews.out
  dead_letter_topic: reviews.dlq
  redis_url: redis://cache:6379/0
pipeline:
  result_store_capacity: 250
  connect_backoff_ms: 100
  model_name: tiny-sentiment
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Version != "1.2.3" || cfg.LogLevel != "DEBUG" || cfg.HTTPPort != 9000 {
		t.Fatalf("service section not applied: %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "broker-b:9092" {
		t.Fatalf("brokers not applied: %v", cfg.KafkaBrokers)
	}
	if cfg.RequestsTopic != "reviews.in" || cfg.ResultsTopic != "reviews.out" || cfg.DeadLetterTopic != "reviews.dlq" {
		t.Fatalf("topics not applied: %+v", cfg)
	}
	if cfg.RedisURL != "redis://cache:6379/0" {
		t.Fatalf("redis url not applied: %q", cfg.RedisURL)
	}
	if cfg.ResultStoreCapacity != 250 || cfg.ConnectBackoff != 100*time.Millisecond || cfg.ModelName != "tiny-sentiment" {
		t.Fatalf("pipeline section not applied: %+v", cfg)
	}
	// Untouched keys keep their defaults.
	if cfg.WorkerConsumerGroup != "ml-worker-group" {
		t.Fatalf("default consumer group lost: %q", cfg.WorkerConsumerGroup)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
service:
  http_port: 9000
dependencies:
  kafka_brokers: ["file-broker:9092"]
`)
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("KAFKA_BROKERS", "env-a:9092, env-b:9092")
	t.Setenv("KAFKA_TOPIC_REQUESTS", "env.requests")
	t.Setenv("RESULT_STORE_CAPACITY", "42")
	t.Setenv("MODEL_NAME", "env-model")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("env HTTP_PORT not applied: %d", cfg.HTTPPort)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "env-a:9092" || cfg.KafkaBrokers[1] != "env-b:9092" {
		t.Fatalf("env KAFKA_BROKERS not applied: %v", cfg.KafkaBrokers)
	}
	if cfg.RequestsTopic != "env.requests" || cfg.ResultStoreCapacity != 42 || cfg.ModelName != "env-model" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "service: [not a mapping")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "same topics", env: map[string]string{
			"KAFKA_TOPIC_REQUESTS": "same.topic",
			"KAFKA_TOPIC_RESULTS":  "same.topic",
		}},
		{name: "zero capacity", env: map[string]string{"RESULT_STORE_CAPACITY": "0"}},
		{name: "negative capacity", env: map[string]string{"RESULT_STORE_CAPACITY": "-5"}},
		{name: "port out of range", env: map[string]string{"HTTP_PORT": "70000"}},
		{name: "zero rate limit", env: map[string]string{"MAX_REQUESTS_PER_MINUTE": "0"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("HTTP_PORT", "not-a-number")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPPort != 8000 {
		t.Fatalf("expected default port on unparseable env, got %d", cfg.HTTPPort)
	}
}
