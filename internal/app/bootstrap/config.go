package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is built once at startup from the yaml file overlaid by
// environment variables, validated eagerly, and passed to every
// component. Nothing reads the environment after this.
type Config struct {
	GatewayServiceName string
	WorkerServiceName  string
	Version            string
	LogLevel           string

	HTTPPort          int
	GatewayGRPCPort   int
	WorkerGRPCPort    int
	WorkerMetricsPort int

	KafkaBrokers         []string
	RequestsTopic        string
	ResultsTopic         string
	DeadLetterTopic      string
	WorkerConsumerGroup  string
	GatewayConsumerGroup string
	ConnectRetries       int
	ConnectBackoff       time.Duration

	ResultStoreCapacity  int
	MaxRequestsPerMinute int
	RedisURL             string

	ModelName string
}

type configFile struct {
	Service struct {
		Version           string `yaml:"version"`
		LogLevel          string `yaml:"log_level"`
		HTTPPort          int    `yaml:"http_port"`
		GatewayGRPCPort   int    `yaml:"gateway_grpc_port"`
		WorkerGRPCPort    int    `yaml:"worker_grpc_port"`
		WorkerMetricsPort int    `yaml:"worker_metrics_port"`
	} `yaml:"service"`
	Dependencies struct {
		KafkaBrokers         []string `yaml:"kafka_brokers"`
		RequestsTopic        string   `yaml:"requests_topic"`
		ResultsTopic         string   `yaml:"results_topic"`
		DeadLetterTopic      string   `yaml:"dead_letter_topic"`
		WorkerConsumerGroup  string   `yaml:"worker_consumer_group"`
		GatewayConsumerGroup string   `yaml:"gateway_consumer_group"`
		RedisURL             string   `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Pipeline struct {
		ResultStoreCapacity  int    `yaml:"result_store_capacity"`
		MaxRequestsPerMinute int    `yaml:"max_requests_per_minute"`
		ConnectRetries       int    `yaml:"connect_retries"`
		ConnectBackoffMs     int    `yaml:"connect_backoff_ms"`
		ModelName            string `yaml:"model_name"`
	} `yaml:"pipeline"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		GatewayServiceName:   "gateway",
		WorkerServiceName:    "ml-worker",
		Version:              "0.1.0",
		LogLevel:             "INFO",
		HTTPPort:             8000,
		GatewayGRPCPort:      9090,
		WorkerGRPCPort:       9091,
		WorkerMetricsPort:    8001,
		KafkaBrokers:         []string{"kafka:9092"},
		RequestsTopic:        "ml.prediction.requests",
		ResultsTopic:         "ml.prediction.results",
		WorkerConsumerGroup:  "ml-worker-group",
		GatewayConsumerGroup: "gateway-results-consumer",
		ConnectRetries:       10,
		ConnectBackoff:       500 * time.Millisecond,
		ResultStoreCapacity:  10000,
		MaxRequestsPerMinute: 60,
		ModelName:            "distilbert-base-uncased-finetuned-sst-2-english",
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.Version != "" {
			cfg.Version = f.Service.Version
		}
		if f.Service.LogLevel != "" {
			cfg.LogLevel = f.Service.LogLevel
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GatewayGRPCPort > 0 {
			cfg.GatewayGRPCPort = f.Service.GatewayGRPCPort
		}
		if f.Service.WorkerGRPCPort > 0 {
			cfg.WorkerGRPCPort = f.Service.WorkerGRPCPort
		}
		if f.Service.WorkerMetricsPort > 0 {
			cfg.WorkerMetricsPort = f.Service.WorkerMetricsPort
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
		}
		if f.Dependencies.RequestsTopic != "" {
			cfg.RequestsTopic = f.Dependencies.RequestsTopic
		}
		if f.Dependencies.ResultsTopic != "" {
			cfg.ResultsTopic = f.Dependencies.ResultsTopic
		}
		cfg.DeadLetterTopic = f.Dependencies.DeadLetterTopic
		if f.Dependencies.WorkerConsumerGroup != "" {
			cfg.WorkerConsumerGroup = f.Dependencies.WorkerConsumerGroup
		}
		if f.Dependencies.GatewayConsumerGroup != "" {
			cfg.GatewayConsumerGroup = f.Dependencies.GatewayConsumerGroup
		}
		cfg.RedisURL = f.Dependencies.RedisURL
		if f.Pipeline.ResultStoreCapacity > 0 {
			cfg.ResultStoreCapacity = f.Pipeline.ResultStoreCapacity
		}
		if f.Pipeline.MaxRequestsPerMinute > 0 {
			cfg.MaxRequestsPerMinute = f.Pipeline.MaxRequestsPerMinute
		}
		if f.Pipeline.ConnectRetries > 0 {
			cfg.ConnectRetries = f.Pipeline.ConnectRetries
		}
		if f.Pipeline.ConnectBackoffMs > 0 {
			cfg.ConnectBackoff = time.Duration(f.Pipeline.ConnectBackoffMs) * time.Millisecond
		}
		if f.Pipeline.ModelName != "" {
			cfg.ModelName = f.Pipeline.ModelName
		}
	}

	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GatewayGRPCPort = envInt("GATEWAY_GRPC_PORT", cfg.GatewayGRPCPort)
	cfg.WorkerGRPCPort = envInt("WORKER_GRPC_PORT", cfg.WorkerGRPCPort)
	cfg.WorkerMetricsPort = envInt("WORKER_METRICS_PORT", cfg.WorkerMetricsPort)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.RequestsTopic = envOrDefault("KAFKA_TOPIC_REQUESTS", cfg.RequestsTopic)
	cfg.ResultsTopic = envOrDefault("KAFKA_TOPIC_RESULTS", cfg.ResultsTopic)
	cfg.DeadLetterTopic = envOrDefault("KAFKA_TOPIC_DEAD_LETTER", cfg.DeadLetterTopic)
	cfg.WorkerConsumerGroup = envOrDefault("KAFKA_WORKER_CONSUMER_GROUP", cfg.WorkerConsumerGroup)
	cfg.GatewayConsumerGroup = envOrDefault("KAFKA_GATEWAY_CONSUMER_GROUP", cfg.GatewayConsumerGroup)
	cfg.ConnectRetries = envInt("KAFKA_CONNECT_RETRIES", cfg.ConnectRetries)
	cfg.ConnectBackoff = time.Duration(envInt("KAFKA_CONNECT_BACKOFF_MS", int(cfg.ConnectBackoff.Milliseconds()))) * time.Millisecond
	cfg.ResultStoreCapacity = envInt("RESULT_STORE_CAPACITY", cfg.ResultStoreCapacity)
	cfg.MaxRequestsPerMinute = envInt("MAX_REQUESTS_PER_MINUTE", cfg.MaxRequestsPerMinute)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.ModelName = envOrDefault("MODEL_NAME", cfg.ModelName)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate fails fast on invalid configuration rather than at first use.
func (c Config) validate() error {
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("config: at least one kafka broker required")
	}
	if c.RequestsTopic == "" || c.ResultsTopic == "" {
		return fmt.Errorf("config: requests and results topics required")
	}
	if c.RequestsTopic == c.ResultsTopic {
		return fmt.Errorf("config: requests and results topics must differ")
	}
	if c.WorkerConsumerGroup == "" || c.GatewayConsumerGroup == "" {
		return fmt.Errorf("config: consumer group ids required")
	}
	if c.ResultStoreCapacity <= 0 {
		return fmt.Errorf("config: result store capacity must be positive")
	}
	if c.ConnectRetries <= 0 {
		return fmt.Errorf("config: connect retries must be positive")
	}
	if c.ConnectBackoff <= 0 {
		return fmt.Errorf("config: connect backoff must be positive")
	}
	if c.MaxRequestsPerMinute <= 0 {
		return fmt.Errorf("config: max requests per minute must be positive")
	}
	for _, port := range []int{c.HTTPPort, c.GatewayGRPCPort, c.WorkerGRPCPort, c.WorkerMetricsPort} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("config: invalid port %d", port)
		}
	}
	return nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
