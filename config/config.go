// Package config loads the simulator configuration from command line flags
// and optionally from a YAML file.
package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Simulation struct {
		Transport     string        `yaml:"transport"`
		QueueCapacity int           `yaml:"queue_capacity"`
		Duration      time.Duration `yaml:"duration"`
		Seed          int64         `yaml:"seed"`
		LogLevel      string        `yaml:"log_level"`
		LogFormat     string        `yaml:"log_format"`
	} `yaml:"simulation"`

	Execution struct {
		MinLatencyMs int `yaml:"min_latency_ms"`
		MaxLatencyMs int `yaml:"max_latency_ms"`
	} `yaml:"execution"`

	Arbitrage struct {
		SpreadThreshold  float64 `yaml:"spread_threshold"`
		ExecutionEnabled bool    `yaml:"execution_enabled"`
	} `yaml:"arbitrage"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Kafka struct {
		Enabled    bool   `yaml:"enabled"`
		BrokerAddr string `yaml:"broker_addr"`
		Topic      string `yaml:"topic"`
	} `yaml:"kafka"`

	Otel struct {
		Enabled  bool   `yaml:"enabled"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"otel"`
}

// Default configuration values
var (
	configFile    = flag.String("config", "", "Path to config file (YAML)")
	transportKind = flag.String("transport", "memory", "Transport substrate: memory, pipe")
	queueCapacity = flag.Int("queue_capacity", 64, "Order queue capacity")
	duration      = flag.Duration("duration", 30*time.Second, "Session duration")
	seed          = flag.Int64("seed", 0, "Random seed, 0 means time-based")
	logLevel      = flag.String("log_level", "info", "Log level: debug, info, warn, error")
	logFormat     = flag.String("log_format", "pretty", "Log format: json, pretty")
)

// LoadConfig loads the configuration from command line flags and optionally from a config file
func LoadConfig() (*Config, error) {
	// Parse command line flags
	flag.Parse()

	// Create default configuration
	config := &Config{}
	config.Simulation.Transport = *transportKind
	config.Simulation.QueueCapacity = *queueCapacity
	config.Simulation.Duration = *duration
	config.Simulation.Seed = *seed
	config.Simulation.LogLevel = *logLevel
	config.Simulation.LogFormat = *logFormat
	config.Execution.MinLatencyMs = 50
	config.Execution.MaxLatencyMs = 200
	config.Arbitrage.SpreadThreshold = 0.02
	config.Arbitrage.ExecutionEnabled = true
	config.Redis.Addr = "localhost:6379"
	config.Kafka.BrokerAddr = "localhost:9092"
	config.Kafka.Topic = "tradesim-audit"
	config.Otel.Endpoint = "localhost:4317"

	// Load configuration from file if specified
	if *configFile != "" {
		yamlFile, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Parse YAML configuration
		if err := yaml.Unmarshal(yamlFile, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		// Log loaded configuration
		log.Printf("Loaded configuration from %s", *configFile)
	}

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

func validate(config *Config) error {
	if config.Simulation.Transport != "memory" && config.Simulation.Transport != "pipe" {
		return fmt.Errorf("unknown transport %q", config.Simulation.Transport)
	}
	if config.Simulation.QueueCapacity <= 0 {
		return fmt.Errorf("queue capacity must be positive")
	}
	if config.Execution.MinLatencyMs > config.Execution.MaxLatencyMs {
		return fmt.Errorf("min latency must not exceed max latency")
	}
	return nil
}
