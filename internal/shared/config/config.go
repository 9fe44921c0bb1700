package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	Address           string        `yaml:"address"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	HealthCheckPeriod time.Duration `yaml:"health_check_period"`
}

type EngineConfig struct {
	// Identity is the deployer address used in pair address derivation.
	Identity string `yaml:"identity"`
	// FeeRecipient enables the protocol fee when set to a non-zero
	// hex address. FeeSetter is the only identity allowed to change it.
	FeeRecipient string `yaml:"fee_recipient"`
	FeeSetter    string `yaml:"fee_setter"`
	// InitCodeHash overrides the pair code hash used in derivation.
	InitCodeHash string `yaml:"init_code_hash"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

func LoadConfig(configPath string) (*Config, error) {
	config := getDefaultConfig()

	if configPath != "" {
		if err := loadFromYAML(configPath, config); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		config.Server.Address = addr
	}
	if identity := os.Getenv("ENGINE_IDENTITY"); identity != "" {
		config.Engine.Identity = identity
	}
	if feeTo := os.Getenv("FEE_RECIPIENT"); feeTo != "" {
		config.Engine.FeeRecipient = feeTo
	}
	if feeSetter := os.Getenv("FEE_SETTER"); feeSetter != "" {
		config.Engine.FeeSetter = feeSetter
	}

	return config, nil
}

func loadFromYAML(configPath string, config *Config) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, config)
}

func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:           ":1337",
			ShutdownTimeout:   30 * time.Second,
			HealthCheckPeriod: 30 * time.Second,
		},
		Engine: EngineConfig{
			Identity:  "0x0000000000000000000000000000000000001337",
			FeeSetter: "0x0000000000000000000000000000000000001337",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 600, // 10 requests per second
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
