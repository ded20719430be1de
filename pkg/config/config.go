package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Binance struct {
		BaseURL       string        `yaml:"base_url"`
		WebSocketURL  string        `yaml:"websocket_url"`
		DefaultSymbol string        `yaml:"default_symbol"`
		Symbols       []string      `yaml:"symbols"`
		Timeout       time.Duration `yaml:"timeout"`
		DemoMode      bool          `yaml:"demo_mode"`
		Retry         struct {
			MaxAttempts     int           `yaml:"max_attempts"`
			InitialInterval time.Duration `yaml:"initial_interval"`
			MaxInterval     time.Duration `yaml:"max_interval"`
		} `yaml:"retry"`
	} `yaml:"binance"`
	Cache struct {
		MonthlyTTL    time.Duration `yaml:"monthly_ttl"`
		HistoricalTTL time.Duration `yaml:"historical_ttl"`
		StatsTTL      time.Duration `yaml:"stats_ttl"`
		MemoryMaxSize int           `yaml:"memory_max_size"`
		Redis         struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Refresh struct {
		Auto     bool          `yaml:"auto"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"refresh"`
	Alerts struct {
		Enabled bool `yaml:"enabled"`
		Kafka   struct {
			Brokers      []string      `yaml:"brokers"`
			Topic        string        `yaml:"topic"`
			RequiredAcks int           `yaml:"required_acks"`
			Compression  string        `yaml:"compression"`
			MaxAttempts  int           `yaml:"max_attempts"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"kafka"`
	} `yaml:"alerts"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		c.Binance.BaseURL = v
	}
	if v := os.Getenv("BINANCE_WS_URL"); v != "" {
		c.Binance.WebSocketURL = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Binance.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("DEMO_MODE"); v != "" {
		c.Binance.DemoMode = v == "true" || v == "1"
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port := v, 6379
		if i := strings.LastIndex(v, ":"); i > 0 {
			host = v[:i]
			fmt.Sscanf(v[i+1:], "%d", &port)
		}
		c.Cache.Redis.Enabled = true
		c.Cache.Redis.Host = host
		c.Cache.Redis.Port = port
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Alerts.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("ALERTS_TOPIC"); v != "" {
		c.Alerts.Kafka.Topic = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Binance.BaseURL == "" {
		c.Binance.BaseURL = "https://api.binance.com/api/v3"
	}
	if c.Binance.WebSocketURL == "" {
		c.Binance.WebSocketURL = "wss://stream.binance.com:9443/ws"
	}
	if c.Binance.DefaultSymbol == "" {
		c.Binance.DefaultSymbol = "BTCUSDT"
	}
	if len(c.Binance.Symbols) == 0 {
		c.Binance.Symbols = []string{"BTCUSDT", "ETHUSDT", "ADAUSDT", "SOLUSDT", "DOTUSDT", "LINKUSDT"}
	}
	if c.Binance.Timeout <= 0 {
		c.Binance.Timeout = 15 * time.Second
	}
	if c.Binance.Retry.MaxAttempts <= 0 {
		c.Binance.Retry.MaxAttempts = 3
	}
	if c.Binance.Retry.InitialInterval <= 0 {
		c.Binance.Retry.InitialInterval = time.Second
	}
	if c.Binance.Retry.MaxInterval <= 0 {
		c.Binance.Retry.MaxInterval = 30 * time.Second
	}
	if c.Cache.MonthlyTTL <= 0 {
		c.Cache.MonthlyTTL = 2 * time.Minute
	}
	if c.Cache.HistoricalTTL <= 0 {
		c.Cache.HistoricalTTL = 5 * time.Minute
	}
	if c.Cache.StatsTTL <= 0 {
		c.Cache.StatsTTL = 30 * time.Second
	}
	if c.Cache.MemoryMaxSize <= 0 {
		c.Cache.MemoryMaxSize = 1000
	}
	if c.Refresh.Interval <= 0 {
		c.Refresh.Interval = 30 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Binance.BaseURL == "" {
		return fmt.Errorf("binance.base_url is required")
	}
	if len(c.Binance.Symbols) == 0 {
		return fmt.Errorf("binance.symbols cannot be empty")
	}
	if c.Alerts.Enabled && len(c.Alerts.Kafka.Brokers) == 0 {
		return fmt.Errorf("alerts.kafka.brokers required when alerts are enabled")
	}
	return nil
}
