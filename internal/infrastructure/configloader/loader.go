package configloader

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither a flag nor CONFIG_PATH points elsewhere.
const DefaultPath = "config/config.yml"

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Port             string   `yaml:"port"`
	ReadTimeoutSec   int      `yaml:"readTimeoutSec"`
	WriteTimeoutSec  int      `yaml:"writeTimeoutSec"`
	IdleTimeoutSec   int      `yaml:"idleTimeoutSec"`
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	ShutdownTimeoutS int      `yaml:"shutdownTimeoutSec"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// CoinGeckoConfig holds CoinGecko API specific configurations.
type CoinGeckoConfig struct {
	APIKey                 string `yaml:"apiKey"`
	APIKeyHeader           string `yaml:"apiKeyHeader"` // x-cg-demo-api-key or x-cg-pro-api-key
	BaseURL                string `yaml:"baseURL"`
	VsCurrency             string `yaml:"vsCurrency"`
	RequestTimeoutMillis   int64  `yaml:"requestTimeoutMillis"`
	RequestIntervalMillis  int64  `yaml:"requestIntervalMillis"`
	MaxIDsPerMarketRequest int    `yaml:"maxIdsPerMarketRequest"`
}

// RefreshConfig holds configuration for the periodic price refresh.
type RefreshConfig struct {
	IntervalSeconds int  `yaml:"intervalSeconds"`
	TimeoutSeconds  int  `yaml:"timeoutSeconds"`
	Disabled        bool `yaml:"disabled"`
}

// SearchConfig holds configuration for token discovery.
type SearchConfig struct {
	DebounceMillis      int64    `yaml:"debounceMillis"`
	TrendingLimit       int      `yaml:"trendingLimit"`
	ResultLimit         int      `yaml:"resultLimit"`
	CacheTTLSeconds     int      `yaml:"cacheTTLSeconds"`
	FallbackTrendingIDs []string `yaml:"fallbackTrendingIds"`
	DefaultHistoryDays  int      `yaml:"defaultHistoryDays"`
}

// StorageConfig selects and configures the durable key/value backend.
type StorageConfig struct {
	Driver    string `yaml:"driver"` // sqlite, postgres, redis or memory
	DSN       string `yaml:"dsn"`    // file path for sqlite, connection string for postgres
	Namespace string `yaml:"namespace"`
	Redis     struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// SwaggerConfig holds configuration for Swagger UI.
type SwaggerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	SpecPath string `yaml:"specPath"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	CoinGecko CoinGeckoConfig `yaml:"coingecko"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Search    SearchConfig    `yaml:"search"`
	Storage   StorageConfig   `yaml:"storage"`
	Swagger   SwaggerConfig   `yaml:"swagger"`
}

var supportedDrivers = map[string]struct{}{
	"sqlite":   {},
	"postgres": {},
	"redis":    {},
	"memory":   {},
}

// ResolvePath returns the flag value if set, then CONFIG_PATH, then DefaultPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return DefaultPath
}

// Load reads the YAML configuration file from the given path and unmarshals it.
// A missing file is not an error: the defaults alone make a working configuration.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
		}
		logrus.Infof("Loaded configuration from %s", path)
	case os.IsNotExist(err):
		logrus.Warnf("Config file %s not found, using defaults", path)
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	cfg.Server.Port = strings.TrimPrefix(cfg.Server.Port, ":")
	if cfg.Server.ReadTimeoutSec <= 0 {
		cfg.Server.ReadTimeoutSec = 15
	}
	if cfg.Server.WriteTimeoutSec <= 0 {
		cfg.Server.WriteTimeoutSec = 60
	}
	if cfg.Server.IdleTimeoutSec <= 0 {
		cfg.Server.IdleTimeoutSec = 120
	}
	if cfg.Server.ShutdownTimeoutS <= 0 {
		cfg.Server.ShutdownTimeoutS = 5
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.CoinGecko.BaseURL == "" {
		cfg.CoinGecko.BaseURL = "https://api.coingecko.com/api/v3" // Default public API
	}
	if cfg.CoinGecko.VsCurrency == "" {
		cfg.CoinGecko.VsCurrency = "usd"
	}
	if cfg.CoinGecko.APIKey != "" && cfg.CoinGecko.APIKeyHeader == "" {
		cfg.CoinGecko.APIKeyHeader = "x-cg-demo-api-key"
	}
	if cfg.CoinGecko.RequestTimeoutMillis <= 0 {
		cfg.CoinGecko.RequestTimeoutMillis = 10000
		logrus.Debugf("coingecko.requestTimeoutMillis not set, defaulting to %d ms", cfg.CoinGecko.RequestTimeoutMillis)
	}
	if cfg.CoinGecko.RequestIntervalMillis <= 0 {
		cfg.CoinGecko.RequestIntervalMillis = 1000
	}
	if cfg.CoinGecko.MaxIDsPerMarketRequest <= 0 {
		cfg.CoinGecko.MaxIDsPerMarketRequest = 250 // CoinGecko per_page limit
	}

	if cfg.Refresh.IntervalSeconds <= 0 {
		cfg.Refresh.IntervalSeconds = 60
	}
	if cfg.Refresh.TimeoutSeconds <= 0 {
		cfg.Refresh.TimeoutSeconds = 30
	}

	if cfg.Search.DebounceMillis <= 0 {
		cfg.Search.DebounceMillis = 500
	}
	if cfg.Search.TrendingLimit <= 0 {
		cfg.Search.TrendingLimit = 5
	}
	if cfg.Search.ResultLimit <= 0 {
		cfg.Search.ResultLimit = 10
	}
	if cfg.Search.CacheTTLSeconds <= 0 {
		cfg.Search.CacheTTLSeconds = 300
	}
	if len(cfg.Search.FallbackTrendingIDs) == 0 {
		cfg.Search.FallbackTrendingIDs = []string{"bitcoin", "ethereum", "solana", "cardano", "polygon"}
	}
	if cfg.Search.DefaultHistoryDays <= 0 {
		cfg.Search.DefaultHistoryDays = 7
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	cfg.Storage.Driver = strings.ToLower(cfg.Storage.Driver)
	if cfg.Storage.Driver == "sqlite" && cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "data/portfolio.db"
		logrus.Infof("storage.dsn not set, defaulting to %s", cfg.Storage.DSN)
	}
	if cfg.Storage.Namespace == "" {
		cfg.Storage.Namespace = "token-portfolio"
	}
	if cfg.Storage.Driver == "redis" && cfg.Storage.Redis.Addr == "" {
		cfg.Storage.Redis.Addr = "localhost:6379"
	}

	if cfg.Swagger.SpecPath == "" {
		cfg.Swagger.SpecPath = "./docs/swagger.yaml"
	}
}

// Validate reports configuration values that cannot be defaulted.
func (c *Config) Validate() error {
	if _, ok := supportedDrivers[c.Storage.Driver]; !ok {
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for the postgres driver")
	}
	if !strings.HasPrefix(c.CoinGecko.BaseURL, "http://") && !strings.HasPrefix(c.CoinGecko.BaseURL, "https://") {
		return fmt.Errorf("coingecko.baseURL must be an http(s) URL, got %q", c.CoinGecko.BaseURL)
	}
	return nil
}

// RequestTimeout returns the per-request timeout of the market data client.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.CoinGecko.RequestTimeoutMillis) * time.Millisecond
}

// RequestInterval returns the minimum spacing between paced market data calls.
func (c *Config) RequestInterval() time.Duration {
	return time.Duration(c.CoinGecko.RequestIntervalMillis) * time.Millisecond
}

// RefreshInterval returns the period of the price refresh timer.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalSeconds) * time.Second
}

// RefreshTimeout bounds a single refresh cycle.
func (c *Config) RefreshTimeout() time.Duration {
	return time.Duration(c.Refresh.TimeoutSeconds) * time.Second
}

// SearchDebounce returns the quiet period before a debounced search fires.
func (c *Config) SearchDebounce() time.Duration {
	return time.Duration(c.Search.DebounceMillis) * time.Millisecond
}

// SearchCacheTTL returns how long trending and search results are reused.
func (c *Config) SearchCacheTTL() time.Duration {
	return time.Duration(c.Search.CacheTTLSeconds) * time.Second
}

// Default returns a configuration with every default applied, as if loaded from an empty file.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}
