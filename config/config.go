package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Retailers  RetailersConfig  `mapstructure:"retailers"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Dataset    DatasetConfig    `mapstructure:"dataset"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RetailerConfig holds the settings every connector shares
type RetailerConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	BaseURL       string  `mapstructure:"base_url"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

// AHConfig adds the anonymous token settings
type AHConfig struct {
	RetailerConfig `mapstructure:",squash"`
	ClientID       string        `mapstructure:"client_id"`
	TokenMargin    time.Duration `mapstructure:"token_margin"`
}

// DirkConfig adds the store whose prices are looked up
type DirkConfig struct {
	RetailerConfig `mapstructure:",squash"`
	StoreID        int `mapstructure:"store_id"`
}

// RetailersConfig holds one section per retailer
type RetailersConfig struct {
	AH     AHConfig       `mapstructure:"ah"`
	Jumbo  RetailerConfig `mapstructure:"jumbo"`
	Dirk   DirkConfig     `mapstructure:"dirk"`
	Picnic RetailerConfig `mapstructure:"picnic"`
	Aldi   RetailerConfig `mapstructure:"aldi"`
	Plus   RetailerConfig `mapstructure:"plus"`
}

// AggregatorConfig holds the fan-out settings
type AggregatorConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	ErrorPolicy string        `mapstructure:"error_policy"` // "surface" or "legacy"
	LiveShare   float64       `mapstructure:"live_share"`
}

// DatasetConfig holds the static fallback dataset settings
type DatasetConfig struct {
	URL     string        `mapstructure:"url"`
	TTL     time.Duration `mapstructure:"ttl"`
	MaxSize string        `mapstructure:"max_size"` // e.g. "8MB"
}

// MaxBytes returns the parsed download cap; validate has already checked it
func (d DatasetConfig) MaxBytes() int64 {
	size, err := parseSize(d.MaxSize)
	if err != nil {
		return 0
	}
	return int64(size)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
	Dir    string `mapstructure:"dir"`
}

// Load loads configuration from the .env file, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricelens/")

	// Environment variable settings: PRICELENS_RETAILERS_AH_CLIENT_ID -> retailers.ah.client_id
	v.SetEnvPrefix("PRICELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile reads .env from the working directory without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values.
// Every key gets a default so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Retailer defaults
	v.SetDefault("retailers.ah.enabled", true)
	v.SetDefault("retailers.ah.base_url", "https://api.ah.nl")
	v.SetDefault("retailers.ah.client_id", "appie")
	v.SetDefault("retailers.ah.token_margin", "60s")
	v.SetDefault("retailers.ah.rate_per_second", 5)
	v.SetDefault("retailers.ah.burst", 5)

	v.SetDefault("retailers.jumbo.enabled", true)
	v.SetDefault("retailers.jumbo.base_url", "https://mobileapi.jumbo.com")
	v.SetDefault("retailers.jumbo.rate_per_second", 5)
	v.SetDefault("retailers.jumbo.burst", 5)

	v.SetDefault("retailers.dirk.enabled", true)
	v.SetDefault("retailers.dirk.base_url", "https://web-dirk-gateway.detailresults.nl")
	v.SetDefault("retailers.dirk.store_id", 66)
	v.SetDefault("retailers.dirk.rate_per_second", 5)
	v.SetDefault("retailers.dirk.burst", 5)

	// Needs household sessions registered by their owner; off until one exists
	v.SetDefault("retailers.picnic.enabled", false)
	v.SetDefault("retailers.picnic.base_url", "")
	v.SetDefault("retailers.picnic.rate_per_second", 0)
	v.SetDefault("retailers.picnic.burst", 0)

	for _, r := range []string{"aldi", "plus"} {
		v.SetDefault("retailers."+r+".enabled", true)
		v.SetDefault("retailers."+r+".base_url", "")
		v.SetDefault("retailers."+r+".rate_per_second", 0)
		v.SetDefault("retailers."+r+".burst", 0)
	}

	// Aggregator defaults
	v.SetDefault("aggregator.timeout", "8s")
	v.SetDefault("aggregator.error_policy", "surface")
	v.SetDefault("aggregator.live_share", 0.6)

	// Dataset defaults
	v.SetDefault("dataset.url", "https://raw.githubusercontent.com/supermarkt/checkjebon/main/data/supermarkets.json")
	v.SetDefault("dataset.ttl", "6h")
	v.SetDefault("dataset.max_size", "16MB")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.dir", "")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("server port is required (set PRICELENS_SERVER_PORT)")
	}

	r := config.Retailers
	if r.AH.Enabled {
		if r.AH.BaseURL == "" {
			return fmt.Errorf("AH base URL is required when AH is enabled")
		}
		if strings.TrimSpace(r.AH.ClientID) == "" {
			return fmt.Errorf("AH client id is required (set PRICELENS_RETAILERS_AH_CLIENT_ID)")
		}
	}
	if r.Jumbo.Enabled && r.Jumbo.BaseURL == "" {
		return fmt.Errorf("Jumbo base URL is required when Jumbo is enabled")
	}
	if r.Dirk.Enabled && r.Dirk.BaseURL == "" {
		return fmt.Errorf("Dirk base URL is required when Dirk is enabled")
	}

	if config.Aggregator.Timeout <= 0 {
		return fmt.Errorf("aggregator timeout must be positive, got: %s", config.Aggregator.Timeout)
	}
	if p := config.Aggregator.ErrorPolicy; p != "surface" && p != "legacy" {
		return fmt.Errorf("error policy must be 'surface' or 'legacy', got: %s", p)
	}
	if s := config.Aggregator.LiveShare; s <= 0 || s >= 1 {
		return fmt.Errorf("live share must be between 0 and 1, got: %v", s)
	}

	if (r.Jumbo.Enabled || r.Aldi.Enabled || r.Plus.Enabled) && config.Dataset.URL == "" {
		return fmt.Errorf("dataset URL is required when a dataset-backed retailer is enabled")
	}
	if config.Dataset.TTL <= 0 {
		return fmt.Errorf("dataset TTL must be positive, got: %s", config.Dataset.TTL)
	}
	if size, err := parseSize(config.Dataset.MaxSize); err != nil || size == 0 {
		return fmt.Errorf("dataset max size must be a size such as '16MB', got: %q", config.Dataset.MaxSize)
	}

	if f := config.Log.Format; f != "console" && f != "json" {
		return fmt.Errorf("log format must be 'console' or 'json', got: %s", f)
	}

	return nil
}

func parseSize(s string) (datasize.ByteSize, error) {
	var size datasize.ByteSize
	err := size.UnmarshalText([]byte(strings.TrimSpace(s)))
	return size, err
}
