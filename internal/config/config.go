// Package config loads application configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Invoicing InvoicingConfig `yaml:"invoicing" mapstructure:"invoicing"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Tax       TaxConfig       `yaml:"tax" mapstructure:"tax"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the Postgres backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// InvoicingConfig holds credentials and tuning for the invoicing provider API.
type InvoicingConfig struct {
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	Username       string  `yaml:"username" mapstructure:"username"`
	Password       string  `yaml:"password" mapstructure:"password"`
	PageSize       int     `yaml:"page_size" mapstructure:"page_size"`
	SessionTTLMins int     `yaml:"session_ttl_mins" mapstructure:"session_ttl_mins"`
	RateLimit      float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// GeocodeConfig configures the Census geocoder client.
type GeocodeConfig struct {
	Benchmark       string  `yaml:"benchmark" mapstructure:"benchmark"`
	Vintage         string  `yaml:"vintage" mapstructure:"vintage"`
	RateLimit       float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	CountyShapefile string  `yaml:"county_shapefile" mapstructure:"county_shapefile"`
}

// TaxConfig configures tax computation.
type TaxConfig struct {
	StateRate         float64 `yaml:"state_rate" mapstructure:"state_rate"`
	State             string  `yaml:"state" mapstructure:"state"`
	DefaultCounty     string  `yaml:"default_county" mapstructure:"default_county"`
	DefaultCountyRate float64 `yaml:"default_county_rate" mapstructure:"default_county_rate"`
	BatchSize         int     `yaml:"batch_size" mapstructure:"batch_size"`
}

// ServerConfig configures the status/trigger HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FIELDOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("invoicing.page_size", 999)
	v.SetDefault("invoicing.session_ttl_mins", 25)
	v.SetDefault("invoicing.rate_limit", 5)
	v.SetDefault("geocode.benchmark", "Public_AR_Current")
	v.SetDefault("geocode.vintage", "Current_Current")
	v.SetDefault("geocode.rate_limit", 10)
	v.SetDefault("tax.state", "NC")
	v.SetDefault("tax.state_rate", 0.0475)
	v.SetDefault("tax.default_county", "Wake")
	v.SetDefault("tax.default_county_rate", 0.0250)
	v.SetDefault("tax.batch_size", 20)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
