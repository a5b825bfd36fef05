package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Salesforce  SalesforceConfig  `yaml:"salesforce" mapstructure:"salesforce"`
	AOA         AOAConfig         `yaml:"aoa" mapstructure:"aoa"`
	Performance PerformanceConfig `yaml:"performance" mapstructure:"performance"`
	DemandCheck DemandCheckConfig `yaml:"demandcheck" mapstructure:"demandcheck"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SalesforceConfig holds Salesforce JWT auth settings and the event toggle.
type SalesforceConfig struct {
	ClientID      string `yaml:"client_id" mapstructure:"client_id"`
	Username      string `yaml:"username" mapstructure:"username"`
	KeyPath       string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL      string `yaml:"login_url" mapstructure:"login_url"`
	EventsEnabled bool   `yaml:"events_enabled" mapstructure:"events_enabled"`
}

// AOAConfig configures the automated-opportunity-allocation subsystem.
type AOAConfig struct {
	APIURL             string  `yaml:"api_url" mapstructure:"api_url"`
	TestGroup          string  `yaml:"test_group" mapstructure:"test_group"`
	TestPercentage     int     `yaml:"test_percentage" mapstructure:"test_percentage"`
	RequestsPerSecond  float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	AllocationCategory string  `yaml:"allocation_category" mapstructure:"allocation_category"`
}

// PerformanceConfig configures the monthly performance-matrix engine.
type PerformanceConfig struct {
	AlgoVersion          string `yaml:"algo_version" mapstructure:"algo_version"`
	RememberWindowMonths int    `yaml:"remember_window_months" mapstructure:"remember_window_months"`
	Epoch                string `yaml:"epoch" mapstructure:"epoch"` // YYYY-MM-DD, backfill start
}

// EpochDate parses the configured backfill epoch.
func (c PerformanceConfig) EpochDate() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.Epoch)
	if err != nil {
		return time.Time{}, eris.Wrap(err, "config: parse performance epoch")
	}
	return t, nil
}

// DemandCheckConfig configures the demand-check engine.
type DemandCheckConfig struct {
	RulesPath string `yaml:"rules_path" mapstructure:"rules_path"`
}

// ServerConfig configures the HTTP API server.
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
	v.SetEnvPrefix("BROKERAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.events_enabled", false)
	v.SetDefault("aoa.test_group", "aoa_group")
	v.SetDefault("aoa.test_percentage", 50)
	v.SetDefault("aoa.requests_per_second", 5)
	v.SetDefault("aoa.allocation_category", "berufsunfaehigkeit")
	v.SetDefault("performance.algo_version", "v2")
	v.SetDefault("performance.remember_window_months", 12)
	v.SetDefault("performance.epoch", "2024-01-01")

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
