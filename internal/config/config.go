package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"loan-risk/internal/predict"
)

// EnvPrefix is prepended to every environment override, e.g. LOAN_RISK_PREDICT_BASE_URL.
const EnvPrefix = "LOAN_RISK"

// Config is the resolved server configuration.
type Config struct {
	Port           string        `mapstructure:"port"`
	DBPath         string        `mapstructure:"db_path"`
	SilentDB       bool          `mapstructure:"silent_db"`
	LogLevel       string        `mapstructure:"log_level"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	Retention      time.Duration `mapstructure:"retention"`
	Predict        PredictConfig `mapstructure:"predict"`
}

// PredictConfig configures the outbound prediction client.
type PredictConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	FallbackBaseURL string        `mapstructure:"fallback_base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	CacheSize       int           `mapstructure:"cache_size"`
	MaxExplanations int           `mapstructure:"max_explanations"`
}

// ClientConfig converts to the predict package configuration.
func (p PredictConfig) ClientConfig() predict.Config {
	return predict.Config{
		BaseURL:         p.BaseURL,
		Timeout:         p.Timeout,
		CacheTTL:        p.CacheTTL,
		CacheSize:       p.CacheSize,
		MaxExplanations: p.MaxExplanations,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "2000")
	v.SetDefault("db_path", "data/loan-risk.db")
	v.SetDefault("silent_db", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("allowed_origins", []string{
		"http://localhost:2000",
		"http://127.0.0.1:2000",
	})
	v.SetDefault("retention", "0s")
	v.SetDefault("predict.base_url", predict.DefaultBaseURL)
	v.SetDefault("predict.fallback_base_url", "")
	v.SetDefault("predict.timeout", "30s")
	v.SetDefault("predict.cache_ttl", "10m")
	v.SetDefault("predict.cache_size", predict.DefaultCacheSize)
	v.SetDefault("predict.max_explanations", 0)
}

// Load reads defaults, the optional YAML file at path, then LOAN_RISK_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Port = strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
	c.DBPath = strings.TrimSpace(c.DBPath)
	c.Predict.BaseURL = strings.TrimSpace(c.Predict.BaseURL)
	c.Predict.FallbackBaseURL = strings.TrimSpace(c.Predict.FallbackBaseURL)
	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, origin := range c.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.AllowedOrigins = origins
}

func (c *Config) validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if c.Predict.Timeout < 0 {
		return fmt.Errorf("predict.timeout must not be negative")
	}
	if c.Predict.CacheSize < 0 {
		return fmt.Errorf("predict.cache_size must not be negative")
	}
	if c.Predict.MaxExplanations < 0 {
		return fmt.Errorf("predict.max_explanations must not be negative")
	}
	if c.Retention < 0 {
		return fmt.Errorf("retention must not be negative")
	}
	return nil
}

// Level returns the parsed logrus level.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
