package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Platform Platform `mapstructure:"platform"`
	Polling  Polling  `mapstructure:"polling"`
	Server   Server   `mapstructure:"server"`
	Logger   Logger   `mapstructure:"logger"`
	Database Database `mapstructure:"database"`
}

// Platform holds the configuration for the upstream trading platform API.
// The bearer session token is injected here rather than read from any
// ambient store; its lifetime is the process lifetime.
type Platform struct {
	BaseURL        string  `mapstructure:"base_url"`
	Token          string  `mapstructure:"token"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Polling holds the poll cadences and fetch limits for the read-side feeds.
type Polling struct {
	PriceInterval int `mapstructure:"price_interval"` // seconds
	TradeInterval int `mapstructure:"trade_interval"` // seconds
	TradeLimit    int `mapstructure:"trade_limit"`    // ?limit=N on the trade list
}

// Server holds the configuration for the local terminal HTTP server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the local history archive.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"` // empty disables file output
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("platform.rate_limit", 20) // requests per second
	viper.SetDefault("platform.rate_limit_burst", 5)
	viper.SetDefault("polling.price_interval", 2)
	viper.SetDefault("polling.trade_interval", 3)
	viper.SetDefault("polling.trade_limit", 50)
	viper.SetDefault("server.port", 8087)
	viper.SetDefault("logger.max_size_mb", 100)
	viper.SetDefault("logger.max_backups", 7)
	viper.SetDefault("logger.max_age_days", 30)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
