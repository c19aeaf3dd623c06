// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Logging  LoggingConfig
	Database DatabaseConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Server   ServerConfig
	YouTube  YouTubeConfig
	Gemini   GeminiConfig
	Analysis AnalysisConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// RedisConfig contains the fast-cache / queue connection configuration.
// An empty URL disables both the cache tier and the deferred refresh queue.
type RedisConfig struct {
	URL string
}

// RabbitMQConfig contains the optional analysis event exchange configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Host       string
	User       string
	Password   string
	Exchange   string
	RoutingKey string
	Port       int
	Enabled    bool
}

// YouTubeConfig contains the metadata provider configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type YouTubeConfig struct {
	APIKey         string
	DailyQuota     int
	QuotaWindow    time.Duration
	MaxVideoPages  int
	RequestTimeout time.Duration
}

// GeminiConfig contains the generative analysis provider configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	RequestTimeout  time.Duration
	MaxAttempts     int
}

// AnalysisConfig contains resolution and orchestration tuning.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type AnalysisConfig struct {
	StalenessWindow       time.Duration
	MaxSampleSize         int
	MinSummaryLength      int
	DegradedMode          bool
	MaxConcurrent         int
	CacheTTLAnalysis      time.Duration
	CacheTTLChannelMeta   time.Duration
	CacheTTLVideoList     time.Duration
	CacheTTLURLMapping    time.Duration
	BackgroundTaskTimeout time.Duration
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "channel_analysis")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 5)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// Redis
	viper.SetDefault("redis.url", "redis://localhost:6379/0")

	// RabbitMQ
	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "channel.analysis")
	viper.SetDefault("rabbitmq.routingkey", "analysis.completed")

	// YouTube Data API
	viper.SetDefault("youtube.apikey", "")
	viper.SetDefault("youtube.dailyquota", 10000)
	viper.SetDefault("youtube.quotawindow", 24*time.Hour)
	viper.SetDefault("youtube.maxvideopages", 10)
	viper.SetDefault("youtube.requesttimeout", 15*time.Second)

	// Gemini
	viper.SetDefault("gemini.apikey", "")
	viper.SetDefault("gemini.model", "gemini-2.5-flash")
	viper.SetDefault("gemini.temperature", 1.0)
	viper.SetDefault("gemini.maxoutputtokens", 1000)
	viper.SetDefault("gemini.requesttimeout", 30*time.Second)
	viper.SetDefault("gemini.maxattempts", 3)

	// Analysis orchestration
	viper.SetDefault("analysis.stalenesswindow", 30*24*time.Hour)
	viper.SetDefault("analysis.maxsamplesize", 50)
	viper.SetDefault("analysis.minsummarylength", 100)
	viper.SetDefault("analysis.degradedmode", true)
	viper.SetDefault("analysis.maxconcurrent", 4)
	viper.SetDefault("analysis.cachettlanalysis", 7*24*time.Hour)
	viper.SetDefault("analysis.cachettlchannelmeta", 7*24*time.Hour)
	viper.SetDefault("analysis.cachettlvideolist", 24*time.Hour)
	viper.SetDefault("analysis.cachettlurlmapping", 24*time.Hour)
	viper.SetDefault("analysis.backgroundtasktimeout", 5*time.Minute)

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
