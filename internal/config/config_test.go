package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		setup   func()
		cleanup func()
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "load with defaults (no config file)",
			setup: func() {
				// Reset viper
				viper.Reset()
			},
			cleanup: func() {},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 8080 {
					t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
				}
				if cfg.Database.Host != "localhost" {
					t.Errorf("Database.Host = %s, want localhost", cfg.Database.Host)
				}
				if cfg.Database.Port != 5432 {
					t.Errorf("Database.Port = %d, want 5432", cfg.Database.Port)
				}
				if cfg.YouTube.DailyQuota != 10000 {
					t.Errorf("YouTube.DailyQuota = %d, want 10000", cfg.YouTube.DailyQuota)
				}
				if cfg.Gemini.Model != "gemini-2.5-flash" {
					t.Errorf("Gemini.Model = %s, want gemini-2.5-flash", cfg.Gemini.Model)
				}
				if cfg.Analysis.StalenessWindow != 30*24*time.Hour {
					t.Errorf("Analysis.StalenessWindow = %v, want 720h", cfg.Analysis.StalenessWindow)
				}
				if !cfg.Analysis.DegradedMode {
					t.Error("Analysis.DegradedMode = false, want true")
				}
				if cfg.RabbitMQ.Enabled {
					t.Error("RabbitMQ.Enabled = true, want false")
				}
			},
		},
		{
			name: "load with environment variables",
			setup: func() {
				viper.Reset()
				viper.SetEnvPrefix("APP")
				viper.AutomaticEnv()
				os.Setenv("APP_SERVER_PORT", "9090")
				os.Setenv("APP_DATABASE_HOST", "testdb")
				os.Setenv("APP_YOUTUBE_DAILYQUOTA", "5000")
				os.Setenv("APP_ANALYSIS_MAXSAMPLESIZE", "25")
				// Manually bind env vars since AutomaticEnv doesn't work with nested keys
				viper.BindEnv("server.port", "APP_SERVER_PORT")
				viper.BindEnv("database.host", "APP_DATABASE_HOST")
				viper.BindEnv("youtube.dailyquota", "APP_YOUTUBE_DAILYQUOTA")
				viper.BindEnv("analysis.maxsamplesize", "APP_ANALYSIS_MAXSAMPLESIZE")
			},
			cleanup: func() {
				os.Unsetenv("APP_SERVER_PORT")
				os.Unsetenv("APP_DATABASE_HOST")
				os.Unsetenv("APP_YOUTUBE_DAILYQUOTA")
				os.Unsetenv("APP_ANALYSIS_MAXSAMPLESIZE")
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 9090 {
					t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
				}
				if cfg.Database.Host != "testdb" {
					t.Errorf("Database.Host = %s, want testdb", cfg.Database.Host)
				}
				if cfg.YouTube.DailyQuota != 5000 {
					t.Errorf("YouTube.DailyQuota = %d, want 5000", cfg.YouTube.DailyQuota)
				}
				if cfg.Analysis.MaxSampleSize != 25 {
					t.Errorf("Analysis.MaxSampleSize = %d, want 25", cfg.Analysis.MaxSampleSize)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			defer func() {
				if tt.cleanup != nil {
					tt.cleanup()
				}
			}()

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && cfg == nil {
				t.Fatal("Load() returned nil config")
			}

			if tt.check != nil && cfg != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	viper.Reset()
	setDefaults()

	tests := []struct {
		name string
		key  string
		want interface{}
	}{
		{"server port", "server.port", 8080},
		{"database host", "database.host", "localhost"},
		{"database port", "database.port", 5432},
		{"database name", "database.name", "channel_analysis"},
		{"database user", "database.user", "postgres"},
		{"database maxconnections", "database.maxconnections", 10},
		{"database minconnections", "database.minconnections", 5},
		{"redis url", "redis.url", "redis://localhost:6379/0"},
		{"rabbitmq host", "rabbitmq.host", "localhost"},
		{"rabbitmq port", "rabbitmq.port", 5672},
		{"rabbitmq exchange", "rabbitmq.exchange", "channel.analysis"},
		{"rabbitmq routingkey", "rabbitmq.routingkey", "analysis.completed"},
		{"youtube dailyquota", "youtube.dailyquota", 10000},
		{"youtube maxvideopages", "youtube.maxvideopages", 10},
		{"gemini model", "gemini.model", "gemini-2.5-flash"},
		{"gemini maxoutputtokens", "gemini.maxoutputtokens", 1000},
		{"gemini maxattempts", "gemini.maxattempts", 3},
		{"analysis maxsamplesize", "analysis.maxsamplesize", 50},
		{"analysis minsummarylength", "analysis.minsummarylength", 100},
		{"analysis degradedmode", "analysis.degradedmode", true},
		{"analysis maxconcurrent", "analysis.maxconcurrent", 4},
		{"logging level", "logging.level", "info"},
		{"logging file", "logging.file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := viper.Get(tt.key)
			if got != tt.want {
				t.Errorf("viper.Get(%s) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}

	// Test time.Duration defaults
	if viper.GetDuration("server.shutdowntimeout") != 30*time.Second {
		t.Errorf("server.shutdowntimeout = %v, want 30s", viper.GetDuration("server.shutdowntimeout"))
	}
	if viper.GetDuration("youtube.quotawindow") != 24*time.Hour {
		t.Errorf("youtube.quotawindow = %v, want 24h", viper.GetDuration("youtube.quotawindow"))
	}
	if viper.GetDuration("analysis.stalenesswindow") != 30*24*time.Hour {
		t.Errorf("analysis.stalenesswindow = %v, want 720h", viper.GetDuration("analysis.stalenesswindow"))
	}
	if viper.GetDuration("analysis.cachettlanalysis") != 7*24*time.Hour {
		t.Errorf("analysis.cachettlanalysis = %v, want 168h", viper.GetDuration("analysis.cachettlanalysis"))
	}
}
