package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		// Board snapshot TTL; caching is disabled when zero.
		CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Telegram struct {
		Enabled  bool    `yaml:"enabled"`
		BotToken string  `yaml:"bot_token"`
		ChatIDs  []int64 `yaml:"chat_ids"`
	} `yaml:"telegram"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Attendance struct {
		// Wall-clock hour from which a check-in counts toward the next
		// shift date. Zero means unset (defaults to 22); -1 disables
		// rolling entirely.
		RolloverHour int `yaml:"rollover_hour"`
		// Shared 4-digit PIN gating retroactive check-in corrections.
		// A single shared secret, not per-user authorization.
		AdminPIN string `yaml:"admin_pin"`
		Timezone string `yaml:"timezone"`
	} `yaml:"attendance"`

	Janitor struct {
		Enabled         bool `yaml:"enabled"`
		IntervalMinutes int  `yaml:"interval_minutes"`
		StaleAfterHours int  `yaml:"stale_after_hours"`
	} `yaml:"janitor"`

	Sheets struct {
		Enabled         bool   `yaml:"enabled"`
		CredentialsPath string `yaml:"credentials_path"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
	} `yaml:"sheets"`
}

// Load reads YAML config from path, expanding ${ENV_VAR} placeholders.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/crewtime.db"
	}
	if c.Attendance.RolloverHour == 0 {
		c.Attendance.RolloverHour = 22
	}
	if c.Attendance.AdminPIN == "" {
		c.Attendance.AdminPIN = "1103"
	}
	if c.Attendance.Timezone == "" {
		c.Attendance.Timezone = "Asia/Tokyo"
	}
	if c.Janitor.IntervalMinutes <= 0 {
		c.Janitor.IntervalMinutes = 30
	}
	if c.Janitor.StaleAfterHours <= 0 {
		c.Janitor.StaleAfterHours = 24
	}
}

// Location resolves the configured timezone for shift-date decisions.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Attendance.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Attendance.Timezone, err)
	}
	return loc, nil
}

// JanitorInterval returns the janitor pass interval.
func (c *Config) JanitorInterval() time.Duration {
	return time.Duration(c.Janitor.IntervalMinutes) * time.Minute
}

// StaleAfter returns how long an entry may stay open before it is flagged.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Janitor.StaleAfterHours) * time.Hour
}

// BoardCacheTTL returns the Redis board-cache TTL (zero disables caching).
func (c *Config) BoardCacheTTL() time.Duration {
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}
