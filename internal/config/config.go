package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"slotbook/internal/availability"
)

// DefaultPath is used when SLOTBOOK_CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

type Config struct {
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
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	HTTP struct {
		Port          int     `yaml:"port"`
		APIKey        string  `yaml:"api_key"`
		RatePerSecond float64 `yaml:"rate_per_second"`
		Burst         int     `yaml:"burst"`
	} `yaml:"http"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Payments struct {
		StripeSecretKey string `yaml:"stripe_secret_key"`
		StripeAPIURL    string `yaml:"stripe_api_url"`
	} `yaml:"payments"`

	Kafka struct {
		Brokers string `yaml:"brokers"`
		Topic   string `yaml:"topic"`
	} `yaml:"kafka"`

	Scheduling struct {
		StaffPolicy string `yaml:"staff_policy"`
	} `yaml:"scheduling"`

	Reminders struct {
		Enabled              bool `yaml:"enabled"`
		Hour                 int  `yaml:"hour"`
		CheckIntervalSeconds int  `yaml:"check_interval_seconds"`
	} `yaml:"reminders"`

	CatalogPath         string `yaml:"catalog_path"`
	CatalogWatchSeconds int    `yaml:"catalog_watch_seconds"`
	LogLevel            string `yaml:"log_level"`
}

// PathFromEnv returns SLOTBOOK_CONFIG_PATH or DefaultPath.
func PathFromEnv() string {
	if p := os.Getenv("SLOTBOOK_CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// LoadEnv loads an optional .env file. A missing file is not an error.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
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
	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "data/slotbook.db"
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "data/backups"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.RatePerSecond == 0 {
		c.HTTP.RatePerSecond = 20
	}
	if c.HTTP.Burst == 0 {
		c.HTTP.Burst = 40
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "slotbook.bookings"
	}
	if c.CatalogPath == "" {
		c.CatalogPath = "configs/catalog.yaml"
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if _, err := availability.ParseStaffPolicy(c.Scheduling.StaffPolicy); err != nil {
		return fmt.Errorf("scheduling.staff_policy: %w", err)
	}
	ports := map[string]int{
		"http.port":                    c.HTTP.Port,
		"monitoring.health_check_port": c.Monitoring.HealthCheckPort,
		"monitoring.prometheus_port":   c.Monitoring.PrometheusPort,
	}
	for name, p := range ports {
		if p < 0 || p > 65535 {
			return fmt.Errorf("%s: invalid port %d", name, p)
		}
	}
	if c.HTTP.RatePerSecond < 0 || c.HTTP.Burst < 0 {
		return fmt.Errorf("http: rate_per_second and burst must not be negative")
	}
	if c.Reminders.Hour < 0 || c.Reminders.Hour > 23 {
		return fmt.Errorf("reminders.hour must be within 0..23")
	}
	if c.Backup.Enabled && c.Backup.IntervalHours < 0 {
		return fmt.Errorf("backup.interval_hours must not be negative")
	}
	return nil
}

// StaffPolicy returns the validated scheduling policy.
func (c *Config) StaffPolicy() availability.StaffPolicy {
	p, _ := availability.ParseStaffPolicy(c.Scheduling.StaffPolicy)
	return p
}

func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

func (c *Config) CatalogWatchInterval() time.Duration {
	if c.CatalogWatchSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.CatalogWatchSeconds) * time.Second
}

func (c *Config) ReminderCheckInterval() time.Duration {
	if c.Reminders.CheckIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Reminders.CheckIntervalSeconds) * time.Second
}
