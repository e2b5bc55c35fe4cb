package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"instrupro-backend/internal/model"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Auth       AuthConfig       `yaml:"auth"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Refresher  RefresherConfig  `yaml:"refresher"`
	Equipment  EquipmentConfig  `yaml:"equipment"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// DatabaseConfig holds the database connection configuration. Driver is
// "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// CacheConfig locates the durable snapshot cache.
type CacheConfig struct {
	Dir                 string        `yaml:"dir"`
	DashboardTTLSeconds int           `yaml:"dashboard_ttl_seconds"`
	DashboardTTL        time.Duration `yaml:"-"`
	Watch               bool          `yaml:"watch"`
}

// AuthConfig holds the shared secret of the identity provider's tokens.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are set.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// WebhookConfig points at the spreadsheet webhook. An empty URL disables it.
type WebhookConfig struct {
	URL            string        `yaml:"url"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
}

// RefresherConfig controls the background dashboard refresh.
type RefresherConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// EquipmentConfig lists the plant equipment shown by the screens.
type EquipmentConfig struct {
	Packers         []string               `yaml:"packers"`
	WeighFeederTags []model.WeighFeederTag `yaml:"weigh_feeder_tags"`
}

// DefaultPackers is the packer list used when none is configured.
var DefaultPackers = []string{
	"Packer-1", "Packer-2", "Packer-3", "Packer-4",
	"Ventocheck-Packer-1", "Ventocheck-Packer-2", "Ventocheck-Packer-3", "Ventocheck-Packer-4",
}

// DefaultWeighFeederTags is the loss-of-weight tag list used when none is
// configured.
var DefaultWeighFeederTags = []model.WeighFeederTag{
	{Code: "331WF1", Name: "Limestone"},
	{Code: "331WF2", Name: "Ironore"},
	{Code: "331WF3", Name: "Clay"},
	{Code: "331WF4", Name: "Sand"},
	{Code: "531WF1", Name: "Gyspum"},
	{Code: "531WF2", Name: "Clinker-new"},
	{Code: "531WF3", Name: "Clinker"},
	{Code: "531FM1", Name: "Limestone"},
	{Code: "532WF1", Name: "Gyspum"},
	{Code: "532WF2", Name: "Clinker-new"},
	{Code: "532WF3", Name: "Clinker"},
	{Code: "532FM1", Name: "Limestone"},
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}

	switch cfg.Database.Driver {
	case "":
		cfg.Database.Driver = "postgres"
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database.driver %q", cfg.Database.Driver)
	}

	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = "./data/cache"
	}
	if cfg.Cache.DashboardTTLSeconds <= 0 {
		cfg.Cache.DashboardTTLSeconds = 300
	}
	cfg.Cache.DashboardTTL = time.Duration(cfg.Cache.DashboardTTLSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Webhook.TimeoutSeconds <= 0 {
		cfg.Webhook.TimeoutSeconds = 10
	}
	cfg.Webhook.Timeout = time.Duration(cfg.Webhook.TimeoutSeconds) * time.Second

	if cfg.Refresher.IntervalSeconds <= 0 {
		cfg.Refresher.IntervalSeconds = 300
	}
	cfg.Refresher.Interval = time.Duration(cfg.Refresher.IntervalSeconds) * time.Second

	if len(cfg.Equipment.Packers) == 0 {
		cfg.Equipment.Packers = append([]string(nil), DefaultPackers...)
	}
	if len(cfg.Equipment.WeighFeederTags) == 0 {
		cfg.Equipment.WeighFeederTags = append([]model.WeighFeederTag(nil), DefaultWeighFeederTags...)
	}
	seen := make(map[string]bool, len(cfg.Equipment.WeighFeederTags))
	for _, tag := range cfg.Equipment.WeighFeederTags {
		if tag.Code == "" {
			return fmt.Errorf("weigh feeder tag %q has no code", tag.Name)
		}
		if seen[tag.Code] {
			return fmt.Errorf("duplicate weigh feeder tag code %q", tag.Code)
		}
		seen[tag.Code] = true
	}
	return nil
}
