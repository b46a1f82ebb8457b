package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Ports    PortsConfig    `yaml:"ports" toml:"ports"`
	Cables   CablesConfig   `yaml:"cables" toml:"cables"`
	Sweep    SweepConfig    `yaml:"sweep" toml:"sweep"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" toml:"port"`
	RequestIPHeader string        `yaml:"request_ip_header" toml:"request_ip_header"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec" toml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" toml:"rate_limit_burst"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds" toml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-" toml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" toml:"driver"` // postgres | sqlite | sqlite-pure
	DSN                    string `yaml:"dsn" toml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns" toml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns" toml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes" toml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level" toml:"log_level"`
}

// PortsConfig controls port provisioning and link matching.
type PortsConfig struct {
	// DirectionAttributeCode is the code of the port-scoped attribute whose
	// value (FROM/TO) makes links direction-aware. If no attribute with this
	// code exists, direction is ignored. Defaults to PORT_DIRECTION when the
	// key is absent; an explicit empty value turns direction checks off.
	DirectionAttributeCode string `yaml:"direction_attribute_code" toml:"direction_attribute_code"`
	ReconcileOnStartup     bool   `yaml:"reconcile_on_startup" toml:"reconcile_on_startup"`
}

// CablesConfig holds cable ledger pagination limits.
type CablesConfig struct {
	DefaultPageSize int `yaml:"default_page_size" toml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size" toml:"max_page_size"`
}

// SweepConfig sizes the reconcile sweep worker pool.
type SweepConfig struct {
	Workers int `yaml:"workers" toml:"workers"`
}

// DefaultDirectionAttributeCode is used when the config file does not name
// a direction attribute.
const DefaultDirectionAttributeCode = "PORT_DIRECTION"

// Load reads the configuration from the given path. Files ending in .toml
// are decoded as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := Config{Ports: PortsConfig{DirectionAttributeCode: DefaultDirectionAttributeCode}}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, err
		}
	} else {
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero values with usable defaults.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds < 0 {
		cfg.Server.CacheTTLSeconds = 0
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Cables.MaxPageSize <= 0 {
		cfg.Cables.MaxPageSize = 200
	}
	if cfg.Cables.DefaultPageSize <= 0 {
		cfg.Cables.DefaultPageSize = 50
	}
	if cfg.Cables.DefaultPageSize > cfg.Cables.MaxPageSize {
		cfg.Cables.DefaultPageSize = cfg.Cables.MaxPageSize
	}

	if cfg.Sweep.Workers <= 0 {
		log.Printf("sweep.workers is not set or invalid; defaulting to 1")
		cfg.Sweep.Workers = 1
	}
}
