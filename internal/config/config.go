package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/gravitas-games/sekaiscout/internal/catalog"
)

// EnvPrefix prefixes every environment override, e.g. SEKAISCOUT_RELAY_ADDRESS.
const EnvPrefix = "SEKAISCOUT_"

// Config holds all configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" envPrefix:"SERVER_"`
	Relay   RelayConfig   `yaml:"relay" envPrefix:"RELAY_"`
	Catalog CatalogConfig `yaml:"catalog" envPrefix:"CATALOG_"`
	Crypto  CryptoConfig  `yaml:"crypto" envPrefix:"CRYPTO_"`
	Harvest HarvestConfig `yaml:"harvest" envPrefix:"HARVEST_"`
	Dump    DumpConfig    `yaml:"dump" envPrefix:"DUMP_"`
	Journal JournalConfig `yaml:"journal" envPrefix:"JOURNAL_"`
	Proxy   ProxyConfig   `yaml:"proxy" envPrefix:"PROXY_"`
	Auth    AuthConfig    `yaml:"auth" envPrefix:"AUTH_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
}

// ServerConfig holds dashboard listener settings
type ServerConfig struct {
	Host string `yaml:"host" env:"HOST"`
	Port int    `yaml:"port" env:"PORT"`
}

// RelayConfig holds the packet queue between proxy and consumer
type RelayConfig struct {
	Backend        string        `yaml:"backend" env:"BACKEND"` // redis or memory
	Address        string        `yaml:"address" env:"ADDRESS"`
	Password       string        `yaml:"password" env:"PASSWORD"`
	DB             int           `yaml:"db" env:"DB"`
	Key            string        `yaml:"key" env:"KEY"`
	Capacity       int           `yaml:"capacity" env:"CAPACITY"`
	PollInterval   time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" env:"RECONNECT_DELAY"`
	RetryDelay     time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`
}

// CatalogConfig holds the remote name catalog settings
type CatalogConfig struct {
	URLTemplate     string        `yaml:"url_template" env:"URL_TEMPLATE"`
	PrimaryRepo     string        `yaml:"primary_repo" env:"PRIMARY_REPO"`
	SecondaryRepo   string        `yaml:"secondary_repo" env:"SECONDARY_REPO"`
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"REFRESH_INTERVAL"`
	RetryInterval   time.Duration `yaml:"retry_interval" env:"RETRY_INTERVAL"`
	Timeout         time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// CryptoConfig holds the API payload key set
type CryptoConfig struct {
	Key string `yaml:"key" env:"KEY"`
	IV  string `yaml:"iv" env:"IV"`
}

// HarvestConfig selects the resource reported as a match
type HarvestConfig struct {
	TargetType string `yaml:"target_type" env:"TARGET_TYPE"`
	TargetID   int    `yaml:"target_id" env:"TARGET_ID"`
}

// DumpConfig controls raw payload fixtures
type DumpConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Dir     string `yaml:"dir" env:"DIR"`
}

// JournalConfig controls capture history
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" env:"PATH"`
}

// ProxyConfig holds the interception proxy settings
type ProxyConfig struct {
	Listen   string `yaml:"listen" env:"LISTEN"`
	Embedded bool   `yaml:"embedded" env:"EMBEDDED"` // run the proxy inside the server process
	CACert   string `yaml:"ca_cert" env:"CA_CERT"`
	CAKey    string `yaml:"ca_key" env:"CA_KEY"`
}

// AuthConfig holds dashboard token settings. An empty secret disables auth.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
	Issuer    string `yaml:"issuer" env:"ISSUER"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// Load reads configuration from a YAML file, then applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}

	if c.Relay.Backend == "" {
		c.Relay.Backend = "redis"
	}
	if c.Relay.Address == "" {
		c.Relay.Address = "localhost:6379"
	}
	if c.Relay.Key == "" {
		c.Relay.Key = "sekaiscout:packets"
	}
	if c.Relay.Capacity == 0 {
		c.Relay.Capacity = 10
	}
	if c.Relay.PollInterval == 0 {
		c.Relay.PollInterval = time.Second
	}
	if c.Relay.ReconnectDelay == 0 {
		c.Relay.ReconnectDelay = 10 * time.Second
	}
	if c.Relay.RetryDelay == 0 {
		c.Relay.RetryDelay = time.Second
	}

	if c.Catalog.URLTemplate == "" {
		c.Catalog.URLTemplate = catalog.DefaultURLTemplate
	}
	if c.Catalog.PrimaryRepo == "" {
		c.Catalog.PrimaryRepo = catalog.DefaultPrimaryRepo
	}
	if c.Catalog.SecondaryRepo == "" {
		c.Catalog.SecondaryRepo = catalog.DefaultSecondaryRepo
	}
	if c.Catalog.RefreshInterval == 0 {
		c.Catalog.RefreshInterval = 6 * time.Hour
	}
	if c.Catalog.RetryInterval == 0 {
		c.Catalog.RetryInterval = 5 * time.Minute
	}
	if c.Catalog.Timeout == 0 {
		c.Catalog.Timeout = 30 * time.Second
	}

	if c.Harvest.TargetType == "" {
		c.Harvest.TargetType = catalog.MysekaiMaterial.String()
	}
	if c.Harvest.TargetID == 0 {
		c.Harvest.TargetID = 12
	}

	if c.Dump.Dir == "" {
		c.Dump.Dir = "dumps"
	}
	if c.Journal.Path == "" {
		c.Journal.Path = "data/journal.db"
	}
	if c.Proxy.Listen == "" {
		c.Proxy.Listen = ":8888"
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "sekaiscout"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks values that defaults cannot fix.
func (c *Config) Validate() error {
	var errs []error
	switch c.Relay.Backend {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("relay.backend: unknown backend %q", c.Relay.Backend))
	}
	if c.Relay.Backend == "memory" && !c.Proxy.Embedded {
		errs = append(errs, errors.New("relay.backend: memory requires proxy.embedded"))
	}
	if c.Relay.Capacity < 0 {
		errs = append(errs, errors.New("relay.capacity: must be positive"))
	}
	if _, ok := catalog.ParseCategory(c.Harvest.TargetType); !ok {
		errs = append(errs, fmt.Errorf("harvest.target_type: %w: %q", catalog.ErrUnknownCategory, c.Harvest.TargetType))
	}
	if (c.Proxy.CACert == "") != (c.Proxy.CAKey == "") {
		errs = append(errs, errors.New("proxy: ca_cert and ca_key must be set together"))
	}
	return errors.Join(errs...)
}

// TargetCategory is the parsed harvest.target_type.
func (c *Config) TargetCategory() catalog.Category {
	cat, _ := catalog.ParseCategory(c.Harvest.TargetType)
	return cat
}

// Address is the dashboard listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
