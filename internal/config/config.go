// Package config loads the launcher configuration from YAML.
//
// Values of the form ${NAME} or ${NAME:-default} are expanded from the environment
// before parsing, so credentials stay out of the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"solana-token-launcher/internal/logging"
	"solana-token-launcher/internal/provider"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Guard drivers.
const (
	GuardLocal = "local"
	GuardRedis = "redis"
)

// Config is the full launcher configuration.
type Config struct {
	Log        logging.Config   `yaml:"log"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Chain      ChainConfig      `yaml:"chain"`
	Storage    StorageConfig    `yaml:"storage"`
	Guard      GuardConfig      `yaml:"guard"`
	AttemptLog AttemptLogConfig `yaml:"attempt_log"`
	Events     EventsConfig     `yaml:"events"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Platforms  []PlatformConfig `yaml:"platforms"`
}

// LedgerConfig configures minting.
type LedgerConfig struct {
	RPCEndpoint        string        `yaml:"rpc_endpoint"`
	WSEndpoint         string        `yaml:"ws_endpoint"`
	Simulated          bool          `yaml:"simulated"`
	Retries            *int          `yaml:"retries"` // extra mint attempts on RPC_UNAVAILABLE
	RetryDelay         time.Duration `yaml:"retry_delay"`
	MaxRetryDelay      time.Duration `yaml:"max_retry_delay"`
	ConfirmTimeout     time.Duration `yaml:"confirm_timeout"`
	MinBalanceLamports uint64        `yaml:"min_balance_lamports"`
	Decimals           uint8         `yaml:"decimals"`
	InitialSupply      uint64        `yaml:"initial_supply"`
}

// ChainConfig configures the fallback chain executor.
type ChainConfig struct {
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
}

// StorageConfig selects the token store.
type StorageConfig struct {
	Driver string `yaml:"driver"` // memory | sqlite | postgres
	DSN    string `yaml:"dsn"`    // file path for sqlite
}

// GuardConfig selects how concurrent launches of one token are excluded.
type GuardConfig struct {
	Driver        string        `yaml:"driver"` // local | redis
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

// AttemptLogConfig enables the ClickHouse attempt audit log.
type AttemptLogConfig struct {
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// EventsConfig configures progress event delivery.
type EventsConfig struct {
	AMQPURL  string `yaml:"amqp_url"`
	Exchange string `yaml:"exchange"`
	Log      bool   `yaml:"log"` // also write events to the log
}

// MetricsConfig configures the Prometheus endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// PlatformConfig is one platform and its provider chain. Provider order is fallback order.
type PlatformConfig struct {
	Name      string            `yaml:"name"`
	Providers []provider.Config `yaml:"providers"`
}

// Defaults
const (
	DefaultAttemptTimeout = 30 * time.Second
	DefaultMintRetries    = 3
	DefaultRetryDelay     = time.Second
	DefaultMaxRetryDelay  = 10 * time.Second
	DefaultConfirmTimeout = 60 * time.Second
	DefaultDecimals       = 9
	DefaultInitialSupply  = 1_000_000_000
	DefaultMinBalance     = 20_000_000 // 0.02 SOL covers rent and fees of a mint
	DefaultGuardTTL       = 2 * time.Minute
	DefaultSQLitePath     = "tokens.db"
)

// Load reads path, expands environment references and applies defaults.
// The result is not validated; call Validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${NAME} and ${NAME:-default}. Unset names without a default become empty.
func ExpandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		if v, ok := os.LookupEnv(m[1]); ok && v != "" {
			return v
		}
		return m[2]
	})
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Ledger.Retries == nil {
		n := DefaultMintRetries
		c.Ledger.Retries = &n
	}
	if c.Ledger.RetryDelay <= 0 {
		c.Ledger.RetryDelay = DefaultRetryDelay
	}
	if c.Ledger.MaxRetryDelay <= 0 {
		c.Ledger.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if c.Ledger.ConfirmTimeout <= 0 {
		c.Ledger.ConfirmTimeout = DefaultConfirmTimeout
	}
	if c.Ledger.MinBalanceLamports == 0 {
		c.Ledger.MinBalanceLamports = DefaultMinBalance
	}
	if c.Ledger.Decimals == 0 {
		c.Ledger.Decimals = DefaultDecimals
	}
	if c.Ledger.InitialSupply == 0 {
		c.Ledger.InitialSupply = DefaultInitialSupply
	}

	if c.Chain.AttemptTimeout <= 0 {
		c.Chain.AttemptTimeout = DefaultAttemptTimeout
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageSQLite
	}
	if c.Storage.Driver == StorageSQLite && c.Storage.DSN == "" {
		c.Storage.DSN = DefaultSQLitePath
	}

	if c.Guard.Driver == "" {
		c.Guard.Driver = GuardLocal
	}
	if c.Guard.TTL <= 0 {
		c.Guard.TTL = DefaultGuardTTL
	}
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	if !c.Ledger.Simulated && c.Ledger.RPCEndpoint == "" {
		errs = append(errs, errors.New("ledger.rpc_endpoint is required unless ledger.simulated is set"))
	}
	if c.Ledger.Retries != nil && *c.Ledger.Retries < 0 {
		errs = append(errs, errors.New("ledger.retries must not be negative"))
	}
	if c.Ledger.Decimals > 18 {
		errs = append(errs, fmt.Errorf("ledger.decimals must be at most 18, got %d", c.Ledger.Decimals))
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StorageSQLite, StoragePostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for driver %s", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be memory, sqlite or postgres, got %q", c.Storage.Driver))
	}

	switch c.Guard.Driver {
	case GuardLocal:
	case GuardRedis:
		if c.Guard.RedisAddr == "" {
			errs = append(errs, errors.New("guard.redis_addr is required for driver redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("guard.driver must be local or redis, got %q", c.Guard.Driver))
	}

	if len(c.Platforms) == 0 {
		errs = append(errs, errors.New("at least one platform must be configured"))
	}
	platforms := make(map[string]bool, len(c.Platforms))
	for i, p := range c.Platforms {
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, fmt.Errorf("platforms[%d].name is required", i))
			continue
		}
		if platforms[p.Name] {
			errs = append(errs, fmt.Errorf("platform %q is configured twice", p.Name))
		}
		platforms[p.Name] = true

		ids := make(map[string]bool, len(p.Providers))
		for j, pc := range p.Providers {
			if strings.TrimSpace(pc.ID) == "" {
				errs = append(errs, fmt.Errorf("platform %s: providers[%d].id is required", p.Name, j))
				continue
			}
			if ids[pc.ID] {
				errs = append(errs, fmt.Errorf("platform %s: provider %q is listed twice", p.Name, pc.ID))
			}
			ids[pc.ID] = true
		}
	}

	return errors.Join(errs...)
}

// BuildRegistry creates every provider and registers the chains in configured order.
func (c *Config) BuildRegistry(deps provider.Deps) (*provider.Registry, error) {
	registry := provider.NewRegistry()
	for _, p := range c.Platforms {
		chain := make([]provider.Provider, 0, len(p.Providers))
		for _, pc := range p.Providers {
			prov, err := provider.FromConfig(pc, deps)
			if err != nil {
				return nil, fmt.Errorf("platform %s: %w", p.Name, err)
			}
			chain = append(chain, prov)
		}
		registry.Register(p.Name, chain...)
	}
	return registry, nil
}

// NeedsRPC reports whether any provider reads the Solana ledger directly.
func (c *Config) NeedsRPC() bool {
	for _, p := range c.Platforms {
		for _, pc := range p.Providers {
			if pc.Kind == provider.KindOnchain {
				return true
			}
		}
	}
	return false
}
