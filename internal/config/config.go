package config

import (
	"dexnetwork/internal/domain"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App     AppConfig     `yaml:"app"`
	Logging LoggingConfig `yaml:"logging"`
	Data    DataConfig    `yaml:"data"`
	Sample  SampleConfig  `yaml:"sample"`
	Network NetworkConfig `yaml:"network"`
	Panel   PanelConfig   `yaml:"panel"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Stores  StoresConfig  `yaml:"stores"`
	PubSub  PubSubConfig  `yaml:"pubsub"`
	API     APIConfig     `yaml:"api"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type AppConfig struct {
	InstanceID      string        `yaml:"instance_id"`
	Workers         int           `yaml:"workers"`    // 0 -> runtime.NumCPU()
	QueueSize       int           `yaml:"queue_size"` // 0 -> unbounded
	Resume          bool          `yaml:"resume"`     // skip units already marked in ledger
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type DataConfig struct {
	Root     string   `yaml:"root"`
	Versions []string `yaml:"versions"` // subset of v2|v3|merged
	Epsilon  float64  `yaml:"epsilon"`  // absolute tolerance of route linking
}

type SampleConfig struct {
	Start string `yaml:"start"` // YYYY-MM-DD
	End   string `yaml:"end"`   // YYYY-MM-DD
}

type NetworkConfig struct {
	EigenMaxIter int      `yaml:"eigen_max_iter"`
	EigenTol     float64  `yaml:"eigen_tol"`
	Stablecoins  []string `yaml:"stablecoins"`
}

type Interval struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type ExternalSource struct {
	Name  string `yaml:"name"`
	Path  string `yaml:"path"`  // relative to data root or absolute
	Keyed string `yaml:"keyed"` // token_date|date
}

type PanelConfig struct {
	Enabled        bool             `yaml:"enabled"`
	PriceColumn    string           `yaml:"price_column"`
	GasColumn      string           `yaml:"gas_column"`
	MarketColumn   string           `yaml:"market_column"`
	ReferenceToken string           `yaml:"reference_token"`
	RollingWindow  int              `yaml:"rolling_window"`
	BoomBust       []Interval       `yaml:"boom_bust"` // boom intervals, every other day is bust
	External       []ExternalSource `yaml:"external"`
}

type LedgerConfig struct {
	Backend string        `yaml:"backend"` // memory|redis
	Prefix  string        `yaml:"prefix"`
	TTL     time.Duration `yaml:"ttl"`
}

type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type ClickHouseWriterConfig struct {
	BatchMaxRows     int           `yaml:"batch_max_rows"`
	BatchMaxInterval time.Duration `yaml:"batch_max_interval"`
	MaxRetries       int           `yaml:"max_retries"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
}

type ClickHouseConfig struct {
	Enabled bool                   `yaml:"enabled"`
	DSN     string                 `yaml:"dsn"`
	Writer  ClickHouseWriterConfig `yaml:"writer"`
}

type StoresConfig struct {
	Redis      RedisConfig      `yaml:"redis"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type PubSubConfig struct {
	NATS NATSConfig `yaml:"nats"`
}

type JWTConfig struct {
	Enabled       bool          `yaml:"enabled"`
	PublicKeyPath string        `yaml:"public_key_path"`
	Audience      string        `yaml:"audience"`
	Issuer        string        `yaml:"issuer"`
	Leeway        time.Duration `yaml:"leeway"`
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	JWT          JWTConfig     `yaml:"jwt"`
}

type APIConfig struct {
	HTTP HTTPConfig `yaml:"http"`
}

type PyroscopeConfig struct {
	Enabled    bool              `yaml:"enabled"`
	AppName    string            `yaml:"app_name"`
	ServerAddr string            `yaml:"server_addr"`
	AuthToken  string            `yaml:"auth_token"`
	Tags       map[string]string `yaml:"tags"`
}

type MetricsConfig struct {
	Prometheus string          `yaml:"prometheus"` // listen addr, empty -> disabled
	Pyroscope  PyroscopeConfig `yaml:"pyroscope"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ConfigError{Field: "path", Err: err}
	}

	var cfg Config
	if err = yaml.Unmarshal(b, &cfg); err != nil {
		return nil, &domain.ConfigError{Field: "yaml", Err: err}
	}

	cfg.applyDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Data.Versions) == 0 {
		c.Data.Versions = []string{"v2", "v3", "merged"}
	}
	if c.Data.Epsilon <= 0 {
		c.Data.Epsilon = 1e-9
	}
	if c.Network.EigenMaxIter <= 0 {
		c.Network.EigenMaxIter = 1000
	}
	if c.Network.EigenTol <= 0 {
		c.Network.EigenTol = 1e-6
	}
	if c.Panel.PriceColumn == "" {
		c.Panel.PriceColumn = "price"
	}
	if c.Panel.GasColumn == "" {
		c.Panel.GasColumn = "gas_price"
	}
	if c.Panel.MarketColumn == "" {
		c.Panel.MarketColumn = "market_index"
	}
	if c.Panel.RollingWindow <= 0 {
		c.Panel.RollingWindow = 30
	}
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = "memory"
	}
	if c.Ledger.Prefix == "" {
		c.Ledger.Prefix = "dexnetwork:unit:"
	}
	if c.App.ShutdownTimeout <= 0 {
		c.App.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate check fields that the batch can't run without
func (c *Config) Validate() error {
	if c.Data.Root == "" {
		return &domain.ConfigError{Field: "data.root", Err: errors.New("data root is required")}
	}

	for _, v := range c.Data.Versions {
		switch v {
		case "v2", "v3", "merged":
		default:
			return &domain.ConfigError{Field: "data.versions", Err: fmt.Errorf("unknown version %q", v)}
		}
	}

	if c.Sample.Start != "" || c.Sample.End != "" {
		start, err := time.Parse(time.DateOnly, c.Sample.Start)
		if err != nil {
			return &domain.ConfigError{Field: "sample.start", Err: err}
		}
		end, err := time.Parse(time.DateOnly, c.Sample.End)
		if err != nil {
			return &domain.ConfigError{Field: "sample.end", Err: err}
		}
		if end.Before(start) {
			return &domain.ConfigError{Field: "sample", Err: errors.New("end before start")}
		}
	}

	for i, iv := range c.Panel.BoomBust {
		start, err := time.Parse(time.DateOnly, iv.Start)
		if err != nil {
			return &domain.ConfigError{Field: fmt.Sprintf("panel.boom_bust[%d].start", i), Err: err}
		}
		end, err := time.Parse(time.DateOnly, iv.End)
		if err != nil {
			return &domain.ConfigError{Field: fmt.Sprintf("panel.boom_bust[%d].end", i), Err: err}
		}
		if end.Before(start) {
			return &domain.ConfigError{Field: fmt.Sprintf("panel.boom_bust[%d]", i), Err: errors.New("end before start")}
		}
	}

	for i, src := range c.Panel.External {
		if src.Name == "" || src.Path == "" {
			return &domain.ConfigError{Field: fmt.Sprintf("panel.external[%d]", i), Err: errors.New("name and path are required")}
		}
		if src.Keyed != "token_date" && src.Keyed != "date" {
			return &domain.ConfigError{Field: fmt.Sprintf("panel.external[%d].keyed", i), Err: fmt.Errorf("unknown key kind %q", src.Keyed)}
		}
	}

	if c.Ledger.Backend != "memory" && c.Ledger.Backend != "redis" {
		return &domain.ConfigError{Field: "ledger.backend", Err: fmt.Errorf("unknown backend %q", c.Ledger.Backend)}
	}

	return nil
}
