package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"bookfeed/internal/domain"

	"gopkg.in/yaml.v3"
)

// Config holds all application settings. Sensitive or environment-specific
// values can be overridden through environment variables after loading.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Feed struct {
		WSURL string `yaml:"ws_url"`
		Depth int    `yaml:"depth"`
	} `yaml:"feed"`

	Instruments []InstrumentConfig `yaml:"instruments"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// InstrumentConfig is one supported instrument entry in the config file.
type InstrumentConfig struct {
	Symbol         string `yaml:"symbol"`
	PricePrecision int    `yaml:"price_precision"`
	QtyPrecision   int    `yaml:"qty_precision"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Feed.WSURL, "ws://") && !strings.HasPrefix(c.Feed.WSURL, "wss://") {
		return fmt.Errorf("invalid feed WS URL: %s", c.Feed.WSURL)
	}
	if c.Feed.Depth <= 0 {
		return fmt.Errorf("feed depth must be positive")
	}
	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	for _, inst := range c.Instruments {
		if inst.Symbol == "" {
			return fmt.Errorf("instrument symbol must not be empty")
		}
		if inst.PricePrecision < 0 || inst.QtyPrecision < 0 {
			return fmt.Errorf("negative precision for %s", inst.Symbol)
		}
	}
	return nil
}

// DomainInstruments converts the configured instrument entries.
func (c *Config) DomainInstruments() []domain.Instrument {
	out := make([]domain.Instrument, 0, len(c.Instruments))
	for _, ic := range c.Instruments {
		out = append(out, domain.Instrument{
			Symbol:         ic.Symbol,
			PricePrecision: ic.PricePrecision,
			QtyPrecision:   ic.QtyPrecision,
		})
	}
	return out
}

// overrideWithEnv applies environment variable overrides when present.
func overrideWithEnv(cfg *Config) {
	if url := os.Getenv("BOOKFEED_WS_URL"); url != "" {
		cfg.Feed.WSURL = url
	}
	if depth := os.Getenv("BOOKFEED_DEPTH"); depth != "" {
		if d, err := strconv.Atoi(depth); err == nil {
			cfg.Feed.Depth = d
		}
	}
	if level := os.Getenv("BOOKFEED_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
