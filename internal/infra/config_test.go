package infra

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
app:
  name: bookfeed
  version: "1.0"
feed:
  ws_url: wss://feed.example.com/v2
  depth: 25
instruments:
  - symbol: BTC/USD
    price_precision: 1
    qty_precision: 8
  - symbol: ETH/USD
    price_precision: 2
    qty_precision: 8
logging:
  level: info
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Feed.WSURL != "wss://feed.example.com/v2" {
		t.Errorf("unexpected ws url: %s", cfg.Feed.WSURL)
	}
	if cfg.Feed.Depth != 25 {
		t.Errorf("expected depth 25, got %d", cfg.Feed.Depth)
	}
	if len(cfg.Instruments) != 2 {
		t.Fatalf("expected 2 instruments, got %d", len(cfg.Instruments))
	}

	instruments := cfg.DomainInstruments()
	if instruments[0].Symbol != "BTC/USD" || instruments[0].PricePrecision != 1 {
		t.Errorf("unexpected first instrument: %+v", instruments[0])
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("BOOKFEED_WS_URL", "wss://override.example.com")
	t.Setenv("BOOKFEED_DEPTH", "10")

	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Feed.WSURL != "wss://override.example.com" {
		t.Errorf("env override not applied: %s", cfg.Feed.WSURL)
	}
	if cfg.Feed.Depth != 10 {
		t.Errorf("depth override not applied: %d", cfg.Feed.Depth)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad ws url", func(c *Config) { c.Feed.WSURL = "http://nope" }},
		{"empty ws url", func(c *Config) { c.Feed.WSURL = "" }},
		{"zero depth", func(c *Config) { c.Feed.Depth = 0 }},
		{"no instruments", func(c *Config) { c.Instruments = nil }},
		{"empty symbol", func(c *Config) { c.Instruments[0].Symbol = "" }},
		{"negative precision", func(c *Config) { c.Instruments[0].PricePrecision = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, validYAML))
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("does/not/exist.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
