// Package config loads the server configuration: defaults, then an optional
// YAML file, then TILEFARM_* environment overrides.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tilefarm/internal/domain/farm"
	"tilefarm/internal/domain/grid"
)

type Config struct {
	Grid          grid.Bounds        `yaml:"grid"`
	StartingMoney float64            `yaml:"starting_money"`
	CatalogPath   string             `yaml:"catalog_path"`
	AssetsRoot    string             `yaml:"assets_root"`
	HTTPAddr      string             `yaml:"http_addr"`
	StreamAddr    string             `yaml:"stream_addr"`
	SQLitePath    string             `yaml:"sqlite_path"`
	PostgresDSN   string             `yaml:"postgres_dsn"`
	MigrationsDir string             `yaml:"migrations_dir"`
	SaveDebounce  time.Duration      `yaml:"save_debounce"`
	TickInterval  time.Duration      `yaml:"tick_interval"`
	Prices        map[string]float64 `yaml:"prices,omitempty"`
	Debug         bool               `yaml:"debug"`
}

func Defaults() Config {
	return Config{
		Grid:          grid.DefaultBounds(),
		StartingMoney: farm.StartingMoney,
		AssetsRoot:    "./assets",
		HTTPAddr:      ":8080",
		StreamAddr:    ":8081",
		SQLitePath:    "./data/tilefarm.db",
		SaveDebounce:  2 * time.Second,
		TickInterval:  250 * time.Millisecond,
	}
}

// Load reads path (when set) over the defaults and applies the environment.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) ApplyEnv() {
	c.Grid.Rows = intEnv("TILEFARM_ROWS", c.Grid.Rows)
	c.Grid.Cols = intEnv("TILEFARM_COLS", c.Grid.Cols)
	c.StartingMoney = floatEnv("TILEFARM_STARTING_MONEY", c.StartingMoney)
	c.CatalogPath = stringEnv("TILEFARM_CATALOG", c.CatalogPath)
	c.AssetsRoot = stringEnv("TILEFARM_ASSETS_ROOT", c.AssetsRoot)
	c.HTTPAddr = stringEnv("TILEFARM_HTTP_ADDR", c.HTTPAddr)
	c.StreamAddr = stringEnv("TILEFARM_STREAM_ADDR", c.StreamAddr)
	c.SQLitePath = stringEnv("TILEFARM_SQLITE_PATH", c.SQLitePath)
	c.PostgresDSN = stringEnv("TILEFARM_DB_DSN", c.PostgresDSN)
	c.MigrationsDir = stringEnv("TILEFARM_MIGRATIONS_DIR", c.MigrationsDir)
	c.SaveDebounce = time.Duration(intEnv("TILEFARM_SAVE_DEBOUNCE_MS", int(c.SaveDebounce/time.Millisecond))) * time.Millisecond
	c.TickInterval = time.Duration(intEnv("TILEFARM_TICK_MS", int(c.TickInterval/time.Millisecond))) * time.Millisecond
	if prices := pricesEnv("TILEFARM_PRICES"); len(prices) > 0 {
		c.Prices = prices
	}
	if v := strings.TrimSpace(os.Getenv("TILEFARM_DEBUG")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
}

func (c *Config) Normalize() {
	c.HTTPAddr = strings.TrimSpace(c.HTTPAddr)
	c.StreamAddr = strings.TrimSpace(c.StreamAddr)
	c.PostgresDSN = strings.TrimSpace(c.PostgresDSN)
	if c.SaveDebounce <= 0 {
		c.SaveDebounce = Defaults().SaveDebounce
	}
	if c.TickInterval <= 0 {
		c.TickInterval = Defaults().TickInterval
	}
	if len(c.Prices) > 0 {
		norm := make(map[string]float64, len(c.Prices))
		for sym, p := range c.Prices {
			norm[strings.ToUpper(strings.TrimSpace(sym))] = p
		}
		c.Prices = norm
	}
}

func (c Config) Validate() error {
	if c.Grid.Rows < 2 || c.Grid.Cols < 2 {
		return fmt.Errorf("grid must be at least 2x2, got %dx%d", c.Grid.Rows, c.Grid.Cols)
	}
	if c.StartingMoney < 0 {
		return fmt.Errorf("starting_money must not be negative")
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr is required")
	}
	if c.StreamAddr != "" && c.StreamAddr == c.HTTPAddr {
		return fmt.Errorf("stream_addr must differ from http_addr")
	}
	syms := make([]string, 0, len(c.Prices))
	for sym := range c.Prices {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	for _, sym := range syms {
		if sym == "" || c.Prices[sym] <= 0 {
			return fmt.Errorf("price for %q must be positive", sym)
		}
	}
	return nil
}

func intEnv(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func floatEnv(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// pricesEnv parses "ACME=12.5,CORN=3".
func pricesEnv(key string) map[string]float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	out := map[string]float64{}
	for _, pair := range strings.Split(raw, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 {
			continue
		}
		name := strings.TrimSpace(kv[0])
		if name == "" {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			continue
		}
		out[name] = f
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
