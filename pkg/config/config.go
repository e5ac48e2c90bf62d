// Package config loads viewer and updater settings from defaults, an optional
// YAML file and GEORISK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/sudorandom/georisk/pkg/sources"
)

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	World    WorldConfig    `mapstructure:"world"`
	GeoIP    GeoIPConfig    `mapstructure:"geoip"`
	Pool     PoolConfig     `mapstructure:"pool"`
	Render   RenderConfig   `mapstructure:"render"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Markets  MarketsConfig  `mapstructure:"markets"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SnapshotConfig struct {
	URL             string        `mapstructure:"url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type WorldConfig struct {
	URL string `mapstructure:"url"`
}

type GeoIPConfig struct {
	Enabled bool         `mapstructure:"enabled"`
	URL     string       `mapstructure:"url"`
	MMDB    string       `mapstructure:"mmdb"`
	Static  StaticConfig `mapstructure:"static"`
}

// StaticConfig is a fixed location shown instead of asking ipapi.
type StaticConfig struct {
	IP      string `mapstructure:"ip"`
	City    string `mapstructure:"city"`
	Country string `mapstructure:"country"`
}

type PoolConfig struct {
	Seed     uint64         `mapstructure:"seed"`
	Capacity CapacityConfig `mapstructure:"capacity"`
}

type CapacityConfig struct {
	News   int `mapstructure:"news"`
	Flight int `mapstructure:"flight"`
	Ship   int `mapstructure:"ship"`
}

type RenderConfig struct {
	Width      int    `mapstructure:"width"`
	Height     int    `mapstructure:"height"`
	TPS        int    `mapstructure:"tps"`
	CaptureDir string `mapstructure:"capture_dir"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type MarketsConfig struct {
	QuoteURL string `mapstructure:"quote_url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("snapshot.url", sources.DefaultSnapshotPath)
	v.SetDefault("snapshot.refresh_interval", 60*time.Second)
	v.SetDefault("snapshot.timeout", 15*time.Second)
	v.SetDefault("world.url", sources.DefaultWorldPath)
	v.SetDefault("geoip.enabled", true)
	v.SetDefault("geoip.url", sources.IPAPIURL)
	v.SetDefault("geoip.mmdb", "")
	v.SetDefault("geoip.static.ip", "")
	v.SetDefault("geoip.static.city", "")
	v.SetDefault("geoip.static.country", "")
	v.SetDefault("pool.seed", 0)
	v.SetDefault("pool.capacity.news", 400)
	v.SetDefault("pool.capacity.flight", 400)
	v.SetDefault("pool.capacity.ship", 400)
	v.SetDefault("render.width", 1920)
	v.SetDefault("render.height", 1080)
	v.SetDefault("render.tps", 30)
	v.SetDefault("render.capture_dir", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("markets.quote_url", sources.StooqQuoteURL)
}

// Load reads configuration. When path is empty georisk.yaml is looked up in
// the working directory and ./configs and may be missing. The result is not
// validated; callers apply their flag overrides and then call Validate.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("georisk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	// GEORISK_SNAPSHOT_URL → snapshot.url
	v.SetEnvPrefix("GEORISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that required fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Log.Format) {
	case "auto", "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be auto, console or json, got %q", c.Log.Format))
	}
	if c.Snapshot.URL == "" {
		errs = append(errs, "snapshot.url is required")
	}
	if c.Snapshot.RefreshInterval <= 0 {
		errs = append(errs, "snapshot.refresh_interval must be positive")
	}
	if c.Snapshot.Timeout <= 0 {
		errs = append(errs, "snapshot.timeout must be positive")
	}
	if c.World.URL == "" {
		errs = append(errs, "world.url is required")
	}
	for name, n := range map[string]int{
		"news":   c.Pool.Capacity.News,
		"flight": c.Pool.Capacity.Flight,
		"ship":   c.Pool.Capacity.Ship,
	} {
		if n < 0 {
			errs = append(errs, fmt.Sprintf("pool.capacity.%s must not be negative, got %d", name, n))
		}
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		errs = append(errs, fmt.Sprintf("render size must be positive, got %dx%d", c.Render.Width, c.Render.Height))
	}
	if c.Render.TPS <= 0 {
		errs = append(errs, "render.tps must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Capacities returns the per-category pool capacities in category order.
func (p PoolConfig) Capacities() [3]int {
	return [3]int{p.Capacity.News, p.Capacity.Flight, p.Capacity.Ship}
}
