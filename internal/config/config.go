// Package config loads and validates application configuration with viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kallodavid/jobradar/internal/cache"
	"github.com/kallodavid/jobradar/internal/fetch"
	"github.com/kallodavid/jobradar/internal/index"
	"github.com/kallodavid/jobradar/internal/report"
	"github.com/kallodavid/jobradar/internal/source/jofogas"
	"github.com/kallodavid/jobradar/internal/source/vmp"
	"github.com/kallodavid/jobradar/internal/store"
)

// VMPSource toggles and configures the portal source.
type VMPSource struct {
	Enabled    bool       `mapstructure:"enabled"`
	vmp.Config `mapstructure:",squash"`
}

// JofogasSource toggles and configures the marketplace source.
type JofogasSource struct {
	Enabled        bool `mapstructure:"enabled"`
	jofogas.Config `mapstructure:",squash"`
}

// CrawlConfig holds the pacing knobs shared by listing crawls and detail
// enrichment.
type CrawlConfig struct {
	MaxPages       int           `mapstructure:"max_pages"`
	PauseMin       time.Duration `mapstructure:"pause_min"`
	PauseMax       time.Duration `mapstructure:"pause_max"`
	DetailPauseMin time.Duration `mapstructure:"detail_pause_min"`
	DetailPauseMax time.Duration `mapstructure:"detail_pause_max"`
}

// OpsConfig holds the operational HTTP listener settings.
type OpsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Config is the full application configuration tree.
type Config struct {
	Development bool              `mapstructure:"development"`
	VMP         VMPSource         `mapstructure:"vmp"`
	Jofogas     JofogasSource     `mapstructure:"jofogas"`
	Fetch       fetch.Config      `mapstructure:"fetch"`
	Crawl       CrawlConfig       `mapstructure:"crawl"`
	DB          store.Config      `mapstructure:"db"`
	Cache       cache.Config      `mapstructure:"cache"`
	Index       index.Config      `mapstructure:"index"`
	Mail        report.MailConfig `mapstructure:"mail"`
	Ops         OpsConfig         `mapstructure:"ops"`
}

// Load reads configuration from the given file (or the default search path
// when path is empty), layered under JOBRADAR_* environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("JOBRADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("jobradar")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.jobradar")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
			// Env-only operation is fine.
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("development", false)

	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.backoff_base", "250ms")
	v.SetDefault("fetch.backoff_max", "5s")
	v.SetDefault("fetch.rate_limit_step", "5s")

	v.SetDefault("crawl.max_pages", 500)
	v.SetDefault("crawl.pause_min", "25s")
	v.SetDefault("crawl.pause_max", "35s")
	v.SetDefault("crawl.detail_pause_min", "25s")
	v.SetDefault("crawl.detail_pause_max", "35s")

	v.SetDefault("db.table", "listings")
	v.SetDefault("db.coordinates_table", "place_coordinates")
	v.SetDefault("db.batch_size", 50)
	v.SetDefault("db.batch_pause", "2s")

	v.SetDefault("cache.base_dir", "./pagecache")

	v.SetDefault("index.index", "listings")
	v.SetDefault("index.bulk_size", 100)

	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.port", 587)

	v.SetDefault("ops.addr", ":9090")

	v.SetDefault("vmp.enabled", false)
	v.SetDefault("jofogas.enabled", false)
}

// Validate rejects configurations no command can run with. Command-specific
// requirements (crawl sources for harvest) are checked separately so a
// reindex-only deployment needs no source credentials.
func (c Config) Validate() error {
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required")
	}
	return nil
}

// ValidateHarvest rejects configurations a harvest run would fail mid-run
// with: it needs at least one fully configured source, a sane pacing window
// and, when mail delivery is on, a complete mail section.
func (c Config) ValidateHarvest() error {
	if !c.VMP.Enabled && !c.Jofogas.Enabled {
		return fmt.Errorf("at least one source must be enabled")
	}
	if c.VMP.Enabled {
		if c.VMP.BaseURL == "" {
			return fmt.Errorf("vmp.baseurl is required")
		}
		if c.VMP.Username == "" || c.VMP.Password == "" {
			return fmt.Errorf("vmp credentials are required")
		}
		if c.VMP.Location == "" {
			return fmt.Errorf("vmp.location is required")
		}
	}
	if c.Jofogas.Enabled && c.Jofogas.BaseDomain == "" {
		return fmt.Errorf("jofogas.basedomain is required")
	}
	if c.Crawl.PauseMin > c.Crawl.PauseMax {
		return fmt.Errorf("crawl.pause_min must not exceed crawl.pause_max")
	}
	if c.Crawl.DetailPauseMin > c.Crawl.DetailPauseMax {
		return fmt.Errorf("crawl.detail_pause_min must not exceed crawl.detail_pause_max")
	}
	if c.Mail.Enabled {
		if c.Mail.Host == "" || c.Mail.From == "" || len(c.Mail.To) == 0 {
			return fmt.Errorf("mail.host, mail.from and mail.to are required when mail is enabled")
		}
	}
	return nil
}
