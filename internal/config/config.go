// Package config loads dashd settings from TOML, environment and defaults.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/dashd/internal/ports"
	"github.com/spf13/viper"
)

const (
	CurrentVersion = 1

	configDir  = ".config/dashd"
	configName = "dashd"
	configType = "toml"
	envPrefix  = "DASHD"
)

const (
	SecretsAuto = "auto"
	SecretsPass = "pass"
	SecretsFile = "file"
)

var ErrUnsupportedVersion = errors.New("unsupported config version")

type Config struct {
	Version      int           `mapstructure:"version"`
	LogLevel     string        `mapstructure:"log_level"`
	CycleEvery   time.Duration `mapstructure:"cycle_interval"`
	Cooldown     time.Duration `mapstructure:"cooldown"`
	CycleTimeout time.Duration `mapstructure:"cycle_timeout"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`

	Network   NetworkConfig   `mapstructure:"network"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
	Clock     ClockConfig     `mapstructure:"clock"`
	Weather   WeatherConfig   `mapstructure:"weather"`
	Pihole    PiholeConfig    `mapstructure:"pihole"`
	SiteViews SiteViewsConfig `mapstructure:"siteviews"`
}

type NetworkConfig struct {
	// Enabled gates every source on a TCP probe of ProbeAddress.
	Enabled        bool          `mapstructure:"enabled"`
	ProbeAddress   string        `mapstructure:"probe_address"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type SecretsConfig struct {
	// Backend is auto (pass, then files), pass or file.
	Backend string `mapstructure:"backend"`
	// Dir holds file secrets; empty means a secrets directory next to the
	// config file.
	Dir string `mapstructure:"dir"`
}

type ClockConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	PrimaryHost string        `mapstructure:"primary_host"`
	BackupHosts []string      `mapstructure:"backup_hosts"`
	Port        int           `mapstructure:"port"`
	Timeout     time.Duration `mapstructure:"timeout"`
	OffsetHours float64       `mapstructure:"offset_hours"`
	Interval    time.Duration `mapstructure:"interval"`
	MaxYear     int           `mapstructure:"max_year"`
	DefaultYear int           `mapstructure:"default_year"`
}

type WeatherConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	APIKey    string        `mapstructure:"api_key"`
	APIKeyRef string        `mapstructure:"api_key_ref"`
	CityID    string        `mapstructure:"city_id"`
	BaseURL   string        `mapstructure:"base_url"`
	Interval  time.Duration `mapstructure:"interval"`
	Attempts  int           `mapstructure:"attempts"`
}

type PiholeConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Password     string        `mapstructure:"password"`
	PasswordRef  string        `mapstructure:"password_ref"`
	APIToken     string        `mapstructure:"api_token"`
	APITokenRef  string        `mapstructure:"api_token_ref"`
	Interval     time.Duration `mapstructure:"interval"`
	MaxPerWindow int           `mapstructure:"max_per_window"`
	Window       time.Duration `mapstructure:"window"`
	Attempts     int           `mapstructure:"attempts"`
}

type SiteViewsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	APIURL   string        `mapstructure:"api_url"`
	Interval time.Duration `mapstructure:"interval"`
	Attempts int           `mapstructure:"attempts"`
}

// DefaultPath is $HOME/.config/dashd/dashd.toml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, configDir, configName+"."+configType), nil
}

// Load reads path into v. An empty path falls back to DefaultPath, whose
// absence is not an error; an explicit path must exist.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType(configType)

	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return Config{}, err
		}
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), !explicit && errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Version > CurrentVersion {
		return fmt.Errorf("%w %d (current %d)", ErrUnsupportedVersion, c.Version, CurrentVersion)
	}
	if c.CycleEvery <= 0 {
		return errors.New("cycle_interval must be positive")
	}
	switch c.Secrets.Backend {
	case SecretsAuto, SecretsPass, SecretsFile:
	default:
		return fmt.Errorf("unknown secrets backend %q", c.Secrets.Backend)
	}
	if c.CycleTimeout < 0 {
		return errors.New("cycle_timeout must not be negative")
	}
	return nil
}

// ResolveSecrets replaces every set *_ref with the value held by store.
// Inline values win over references.
func (c *Config) ResolveSecrets(ctx context.Context, store ports.SecretStore) error {
	refs := []struct {
		ref    string
		target *string
	}{
		{c.Weather.APIKeyRef, &c.Weather.APIKey},
		{c.Pihole.PasswordRef, &c.Pihole.Password},
		{c.Pihole.APITokenRef, &c.Pihole.APIToken},
	}

	var errs []error
	for _, r := range refs {
		if r.ref == "" || *r.target != "" {
			continue
		}
		if store == nil {
			errs = append(errs, fmt.Errorf("resolve secret %q: no secret store", r.ref))
			continue
		}
		value, err := store.Get(ctx, r.ref)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve secret %q: %w", r.ref, err))
			continue
		}
		*r.target = value
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("version", CurrentVersion)
	v.SetDefault("log_level", "info")
	v.SetDefault("cycle_interval", 300*time.Second)
	v.SetDefault("cooldown", 60*time.Second)
	v.SetDefault("cycle_timeout", time.Duration(0))
	v.SetDefault("http_timeout", 10*time.Second)

	v.SetDefault("network.enabled", true)
	v.SetDefault("network.probe_address", "1.1.1.1:53")
	v.SetDefault("network.probe_timeout", 3*time.Second)
	v.SetDefault("network.connect_timeout", 30*time.Second)

	v.SetDefault("secrets.backend", SecretsAuto)
	v.SetDefault("secrets.dir", "")

	v.SetDefault("clock.enabled", true)
	v.SetDefault("clock.primary_host", "pool.ntp.org")
	v.SetDefault("clock.backup_hosts", []string{"0.pool.ntp.org", "1.pool.ntp.org", "time.google.com"})
	v.SetDefault("clock.port", 123)
	v.SetDefault("clock.timeout", 5*time.Second)
	v.SetDefault("clock.offset_hours", 0.0)
	v.SetDefault("clock.interval", 3600*time.Second)
	v.SetDefault("clock.max_year", 2030)
	v.SetDefault("clock.default_year", 2025)

	v.SetDefault("weather.enabled", false)
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.api_key_ref", "")
	v.SetDefault("weather.city_id", "")
	v.SetDefault("weather.base_url", "https://api.openweathermap.org/data/2.5/weather")
	v.SetDefault("weather.interval", 300*time.Second)
	v.SetDefault("weather.attempts", 3)

	v.SetDefault("pihole.enabled", false)
	v.SetDefault("pihole.host", "")
	v.SetDefault("pihole.password", "")
	v.SetDefault("pihole.password_ref", "")
	v.SetDefault("pihole.api_token", "")
	v.SetDefault("pihole.api_token_ref", "")
	v.SetDefault("pihole.interval", 3600*time.Second)
	v.SetDefault("pihole.max_per_window", 1)
	v.SetDefault("pihole.window", 60*time.Second)
	v.SetDefault("pihole.attempts", 2)

	v.SetDefault("siteviews.enabled", false)
	v.SetDefault("siteviews.api_url", "")
	v.SetDefault("siteviews.interval", 300*time.Second)
	v.SetDefault("siteviews.attempts", 2)
}

// Default is the configuration used when no file or environment is set.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}
