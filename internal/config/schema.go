package config

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	configFileMode  = 0o600
	configDirMode   = 0o700
	tempFilePattern = ".dashd-*.toml.tmp"
	redacted        = "<redacted>"
)

// fileSchema is the on-disk shape; durations are written as Go duration
// strings so the file reads back through viper's decode hooks.
type fileSchema struct {
	Version      int    `toml:"version"`
	LogLevel     string `toml:"log_level"`
	CycleEvery   string `toml:"cycle_interval"`
	Cooldown     string `toml:"cooldown"`
	CycleTimeout string `toml:"cycle_timeout"`
	HTTPTimeout  string `toml:"http_timeout"`

	Network   networkSchema   `toml:"network"`
	Secrets   secretsSchema   `toml:"secrets"`
	Clock     clockSchema     `toml:"clock"`
	Weather   weatherSchema   `toml:"weather"`
	Pihole    piholeSchema    `toml:"pihole"`
	SiteViews siteViewsSchema `toml:"siteviews"`
}

type secretsSchema struct {
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"`
}

type networkSchema struct {
	Enabled        bool   `toml:"enabled"`
	ProbeAddress   string `toml:"probe_address"`
	ProbeTimeout   string `toml:"probe_timeout"`
	ConnectTimeout string `toml:"connect_timeout"`
}

type clockSchema struct {
	Enabled     bool     `toml:"enabled"`
	PrimaryHost string   `toml:"primary_host"`
	BackupHosts []string `toml:"backup_hosts"`
	Port        int      `toml:"port"`
	Timeout     string   `toml:"timeout"`
	OffsetHours float64  `toml:"offset_hours"`
	Interval    string   `toml:"interval"`
	MaxYear     int      `toml:"max_year"`
	DefaultYear int      `toml:"default_year"`
}

type weatherSchema struct {
	Enabled   bool   `toml:"enabled"`
	APIKey    string `toml:"api_key,omitempty"`
	APIKeyRef string `toml:"api_key_ref"`
	CityID    string `toml:"city_id"`
	BaseURL   string `toml:"base_url"`
	Interval  string `toml:"interval"`
	Attempts  int    `toml:"attempts"`
}

type piholeSchema struct {
	Enabled      bool   `toml:"enabled"`
	Host         string `toml:"host"`
	Password     string `toml:"password,omitempty"`
	PasswordRef  string `toml:"password_ref"`
	APIToken     string `toml:"api_token,omitempty"`
	APITokenRef  string `toml:"api_token_ref"`
	Interval     string `toml:"interval"`
	MaxPerWindow int    `toml:"max_per_window"`
	Window       string `toml:"window"`
	Attempts     int    `toml:"attempts"`
}

type siteViewsSchema struct {
	Enabled  bool   `toml:"enabled"`
	APIURL   string `toml:"api_url"`
	Interval string `toml:"interval"`
	Attempts int    `toml:"attempts"`
}

// Render encodes cfg as TOML. Inline secrets are replaced unless
// withSecrets is set.
func Render(cfg Config, withSecrets bool) ([]byte, error) {
	schema := toSchema(cfg)
	if !withSecrets {
		schema.Weather.APIKey = redact(schema.Weather.APIKey)
		schema.Pihole.Password = redact(schema.Pihole.Password)
		schema.Pihole.APIToken = redact(schema.Pihole.APIToken)
	}

	data, err := toml.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// WriteFile atomically replaces path with cfg, secrets included.
func WriteFile(path string, cfg Config) error {
	data, err := Render(cfg, true)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), configDirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err := tempFile.Chmod(configFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp config file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}

	cleanup = false
	return nil
}

func toSchema(cfg Config) fileSchema {
	return fileSchema{
		Version:      cfg.Version,
		LogLevel:     cfg.LogLevel,
		CycleEvery:   cfg.CycleEvery.String(),
		Cooldown:     cfg.Cooldown.String(),
		CycleTimeout: cfg.CycleTimeout.String(),
		HTTPTimeout:  cfg.HTTPTimeout.String(),
		Secrets: secretsSchema{
			Backend: cfg.Secrets.Backend,
			Dir:     cfg.Secrets.Dir,
		},
		Network: networkSchema{
			Enabled:        cfg.Network.Enabled,
			ProbeAddress:   cfg.Network.ProbeAddress,
			ProbeTimeout:   cfg.Network.ProbeTimeout.String(),
			ConnectTimeout: cfg.Network.ConnectTimeout.String(),
		},
		Clock: clockSchema{
			Enabled:     cfg.Clock.Enabled,
			PrimaryHost: cfg.Clock.PrimaryHost,
			BackupHosts: cfg.Clock.BackupHosts,
			Port:        cfg.Clock.Port,
			Timeout:     cfg.Clock.Timeout.String(),
			OffsetHours: cfg.Clock.OffsetHours,
			Interval:    cfg.Clock.Interval.String(),
			MaxYear:     cfg.Clock.MaxYear,
			DefaultYear: cfg.Clock.DefaultYear,
		},
		Weather: weatherSchema{
			Enabled:   cfg.Weather.Enabled,
			APIKey:    cfg.Weather.APIKey,
			APIKeyRef: cfg.Weather.APIKeyRef,
			CityID:    cfg.Weather.CityID,
			BaseURL:   cfg.Weather.BaseURL,
			Interval:  cfg.Weather.Interval.String(),
			Attempts:  cfg.Weather.Attempts,
		},
		Pihole: piholeSchema{
			Enabled:      cfg.Pihole.Enabled,
			Host:         cfg.Pihole.Host,
			Password:     cfg.Pihole.Password,
			PasswordRef:  cfg.Pihole.PasswordRef,
			APIToken:     cfg.Pihole.APIToken,
			APITokenRef:  cfg.Pihole.APITokenRef,
			Interval:     cfg.Pihole.Interval.String(),
			MaxPerWindow: cfg.Pihole.MaxPerWindow,
			Window:       cfg.Pihole.Window.String(),
			Attempts:     cfg.Pihole.Attempts,
		},
		SiteViews: siteViewsSchema{
			Enabled:  cfg.SiteViews.Enabled,
			APIURL:   cfg.SiteViews.APIURL,
			Interval: cfg.SiteViews.Interval.String(),
			Attempts: cfg.SiteViews.Attempts,
		},
	}
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return redacted
}
