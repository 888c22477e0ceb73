package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/bnema/dashd/internal/adapters/netcheck"
	"github.com/bnema/dashd/internal/adapters/render/dashboard"
	chainstore "github.com/bnema/dashd/internal/adapters/secrets/chain"
	filestore "github.com/bnema/dashd/internal/adapters/secrets/file"
	passstore "github.com/bnema/dashd/internal/adapters/secrets/pass"
	"github.com/bnema/dashd/internal/adapters/transport/httpclient"
	"github.com/bnema/dashd/internal/adapters/transport/udp"
	"github.com/bnema/dashd/internal/application"
	"github.com/bnema/dashd/internal/config"
	"github.com/bnema/dashd/internal/logging"
	"github.com/bnema/dashd/internal/poll"
	"github.com/bnema/dashd/internal/ports"
	"github.com/bnema/dashd/internal/sources/clock"
	"github.com/bnema/dashd/internal/sources/pihole"
	"github.com/bnema/dashd/internal/sources/siteviews"
	"github.com/bnema/dashd/internal/sources/weather"
	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

type app struct {
	cfg        config.Config
	configPath string
	logger     *log.Logger
	secrets    ports.SecretStore
	dashboard  *application.Dashboard
}

// loadConfig reads the config file and picks the logger; it never touches
// the network.
func loadConfig(opts *rootOptions, stderr io.Writer) (*app, error) {
	path := opts.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(viper.New(), opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	logger, err := logging.New(stderr, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	secrets, err := wireSecrets(cfg.Secrets, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("wire secret store: %w", err)
	}

	return &app{cfg: cfg, configPath: path, logger: logger, secrets: secrets}, nil
}

func wireSecrets(cfg config.SecretsConfig, configDir string) (ports.SecretStore, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = filepath.Join(configDir, "secrets")
	}

	switch cfg.Backend {
	case config.SecretsPass:
		return passstore.NewStore(), nil
	case config.SecretsFile:
		return filestore.NewStore(dir), nil
	default:
		return chainstore.New(passstore.NewStore(), filestore.NewStore(dir))
	}
}

// wireApp builds every enabled source and the dashboard around them. A
// source that cannot be built is logged and left out.
func wireApp(ctx context.Context, opts *rootOptions, stdout, stderr io.Writer, render dashboard.Options) (*app, error) {
	a, err := loadConfig(opts, stderr)
	if err != nil {
		return nil, err
	}
	if err := a.cfg.ResolveSecrets(ctx, a.secrets); err != nil {
		a.logger.Warn("some secrets could not be resolved", "err", err)
	}

	httpClient, err := httpclient.New(a.cfg.HTTPTimeout)
	if err != nil {
		return nil, fmt.Errorf("wire http client: %w", err)
	}

	var connectivity ports.Connectivity
	if a.cfg.Network.Enabled {
		connectivity = netcheck.New(netcheck.Config{
			Address:        a.cfg.Network.ProbeAddress,
			ProbeTimeout:   a.cfg.Network.ProbeTimeout,
			ConnectTimeout: a.cfg.Network.ConnectTimeout,
		}, a.logger)
	}

	sections := make([]application.Section, 0, 4)
	if c := a.cfg.Clock; c.Enabled {
		sections = append(sections, clock.New(&udp.Transport{}, clock.Options{
			SNTP: clock.SNTPConfig{
				PrimaryHost: c.PrimaryHost,
				BackupHosts: c.BackupHosts,
				Port:        c.Port,
				Timeout:     c.Timeout,
				OffsetHours: c.OffsetHours,
				MaxYear:     c.MaxYear,
				DefaultYear: c.DefaultYear,
			},
			Interval: c.Interval,
			Logger:   a.logger,
		}))
	}
	if c := a.cfg.Weather; c.Enabled {
		s, err := weather.New(weather.Config{
			APIKey:   c.APIKey,
			CityID:   c.CityID,
			BaseURL:  c.BaseURL,
			Interval: c.Interval,
			Retry:    retryPolicy(c.Attempts, weather.DefaultBaseDelay),
			Timeout:  a.cfg.HTTPTimeout,
		}, weather.Deps{Transport: httpClient, Connectivity: connectivity, Logger: a.logger})
		sections = appendSection(a.logger, sections, "weather", s, err)
	}
	if c := a.cfg.Pihole; c.Enabled {
		s, err := pihole.New(pihole.Config{
			Host:         c.Host,
			Password:     c.Password,
			APIToken:     c.APIToken,
			Interval:     c.Interval,
			MaxPerWindow: c.MaxPerWindow,
			Window:       c.Window,
			Retry:        retryPolicy(c.Attempts, pihole.DefaultBaseDelay),
			Timeout:      a.cfg.HTTPTimeout,
		}, pihole.Deps{Transport: httpClient, Connectivity: connectivity, Logger: a.logger})
		sections = appendSection(a.logger, sections, "pihole", s, err)
	}
	if c := a.cfg.SiteViews; c.Enabled {
		s, err := siteviews.New(siteviews.Config{
			APIURL:   c.APIURL,
			Interval: c.Interval,
			Retry:    retryPolicy(c.Attempts, siteviews.DefaultBaseDelay),
			Timeout:  a.cfg.HTTPTimeout,
		}, siteviews.Deps{Transport: httpClient, Connectivity: connectivity, Logger: a.logger})
		sections = appendSection(a.logger, sections, "siteviews", s, err)
	}

	a.dashboard = application.NewDashboard(sections, application.Deps{
		Renderer:     dashboard.NewRenderer(stdout, render),
		Connectivity: connectivity,
		Logger:       a.logger,
	}, application.Options{
		CycleEvery:   a.cfg.CycleEvery,
		Cooldown:     a.cfg.Cooldown,
		CycleTimeout: a.cfg.CycleTimeout,
	})

	return a, nil
}

func appendSection[S application.Section](logger *log.Logger, sections []application.Section, name string, s S, err error) []application.Section {
	if err != nil {
		logger.Warn("source disabled", "source", name, "err", err)
		return sections
	}
	return append(sections, s)
}

func retryPolicy(attempts int, base time.Duration) poll.RetryPolicy {
	return poll.RetryPolicy{MaxAttempts: attempts, BaseDelay: base}
}
