// Package netcheck decides whether the uplink is usable by dialing a
// well-known TCP endpoint.
package netcheck

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/bnema/dashd/internal/ports"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const (
	DefaultAddress        = "1.1.1.1:53"
	DefaultProbeTimeout   = 3 * time.Second
	DefaultConnectTimeout = 30 * time.Second
	DefaultProbeEvery     = 2 * time.Second
)

type Config struct {
	Address        string
	ProbeTimeout   time.Duration
	ConnectTimeout time.Duration
	// ProbeEvery paces the probes made while waiting in Connect.
	ProbeEvery time.Duration
}

type dialFunc func(ctx context.Context, network, address string) (net.Conn, error)

type Probe struct {
	cfg    Config
	dial   dialFunc
	logger *log.Logger
}

var _ ports.Connectivity = (*Probe)(nil)

func New(cfg Config, logger *log.Logger) *Probe {
	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ProbeEvery <= 0 {
		cfg.ProbeEvery = DefaultProbeEvery
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	var d net.Dialer
	return &Probe{cfg: cfg, dial: d.DialContext, logger: logger}
}

func (p *Probe) IsConnected(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout)
	defer cancel()

	conn, err := p.dial(ctx, "tcp", p.cfg.Address)
	if err != nil {
		p.logger.Debug("probe failed", "address", p.cfg.Address, "err", err)
		return false
	}
	_ = conn.Close()
	return true
}

// Connect waits up to ConnectTimeout for the uplink to come back. The host
// network stack owns the link itself, so this only re-probes.
func (p *Probe) Connect(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	pace := rate.NewLimiter(rate.Every(p.cfg.ProbeEvery), 1)
	for attempt := 1; ; attempt++ {
		if err := pace.Wait(ctx); err != nil {
			p.logger.Warn("uplink still down", "attempts", attempt-1)
			return false
		}
		if p.IsConnected(ctx) {
			p.logger.Info("uplink is back", "attempts", attempt)
			return true
		}
	}
}
