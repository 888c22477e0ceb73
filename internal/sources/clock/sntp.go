package clock

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bnema/dashd/internal/ports"
	"github.com/charmbracelet/log"
)

const (
	packetSize = 48
	// LI=0, VN=3, Mode=3 (client)
	requestHeader = 0x1B

	// seconds between 1900-01-01 and 1970-01-01
	ntpEpochOffset = 2208988800
	eraSeconds     = 1 << 32

	DefaultPort    = 123
	DefaultTimeout = 5 * time.Second

	DefaultMaxYear     = 2030
	DefaultDefaultYear = 2025
)

var (
	DefaultPrimaryHost = "pool.ntp.org"
	DefaultBackupHosts = []string{"0.pool.ntp.org", "1.pool.ntp.org", "time.google.com"}

	errShortReply = errors.New("reply length")
	errZeroTime   = errors.New("zero transmit timestamp")
	errAllHosts   = errors.New("no time server answered")
)

type SNTPConfig struct {
	PrimaryHost string
	BackupHosts []string
	Port        int
	Timeout     time.Duration
	// OffsetHours is applied as a fixed zone; fractional offsets are allowed.
	OffsetHours float64
	MaxYear     int
	DefaultYear int
}

func (c SNTPConfig) withDefaults() SNTPConfig {
	if c.PrimaryHost == "" {
		c.PrimaryHost = DefaultPrimaryHost
	}
	if c.BackupHosts == nil {
		c.BackupHosts = DefaultBackupHosts
	}
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxYear <= 0 {
		c.MaxYear = DefaultMaxYear
	}
	if c.DefaultYear <= 0 {
		c.DefaultYear = DefaultDefaultYear
	}
	return c
}

func (c SNTPConfig) Location() *time.Location {
	offset := int(c.OffsetHours * 3600)
	if offset == 0 {
		return time.UTC
	}
	return time.FixedZone(fmt.Sprintf("UTC%+g", c.OffsetHours), offset)
}

type SNTPClient struct {
	transport ports.DatagramTransport
	cfg       SNTPConfig
	loc       *time.Location
	logger    *log.Logger
}

func NewSNTPClient(transport ports.DatagramTransport, cfg SNTPConfig, logger *log.Logger) *SNTPClient {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	cfg = cfg.withDefaults()
	return &SNTPClient{transport: transport, cfg: cfg, loc: cfg.Location(), logger: logger}
}

// Query asks the primary host, then each backup in order, and returns the
// first structurally valid reply.
func (c *SNTPClient) Query(ctx context.Context) (time.Time, string, error) {
	hosts := append([]string{c.cfg.PrimaryHost}, c.cfg.BackupHosts...)
	request := NewRequest()

	var errs []error
	for _, host := range hosts {
		reply, err := c.transport.Exchange(ctx, host, c.cfg.Port, request, c.cfg.Timeout)
		if err == nil {
			var ts time.Time
			ts, err = DecodeReply(reply)
			if err == nil {
				return c.adjust(ts), host, nil
			}
		}
		c.logger.Debug("time server failed", "host", host, "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", host, err))
	}

	return time.Time{}, "", fmt.Errorf("%w: %w", errAllHosts, errors.Join(errs...))
}

func (c *SNTPClient) adjust(ts time.Time) time.Time {
	return ClampYear(ts.In(c.loc), c.cfg.MaxYear, c.cfg.DefaultYear)
}

func NewRequest() []byte {
	packet := make([]byte, packetSize)
	packet[0] = requestHeader
	return packet
}

// DecodeReply extracts the transmit timestamp of a server reply. Seconds with
// the most significant bit clear belong to era 1 (after 2036-02-07).
func DecodeReply(reply []byte) (time.Time, error) {
	if len(reply) != packetSize {
		return time.Time{}, fmt.Errorf("%w: got %d, want %d", errShortReply, len(reply), packetSize)
	}

	seconds := binary.BigEndian.Uint32(reply[40:44])
	fraction := binary.BigEndian.Uint32(reply[44:48])
	if seconds == 0 && fraction == 0 {
		return time.Time{}, errZeroTime
	}

	ntpSeconds := int64(seconds)
	if seconds&0x80000000 == 0 {
		ntpSeconds += eraSeconds
	}
	nanos := (int64(fraction) * int64(time.Second)) >> 32

	return time.Unix(ntpSeconds-ntpEpochOffset, nanos).UTC(), nil
}

// ClampYear replaces an implausible future year, keeping every other field.
func ClampYear(t time.Time, maxYear, defaultYear int) time.Time {
	if t.Year() <= maxYear {
		return t
	}
	return time.Date(defaultYear, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
