package udp

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/bnema/dashd/internal/ports"
)

const maxDatagram = 512

type Transport struct {
	Dialer net.Dialer
}

var _ ports.DatagramTransport = (*Transport)(nil)

// Exchange sends one datagram and returns the first reply. The deadline is
// the earlier of ctx and timeout.
func (t *Transport) Exchange(ctx context.Context, host string, port int, payload []byte, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := t.Dialer.DialContext(ctx, "udp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf("set deadline: %w", err)
		}
	}

	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("send to %s: %w", address, err)
	}

	buf := make([]byte, maxDatagram)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("receive from %s: %w", address, err)
	}
	return buf[:n], nil
}
