package pg

import (
	"context"
	"net"
)

// Cancel asks the server to abort whatever this connection is running. Per
// protocol it opens a second connection to the same address, sends exactly
// one CancelRequest with the retained (process id, secret key), and closes.
// Servers treat cancellation as best-effort; the caller still reads until
// ReadyForQuery to resynchronise.
func (c *Conn) Cancel(ctx context.Context) error {
	network, addr := c.cfg.addr()
	d := net.Dialer{Timeout: c.cfg.ConnectTimeout}
	side, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return connIOErr(err)
	}
	defer side.Close()

	msg := appendCancelRequest(nil, c.processID, c.secretKey)
	if _, err := side.Write(msg); err != nil {
		return connIOErr(err)
	}
	return nil
}
