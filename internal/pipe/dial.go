//go:build !windows

package pipe

import (
	"context"
	"net"
)

// Dial connects to the companion's Unix domain socket.
func Dial(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer

	return d.DialContext(ctx, "unix", address)
}
