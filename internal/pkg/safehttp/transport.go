// Package safehttp builds HTTP transports that refuse to connect to private
// networks, for connectors whose base URL or endpoints come from untrusted
// input.
package safehttp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// DialTimeout bounds connection establishment.
const DialTimeout = 5 * time.Second

// BlockedAddressError is returned when a connection resolves to a private,
// loopback or link-local address.
type BlockedAddressError struct {
	Addr string
	IP   net.IP
}

func (e *BlockedAddressError) Error() string {
	return fmt.Sprintf("access to private IP %s (%s) is denied", e.IP, e.Addr)
}

// IsBlocked reports whether ip is in a range the safe dialer rejects.
func IsBlocked(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// DialContext dials addr and closes the connection if the remote address is
// blocked. The check runs on the connected address, so DNS rebinding cannot
// slip past it.
func DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: DialTimeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	ip := net.ParseIP(host)
	if ip == nil {
		conn.Close()
		return nil, fmt.Errorf("failed to parse remote IP for %q", addr)
	}

	if IsBlocked(ip) {
		conn.Close()
		return nil, &BlockedAddressError{Addr: addr, IP: ip}
	}

	return conn, nil
}

// NewTransport clones http.DefaultTransport and installs the safe dialer.
func NewTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = DialContext
	t.Proxy = nil
	return t
}
