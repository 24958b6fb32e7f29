// Package network holds the shared plumbing for the control plane: endpoint
// descriptions, address and port validation, the multicast writer used by
// the logger and by registry status reports, and interface selection.
package network

import (
	"fmt"
	"net"
	"time"
)

// Port limits for service endpoints. System ports are refused unless asked
// for.
const (
	MinimumPortAllowed = 1024
	MaximumPortAllowed = 65535
)

// Connection names a command or multicast endpoint.
type Connection struct {
	Address string
	Port    uint16
}

// Default multicast endpoints, overridable through the configuration file.
var (
	DefaultLogConnection    = Connection{Address: "239.17.12.1", Port: 1954}
	DefaultStatusConnection = Connection{Address: "239.17.12.1", Port: 1955}
)

// String renders address:port.
func (c Connection) String() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

// ValidPortNumber checks a port number for use by a service.
func ValidPortNumber(port int, systemAllowed bool) bool {
	low := MinimumPortAllowed
	if systemAllowed {
		low = 0
	}
	return port >= low && port <= MaximumPortAllowed
}

// ValidMulticastAddress accepts only organization-local scope (239.x.x.x)
// groups.
func ValidMulticastAddress(address string) bool {
	parsed := net.ParseIP(address)
	if parsed == nil {
		return false
	}
	v4 := parsed.To4()
	return v4 != nil && v4[0] == 239
}

// FirstUsableIPv4 returns the first non-loopback IPv4 address of an up
// interface, which is where command ports bind. Loopback is the fallback on
// hosts with no other interface.
func FirstUsableIPv4() (addr net.IP, err error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return
	}
	var loopback net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, addrsErr := iface.Addrs()
		if addrsErr != nil {
			continue
		}
		for _, candidate := range addrs {
			ipNet, ok := candidate.(*net.IPNet)
			if !ok {
				continue
			}
			v4 := ipNet.IP.To4()
			if v4 == nil {
				continue
			}
			if iface.Flags&net.FlagLoopback != 0 {
				if loopback == nil {
					loopback = v4
				}
				continue
			}
			return v4, nil
		}
	}
	if loopback != nil {
		return loopback, nil
	}
	return nil, fmt.Errorf("no usable IPv4 interface")
}

// MulticastSender is a write-only UDP endpoint shared across a process.
// Sends are fire-and-forget.
type MulticastSender struct {
	conn *net.UDPConn
}

// NewMulticastSender opens a sender for the given group.
func NewMulticastSender(group Connection) (sender *MulticastSender, err error) {
	target, err := net.ResolveUDPAddr("udp4", group.String())
	if err != nil {
		return
	}
	conn, err := net.DialUDP("udp4", nil, target)
	if err != nil {
		return
	}
	sender = &MulticastSender{conn: conn}
	return
}

// Send writes one datagram. Errors are deliberately dropped: a missing
// listener must not disturb the sender.
func (s *MulticastSender) Send(payload []byte) {
	if s != nil && s.conn != nil {
		_, _ = s.conn.Write(payload)
	}
}

// Close releases the socket.
func (s *MulticastSender) Close() {
	if s != nil && s.conn != nil {
		_ = s.conn.Close()
	}
}

// DialCommandPort connects to a service command endpoint.
func DialCommandPort(endpoint Connection, timeout time.Duration) (conn net.Conn, err error) {
	conn, err = net.DialTimeout("tcp4", endpoint.String(), timeout)
	return
}
