package discovery

import (
	"net"
	"time"

	"github.com/miekg/dns"

	"nimo.cc/nimo/common/network"
)

// Browser watches the mDNS group for Registry records. A long-running
// browser keeps its observations fresh, so FindRegistry returns instantly
// once both the address and the port have been seen.
type Browser struct {
	seen    observations
	sockets []*net.UDPConn
	done    chan struct{}
}

// NewBrowser opens IPv4 and IPv6 mDNS sockets and starts reading. The IPv6
// socket is optional; some hosts have no usable IPv6 multicast.
func NewBrowser() (b *Browser, err error) {
	v4, err := net.ListenMulticastUDP("udp4", nil, mdnsGroupV4)
	if err != nil {
		return
	}
	b = &Browser{
		sockets: []*net.UDPConn{v4},
		done:    make(chan struct{}),
	}
	if v6, v6Err := net.ListenMulticastUDP("udp6", nil, mdnsGroupV6); v6Err == nil {
		b.sockets = append(b.sockets, v6)
	}
	for _, socket := range b.sockets {
		go b.read(socket)
	}
	b.query()
	return
}

// Close stops the browser.
func (b *Browser) Close() {
	close(b.done)
	for _, socket := range b.sockets {
		_ = socket.Close()
	}
}

func (b *Browser) read(socket *net.UDPConn) {
	buf := make([]byte, 65536)
	for {
		n, _, err := socket.ReadFromUDP(buf)
		if err != nil {
			return
		}
		var msg dns.Msg
		if msg.Unpack(buf[:n]) == nil {
			b.seen.absorb(&msg)
		}
	}
}

// query multicasts the question set on every open socket.
func (b *Browser) query() {
	packed, err := newQuery().Pack()
	if err != nil {
		return
	}
	for ii, socket := range b.sockets {
		group := mdnsGroupV4
		if ii > 0 {
			group = mdnsGroupV6
		}
		_, _ = socket.WriteToUDP(packed, group)
	}
}

// FindRegistry waits until the Registry endpoint is known or the timeout
// passes. Re-queries go out at a gentle pace while waiting.
func (b *Browser) FindRegistry(timeout time.Duration) (endpoint network.Connection, found bool) {
	if endpoint, found = b.seen.connection(); found {
		return
	}
	deadline := time.Now().Add(timeout)
	requery := time.NewTicker(time.Second)
	defer requery.Stop()
	for {
		if endpoint, found = b.seen.connection(); found {
			return
		}
		if time.Now().After(deadline) {
			return network.Connection{}, false
		}
		select {
		case <-b.done:
			return network.Connection{}, false
		case <-requery.C:
			b.query()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// FindRegistry performs a one-shot lookup with a private browser. Callers
// that look up repeatedly should hold a Browser instead.
func FindRegistry(timeout time.Duration) (endpoint network.Connection, found bool) {
	if RegistryWaitDisabled() {
		return network.Connection{}, false
	}
	browser, err := NewBrowser()
	if err != nil {
		return
	}
	defer browser.Close()
	return browser.FindRegistry(timeout)
}
