// Package discovery locates the Registry's command endpoint over mDNS, and
// publishes it when this process is the Registry. No out-of-band
// configuration is involved: the service record carries the port in SRV and
// the command address in a TXT key.
package discovery

import (
	"net"
	"strings"
	"sync/atomic"

	"github.com/miekg/dns"

	"nimo.cc/nimo/common/network"
)

// ServiceName is the mDNS service type under which the Registry announces
// itself.
const ServiceName = "_nimo_registry._tcp.local."

// InstanceName is the single published instance of the service.
const InstanceName = "registry." + ServiceName

// RegistryAddressKey is the TXT key carrying the Registry's command IPv4
// address. The address may differ from the SRV host when the Registry binds
// an interface whose mDNS hostname is not preferred.
const RegistryAddressKey = "registry_address"

var (
	mdnsGroupV4 = &net.UDPAddr{IP: net.IPv4(224, 0, 0, 251), Port: 5353}
	mdnsGroupV6 = &net.UDPAddr{IP: net.ParseIP("ff02::fb"), Port: 5353}
)

// gSkipRegistryWait short-circuits every wait for the Registry. The
// Registry process sets it for itself; tests that never talk to a Registry
// set it globally.
var gSkipRegistryWait atomic.Bool

// DisableRegistryWait controls the process-wide skip flag.
func DisableRegistryWait(disable bool) {
	gSkipRegistryWait.Store(disable)
}

// RegistryWaitDisabled reports the process-wide skip flag.
func RegistryWaitDisabled() bool {
	return gSkipRegistryWait.Load()
}

// observations collects what the browser has seen so far. The address and
// the port arrive in independent records, so each has its own flag; a
// lookup completes only when both are set.
type observations struct {
	addressSeen atomic.Bool
	portSeen    atomic.Bool
	address     atomic.Value // string
	port        atomic.Uint32
}

func (o *observations) noteAddress(address string) {
	o.address.Store(address)
	o.addressSeen.Store(true)
}

func (o *observations) notePort(port uint16) {
	o.port.Store(uint32(port))
	o.portSeen.Store(true)
}

func (o *observations) complete() bool {
	return o.addressSeen.Load() && o.portSeen.Load()
}

func (o *observations) connection() (conn network.Connection, ok bool) {
	if !o.complete() {
		return
	}
	return network.Connection{
		Address: o.address.Load().(string),
		Port:    uint16(o.port.Load()),
	}, true
}

// absorb pulls SRV and TXT facts about our service out of one mDNS message.
func (o *observations) absorb(msg *dns.Msg) {
	records := append(append([]dns.RR{}, msg.Answer...), msg.Extra...)
	for _, record := range records {
		switch typed := record.(type) {
		case *dns.SRV:
			if strings.EqualFold(typed.Hdr.Name, InstanceName) {
				o.notePort(typed.Port)
			}
		case *dns.TXT:
			if !strings.EqualFold(typed.Hdr.Name, InstanceName) {
				continue
			}
			for _, pair := range typed.Txt {
				key, val, found := strings.Cut(pair, "=")
				if found && key == RegistryAddressKey && net.ParseIP(val) != nil {
					o.noteAddress(val)
				}
			}
		}
	}
}

// newQuery builds the PTR/SRV/TXT question set for the service.
func newQuery() *dns.Msg {
	q := new(dns.Msg)
	q.Question = []dns.Question{
		{Name: dns.Fqdn(ServiceName), Qtype: dns.TypePTR, Qclass: dns.ClassINET},
		{Name: dns.Fqdn(InstanceName), Qtype: dns.TypeSRV, Qclass: dns.ClassINET},
		{Name: dns.Fqdn(InstanceName), Qtype: dns.TypeTXT, Qclass: dns.ClassINET},
	}
	return q
}
