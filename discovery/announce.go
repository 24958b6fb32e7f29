package discovery

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/miekg/dns"
	"github.com/op/go-logging"

	"nimo.cc/nimo/common/network"
)

// Announcer publishes the Registry service record and answers mDNS queries
// for it until closed.
type Announcer struct {
	endpoint network.Connection
	hostname string
	conn     *net.UDPConn
	log      *logging.Logger
	done     chan struct{}
}

// Announce starts answering mDNS queries for the Registry endpoint. An
// unsolicited announcement goes out immediately so browsers already
// listening catch the record without a query round.
func Announce(endpoint network.Connection, log *logging.Logger) (a *Announcer, err error) {
	conn, err := net.ListenMulticastUDP("udp4", nil, mdnsGroupV4)
	if err != nil {
		return
	}
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "nimo-registry"
	}
	a = &Announcer{
		endpoint: endpoint,
		hostname: dns.Fqdn(strings.TrimSuffix(hostname, ".local") + ".local"),
		conn:     conn,
		log:      log,
		done:     make(chan struct{}),
	}
	a.send(a.record(true))
	go a.serve()
	return
}

// Close stops answering and withdraws from the group.
func (a *Announcer) Close() {
	close(a.done)
	_ = a.conn.Close()
}

func (a *Announcer) serve() {
	buf := make([]byte, 65536)
	for {
		n, _, err := a.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-a.done:
				return
			default:
			}
			a.log.Errorf("mDNS read failed: %s", err)
			return
		}
		var msg dns.Msg
		if msg.Unpack(buf[:n]) != nil || len(msg.Question) == 0 {
			continue
		}
		if a.wantsUs(&msg) {
			a.send(a.record(false))
		}
	}
}

func (a *Announcer) wantsUs(msg *dns.Msg) bool {
	for _, question := range msg.Question {
		name := strings.ToLower(question.Name)
		if name == ServiceName || name == InstanceName {
			return true
		}
	}
	return false
}

// record builds the full answer set: PTR to the instance, SRV with the
// command port, TXT with the command address, and an A record for the host.
func (a *Announcer) record(unsolicited bool) *dns.Msg {
	msg := new(dns.Msg)
	msg.Response = true
	msg.Authoritative = true
	header := func(name string, rrType uint16) dns.RR_Header {
		return dns.RR_Header{
			Name:   name,
			Rrtype: rrType,
			Class:  dns.ClassINET,
			Ttl:    120,
		}
	}
	msg.Answer = []dns.RR{
		&dns.PTR{
			Hdr: header(ServiceName, dns.TypePTR),
			Ptr: InstanceName,
		},
		&dns.SRV{
			Hdr:    header(InstanceName, dns.TypeSRV),
			Target: a.hostname,
			Port:   a.endpoint.Port,
		},
		&dns.TXT{
			Hdr: header(InstanceName, dns.TypeTXT),
			Txt: []string{fmt.Sprintf("%s=%s", RegistryAddressKey, a.endpoint.Address)},
		},
	}
	if parsed := net.ParseIP(a.endpoint.Address); parsed != nil {
		msg.Extra = []dns.RR{
			&dns.A{
				Hdr: header(a.hostname, dns.TypeA),
				A:   parsed,
			},
		}
	}
	return msg
}

func (a *Announcer) send(msg *dns.Msg) {
	packed, err := msg.Pack()
	if err != nil {
		a.log.Errorf("mDNS pack failed: %s", err)
		return
	}
	if _, err = a.conn.WriteToUDP(packed, mdnsGroupV4); err != nil {
		a.log.Errorf("mDNS send failed: %s", err)
	}
}
