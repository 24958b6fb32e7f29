package discovery

import (
	"testing"
	"time"

	"github.com/miekg/dns"
	"gotest.tools/v3/assert"
)

func TestObservationsNeedBothFacts(t *testing.T) {
	var seen observations
	assert.Assert(t, !seen.complete())

	srvOnly := new(dns.Msg)
	srvOnly.Answer = []dns.RR{
		&dns.SRV{
			Hdr:  dns.RR_Header{Name: InstanceName, Rrtype: dns.TypeSRV, Class: dns.ClassINET},
			Port: 12345,
		},
	}
	seen.absorb(srvOnly)
	assert.Assert(t, !seen.complete(), "the port alone does not complete a lookup")

	txtOnly := new(dns.Msg)
	txtOnly.Extra = []dns.RR{
		&dns.TXT{
			Hdr: dns.RR_Header{Name: InstanceName, Rrtype: dns.TypeTXT, Class: dns.ClassINET},
			Txt: []string{RegistryAddressKey + "=192.168.7.9"},
		},
	}
	seen.absorb(txtOnly)
	assert.Assert(t, seen.complete())

	endpoint, ok := seen.connection()
	assert.Assert(t, ok)
	assert.Equal(t, endpoint.Address, "192.168.7.9")
	assert.Equal(t, endpoint.Port, uint16(12345))
}

func TestObservationsIgnoreForeignRecords(t *testing.T) {
	var seen observations
	foreign := new(dns.Msg)
	foreign.Answer = []dns.RR{
		&dns.SRV{
			Hdr:  dns.RR_Header{Name: "other._svc._tcp.local.", Rrtype: dns.TypeSRV, Class: dns.ClassINET},
			Port: 1,
		},
		&dns.TXT{
			Hdr: dns.RR_Header{Name: InstanceName, Rrtype: dns.TypeTXT, Class: dns.ClassINET},
			Txt: []string{"unrelated=1", RegistryAddressKey + "=not an address"},
		},
	}
	seen.absorb(foreign)
	assert.Assert(t, !seen.addressSeen.Load())
	assert.Assert(t, !seen.portSeen.Load())
}

func TestFindRegistryTimesOutWithoutRegistry(t *testing.T) {
	DisableRegistryWait(false)
	started := time.Now()
	_, found := FindRegistry(300 * time.Millisecond)
	assert.Assert(t, !found)
	assert.Assert(t, time.Since(started) < 2*time.Second)
}

func TestFindRegistrySkipsWhenDisabled(t *testing.T) {
	DisableRegistryWait(true)
	defer DisableRegistryWait(false)
	started := time.Now()
	_, found := FindRegistry(5 * time.Second)
	assert.Assert(t, !found)
	assert.Assert(t, time.Since(started) < time.Second, "a disabled wait returns immediately")
}

func TestQueryShape(t *testing.T) {
	q := newQuery()
	assert.Equal(t, len(q.Question), 3)
	assert.Equal(t, q.Question[0].Qtype, dns.TypePTR)
	packed, err := q.Pack()
	assert.NilError(t, err)
	assert.Assert(t, len(packed) > 12)
}
