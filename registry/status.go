package registry

import (
	"github.com/docker/go-events"

	"nimo.cc/nimo/common/network"
	"nimo.cc/nimo/common/value"
)

// statusSink multicasts one datagram per state change: the two- or
// three-character prefix followed by the squished text form of the subject
// array. Receivers use the reports for soft cache invalidation, so a lost
// datagram costs nothing but a stale cache entry.
type statusSink struct {
	sender *network.MulticastSender
}

func (s *statusSink) Write(event events.Event) error {
	report, ok := event.(statusEvent)
	if !ok {
		return nil
	}
	s.sender.Send([]byte(report.Prefix + value.Text(report.Subject, true)))
	return nil
}

func (s *statusSink) Close() error {
	s.sender.Close()
	return nil
}

// newStatusReporter builds the fire-and-forget report queue. The queue
// decouples handler bodies from the network write. With no route to the
// group the reports go nowhere, which is what fire-and-forget promises.
func newStatusReporter(group network.Connection) (*events.Queue, error) {
	sender, _ := network.NewMulticastSender(group)
	return events.NewQueue(&statusSink{sender: sender}), nil
}

// ParseStatusReport splits a received status datagram into its prefix and
// subject. The subject of every report is an array in squished text form.
func ParseStatusReport(payload string) (prefix string, subject *value.Array, ok bool) {
	at := -1
	for ii := 0; ii < len(payload); ii++ {
		if payload[ii] == '(' {
			at = ii
			break
		}
	}
	if at <= 0 {
		return
	}
	prefix = payload[:at]
	parsed := value.ReadText(payload[at:])
	if parsed == nil {
		return "", nil, false
	}
	subject, ok = value.AsArray(parsed)
	if !ok {
		return "", nil, false
	}
	return prefix, subject, true
}
