// Package logger wires up process logging: a console backend for operators
// plus an optional UDP multicast backend that ships every record to the
// fabric's log group as a small JSON line.
package logger

import (
	"encoding/json"
	"os"
	"time"

	"github.com/op/go-logging"

	"nimo.cc/nimo/common/network"
)

var format = logging.MustStringFormatter(
	`%{time:15:04:05.000} %{module} %{level:.4s} %{message}`,
)

// Setup returns a logger writing to stderr at the given level. When ship is
// set, records are also multicast to the log group.
func Setup(prefix string, level logging.Level, ship bool, group network.Connection) *logging.Logger {
	log := logging.MustGetLogger(prefix)
	console := logging.NewBackendFormatter(logging.NewLogBackend(os.Stderr, "", 0), format)
	backends := []logging.Backend{console}
	if ship {
		if sender, err := network.NewMulticastSender(group); err == nil {
			backends = append(backends, &multicastBackend{prefix: prefix, sender: sender})
		}
	}
	leveled := logging.MultiLogger(backends...)
	leveled.SetLevel(level, prefix)
	log.SetBackend(leveled)
	return log
}

// multicastBackend ships one datagram per record. The line schema is opaque
// to receivers; it only has to stay self-contained.
type multicastBackend struct {
	prefix string
	sender *network.MulticastSender
}

type shippedRecord struct {
	Time    string `json:"t"`
	Source  string `json:"src"`
	Level   string `json:"lvl"`
	Message string `json:"msg"`
}

func (b *multicastBackend) Log(level logging.Level, calldepth int, rec *logging.Record) error {
	line, err := json.Marshal(shippedRecord{
		Time:    rec.Time.Format(time.RFC3339Nano),
		Source:  b.prefix,
		Level:   level.String(),
		Message: rec.Message(),
	})
	if err != nil {
		return err
	}
	b.sender.Send(line)
	return nil
}
