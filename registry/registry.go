package registry

import (
	"sync"

	"github.com/docker/go-events"
	"github.com/op/go-logging"

	"nimo.cc/nimo/common/config"
	"nimo.cc/nimo/common/network"
	"nimo.cc/nimo/discovery"
	"nimo.cc/nimo/service"
)

// Registry is the authoritative directory process. It owns the tables, the
// command port that serves the request vocabulary, the mDNS announcement,
// and the status reporter.
//
// Every state-mutating handler runs under the writer lock; read-only
// handlers share the reader side. Concurrent sessions therefore serialize
// at handler entry, and each request runs to completion before the next
// writer begins.
type Registry struct {
	log      *logging.Logger
	tables   *store
	ctx      *service.Context
	announce *discovery.Announcer
	reporter *events.Queue

	mu sync.RWMutex
}

// New builds a Registry bound to an ephemeral command port.
func New(log *logging.Logger, settings config.Config) (r *Registry, err error) {
	tables, err := newStore()
	if err != nil {
		return
	}
	ctx, err := service.NewContext(log, true)
	if err != nil {
		return
	}
	reporter, err := newStatusReporter(settings.StatusConnection)
	if err != nil {
		ctx.Close()
		return
	}
	r = &Registry{
		log:      log,
		tables:   tables,
		ctx:      ctx,
		reporter: reporter,
	}
	r.registerHandlers()
	return
}

// CommandConnection returns the Registry's command endpoint.
func (r *Registry) CommandConnection() network.Connection {
	return r.ctx.CommandConnection()
}

// Start begins serving and announces the endpoint over mDNS.
func (r *Registry) Start() (err error) {
	r.ctx.Start(0)
	r.announce, err = discovery.Announce(r.ctx.CommandConnection(), r.log)
	return
}

// StartWithoutAnnouncement begins serving without the mDNS record; tests
// that dial the endpoint directly use it.
func (r *Registry) StartWithoutAnnouncement() {
	r.ctx.Start(0)
}

// SetStopCallback installs a callback run by the stop! handler.
func (r *Registry) SetStopCallback(callback func()) {
	r.ctx.SetStopCallback(callback)
}

// Close tears everything down: the announcement, the command port with its
// sessions, and the report queue.
func (r *Registry) Close() {
	if r.announce != nil {
		r.announce.Close()
	}
	r.ctx.Close()
	_ = r.reporter.Close()
}

// report queues status reports for multicast.
func (r *Registry) report(reports []statusEvent) {
	for _, report := range reports {
		if err := r.reporter.Write(report); err != nil {
			r.log.Warningf("status report dropped: %s", err)
		}
	}
}
