package service

import (
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/op/go-logging"
)

// gKeepRunning is the process-wide run flag. The stop! handler and the
// signal catcher clear it; long-running loops check it between iterations.
var gKeepRunning atomic.Bool

func init() {
	gKeepRunning.Store(true)
}

// KeepRunning reports whether the process should continue.
func KeepRunning() bool {
	return gKeepRunning.Load()
}

// StopRunning clears the run flag.
func StopRunning() {
	gKeepRunning.Store(false)
}

// ResumeRunning restores the run flag; tests that stop and restart services
// in one process need it.
func ResumeRunning() {
	gKeepRunning.Store(true)
}

// CatchSignals clears the run flag when a termination signal arrives.
func CatchSignals(log *logging.Logger) {
	incoming := make(chan os.Signal, 1)
	signal.Notify(incoming, standardSignals()...)
	go func() {
		received := <-incoming
		if log != nil {
			log.Noticef("stopping with signal %s", received)
		}
		StopRunning()
	}()
}
