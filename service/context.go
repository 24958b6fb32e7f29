// Package service runs a node's command port: a TCP acceptor on an
// ephemeral port, short-lived single-request sessions, and dispatch by
// command name over a handler table frozen before the first accept.
package service

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/op/go-logging"

	"nimo.cc/nimo/common/network"
	"nimo.cc/nimo/common/value"
	"nimo.cc/nimo/discovery"
)

// Handler services one named command. It receives the session's socket and
// the full request array, writes the response envelope itself, and reports
// success.
type Handler func(ctx *Context, conn net.Conn, request *value.Array) bool

// Context owns a command port and its sessions.
type Context struct {
	log        *logging.Logger
	listener   net.Listener
	endpoint   network.Connection
	isRegistry bool

	handlers map[string]Handler
	frozen   bool

	mu       sync.Mutex
	sessions map[*commandSession]struct{}
	closed   bool

	accepting sync.WaitGroup
}

// NewContext binds an ephemeral TCP port on the first usable IPv4
// interface. A context for the Registry itself skips the wait for Registry
// discovery at start.
func NewContext(log *logging.Logger, isRegistry bool) (ctx *Context, err error) {
	bindAddr, err := network.FirstUsableIPv4()
	if err != nil {
		return
	}
	listener, err := net.Listen("tcp4", fmt.Sprintf("%s:0", bindAddr))
	if err != nil {
		return
	}
	port := uint16(listener.Addr().(*net.TCPAddr).Port)
	ctx = &Context{
		log:        log,
		listener:   listener,
		endpoint:   network.Connection{Address: bindAddr.String(), Port: port},
		isRegistry: isRegistry,
		handlers:   map[string]Handler{},
		sessions:   map[*commandSession]struct{}{},
	}
	ctx.AddHandler(StopRequestName, stopHandler(nil))
	return
}

// StopRequestName is the command every service answers.
const StopRequestName = "stop!"

// stopHandler builds the standard stop! handler. The optional callback
// fires before the run flag clears.
func stopHandler(callback func()) Handler {
	return func(ctx *Context, conn net.Conn, request *value.Array) bool {
		if callback != nil {
			callback()
		}
		StopRunning()
		WriteResponseForRequest(ctx, conn, StopRequestName, true, "")
		return true
	}
}

// SetStopCallback replaces the standard stop! handler with one that fires
// the callback first. Only legal before Start.
func (ctx *Context) SetStopCallback(callback func()) {
	if !ctx.frozen {
		ctx.handlers[StopRequestName] = stopHandler(callback)
	}
}

// AddHandler registers a command. Registration closes when Start freezes
// the table; a duplicate or late registration reports false.
func (ctx *Context) AddHandler(commandName string, handler Handler) bool {
	if ctx.frozen || handler == nil || commandName == "" {
		return false
	}
	if _, present := ctx.handlers[commandName]; present {
		return false
	}
	ctx.handlers[commandName] = handler
	return true
}

// CommandConnection returns the bound command endpoint.
func (ctx *Context) CommandConnection() network.Connection {
	return ctx.endpoint
}

// Log returns the context's logger.
func (ctx *Context) Log() *logging.Logger {
	return ctx.log
}

// Start freezes the handler table and begins accepting sessions. Unless
// this process is the Registry, or waiting is disabled process-wide, Start
// blocks until the Registry is locatable and reports whether it was found.
func (ctx *Context) Start(searchTimeout time.Duration) bool {
	ctx.frozen = true
	ctx.accepting.Add(1)
	go ctx.acceptLoop()
	if ctx.isRegistry || discovery.RegistryWaitDisabled() {
		return true
	}
	_, found := discovery.FindRegistry(searchTimeout)
	return found
}

func (ctx *Context) acceptLoop() {
	defer ctx.accepting.Done()
	for {
		conn, err := ctx.listener.Accept()
		if err != nil {
			// the listener closed underneath us; sessions are torn down
			// by Close
			return
		}
		session := newCommandSession(ctx, conn)
		ctx.mu.Lock()
		if ctx.closed {
			ctx.mu.Unlock()
			_ = conn.Close()
			return
		}
		ctx.sessions[session] = struct{}{}
		ctx.mu.Unlock()
		go session.run()
	}
}

func (ctx *Context) forgetSession(session *commandSession) {
	ctx.mu.Lock()
	delete(ctx.sessions, session)
	ctx.mu.Unlock()
}

// Close shuts the acceptor and every live session. Pending reads observe
// the closed sockets and unwind; no session outlives its context.
func (ctx *Context) Close() {
	ctx.mu.Lock()
	if ctx.closed {
		ctx.mu.Unlock()
		return
	}
	ctx.closed = true
	live := make([]*commandSession, 0, len(ctx.sessions))
	for session := range ctx.sessions {
		live = append(live, session)
	}
	ctx.mu.Unlock()
	_ = ctx.listener.Close()
	for _, session := range live {
		session.close()
	}
	ctx.accepting.Wait()
}

// WriteResponseForRequest writes the standard response envelope for a
// request name: the matching response name, the success flag, and the
// diagnostic, with no payload.
func WriteResponseForRequest(ctx *Context, conn net.Conn, requestName string, ok bool, diagnostic string) {
	response := value.NewArray(
		value.String(ResponseNameFor(requestName)),
		value.Logical(ok),
		value.String(diagnostic),
	)
	if err := WriteEnvelope(conn, response); err != nil && ctx.log != nil {
		ctx.log.Errorf("response write failed: %s", err)
	}
}

// ResponseNameFor maps a request name to its paired response name by
// replacing the trailing sentinel character with '='.
func ResponseNameFor(requestName string) string {
	trimmed := strings.TrimRight(requestName, "!?#")
	return trimmed + "="
}
