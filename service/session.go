package service

import (
	"bufio"
	"net"

	uuid "github.com/satori/go.uuid"

	"nimo.cc/nimo/common/value"
)

// commandSession services exactly one request/response exchange and then
// closes. The request is fully consumed before the response is written.
type commandSession struct {
	owner *Context
	conn  net.Conn
	tag   uuid.UUID
}

func newCommandSession(owner *Context, conn net.Conn) *commandSession {
	return &commandSession{
		owner: owner,
		conn:  conn,
		tag:   uuid.NewV4(),
	}
}

func (s *commandSession) close() {
	_ = s.conn.Close()
}

func (s *commandSession) run() {
	defer s.owner.forgetSession(s)
	defer s.close()

	log := s.owner.log
	request, err := ReadEnvelope(bufio.NewReader(s.conn))
	if err != nil {
		// a malformed envelope gets no reply; the peer sees the close
		if log != nil {
			log.Debugf("session %s: %s", s.tag, err)
		}
		return
	}
	commandName, isString := value.AsString(request.At(0))
	if !isString {
		if log != nil {
			log.Warningf("session %s: request does not start with a command name", s.tag)
		}
		return
	}
	handler, known := s.owner.handlers[string(commandName)]
	if !known {
		if log != nil {
			log.Warningf("session %s: no handler for %q", s.tag, commandName)
		}
		WriteResponseForRequest(s.owner, s.conn, string(commandName), false, "unrecognized request")
		return
	}
	if !handler(s.owner, s.conn, request) && log != nil {
		log.Warningf("session %s: handler for %q reported failure", s.tag, commandName)
	}
}
