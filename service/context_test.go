package service

import (
	"bufio"
	"io"
	"net"
	"testing"
	"time"

	"github.com/op/go-logging"
	"gotest.tools/v3/assert"

	"nimo.cc/nimo/common/mimesupport"
	"nimo.cc/nimo/common/network"
	"nimo.cc/nimo/common/protocol"
	"nimo.cc/nimo/common/value"
	"nimo.cc/nimo/discovery"
)

func testContext(t *testing.T) *Context {
	t.Helper()
	ResumeRunning()
	discovery.DisableRegistryWait(true)
	t.Cleanup(func() { discovery.DisableRegistryWait(false) })
	log := logging.MustGetLogger("service-test")
	ctx, err := NewContext(log, false)
	assert.NilError(t, err)
	t.Cleanup(ctx.Close)
	return ctx
}

func roundTripRequest(t *testing.T, endpoint network.Connection, request *value.Array) *value.Array {
	t.Helper()
	conn, err := network.DialCommandPort(endpoint, 2*time.Second)
	assert.NilError(t, err)
	defer conn.Close()
	assert.NilError(t, WriteEnvelope(conn, request))
	response, err := ReadEnvelope(bufio.NewReader(conn))
	assert.NilError(t, err)
	return response
}

func TestDispatchByName(t *testing.T) {
	ctx := testContext(t)
	registered := ctx.AddHandler("echo?", func(ctx *Context, conn net.Conn, request *value.Array) bool {
		response := protocol.MakeResponse("echo=", true, "", request.Members()[1:]...)
		return WriteEnvelope(conn, response) == nil
	})
	assert.Assert(t, registered)
	assert.Assert(t, ctx.Start(0))

	response := roundTripRequest(t, ctx.CommandConnection(),
		protocol.MakeRequest("echo?", value.Integer(7), value.String("x")))
	ok, diagnostic, payload, usable := protocol.SplitResponse(response, "echo=")
	assert.Assert(t, usable)
	assert.Assert(t, ok)
	assert.Equal(t, diagnostic, "")
	assert.Equal(t, len(payload), 2)
	assert.Assert(t, payload[0].DeepEqual(value.Integer(7)))
}

func TestUnknownCommandGetsBadResponse(t *testing.T) {
	ctx := testContext(t)
	assert.Assert(t, ctx.Start(0))

	response := roundTripRequest(t, ctx.CommandConnection(), protocol.MakeRequest("nothing?"))
	ok, diagnostic, _, usable := protocol.SplitResponse(response, "nothing=")
	assert.Assert(t, usable)
	assert.Assert(t, !ok)
	assert.Assert(t, diagnostic != "")
}

func TestHandlerRegistrationFreezes(t *testing.T) {
	ctx := testContext(t)
	assert.Assert(t, ctx.AddHandler("early?", func(*Context, net.Conn, *value.Array) bool { return true }))
	assert.Assert(t, !ctx.AddHandler("early?", func(*Context, net.Conn, *value.Array) bool { return true }),
		"a duplicate registration is refused")
	assert.Assert(t, ctx.Start(0))
	assert.Assert(t, !ctx.AddHandler("late?", func(*Context, net.Conn, *value.Array) bool { return true }),
		"the table freezes before the first accept")
}

func TestMalformedEnvelopeClosesWithoutReply(t *testing.T) {
	ctx := testContext(t)
	assert.Assert(t, ctx.Start(0))

	conn, err := network.DialCommandPort(ctx.CommandConnection(), 2*time.Second)
	assert.NilError(t, err)
	defer conn.Close()
	_, err = io.WriteString(conn, "garbage that is not base64"+mimesupport.MessageTerminator)
	assert.NilError(t, err)
	buf := make([]byte, 1)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = conn.Read(buf)
	assert.Assert(t, err != nil, "the session closes without a reply")
}

func TestStopHandler(t *testing.T) {
	ctx := testContext(t)
	fired := false
	ctx.SetStopCallback(func() { fired = true })
	assert.Assert(t, ctx.Start(0))

	response := roundTripRequest(t, ctx.CommandConnection(), protocol.MakeRequest(StopRequestName))
	ok, _, _, usable := protocol.SplitResponse(response, "stop=")
	assert.Assert(t, usable)
	assert.Assert(t, ok)
	assert.Assert(t, fired, "the stop callback fires")
	assert.Assert(t, !KeepRunning(), "the run flag clears")
}

func TestCloseUnblocksSessions(t *testing.T) {
	ctx := testContext(t)
	assert.Assert(t, ctx.Start(0))

	conn, err := network.DialCommandPort(ctx.CommandConnection(), 2*time.Second)
	assert.NilError(t, err)
	defer conn.Close()
	// the session is mid-read when the context goes away
	time.Sleep(50 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		ctx.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Close hung on a live session")
	}
}
