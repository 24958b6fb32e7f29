package service

import (
	"bufio"
	"net"
	"testing"

	"gotest.tools/v3/assert"

	"nimo.cc/nimo/common/mimesupport"
	"nimo.cc/nimo/common/value"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	sent := value.NewArray(value.String("probe?"), value.Integer(42), value.Logical(true))
	go func() {
		_ = WriteEnvelope(client, sent)
	}()
	received, err := ReadEnvelope(bufio.NewReader(server))
	assert.NilError(t, err)
	assert.Assert(t, received.DeepEqual(sent))
}

func TestReadEnvelopeStopsAtTerminator(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	first := value.NewArray(value.String("first?"))
	second := value.NewArray(value.String("second?"))
	go func() {
		_ = WriteEnvelope(client, first)
		_ = WriteEnvelope(client, second)
	}()
	in := bufio.NewReader(server)
	received, err := ReadEnvelope(in)
	assert.NilError(t, err)
	assert.Assert(t, received.DeepEqual(first))
	received, err = ReadEnvelope(in)
	assert.NilError(t, err)
	assert.Assert(t, received.DeepEqual(second))
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	_, err := DecodeEnvelope("not base64 at all" + mimesupport.MessageTerminator)
	assert.Assert(t, err != nil)
}

func TestDecodeEnvelopeRejectsNonArray(t *testing.T) {
	encoded := mimesupport.EncodeBytes([]byte{0x19, 0x01, 0x07, 0x1b}) // framed bare integer
	_, err := DecodeEnvelope(mimesupport.PackageMessage(encoded))
	assert.ErrorIs(t, err, ErrNotAnArray)
}

func TestResponseNameFor(t *testing.T) {
	assert.Equal(t, ResponseNameFor("addNode!"), "addNode=")
	assert.Equal(t, ResponseNameFor("getNumberOfNodes?"), "getNumberOfNodes=")
	assert.Equal(t, ResponseNameFor("getChannelInUseAndSet#"), "getChannelInUseAndSet=")
}
