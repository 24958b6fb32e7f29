package service

import (
	"bufio"
	"bytes"
	"io"
	"net"

	"github.com/pkg/errors"

	"nimo.cc/nimo/common/message"
	"nimo.cc/nimo/common/mimesupport"
	"nimo.cc/nimo/common/value"
)

var (
	// ErrBadEnvelope marks an envelope whose MIME or message layer failed
	// to decode.
	ErrBadEnvelope = errors.New("undecodable envelope")

	// ErrNotAnArray marks a decoded request that is not an array.
	ErrNotAnArray = errors.New("request is not an array")
)

// WriteEnvelope sends one value sequence as a wire envelope: binary message,
// MIME-wrapped, terminator appended.
func WriteEnvelope(conn net.Conn, contents *value.Array) (err error) {
	encoded := mimesupport.EncodeBytes(message.Encode(contents))
	_, err = io.WriteString(conn, mimesupport.PackageMessage(encoded))
	return errors.Wrap(err, "writing envelope")
}

// ReadEnvelope reads from the connection until the terminator sentinel and
// decodes the enclosed array. The read blocks until the peer finishes the
// envelope or closes the connection.
func ReadEnvelope(in *bufio.Reader) (contents *value.Array, err error) {
	raw, err := readUntilTerminator(in)
	if err != nil {
		return
	}
	return DecodeEnvelope(raw)
}

// DecodeEnvelope unpacks one complete envelope, terminator included or not.
func DecodeEnvelope(envelope string) (contents *value.Array, err error) {
	trimmed := mimesupport.StripTerminator(envelope)
	raw, ok := mimesupport.DecodeString(trimmed)
	if !ok {
		return nil, ErrBadEnvelope
	}
	decoded, clean := message.Decode(raw)
	if !clean {
		return nil, ErrBadEnvelope
	}
	asArray, isArray := value.AsArray(decoded)
	if !isArray || asArray.Size() == 0 {
		return nil, ErrNotAnArray
	}
	return asArray, nil
}

// readUntilTerminator accumulates bytes until the envelope sentinel shows
// up.
func readUntilTerminator(in *bufio.Reader) (envelope string, err error) {
	terminator := []byte(mimesupport.MessageTerminator)
	var collected bytes.Buffer
	for {
		chunk, readErr := in.ReadBytes(terminator[len(terminator)-1])
		collected.Write(chunk)
		if bytes.HasSuffix(collected.Bytes(), terminator) {
			return collected.String(), nil
		}
		if readErr != nil {
			return "", errors.Wrap(readErr, "reading envelope")
		}
	}
}
