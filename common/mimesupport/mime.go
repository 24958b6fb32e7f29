// Package mimesupport frames binary messages for the wire: base64 text
// wrapped to a fixed line length, closed by a terminator sentinel. One
// envelope is one command-port write; readers frame on the sentinel.
package mimesupport

import (
	"encoding/base64"
	"strings"
)

// MaxLineLength is the wrap point for encoded output. It must stay
// divisible by 4 so every full line decodes to whole byte triples.
const MaxLineLength = 72

// MessageTerminator closes every envelope and is the framing sentinel for
// command-port reads. Form feed never occurs in the base64 alphabet.
const MessageTerminator = "\n\f\f\n"

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// EncodeBytes converts raw bytes to wrapped base64 lines.
func EncodeBytes(raw []byte) (lines []string) {
	encoded := base64.StdEncoding.EncodeToString(raw)
	for len(encoded) > MaxLineLength {
		lines = append(lines, encoded[:MaxLineLength])
		encoded = encoded[MaxLineLength:]
	}
	if len(encoded) > 0 {
		lines = append(lines, encoded)
	}
	return
}

// DecodeToBytes converts wrapped base64 lines back to raw bytes. Any line
// whose length is not a multiple of 4 fails; the pad character marks end of
// data; characters outside the alphabet fail.
func DecodeToBytes(lines []string) (raw []byte, ok bool) {
	for _, line := range lines {
		if len(line)%4 != 0 {
			return nil, false
		}
	}
	var quad [4]byte
	filled := 0
	flush := func() {
		raw = append(raw, quad[0]<<2|quad[1]>>4)
		if filled > 2 {
			raw = append(raw, quad[1]<<4|quad[2]>>2)
		}
		if filled > 3 {
			raw = append(raw, quad[2]<<6|quad[3])
		}
	}
	done := false
	for _, line := range lines {
		for ii := 0; ii < len(line); ii++ {
			ch := line[ii]
			if ch == '=' {
				done = true
				break
			}
			if done {
				return nil, false
			}
			at := strings.IndexByte(alphabet, ch)
			if at < 0 {
				return nil, false
			}
			quad[filled] = byte(at)
			filled++
			if filled == 4 {
				flush()
				filled = 0
			}
		}
	}
	if filled == 1 {
		// a lone character cannot carry a whole byte
		return nil, false
	}
	if filled > 1 {
		for ii := filled; ii < 4; ii++ {
			quad[ii] = 0
		}
		flush()
	}
	return raw, true
}

// DecodeString splits an unsplit envelope body on newlines and decodes it.
func DecodeString(body string) (raw []byte, ok bool) {
	return DecodeToBytes(strings.Split(body, "\n"))
}

// PackageMessage joins encoded lines into one wire envelope, terminator
// included.
func PackageMessage(lines []string) string {
	return strings.Join(lines, "\n") + MessageTerminator
}

// StripTerminator removes the trailing sentinel from a received envelope.
func StripTerminator(envelope string) string {
	return strings.TrimSuffix(envelope, MessageTerminator)
}
