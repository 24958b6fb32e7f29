// Package message implements the self-describing binary form of values: the
// unit that gets MIME-wrapped and exchanged on every command port. A message
// frames one or more values between a header byte and a trailer byte whose
// low bits restate the header's count discriminator.
package message

import (
	"nimo.cc/nimo/common/value"
)

// Lead-byte layout: the low five bits carry the type tag, the high three
// bits a tag-specific width or count field.
const (
	tagMask   = 0x1f
	widthMask = 0x07
	widthBits = 5

	tagInteger = 0x01
	tagDouble  = 0x02
	tagString  = 0x03
	tagBlob    = 0x04
	tagLogical = 0x05
	tagDate    = 0x06
	tagTime    = 0x07
	tagAddress = 0x08
	tagArray   = 0x09
	tagMap     = 0x0a
	tagSet     = 0x0b

	// Message framing. The low bit is the count discriminator: set when the
	// message starts with at least one value.
	leadEmptyMessage     = 0x18
	leadNonEmptyMessage  = 0x19
	trailEmptyMessage    = 0x1a
	trailNonEmptyMessage = 0x1b
)

// Message assembles or disassembles one framed value sequence. A message is
// opened for either construction or parsing, never both.
type Message struct {
	buf        []byte
	pos        int
	opened     bool
	closed     bool
	forWriting bool
	haveValue  bool
	atEnd      bool
	readAtEnd  bool
}

// Open readies the message. With forWriting set the message accepts values;
// otherwise it accepts bytes to parse.
func (m *Message) Open(forWriting bool) {
	m.opened = true
	m.closed = false
	m.forWriting = forWriting
	m.buf = nil
	m.pos = 0
	m.haveValue = false
	m.atEnd = false
	m.readAtEnd = false
}

// Close finishes assembly or parsing. For a written message this seals the
// framing; further values are refused.
func (m *Message) Close() {
	if m.opened && m.forWriting && !m.closed {
		m.sealFraming()
	}
	m.closed = true
	m.opened = false
}

// SetValue appends the framed encoding of one value to the message under
// construction.
func (m *Message) SetValue(v value.Value) {
	if !m.opened || !m.forWriting || m.closed {
		return
	}
	if !m.haveValue {
		m.buf = append(m.buf, leadNonEmptyMessage)
		m.haveValue = true
	}
	writeValue(&m.buf, v)
}

func (m *Message) sealFraming() {
	if m.haveValue {
		m.buf = append(m.buf, trailNonEmptyMessage)
	} else {
		m.buf = []byte{leadEmptyMessage, trailEmptyMessage}
	}
}

// AppendBytes feeds raw bytes into a message opened for parsing.
func (m *Message) AppendBytes(data []byte) {
	if !m.opened || m.forWriting || m.closed {
		return
	}
	m.buf = append(m.buf, data...)
}

// Length returns the number of assembled or fed bytes.
func (m *Message) Length() int {
	return len(m.buf)
}

// Bytes returns the assembled wire form. Only valid once the message has
// been closed.
func (m *Message) Bytes() []byte {
	return m.buf
}

// GetValue extracts the next value from a message opened for parsing. The
// return is nil when the framing or an encoding is malformed, and a Flaw
// value when the framing was intact but the content was structurally
// invalid. ReadAtEnd reports whether parsing stopped exactly at a value
// boundary.
func (m *Message) GetValue() value.Value {
	if !m.opened || m.forWriting {
		return nil
	}
	if m.pos >= len(m.buf) {
		m.atEnd = true
		return nil
	}
	lead := m.buf[m.pos]
	m.pos++
	switch lead {
	case leadEmptyMessage:
		if m.pos < len(m.buf) && m.buf[m.pos] == trailEmptyMessage {
			m.pos++
			m.atEnd = true
			m.readAtEnd = m.pos == len(m.buf)
		}
		return nil
	case leadNonEmptyMessage:
		extracted := extractValue(m.buf, &m.pos, nil)
		if extracted == nil {
			return nil
		}
		if m.pos < len(m.buf) && m.buf[m.pos] == trailNonEmptyMessage {
			m.pos++
			m.atEnd = true
			m.readAtEnd = m.pos == len(m.buf)
		}
		return extracted
	}
	return nil
}

// ReadAtEnd reports whether the last parse consumed the buffer to exactly a
// legal message boundary.
func (m *Message) ReadAtEnd() bool {
	return m.readAtEnd
}

// AtEnd reports whether the reader has exhausted the data.
func (m *Message) AtEnd() bool {
	return m.atEnd
}

// Encode is a convenience that frames a single value.
func Encode(v value.Value) []byte {
	var m Message

	m.Open(true)
	m.SetValue(v)
	m.Close()
	return m.Bytes()
}

// Decode is a convenience that parses a single framed value. The second
// return is false unless the buffer held exactly one well-formed message.
func Decode(data []byte) (v value.Value, clean bool) {
	var m Message

	m.Open(false)
	m.AppendBytes(data)
	v = m.GetValue()
	m.Close()
	if v == nil || value.IsFlawed(v) {
		return v, false
	}
	return v, m.ReadAtEnd()
}
