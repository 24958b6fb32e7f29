package value

import (
	"bytes"
	"encoding/base64"
	"strconv"
	"strings"
)

// Blob is an opaque byte sequence.
type Blob []byte

func (b Blob) Describe() string {
	return "blob"
}

func (b Blob) Class() Class {
	return ClassBlob
}

func (b Blob) DeepEqual(other Value) bool {
	otherBlob, ok := other.(Blob)
	return ok && bytes.Equal(b, otherBlob)
}

func (b Blob) Compare(other Value) ComparisonResult {
	otherBlob, ok := other.(Blob)
	if !ok {
		return Incomparable
	}
	switch cmp := bytes.Compare(b, otherBlob); {
	case cmp < 0:
		return Less
	case cmp > 0:
		return Greater
	default:
		return Equal
	}
}

func (b Blob) PrintTo(out *strings.Builder, squished bool) {
	out.WriteByte(blobChar)
	out.WriteString(strconv.Itoa(len(b)))
	out.WriteByte(blobChar)
	out.Write(b)
	out.WriteByte(blobChar)
}

func (b Blob) WriteJSON(out *strings.Builder, asKey bool, squished bool) {
	out.WriteByte('"')
	out.WriteString(base64.StdEncoding.EncodeToString(b))
	out.WriteByte('"')
}
