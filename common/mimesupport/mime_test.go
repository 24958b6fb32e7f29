package mimesupport

import (
	"bytes"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
)

func TestEncodeLineLengths(t *testing.T) {
	raw := bytes.Repeat([]byte{0xa5, 0x5a, 0x00}, 60)
	lines := EncodeBytes(raw)
	assert.Assert(t, len(lines) > 1)
	for ii, line := range lines {
		assert.Assert(t, len(line)%4 == 0, "line %d has length %d", ii, len(line))
		assert.Assert(t, len(line) <= MaxLineLength)
		if ii < len(lines)-1 {
			assert.Equal(t, len(line), MaxLineLength)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, raw := range [][]byte{
		nil,
		{0x00},
		{0x01, 0x02},
		{0xff, 0xfe, 0xfd},
		bytes.Repeat([]byte{0x17}, 100),
	} {
		lines := EncodeBytes(raw)
		back, ok := DecodeToBytes(lines)
		assert.Assert(t, ok)
		assert.Assert(t, bytes.Equal(back, raw), "round trip changed %x into %x", raw, back)
	}
}

func TestDecodeRejectsShortLine(t *testing.T) {
	_, ok := DecodeToBytes([]string{"QUJ"})
	assert.Assert(t, !ok, "a line whose length is not a multiple of 4 must fail")
}

func TestDecodeRejectsBadCharacters(t *testing.T) {
	_, ok := DecodeToBytes([]string{"QUJ*"})
	assert.Assert(t, !ok)
	_, ok = DecodeToBytes([]string{"QU\nJ="})
	assert.Assert(t, !ok)
}

func TestDecodePadEndsData(t *testing.T) {
	back, ok := DecodeToBytes([]string{"QQ=="})
	assert.Assert(t, ok)
	assert.DeepEqual(t, back, []byte("A"))
}

func TestDecodeUnsplitString(t *testing.T) {
	lines := EncodeBytes([]byte("the quick brown fox jumps over the lazy dog, twice over"))
	back, ok := DecodeString(strings.Join(lines, "\n"))
	assert.Assert(t, ok)
	assert.DeepEqual(t, back, []byte("the quick brown fox jumps over the lazy dog, twice over"))
}

func TestPackageAndStrip(t *testing.T) {
	lines := EncodeBytes([]byte{1, 2, 3})
	envelope := PackageMessage(lines)
	assert.Assert(t, strings.HasSuffix(envelope, MessageTerminator))
	stripped := StripTerminator(envelope)
	back, ok := DecodeString(stripped)
	assert.Assert(t, ok)
	assert.DeepEqual(t, back, []byte{1, 2, 3})
}
