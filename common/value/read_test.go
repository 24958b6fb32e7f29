package value

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestReadScalars(t *testing.T) {
	cases := []struct {
		in   string
		want Value
	}{
		{"true", Logical(true)},
		{"false", Logical(false)},
		{"42", Integer(42)},
		{"-129", Integer(-129)},
		{"+7", Integer(7)},
		{"1.5", Double(1.5)},
		{"-0.25", Double(-0.25)},
		{"2e3", Double(2000)},
		{"1.5e-1", Double(0.15)},
		{`"hello"`, String("hello")},
		{`'with "quotes"'`, String(`with "quotes"`)},
		{`"esc\"aped"`, String(`esc"aped`)},
		{"%3%abc%", Blob([]byte("abc"))},
		{"%0%%", Blob([]byte{})},
		{"!D2024/7/19", NewDate(2024, 7, 19)},
		{"!T13:45:08.250", NewTime(13, 45, 8, 250)},
		{"!T13:45:08", NewTime(13, 45, 8, 0)},
		{"@192.168.0.1", NewAddress(192, 168, 0, 1)},
	}
	for _, tc := range cases {
		got := ReadText(tc.in)
		assert.Assert(t, got != nil, "parse of %q failed", tc.in)
		assert.Assert(t, got.DeepEqual(tc.want), "parse of %q gave %s", tc.in, Text(got, true))
	}
}

func TestReadRejects(t *testing.T) {
	bad := []string{
		"",
		".",          // bare decimal point
		"1e",         // exponent without digits
		"1e+",        // signed exponent without digits
		"--1",        // doubled mantissa sign
		"1.2.3",      // second decimal point
		"tru",        // truncated keyword
		"truely",     // keyword with a tail
		`"open`,      // unterminated string
		"( 1 2",      // unterminated array
		"{ 1 -> }",   // missing map value
		"[ 1 'x' ]",  // mixed set classes
		"{1->2,'a'->3}", // mixed map key classes
		"%4%abc%",    // short blob
		"!D2024/13/1", // month out of range
		"!T25:00:00", // hour out of range
		"@1.2.3.456", // octet out of range
		"42 17",      // trailing junk
	}
	for _, in := range bad {
		assert.Assert(t, ReadText(in) == nil, "parse of %q should fail", in)
	}
}

func TestReadContainers(t *testing.T) {
	parsed := ReadText(`( 1 2.5 "three" ( true ) )`)
	assert.Assert(t, parsed != nil)
	want := NewArray(Integer(1), Double(2.5), String("three"), NewArray(Logical(true)))
	assert.Assert(t, parsed.DeepEqual(want))

	parsed = ReadText(`{ "a" -> 1, "b" -> 2 }`)
	assert.Assert(t, parsed != nil)
	wantMap := NewMap()
	wantMap.Put(String("a"), Integer(1))
	wantMap.Put(String("b"), Integer(2))
	assert.Assert(t, parsed.DeepEqual(wantMap))

	parsed = ReadText(`[ 3 1 2 ]`)
	assert.Assert(t, parsed != nil)
	wantSet := NewSet()
	wantSet.Add(Integer(1))
	wantSet.Add(Integer(2))
	wantSet.Add(Integer(3))
	assert.Assert(t, parsed.DeepEqual(wantSet))
}

func TestTextRoundTrip(t *testing.T) {
	nested := NewMap()
	nested.Put(String("list"), NewArray(Integer(1), Double(2.5)))
	nested.Put(String("when"), NewDate(2024, 7, 19))
	values := append(sampleScalars(), sampleContainers()...)
	values = append(values, nested)
	for _, v := range values {
		for _, squished := range []bool{false, true} {
			text := Text(v, squished)
			back := ReadText(text)
			assert.Assert(t, back != nil, "round trip parse of %q failed", text)
			assert.Assert(t, back.DeepEqual(v), "round trip of %q changed the value", text)
		}
	}
}

func TestSquishedStability(t *testing.T) {
	for _, v := range append(sampleScalars(), sampleContainers()...) {
		squished := Text(v, true)
		back := ReadText(squished)
		assert.Assert(t, back != nil, "parse of %q failed", squished)
		assert.Equal(t, Text(back, true), squished)
	}
}

func TestSquishedMapForm(t *testing.T) {
	m := NewMap()
	m.Put(String("a"), Integer(1))
	assert.Equal(t, Text(m, true), `{"a"->1}`)
	assert.Equal(t, Text(m, false), `{ "a" -> 1 }`)
}

func TestCommaSeparators(t *testing.T) {
	parsed := ReadText("(1,2,3)")
	assert.Assert(t, parsed != nil)
	assert.Assert(t, parsed.DeepEqual(NewArray(Integer(1), Integer(2), Integer(3))))
}
