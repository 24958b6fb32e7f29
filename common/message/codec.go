package message

import (
	"encoding/binary"
	"math"

	"nimo.cc/nimo/common/value"
)

// minimumSignedWidth returns the fewest bytes that hold n under signed
// big-endian interpretation.
func minimumSignedWidth(n int64) int {
	for width := 1; width < 8; width++ {
		shift := uint(64 - 8*width)
		if n<<shift>>shift == n {
			return width
		}
	}
	return 8
}

func appendSigned(buf []byte, n int64, width int) []byte {
	for ii := width - 1; ii >= 0; ii-- {
		buf = append(buf, byte(n>>(8*uint(ii))))
	}
	return buf
}

// Length and count fields spill into 1, 2, 4 or 8 follow-on bytes; the
// two-bit code in the width field selects which.
func countFieldCode(n uint64) (code int, width int) {
	switch {
	case n <= math.MaxUint8:
		return 0, 1
	case n <= math.MaxUint16:
		return 1, 2
	case n <= math.MaxUint32:
		return 2, 4
	default:
		return 3, 8
	}
}

func appendCountField(buf []byte, tag byte, n uint64) []byte {
	code, width := countFieldCode(n)
	buf = append(buf, byte(code<<widthBits)|tag)
	for ii := width - 1; ii >= 0; ii-- {
		buf = append(buf, byte(n>>(8*uint(ii))))
	}
	return buf
}

func writeValue(buf *[]byte, v value.Value) {
	switch typed := v.(type) {
	case value.Logical:
		w := byte(0)
		if typed {
			w = 1
		}
		*buf = append(*buf, w<<widthBits|tagLogical)
	case value.Integer:
		width := minimumSignedWidth(int64(typed))
		*buf = append(*buf, byte(width-1)<<widthBits|tagInteger)
		*buf = appendSigned(*buf, int64(typed), width)
	case value.Double:
		writeDoubleRun(buf, []value.Double{typed})
	case value.String:
		*buf = appendCountField(*buf, tagString, uint64(len(typed)))
		*buf = append(*buf, typed...)
	case value.Blob:
		*buf = appendCountField(*buf, tagBlob, uint64(len(typed)))
		*buf = append(*buf, typed...)
	case value.Date:
		*buf = append(*buf, tagDate)
		*buf = binary.BigEndian.AppendUint32(*buf, uint32(typed))
	case value.Time:
		*buf = append(*buf, tagTime)
		*buf = binary.BigEndian.AppendUint32(*buf, uint32(typed))
	case value.Address:
		*buf = append(*buf, tagAddress)
		*buf = binary.BigEndian.AppendUint32(*buf, uint32(typed))
	case *value.Array:
		writeArray(buf, typed)
	case *value.Map:
		*buf = appendCountField(*buf, tagMap, uint64(typed.Size()))
		for _, entry := range typed.Entries() {
			writeValue(buf, entry.Key)
			writeValue(buf, entry.Value)
		}
	case *value.Set:
		*buf = appendCountField(*buf, tagSet, uint64(typed.Size()))
		for _, member := range typed.Members() {
			writeValue(buf, member)
		}
	}
}

// writeArray emits the members, packing runs of consecutive doubles under a
// shared lead byte.
func writeArray(buf *[]byte, a *value.Array) {
	members := a.Members()
	*buf = appendCountField(*buf, tagArray, uint64(len(members)))
	for ii := 0; ii < len(members); {
		if d, ok := members[ii].(value.Double); ok {
			run := []value.Double{d}
			for ii+len(run) < len(members) {
				next, isDouble := members[ii+len(run)].(value.Double)
				if !isDouble {
					break
				}
				run = append(run, next)
			}
			writeDoubleRun(buf, run)
			ii += len(run)
			continue
		}
		writeValue(buf, members[ii])
		ii++
	}
}

// writeDoubleRun emits up to eight doubles under one lead byte, chaining
// further lead bytes for longer runs.
func writeDoubleRun(buf *[]byte, run []value.Double) {
	for len(run) > 0 {
		chunk := run
		if len(chunk) > 8 {
			chunk = chunk[:8]
		}
		*buf = append(*buf, byte(len(chunk)-1)<<widthBits|tagDouble)
		for _, d := range chunk {
			*buf = binary.BigEndian.AppendUint64(*buf, math.Float64bits(float64(d)))
		}
		run = run[len(chunk):]
	}
}

func take(buf []byte, pos *int, n int) (got []byte, ok bool) {
	if n < 0 || n > len(buf)-*pos {
		return nil, false
	}
	got = buf[*pos : *pos+n]
	*pos += n
	return got, true
}

func readCountField(buf []byte, pos *int, code int) (n uint64, ok bool) {
	widths := [4]int{1, 2, 4, 8}
	raw, ok := take(buf, pos, widths[code&3])
	if !ok {
		return 0, false
	}
	for _, b := range raw {
		n = n<<8 | uint64(b)
	}
	return n, true
}

// extractValue decodes the value at *pos. A run of doubles appends its
// members to parent, which is the only reason the parent array travels here;
// the first double of a run is also returned. A nil return marks truncated
// or unknown data; a Flaw return marks intact framing around invalid
// content.
func extractValue(buf []byte, pos *int, parent *value.Array) value.Value {
	if *pos >= len(buf) {
		return nil
	}
	lead := buf[*pos]
	*pos++
	w := int(lead >> widthBits & widthMask)
	switch lead & tagMask {
	case tagLogical:
		return value.Logical(w != 0)
	case tagInteger:
		raw, ok := take(buf, pos, w+1)
		if !ok {
			return nil
		}
		n := int64(int8(raw[0])) // sign-extend from the first byte
		for _, b := range raw[1:] {
			n = n<<8 | int64(b)
		}
		return value.Integer(n)
	case tagDouble:
		if w > 0 && parent == nil {
			// a run of doubles is only legal inside an array
			return value.NewFlaw("double run outside an array")
		}
		var first value.Value
		for ii := 0; ii <= w; ii++ {
			raw, ok := take(buf, pos, 8)
			if !ok {
				return nil
			}
			d := value.Double(math.Float64frombits(binary.BigEndian.Uint64(raw)))
			if first == nil {
				first = d
			}
			if parent != nil {
				// the run lands in the parent array here, first member
				// included; the caller notices the growth and skips its
				// own append
				parent.Add(d)
			}
		}
		return first
	case tagString:
		n, ok := readCountField(buf, pos, w)
		if !ok {
			return nil
		}
		raw, ok := take(buf, pos, int(n))
		if !ok {
			return nil
		}
		return value.String(raw)
	case tagBlob:
		n, ok := readCountField(buf, pos, w)
		if !ok {
			return nil
		}
		raw, ok := take(buf, pos, int(n))
		if !ok {
			return nil
		}
		blob := make(value.Blob, n)
		copy(blob, raw)
		return blob
	case tagDate:
		raw, ok := take(buf, pos, 4)
		if !ok {
			return nil
		}
		return value.Date(binary.BigEndian.Uint32(raw))
	case tagTime:
		raw, ok := take(buf, pos, 4)
		if !ok {
			return nil
		}
		return value.Time(binary.BigEndian.Uint32(raw))
	case tagAddress:
		raw, ok := take(buf, pos, 4)
		if !ok {
			return nil
		}
		return value.Address(binary.BigEndian.Uint32(raw))
	case tagArray:
		n, ok := readCountField(buf, pos, w)
		if !ok {
			return nil
		}
		result := value.NewArray()
		for uint64(result.Size()) < n {
			before := result.Size()
			member := extractValue(buf, pos, result)
			if member == nil {
				return nil
			}
			if result.Size() == before {
				result.Add(member)
			}
		}
		if uint64(result.Size()) != n {
			return value.NewFlaw("array count mismatch")
		}
		return result
	case tagMap:
		n, ok := readCountField(buf, pos, w)
		if !ok {
			return nil
		}
		result := value.NewMap()
		for ii := uint64(0); ii < n; ii++ {
			key := extractValue(buf, pos, nil)
			if key == nil {
				return nil
			}
			val := extractValue(buf, pos, nil)
			if val == nil {
				return nil
			}
			if value.IsFlawed(key) || value.IsFlawed(val) {
				return value.NewFlaw("flawed map entry")
			}
			if !result.Put(key, val) {
				return value.NewFlaw("map key class mismatch")
			}
		}
		return result
	case tagSet:
		n, ok := readCountField(buf, pos, w)
		if !ok {
			return nil
		}
		result := value.NewSet()
		for ii := uint64(0); ii < n; ii++ {
			member := extractValue(buf, pos, nil)
			if member == nil {
				return nil
			}
			if value.IsFlawed(member) {
				return value.NewFlaw("flawed set member")
			}
			if !result.Add(member) {
				return value.NewFlaw("set member class mismatch")
			}
		}
		return result
	}
	return nil
}
