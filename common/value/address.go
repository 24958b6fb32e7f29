package value

import (
	"fmt"
	"strings"
)

// Address is an IPv4 address held as a 32-bit scalar in network order.
type Address uint32

// NewAddress packs the four octets of a dotted quad.
func NewAddress(a, b, c, d byte) Address {
	return Address(uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d))
}

// Octets returns the four octets, most significant first.
func (a Address) Octets() (byte, byte, byte, byte) {
	return byte(a >> 24), byte(a >> 16), byte(a >> 8), byte(a)
}

// DottedQuad returns the conventional textual form.
func (a Address) DottedQuad() string {
	o1, o2, o3, o4 := a.Octets()
	return fmt.Sprintf("%d.%d.%d.%d", o1, o2, o3, o4)
}

func (a Address) Describe() string {
	return "address"
}

func (a Address) Class() Class {
	return ClassAddress
}

func (a Address) DeepEqual(other Value) bool {
	otherAddress, ok := other.(Address)
	return ok && a == otherAddress
}

func (a Address) Compare(other Value) ComparisonResult {
	otherAddress, ok := other.(Address)
	if !ok {
		return Incomparable
	}
	return compareOrdered(int64(a), int64(otherAddress))
}

func (a Address) PrintTo(out *strings.Builder, squished bool) {
	out.WriteByte(addressChar)
	out.WriteString(a.DottedQuad())
}

func (a Address) WriteJSON(out *strings.Builder, asKey bool, squished bool) {
	out.WriteByte('"')
	out.WriteString(a.DottedQuad())
	out.WriteByte('"')
}
