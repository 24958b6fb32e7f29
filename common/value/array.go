package value

import (
	"strings"
)

// Array is an ordered sequence of values.
type Array struct {
	members []Value
}

// NewArray returns an array holding the given values in order.
func NewArray(members ...Value) *Array {
	a := &Array{}
	a.Add(members...)
	return a
}

// Add appends values to the array.
func (a *Array) Add(members ...Value) {
	a.members = append(a.members, members...)
}

// At returns the member at the given index, or nil when out of range.
func (a *Array) At(index int) Value {
	if index < 0 || index >= len(a.members) {
		return nil
	}
	return a.members[index]
}

// Members returns the backing slice; callers must not mutate it.
func (a *Array) Members() []Value {
	return a.members
}

// Size returns the number of members.
func (a *Array) Size() int {
	return len(a.members)
}

// Empty reports whether the array has no members.
func (a *Array) Empty() bool {
	return len(a.members) == 0
}

func (a *Array) Describe() string {
	return "array"
}

func (a *Array) Class() Class {
	return ClassContainer
}

func (a *Array) DeepEqual(other Value) bool {
	otherArray, ok := other.(*Array)
	if !ok {
		return false
	}
	if a == otherArray {
		return true
	}
	if len(a.members) != len(otherArray.members) {
		return false
	}
	for ii, member := range a.members {
		if !member.DeepEqual(otherArray.members[ii]) {
			return false
		}
	}
	return true
}

func (a *Array) Compare(other Value) ComparisonResult {
	otherArray, ok := other.(*Array)
	if !ok {
		return Incomparable
	}
	return compareMembers(a.members, otherArray.members)
}

func (a *Array) PrintTo(out *strings.Builder, squished bool) {
	out.WriteByte(startArrayChar)
	for ii, member := range a.members {
		if !squished || ii > 0 {
			out.WriteByte(' ')
		}
		member.PrintTo(out, squished)
	}
	if !squished {
		out.WriteByte(' ')
	}
	out.WriteByte(endArrayChar)
}

func (a *Array) WriteJSON(out *strings.Builder, asKey bool, squished bool) {
	out.WriteByte('[')
	for ii, member := range a.members {
		if ii > 0 {
			out.WriteByte(',')
			if !squished {
				out.WriteByte(' ')
			}
		}
		member.WriteJSON(out, false, squished)
	}
	out.WriteByte(']')
}

// compareMembers orders two member sequences lexicographically. The first
// non-equal pair decides, so an Incomparable pair met before any ordered
// difference makes the whole result Incomparable; pairs after the deciding
// one are not examined.
func compareMembers(left, right []Value) ComparisonResult {
	limit := len(left)
	if len(right) < limit {
		limit = len(right)
	}
	for ii := 0; ii < limit; ii++ {
		switch cmp := left[ii].Compare(right[ii]); cmp {
		case Equal:
			continue
		default:
			return cmp
		}
	}
	return compareOrdered(int64(len(left)), int64(len(right)))
}
