// Package value implements the typed value algebra shared by every part of
// the fabric: a recursive sum type with a total ordering inside each
// enumeration class, deep structural equality, and printable text and JSON
// forms. The binary wire form lives in common/message.
package value

import (
	"strings"
)

// Class is the enumeration class of a value. It governs which values are
// mutually comparable and which values may share a Map or Set as keys.
type Class int

const (
	ClassNotComparable Class = iota
	ClassLogical
	ClassNumber
	ClassString
	ClassBlob
	ClassDate
	ClassTime
	ClassAddress
	ClassContainer
)

// ComparisonResult is the outcome of comparing two values. Comparisons
// between containers and scalars are not defined, so every comparison
// operator carries Incomparable as an explicit third state beside the usual
// ordering.
type ComparisonResult int

const (
	Incomparable ComparisonResult = iota
	Less
	Equal
	Greater
)

func (c ComparisonResult) String() string {
	switch c {
	case Less:
		return "less"
	case Equal:
		return "equal"
	case Greater:
		return "greater"
	default:
		return "incomparable"
	}
}

// Value is a node in the value DAG. Containers hold shared references to
// their children, so one value may sit in several containers at once; no
// mutation operation accepts an ancestor, which rules out cycles by
// construction.
type Value interface {
	// Describe returns a one-word type name for diagnostics.
	Describe() string

	// Class returns the enumeration class of the value.
	Class() Class

	// DeepEqual reports structural equality. Values of different
	// enumeration classes are unequal, except that Integer and Double
	// compare across types as numbers.
	DeepEqual(other Value) bool

	// Compare orders the value against another of the same enumeration
	// class. Number values compare across Integer/Double. Comparing a
	// container with a scalar yields Incomparable.
	Compare(other Value) ComparisonResult

	// PrintTo appends the text form. With squished set, no optional
	// whitespace is emitted.
	PrintTo(out *strings.Builder, squished bool)

	// WriteJSON appends the JSON form. With asKey set, forms that are not
	// legal JSON object keys are quoted.
	WriteJSON(out *strings.Builder, asKey bool, squished bool)
}

// Container is implemented by Array, Map and Set.
type Container interface {
	Value

	// Size returns the number of members (entries for a Map).
	Size() int

	// Empty reports whether the container has no members.
	Empty() bool
}

// Text returns the text form of a value as a string.
func Text(v Value, squished bool) string {
	var out strings.Builder

	v.PrintTo(&out, squished)
	return out.String()
}

// JSONText returns the JSON form of a value as a string.
func JSONText(v Value, squished bool) string {
	var out strings.Builder

	v.WriteJSON(&out, false, squished)
	return out.String()
}

// AsContainer narrows a value to a container, if it is one.
func AsContainer(v Value) (c Container, ok bool) {
	c, ok = v.(Container)
	return
}

// AsArray narrows a value to an Array, if it is one.
func AsArray(v Value) (a *Array, ok bool) {
	a, ok = v.(*Array)
	return
}

// AsString narrows a value to a String, if it is one.
func AsString(v Value) (s String, ok bool) {
	s, ok = v.(String)
	return
}

// AsLogical narrows a value to a Logical, if it is one.
func AsLogical(v Value) (l Logical, ok bool) {
	l, ok = v.(Logical)
	return
}

// AsInteger narrows a value to an Integer, if it is one.
func AsInteger(v Value) (i Integer, ok bool) {
	i, ok = v.(Integer)
	return
}

// AsDouble narrows a value to a Double, if it is one.
func AsDouble(v Value) (d Double, ok bool) {
	d, ok = v.(Double)
	return
}
