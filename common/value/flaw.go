package value

import (
	"strings"
)

// Flaw marks data whose framing was intact but whose content was
// structurally invalid, such as a map key that does not match the class of
// its siblings. A flaw anywhere in a decode poisons the surrounding result.
type Flaw struct {
	Description string
}

// NewFlaw returns a flaw carrying a diagnostic.
func NewFlaw(description string) *Flaw {
	return &Flaw{Description: description}
}

// IsFlawed reports whether a value is, or contains, a Flaw.
func IsFlawed(v Value) bool {
	switch typed := v.(type) {
	case *Flaw:
		return true
	case *Array:
		for _, member := range typed.members {
			if IsFlawed(member) {
				return true
			}
		}
	case *Map:
		for _, entry := range typed.entries {
			if IsFlawed(entry.Key) || IsFlawed(entry.Value) {
				return true
			}
		}
	case *Set:
		for _, member := range typed.members {
			if IsFlawed(member) {
				return true
			}
		}
	}
	return false
}

func (f *Flaw) Describe() string {
	return "flaw"
}

func (f *Flaw) Class() Class {
	return ClassNotComparable
}

func (f *Flaw) DeepEqual(other Value) bool {
	return false
}

func (f *Flaw) Compare(other Value) ComparisonResult {
	return Incomparable
}

func (f *Flaw) PrintTo(out *strings.Builder, squished bool) {
	out.WriteString("<flaw: ")
	out.WriteString(f.Description)
	out.WriteByte('>')
}

func (f *Flaw) WriteJSON(out *strings.Builder, asKey bool, squished bool) {
	out.WriteString("null")
}
