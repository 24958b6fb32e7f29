package value

import (
	"sort"
	"strings"
)

// MapEntry is one key/value pair of a Map.
type MapEntry struct {
	Key   Value
	Value Value
}

// Map is a mapping from values to values. All keys share one enumeration
// class, fixed by the first insertion; once the map empties the class resets.
// Iteration order is the key order.
type Map struct {
	entries  []MapEntry
	keyClass Class
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{keyClass: ClassNotComparable}
}

// KeyClass returns the enumeration class of the keys, or ClassNotComparable
// while the map is empty.
func (m *Map) KeyClass() Class {
	return m.keyClass
}

// Put inserts or replaces the entry for key. Insertion of a key whose
// enumeration class differs from the established one is a no-op reporting
// false. Container keys are rejected.
func (m *Map) Put(key, val Value) bool {
	if !keyAcceptable(key, m.keyClass, len(m.entries) == 0) {
		return false
	}
	at, found := m.search(key)
	if found {
		m.entries[at].Value = val
		return true
	}
	m.entries = append(m.entries, MapEntry{})
	copy(m.entries[at+1:], m.entries[at:])
	m.entries[at] = MapEntry{Key: key, Value: val}
	m.keyClass = key.Class()
	return true
}

// Get returns the value for key, if present.
func (m *Map) Get(key Value) (val Value, found bool) {
	at, ok := m.search(key)
	if !ok {
		return
	}
	return m.entries[at].Value, true
}

// Remove deletes the entry for key, reporting whether one was present. When
// the last entry goes, the key class resets.
func (m *Map) Remove(key Value) bool {
	at, found := m.search(key)
	if !found {
		return false
	}
	m.entries = append(m.entries[:at], m.entries[at+1:]...)
	if len(m.entries) == 0 {
		m.keyClass = ClassNotComparable
	}
	return true
}

// Entries returns the entries in key order; callers must not mutate the
// slice.
func (m *Map) Entries() []MapEntry {
	return m.entries
}

// Size returns the number of entries.
func (m *Map) Size() int {
	return len(m.entries)
}

// Empty reports whether the map has no entries.
func (m *Map) Empty() bool {
	return len(m.entries) == 0
}

func (m *Map) search(key Value) (at int, found bool) {
	at = sort.Search(len(m.entries), func(ii int) bool {
		return m.entries[ii].Key.Compare(key) != Less
	})
	found = at < len(m.entries) && m.entries[at].Key.Compare(key) == Equal
	return
}

func (m *Map) Describe() string {
	return "map"
}

func (m *Map) Class() Class {
	return ClassContainer
}

func (m *Map) DeepEqual(other Value) bool {
	otherMap, ok := other.(*Map)
	if !ok {
		return false
	}
	if m == otherMap {
		return true
	}
	if len(m.entries) != len(otherMap.entries) {
		return false
	}
	for ii, entry := range m.entries {
		if !entry.Key.DeepEqual(otherMap.entries[ii].Key) ||
			!entry.Value.DeepEqual(otherMap.entries[ii].Value) {
			return false
		}
	}
	return true
}

func (m *Map) Compare(other Value) ComparisonResult {
	otherMap, ok := other.(*Map)
	if !ok {
		return Incomparable
	}
	flat := func(entries []MapEntry) []Value {
		flattened := make([]Value, 0, 2*len(entries))
		for _, entry := range entries {
			flattened = append(flattened, entry.Key, entry.Value)
		}
		return flattened
	}
	return compareMembers(flat(m.entries), flat(otherMap.entries))
}

func (m *Map) PrintTo(out *strings.Builder, squished bool) {
	out.WriteByte(startMapChar)
	for ii, entry := range m.entries {
		if ii > 0 {
			out.WriteByte(',')
		}
		if !squished {
			out.WriteByte(' ')
		}
		entry.Key.PrintTo(out, squished)
		if squished {
			out.WriteString(keyValueSeparator)
		} else {
			out.WriteString(" " + keyValueSeparator + " ")
		}
		entry.Value.PrintTo(out, squished)
	}
	if !squished {
		out.WriteByte(' ')
	}
	out.WriteByte(endMapChar)
}

func (m *Map) WriteJSON(out *strings.Builder, asKey bool, squished bool) {
	out.WriteByte('{')
	for ii, entry := range m.entries {
		if ii > 0 {
			out.WriteByte(',')
			if !squished {
				out.WriteByte(' ')
			}
		}
		entry.Key.WriteJSON(out, true, squished)
		out.WriteByte(':')
		if !squished {
			out.WriteByte(' ')
		}
		entry.Value.WriteJSON(out, false, squished)
	}
	out.WriteByte('}')
}

// Set is a collection of distinct values sharing one enumeration class,
// fixed by the first insertion; once the set empties the class resets.
// Iteration order is the member order.
type Set struct {
	members     []Value
	memberClass Class
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{memberClass: ClassNotComparable}
}

// MemberClass returns the enumeration class of the members, or
// ClassNotComparable while the set is empty.
func (s *Set) MemberClass() Class {
	return s.memberClass
}

// Add inserts a value. Insertion of a value whose enumeration class differs
// from the established one is a no-op reporting false; inserting a value
// already present succeeds without growing the set.
func (s *Set) Add(member Value) bool {
	if !keyAcceptable(member, s.memberClass, len(s.members) == 0) {
		return false
	}
	at, found := s.search(member)
	if found {
		return true
	}
	s.members = append(s.members, nil)
	copy(s.members[at+1:], s.members[at:])
	s.members[at] = member
	s.memberClass = member.Class()
	return true
}

// Contains reports membership.
func (s *Set) Contains(member Value) bool {
	_, found := s.search(member)
	return found
}

// Remove deletes a member, reporting whether it was present. When the last
// member goes, the member class resets.
func (s *Set) Remove(member Value) bool {
	at, found := s.search(member)
	if !found {
		return false
	}
	s.members = append(s.members[:at], s.members[at+1:]...)
	if len(s.members) == 0 {
		s.memberClass = ClassNotComparable
	}
	return true
}

// Members returns the members in order; callers must not mutate the slice.
func (s *Set) Members() []Value {
	return s.members
}

// Size returns the number of members.
func (s *Set) Size() int {
	return len(s.members)
}

// Empty reports whether the set has no members.
func (s *Set) Empty() bool {
	return len(s.members) == 0
}

func (s *Set) search(member Value) (at int, found bool) {
	at = sort.Search(len(s.members), func(ii int) bool {
		return s.members[ii].Compare(member) != Less
	})
	found = at < len(s.members) && s.members[at].Compare(member) == Equal
	return
}

func (s *Set) Describe() string {
	return "set"
}

func (s *Set) Class() Class {
	return ClassContainer
}

func (s *Set) DeepEqual(other Value) bool {
	otherSet, ok := other.(*Set)
	if !ok {
		return false
	}
	if s == otherSet {
		return true
	}
	if len(s.members) != len(otherSet.members) {
		return false
	}
	for ii, member := range s.members {
		if !member.DeepEqual(otherSet.members[ii]) {
			return false
		}
	}
	return true
}

func (s *Set) Compare(other Value) ComparisonResult {
	otherSet, ok := other.(*Set)
	if !ok {
		return Incomparable
	}
	return compareMembers(s.members, otherSet.members)
}

func (s *Set) PrintTo(out *strings.Builder, squished bool) {
	out.WriteByte(startSetChar)
	for ii, member := range s.members {
		if !squished || ii > 0 {
			out.WriteByte(' ')
		}
		member.PrintTo(out, squished)
	}
	if !squished {
		out.WriteByte(' ')
	}
	out.WriteByte(endSetChar)
}

func (s *Set) WriteJSON(out *strings.Builder, asKey bool, squished bool) {
	out.WriteByte('[')
	for ii, member := range s.members {
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

// keyAcceptable decides whether a candidate key or set member fits the
// established enumeration class. Containers and flaws never key.
func keyAcceptable(candidate Value, established Class, empty bool) bool {
	candidateClass := candidate.Class()
	if candidateClass == ClassContainer || candidateClass == ClassNotComparable {
		return false
	}
	return empty || candidateClass == established
}
