// Package channelname parses and formats the external form of channel
// names:
//
//	[ network ":" ] [ node ] path [ "#" transport ]
//
// The path is the only mandatory part. A missing transport reads as
// unknown.
package channelname

import (
	"regexp"
	"strings"
)

// Transport is a channel's transport preference.
type Transport int

const (
	TransportUnknown Transport = iota
	TransportTCP
	TransportUDP
	TransportAny
)

// String returns the lower-case protocol name.
func (t Transport) String() string {
	switch t {
	case TransportTCP:
		return "tcp"
	case TransportUDP:
		return "udp"
	case TransportAny:
		return "any"
	default:
		return "unknown"
	}
}

// TransportFromName maps a protocol name, case-insensitively, to a
// Transport. Anything unrecognized reads as unknown.
func TransportFromName(name string) Transport {
	switch strings.ToLower(name) {
	case "tcp":
		return TransportTCP
	case "udp":
		return TransportUDP
	case "any":
		return TransportAny
	default:
		return TransportUnknown
	}
}

// Overlaps reports whether two transport preferences are compatible: any
// overlaps with everything, otherwise the preferences must match.
func (t Transport) Overlaps(other Transport) bool {
	if t == TransportAny || other == TransportAny {
		return true
	}
	return t == other
}

const (
	namePart      = `[[:alnum:]$]+([_.-][[:alnum:]$]+)*`
	pathPart      = `(/` + namePart + `)+`
	transportPart = `[Uu][Dd][Pp]|[Tt][Cc][Pp]|[Aa][Nn][Yy]`
)

var (
	channelNameExpr = regexp.MustCompile(`^((` + namePart + `)?:)?(` + namePart + `)?(` + pathPart + `)(#(` + transportPart + `))?$`)
	nameExpr        = regexp.MustCompile(`^` + namePart + `$`)
	pathExpr        = regexp.MustCompile(`^` + pathPart + `$`)
)

// ChannelName is the parsed form of a channel name.
type ChannelName struct {
	Network   string
	Node      string
	Path      string
	Transport Transport
}

// Parse decomposes the external form. The second return is false when the
// input does not match the grammar.
func Parse(input string) (parsed ChannelName, ok bool) {
	matches := channelNameExpr.FindStringSubmatch(input)
	if matches == nil {
		return
	}
	parsed.Network = matches[2]
	parsed.Node = matches[4]
	parsed.Path = matches[6]
	parsed.Transport = TransportFromName(matches[10])
	return parsed, true
}

// ValidName reports whether a network or node name matches the grammar.
func ValidName(name string) bool {
	return nameExpr.MatchString(name)
}

// ValidPath reports whether a path matches the grammar.
func ValidPath(path string) bool {
	return pathExpr.MatchString(path)
}

// String reassembles the external form. The transport is omitted when
// unknown.
func (cn ChannelName) String() string {
	var out strings.Builder
	if cn.Network != "" {
		out.WriteString(cn.Network)
		out.WriteByte(':')
	}
	out.WriteString(cn.Node)
	out.WriteString(cn.Path)
	if cn.Transport != TransportUnknown {
		out.WriteByte('#')
		out.WriteString(cn.Transport.String())
	}
	return out.String()
}
