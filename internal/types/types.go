// Package types provides domain models shared across DialKeeper components.
//
// Wire-agnostic design: these types carry no XML, SQL or protobuf tags.
// Conversion to persisted or transported forms happens at the boundary
// (internal/rules for XML, internal/core/api for RPC payloads).
//
// ID utilities in ids.go import uuid but are isolated from the evaluation
// types so the engine core stays dependency-free.
package types

import (
	"fmt"
	"strings"
)

// RuleID identifies a rule inside a rule set.
// String alias keeps IDs opaque; UUIDv7 when generated by DialKeeper.
type RuleID string

// RevisionID identifies one stored revision of a rule set.
type RevisionID string

// DialActionID is an opaque dial-action identifier resolved by the host's
// dial-action registry. The engine only stores and returns it.
type DialActionID string

// Direction selects which rule chain applies to a call.
type Direction int

const (
	DirectionOutgoing Direction = iota
	DirectionIncoming
)

// String returns the persisted name of the direction.
func (d Direction) String() string {
	if d == DirectionIncoming {
		return "incoming"
	}
	return "outgoing"
}

// ParseDirection converts "incoming"/"outgoing" (case-insensitive) to a Direction.
// Empty input defaults to outgoing.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "outgoing", "out":
		return DirectionOutgoing, nil
	case "incoming", "in":
		return DirectionIncoming, nil
	default:
		return DirectionOutgoing, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// NetworkType is the kind of network the device is currently attached to.
type NetworkType int

const (
	NetworkNone NetworkType = iota
	NetworkWiFi
	NetworkCellular
	NetworkEthernet
)

var networkTypeNames = map[NetworkType]string{
	NetworkNone:     "none",
	NetworkWiFi:     "wifi",
	NetworkCellular: "cellular",
	NetworkEthernet: "ethernet",
}

// String returns the canonical lower-case name.
func (n NetworkType) String() string {
	if name, ok := networkTypeNames[n]; ok {
		return name
	}
	return "none"
}

// ParseNetworkType converts a network-type name to NetworkType.
// Matching is case-insensitive and accepts common aliases.
func ParseNetworkType(s string) (NetworkType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "offline":
		return NetworkNone, true
	case "wifi", "wi-fi", "wlan":
		return NetworkWiFi, true
	case "cellular", "mobile", "cell":
		return NetworkCellular, true
	case "ethernet", "wired":
		return NetworkEthernet, true
	default:
		return NetworkNone, false
	}
}

// Context is a read-only snapshot of environment facts consulted during a
// rewrite. Supplied fresh by the host for every call; never cached.
type Context struct {
	WifiSSID           string      // "" when not on Wi-Fi
	DefaultCountryCode string      // e.g. "420"
	RecordingEnabled   bool        // global call-recording preference
	NetworkType        NetworkType // current attachment
}

// IncomingCallDisposition is the directive an incoming-call rule can set.
type IncomingCallDisposition int

const (
	IncomingNone IncomingCallDisposition = iota
	IncomingReject
	IncomingForward
	IncomingAnswerImmediately
)

// String returns the lower-case name used in RPC payloads.
func (d IncomingCallDisposition) String() string {
	switch d {
	case IncomingReject:
		return "reject"
	case IncomingForward:
		return "forward"
	case IncomingAnswerImmediately:
		return "answer_immediately"
	default:
		return "none"
	}
}

// IncomingCallAction pairs a disposition with its optional parameter
// (the forward target for IncomingForward).
type IncomingCallAction struct {
	Disposition IncomingCallDisposition
	Param       string
}

// Header is one custom SIP header set by a rule.
type Header struct {
	Name  string
	Value string
}

// Headers is an insertion-ordered header map.
type Headers []Header

// Set inserts or overwrites name. Overwrites keep the original position.
func (h *Headers) Set(name, value string) {
	for i := range *h {
		if (*h)[i].Name == name {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, Header{Name: name, Value: value})
}

// Get returns the value for name and whether it was set.
func (h Headers) Get(name string) (string, bool) {
	for _, hdr := range h {
		if hdr.Name == name {
			return hdr.Value, true
		}
	}
	return "", false
}

// Clone returns an independent copy.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}

// Result is the projection of a finished rewrite pass consumed by call
// placement, incoming-call disposition and preview UI.
type Result struct {
	Number             string
	ForceDialOut       bool
	ShowDialOutAlert   bool
	RecordCall         bool // a recordCall action applied, whatever the preference
	ShouldAutoRecord   bool // RecordCall gated by Context.RecordingEnabled
	DialAction         DialActionID
	Headers            Headers
	Extras             *Node
	LocationPolicy     string
	Alert              string
	IncomingCallAction IncomingCallAction
	DefaultCountryCode string
	MatchedRules       []int // indices into the rewriter's rule list
}

// Resource limits enforced when rules are constructed or loaded.
const (
	// MaxRules bounds a single rule set; rewrite cost is linear in rules.
	MaxRules = 1024

	// MaxConditionsPerRule bounds the AND chain of one rule.
	MaxConditionsPerRule = 32

	// MaxActionsPerRule bounds the action sequence of one rule.
	MaxActionsPerRule = 32

	// MaxParamLength bounds a condition or action parameter.
	MaxParamLength = 256

	// MaxTreeDepth bounds nesting of an action sub-tree.
	MaxTreeDepth = 8

	// MaxDocumentSize bounds a persisted rule document.
	MaxDocumentSize = 1024 * 1024
)
