package domain

import "strings"

// Protocol identifies the kind of network account being sold
type Protocol string

const (
	ProtocolSSH         Protocol = "ssh"
	ProtocolVMess       Protocol = "vmess"
	ProtocolVLess       Protocol = "vless"
	ProtocolTrojan      Protocol = "trojan"
	ProtocolShadowsocks Protocol = "shadowsocks"
	// ProtocolBundle provisions the same username on vmess, vless and trojan.
	ProtocolBundle Protocol = "3in1"
)

// BundleProtocols lists the protocols covered by the 3-in-1 product, in order
var BundleProtocols = []Protocol{ProtocolVMess, ProtocolVLess, ProtocolTrojan}

// Protocols lists every sellable product
var Protocols = []Protocol{
	ProtocolSSH, ProtocolVMess, ProtocolVLess, ProtocolTrojan, ProtocolShadowsocks, ProtocolBundle,
}

// ParseProtocol parses a protocol name
func ParseProtocol(s string) (Protocol, bool) {
	p := Protocol(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Protocols {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// Members returns the concrete protocols an account of p lives under
func (p Protocol) Members() []Protocol {
	if p == ProtocolBundle {
		out := make([]Protocol, len(BundleProtocols))
		copy(out, BundleProtocols)
		return out
	}
	return []Protocol{p}
}

// Label returns the display name of the protocol
func (p Protocol) Label() string {
	switch p {
	case ProtocolBundle:
		return "3-IN-1"
	case ProtocolShadowsocks:
		return "SHADOWSOCKS"
	default:
		return strings.ToUpper(string(p))
	}
}

// NeedsPassword reports whether creating an account asks the buyer for a password
func (p Protocol) NeedsPassword() bool {
	return p == ProtocolSSH
}

// Action is the kind of purchase
type Action string

const (
	ActionCreate Action = "create"
	ActionRenew  Action = "renew"
)

// ParseAction parses a purchase action
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionCreate, ActionRenew:
		return Action(s), true
	}
	return "", false
}
