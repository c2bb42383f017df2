// Package wgtypes provides shared types for the wireguard-uapi-go family of
// packages.
package wgtypes

import (
	"net"
	"time"
)

// A Device is a WireGuard device as returned by a get operation.
type Device struct {
	// Name is the name of the device, e.g. "wg0". On Linux it is filled in
	// from the interface name attribute of the kernel's reply.
	Name string

	// PrivateKey and PublicKey are the private and public keys of the
	// device.
	PrivateKey Key
	PublicKey  Key

	// ListenPort is the device's UDP listening port.
	ListenPort int

	// FirewallMark is the device's current firewall mark.
	FirewallMark int

	// Peers is a list of peers configured on this device.
	Peers []Peer
}

// A Peer is a WireGuard peer as returned by a get operation.
type Peer struct {
	// PublicKey is the public key of the peer, computed from its private
	// key, and uniquely identifies the peer within a Device.
	PublicKey Key

	// PresharedKey is an optional preshared key which may be used as an
	// additional layer of security for peer communications.
	PresharedKey Key

	// Endpoint is the most recent source address used for communication by
	// this peer.
	Endpoint *net.UDPAddr

	// PersistentKeepaliveInterval specifies how often an "empty" packet is
	// sent to the peer to keep a connection alive, when this peer is
	// behind a NAT.
	PersistentKeepaliveInterval time.Duration

	// LastHandshakeTime indicates the most recent time a handshake was
	// performed with this peer.
	LastHandshakeTime time.Time

	// ReceiveBytes and TransmitBytes indicate the number of bytes received
	// and transmitted with this peer, respectively.
	ReceiveBytes    int64
	TransmitBytes   int64
	ProtocolVersion int

	// AllowedIPs specifies which IPv4 and IPv6 addresses this peer is
	// allowed to communicate on.
	AllowedIPs []net.IPNet
}

// A Config is a WireGuard device configuration used with a set operation.
//
// Fields left as nil or zero values will be unchanged. Because the zero
// value of some Go types may be significant, fields that can be cleared are
// represented as pointers.
type Config struct {
	// PrivateKey specifies a private key configuration, if not nil.
	//
	// A non-nil, zero-value Key will clear the private key.
	PrivateKey *Key

	// ListenPort specifies a device's listening port, if not nil.
	ListenPort *int

	// FirewallMark specifies a device's firewall mark, if not nil.
	//
	// A non-nil, zero-value mark will clear the firewall mark.
	FirewallMark *int

	// ReplacePeers specifies if the Peers in this configuration should
	// replace the existing peer list, instead of appending them to the
	// existing list.
	ReplacePeers bool

	// Peers specifies a list of peer configurations to apply via this
	// configuration.
	Peers []PeerConfig
}

// A PeerConfig is a WireGuard peer configuration used with a set operation.
type PeerConfig struct {
	// PublicKey specifies the public key of this peer. PublicKey is the
	// only mandatory field for a PeerConfig, and must be specified in all
	// cases.
	PublicKey Key

	// Remove specifies if the peer with this public key should be removed
	// from a device's peer list.
	Remove bool

	// UpdateOnly specifies that an operation with this peer should only
	// occur if the peer already exists as part of the interface.
	UpdateOnly bool

	// PresharedKey specifies a preshared key configuration, if not nil.
	//
	// A non-nil, zero-value Key will clear the preshared key.
	PresharedKey *Key

	// Endpoint specifies the endpoint of this peer entry, if not nil.
	Endpoint *net.UDPAddr

	// PersistentKeepaliveInterval specifies the persistent keepalive
	// interval for this peer, if not nil.
	//
	// A non-nil value of 0 will clear the persistent keepalive interval.
	PersistentKeepaliveInterval *time.Duration

	// ReplaceAllowedIPs specifies if the allowed IPs specified in this
	// configuration should replace any existing ones, instead of appending
	// them to the existing list.
	ReplaceAllowedIPs bool

	// AllowedIPs specifies a list of allowed IP addresses this peer is
	// able to use for in a given Device.
	AllowedIPs []net.IPNet
}
