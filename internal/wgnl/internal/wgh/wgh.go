// Package wgh provides low-level access to the Linux WireGuard generic
// netlink family and its attribute schema.
//
// Values are taken from the WireGuard kernel module's uapi header,
// wireguard.h.
package wgh

const (
	// GenlName is the name of the generic netlink family implemented by the
	// WireGuard kernel module.
	GenlName = "wireguard"

	// GenlVersion is the current version of that family which this package
	// supports.
	GenlVersion = 1
)

// WireGuard commands (WG_CMD_*).
const (
	CmdGetDevice = 1
	CmdSetDevice = 2
)

// Device attributes (WGDEVICE_A_*).
const (
	DeviceAUnspec     = 0
	DeviceAIfindex    = 1
	DeviceAIfname     = 2
	DeviceAPrivateKey = 3
	DeviceAPublicKey  = 4
	DeviceAFlags      = 5
	DeviceAListenPort = 6
	DeviceAFwmark     = 7
	DeviceAPeers      = 8
)

// Device flags (WGDEVICE_F_*).
const (
	DeviceFReplacePeers = 1 << 0
)

// Peer attributes (WGPEER_A_*).
const (
	PeerAUnspec                      = 0
	PeerAPublicKey                   = 1
	PeerAPresharedKey                = 2
	PeerAFlags                       = 3
	PeerAEndpoint                    = 4
	PeerAPersistentKeepaliveInterval = 5
	PeerALastHandshakeTime           = 6
	PeerARxBytes                     = 7
	PeerATxBytes                     = 8
	PeerAAllowedips                  = 9
	PeerAProtocolVersion             = 10
)

// Peer flags (WGPEER_F_*).
const (
	PeerFRemoveMe          = 1 << 0
	PeerFReplaceAllowedips = 1 << 1
	PeerFUpdateOnly        = 1 << 2
)

// Allowed IP attributes (WGALLOWEDIP_A_*).
const (
	AllowedipAUnspec   = 0
	AllowedipAFamily   = 1
	AllowedipAIpaddr   = 2
	AllowedipACidrMask = 3
)

// KeyLen is the byte length of a WireGuard public, private, or preshared
// key, as carried in DeviceAPrivateKey, DeviceAPublicKey, PeerAPublicKey,
// and PeerAPresharedKey.
const KeyLen = 32
