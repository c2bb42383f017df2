// Package wgtest provides test fixtures for the wgnl test suite.
package wgtest

import (
	"encoding/hex"
	"net"

	"github.com/returntoreality/wireguard-uapi-go/wgtypes"
)

// MustPrivateKey generates a wgtypes.Key suitable for use as a private key,
// or panics on failure.
func MustPrivateKey() wgtypes.Key {
	k, err := wgtypes.GeneratePrivateKey()
	if err != nil {
		panic("wgtest: failed to generate private key: " + err.Error())
	}

	return k
}

// MustPublicKey generates a wgtypes.Key suitable for use as a public key, or
// panics on failure.
func MustPublicKey() wgtypes.Key {
	return MustPrivateKey().PublicKey()
}

// MustHexKey decodes a lowercase-hex-encoded key s into a wgtypes.Key, or
// panics if s is malformed.
func MustHexKey(s string) wgtypes.Key {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("wgtest: failed to decode hex key: " + err.Error())
	}

	k, err := wgtypes.NewKey(b)
	if err != nil {
		panic("wgtest: failed to create key: " + err.Error())
	}

	return k
}

// MustCIDR parses s as a CIDR block and returns the resulting net.IPNet, or
// panics if s is malformed.
func MustCIDR(s string) net.IPNet {
	_, cidr, err := net.ParseCIDR(s)
	if err != nil {
		panic("wgtest: failed to parse CIDR: " + err.Error())
	}

	return *cidr
}

// MustUDPAddr resolves s as a UDP address, or panics if s is malformed.
func MustUDPAddr(s string) *net.UDPAddr {
	addr, err := net.ResolveUDPAddr("udp", s)
	if err != nil {
		panic("wgtest: failed to resolve UDP address: " + err.Error())
	}

	return addr
}
