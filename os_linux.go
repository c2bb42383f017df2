//go:build linux
// +build linux

package wgctrl

import "github.com/returntoreality/wireguard-uapi-go/internal/wgnl"

// newClient opens the Linux Netlink-backed osClient implementation.
func newClient() (osClient, error) {
	return wgnl.New()
}
