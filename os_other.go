//go:build !linux
// +build !linux

package wgctrl

import (
	"fmt"
	"runtime"
)

// newClient reports that only the Linux Netlink backend is implemented by
// this module. A full cross-platform client would dial an
// in-kernel backend where the OS provides one and otherwise fall back to
// the xplatform userspace-socket protocol, the way upstream wgctrl clients
// pick a backend per OS; this module's scope is the Netlink core plus the
// standalone xplatform text codec (package xplatform), not a ready-made
// non-Linux transport.
func newClient() (osClient, error) {
	return nil, fmt.Errorf("wgctrl: unsupported platform %q", runtime.GOOS)
}
