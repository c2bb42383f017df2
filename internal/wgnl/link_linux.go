//go:build linux
// +build linux

package wgnl

import (
	"bytes"
	"fmt"

	"github.com/josharian/native"
	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
	"golang.org/x/sys/unix"
)

// wgKind is the IFLA_INFO_KIND value the kernel uses to identify WireGuard
// devices created through rtnetlink.
const wgKind = "wireguard"

// ifInfomsg mirrors the kernel's struct ifinfomsg, the fixed-size header
// that precedes the attribute list in every RTM_*LINK message.
type ifInfomsg struct {
	Family uint8
	_      uint8
	Type   uint16
	Index  int32
	Flags  uint32
	Change uint32
}

const sizeofIfInfomsg = 16

func (m ifInfomsg) marshal() []byte {
	var buf bytes.Buffer
	buf.Grow(sizeofIfInfomsg)
	_ = writeBinary(&buf, m)
	return buf.Bytes()
}

// writeBinary writes m to w using the kernel's native byte order.
func writeBinary(w *bytes.Buffer, m ifInfomsg) error {
	b := make([]byte, sizeofIfInfomsg)
	native.Endian.PutUint16(b[2:4], m.Type)
	native.Endian.PutUint32(b[4:8], uint32(m.Index))
	native.Endian.PutUint32(b[8:12], m.Flags)
	native.Endian.PutUint32(b[12:16], m.Change)
	b[0] = m.Family

	_, err := w.Write(b)
	return err
}

// rtnlConn is a minimal rtnetlink connection used only to create, delete,
// and enumerate WireGuard links. It is intentionally separate from the
// generic-netlink client, since it speaks NETLINK_ROUTE rather than
// NETLINK_GENERIC.
type rtnlConn struct {
	c *netlink.Conn
}

func dialRTNL() (*rtnlConn, error) {
	c, err := netlink.Dial(unix.NETLINK_ROUTE, nil)
	if err != nil {
		return nil, fmt.Errorf("wgnl: failed to dial rtnetlink: %w", err)
	}

	return &rtnlConn{c: c}, nil
}

func (r *rtnlConn) Close() error {
	return r.c.Close()
}

// addLink creates a WireGuard interface named name via RTM_NEWLINK.
func (r *rtnlConn) addLink(name string) error {
	kindAttr, err := netlink.MarshalAttributes([]netlink.Attribute{{
		Type: unix.IFLA_INFO_KIND,
		Data: nlenc.Bytes(wgKind),
	}})
	if err != nil {
		return err
	}

	attrs, err := netlink.MarshalAttributes([]netlink.Attribute{
		{
			Type: unix.IFLA_IFNAME,
			Data: nlenc.Bytes(name),
		},
		{
			Type: unix.IFLA_LINKINFO,
			Data: kindAttr,
		},
	})
	if err != nil {
		return err
	}

	hdr := ifInfomsg{Family: unix.AF_UNSPEC}

	msg := netlink.Message{
		Header: netlink.Header{
			Type:  unix.RTM_NEWLINK,
			Flags: netlink.Request | netlink.Acknowledge | netlink.Create | netlink.Excl,
		},
		Data: append(hdr.marshal(), attrs...),
	}

	if _, err := r.c.Execute(msg); err != nil {
		return fmt.Errorf("wgnl: failed to create link %q: %w", name, err)
	}

	return nil
}

// deleteLink removes the interface named name via RTM_DELLINK.
func (r *rtnlConn) deleteLink(name string) error {
	attrs, err := netlink.MarshalAttributes([]netlink.Attribute{{
		Type: unix.IFLA_IFNAME,
		Data: nlenc.Bytes(name),
	}})
	if err != nil {
		return err
	}

	hdr := ifInfomsg{Family: unix.AF_UNSPEC}

	msg := netlink.Message{
		Header: netlink.Header{
			Type:  unix.RTM_DELLINK,
			Flags: netlink.Request | netlink.Acknowledge,
		},
		Data: append(hdr.marshal(), attrs...),
	}

	if _, err := r.c.Execute(msg); err != nil {
		return fmt.Errorf("wgnl: failed to delete link %q: %w", name, err)
	}

	return nil
}

// listWireGuardNames enumerates every link on the system via a RTM_GETLINK
// dump and returns the names of those whose IFLA_INFO_KIND identifies them
// as WireGuard devices.
func (r *rtnlConn) listWireGuardNames() ([]string, error) {
	hdr := ifInfomsg{Family: unix.AF_UNSPEC}

	msg := netlink.Message{
		Header: netlink.Header{
			Type:  unix.RTM_GETLINK,
			Flags: netlink.Request | netlink.Dump,
		},
		Data: hdr.marshal(),
	}

	msgs, err := r.c.Execute(msg)
	if err != nil {
		return nil, fmt.Errorf("wgnl: failed to list links: %w", err)
	}

	return parseRTNLWireGuardNames(msgs)
}

// parseRTNLWireGuardNames parses a slice of RTM_NEWLINK messages and
// returns the names of those carrying IFLA_INFO_KIND == "wireguard".
func parseRTNLWireGuardNames(msgs []netlink.Message) ([]string, error) {
	var names []string
	for _, m := range msgs {
		if len(m.Data) < sizeofIfInfomsg {
			return nil, fmt.Errorf("wgnl: short ifinfomsg: %d bytes", len(m.Data))
		}

		attrs, err := netlink.UnmarshalAttributes(m.Data[sizeofIfInfomsg:])
		if err != nil {
			return nil, err
		}

		var (
			name    string
			isWG    bool
			hasName bool
		)

		for _, a := range attrs {
			switch a.Type {
			case unix.IFLA_IFNAME:
				name = nlenc.String(a.Data)
				hasName = true
			case unix.IFLA_LINKINFO:
				isWG = linkInfoIsWireGuard(a.Data)
			}
		}

		if hasName && isWG {
			names = append(names, name)
		}
	}

	return names, nil
}

// linkInfoIsWireGuard reports whether a nested IFLA_LINKINFO payload
// contains an IFLA_INFO_KIND child attribute equal to "wireguard". The
// nested bit on the attribute type is advisory and never required for
// parsing.
func linkInfoIsWireGuard(b []byte) bool {
	attrs, err := netlink.UnmarshalAttributes(b)
	if err != nil {
		return false
	}

	for _, a := range attrs {
		if a.Type == unix.IFLA_INFO_KIND && nlenc.String(a.Data) == wgKind {
			return true
		}
	}

	return false
}
