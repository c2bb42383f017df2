//go:build linux
// +build linux

package wgnl

import (
	"errors"
	"fmt"
	"net"

	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
	"github.com/returntoreality/wireguard-uapi-go/internal/wgnl/internal/wgh"
	"github.com/returntoreality/wireguard-uapi-go/wgtypes"
	"golang.org/x/sys/unix"
)

// defaultMessageBudget approximates the kernel's MAX_GENL_PAYLOAD; a
// SetDevice request larger than this must be split across multiple
// messages.
const defaultMessageBudget = 32 * 1024

// ErrAttributeTooLarge is returned when a single attribute (a peer's fixed
// header, or a single allowed IP entry) cannot fit within the configured
// message budget even in an otherwise-empty message.
var ErrAttributeTooLarge = errors.New("wgnl: attribute exceeds message budget")

// ErrOverflow is returned when an attribute list marshals to more bytes than
// the 16-bit netlink attribute length field can encode.
var ErrOverflow = errors.New("wgnl: attribute payload overflows netlink length field")

// setFragment is one netlink message's worth of a fragmented SetDevice
// request: the top-level attributes excluding WGDEVICE_A_PEERS, plus the
// already-encoded, indexed peer entries that belong under it.
type setFragment struct {
	top   []netlink.Attribute
	peers []netlink.Attribute
}

// attrs returns the final, fully assembled attribute list for this
// fragment, wrapping peers (if any) in a single WGDEVICE_A_PEERS attribute.
func (f setFragment) attrs() ([]netlink.Attribute, error) {
	if len(f.peers) == 0 {
		return f.top, nil
	}

	b, err := marshalAttrs(f.peers)
	if err != nil {
		return nil, err
	}

	return append(append([]netlink.Attribute(nil), f.top...), netlink.Attribute{
		Type: wgh.DeviceAPeers | netlink.Nested,
		Data: b,
	}), nil
}

// size returns the exact marshaled size of the fragment in its current
// state, used to decide whether another entry still fits under budget.
func (f setFragment) size() (int, error) {
	attrs, err := f.attrs()
	if err != nil {
		return 0, err
	}

	b, err := netlink.MarshalAttributes(attrs)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrOverflow, err)
	}

	return len(b), nil
}

// buildSetMessages fragments a logical SetDevice request into one or more
// top-level attribute lists, each of which fits within budget bytes once
// marshaled, via a greedy single-pass packing of peers and allowed IPs.
//
// The interface name attribute is present in every message. Device-level
// attributes and WGDEVICE_F_REPLACE_PEERS appear only in the first message.
// A peer may be split across messages; its continuation entries repeat
// only its public key and allowed IPs, with zero flags.
func buildSetMessages(name string, cfg wgtypes.Config, budget int) ([][]netlink.Attribute, error) {
	if budget <= 0 {
		budget = defaultMessageBudget
	}

	ifnameAttr := netlink.Attribute{
		Type: wgh.DeviceAIfname,
		Data: nlenc.Bytes(name),
	}

	headerAttrs, err := deviceHeaderAttrs(cfg)
	if err != nil {
		return nil, err
	}

	var messages [][]netlink.Attribute

	newFragment := func(first bool) setFragment {
		top := []netlink.Attribute{ifnameAttr}
		if first {
			top = append(top, headerAttrs...)
		}

		return setFragment{top: top}
	}

	cur := newFragment(true)

	if len(cfg.Peers) == 0 {
		attrs, err := cur.attrs()
		if err != nil {
			return nil, err
		}

		return [][]netlink.Attribute{attrs}, nil
	}

	closeAndStart := func() error {
		attrs, err := cur.attrs()
		if err != nil {
			return err
		}

		messages = append(messages, attrs)
		cur = newFragment(false)
		return nil
	}

	for _, p := range cfg.Peers {
		peerIndex := uint16(len(cur.peers))

		header, err := peerHeaderAttrs(p, true)
		if err != nil {
			return nil, err
		}

		entry := append([]netlink.Attribute(nil), header...)

		// Verify the peer's fixed header would fit in a brand-new, empty
		// fragment; if it can never fit, no amount of splitting helps.
		if tooLarge, err := entryTooLargeAlone(ifnameAttr, entry, budget); err != nil {
			return nil, err
		} else if tooLarge {
			return nil, fmt.Errorf("%w: peer %x header", ErrAttributeTooLarge, p.PublicKey)
		}

		// If the header doesn't fit in the current fragment, close it and
		// start a fresh one for this peer.
		if fits, err := fragmentFits(cur, peerIndex, entry, budget); err != nil {
			return nil, err
		} else if !fits {
			if err := closeAndStart(); err != nil {
				return nil, err
			}
			peerIndex = 0
		}

		var ipAttrs []netlink.Attribute
		flush := func() error {
			if len(ipAttrs) > 0 {
				b, err := marshalAttrs(ipAttrs)
				if err != nil {
					return err
				}

				entry = append(entry, netlink.Attribute{
					Type: wgh.PeerAAllowedips | netlink.Nested,
					Data: b,
				})
			}

			b, err := marshalAttrs(entry)
			if err != nil {
				return err
			}

			cur.peers = append(cur.peers, netlink.Attribute{
				Type: peerIndex | netlink.Nested,
				Data: b,
			})

			return nil
		}

		for _, ipn := range p.AllowedIPs {
			ipAttr, err := allowedIPAttr(ipn, uint16(len(ipAttrs)))
			if err != nil {
				return nil, err
			}

			if tooLarge, err := allowedIPTooLargeAlone(ifnameAttr, p.PublicKey, ipAttr, budget); err != nil {
				return nil, err
			} else if tooLarge {
				return nil, fmt.Errorf("%w: allowed IP entry for peer %x", ErrAttributeTooLarge, p.PublicKey)
			}

			candidateIPs := append(append([]netlink.Attribute(nil), ipAttrs...), ipAttr)
			candidateIPsData, err := marshalAttrs(candidateIPs)
			if err != nil {
				return nil, err
			}

			candidateEntry := append(append([]netlink.Attribute(nil), entry...), netlink.Attribute{
				Type: wgh.PeerAAllowedips | netlink.Nested,
				Data: candidateIPsData,
			})

			fits, err := fragmentFits(cur, peerIndex, candidateEntry, budget)
			if err != nil {
				return nil, err
			}

			if fits {
				ipAttrs = candidateIPs
				continue
			}

			// Doesn't fit: close out what we have for this peer in the
			// current message, flush the message, and continue the peer
			// in a new message. The continuation repeats only the public
			// key and allowed IPs, with zero flags.
			if err := flush(); err != nil {
				return nil, err
			}

			if err := closeAndStart(); err != nil {
				return nil, err
			}
			peerIndex = uint16(len(cur.peers))

			entry = continuationPeerAttrs(p.PublicKey)
			ipAttrs = []netlink.Attribute{ipAttr}

			ipAttrsData, err := marshalAttrs(ipAttrs)
			if err != nil {
				return nil, err
			}

			soloEntry := append(append([]netlink.Attribute(nil), entry...), netlink.Attribute{
				Type: wgh.PeerAAllowedips | netlink.Nested,
				Data: ipAttrsData,
			})

			if tooLarge, err := entryTooLargeAlone(ifnameAttr, soloEntry, budget); err != nil {
				return nil, err
			} else if tooLarge {
				return nil, fmt.Errorf("%w: allowed IP entry for peer %x", ErrAttributeTooLarge, p.PublicKey)
			}
		}

		if err := flush(); err != nil {
			return nil, err
		}
	}

	attrs, err := cur.attrs()
	if err != nil {
		return nil, err
	}

	messages = append(messages, attrs)
	return messages, nil
}

// fragmentFits reports whether replacing (or adding, if peerIndex equals
// the current peer count) the peer entry at peerIndex with candidateEntry
// would keep the fragment's marshaled size within budget.
func fragmentFits(f setFragment, peerIndex uint16, candidateEntry []netlink.Attribute, budget int) (bool, error) {
	peers := append([]netlink.Attribute(nil), f.peers...)

	entryData, err := marshalAttrs(candidateEntry)
	if err != nil {
		return false, err
	}

	newPeer := netlink.Attribute{Type: peerIndex | netlink.Nested, Data: entryData}
	if int(peerIndex) < len(peers) {
		peers[peerIndex] = newPeer
	} else {
		peers = append(peers, newPeer)
	}

	trial := setFragment{top: f.top, peers: peers}
	size, err := trial.size()
	if err != nil {
		return false, err
	}

	return size <= budget, nil
}

// entryTooLargeAlone reports whether entry, as the sole peer in an
// otherwise-empty message carrying only the interface name, would still
// exceed budget.
func entryTooLargeAlone(ifnameAttr netlink.Attribute, entry []netlink.Attribute, budget int) (bool, error) {
	entryData, err := marshalAttrs(entry)
	if err != nil {
		return false, err
	}

	f := setFragment{
		top:   []netlink.Attribute{ifnameAttr},
		peers: []netlink.Attribute{{Type: 0 | netlink.Nested, Data: entryData}},
	}

	size, err := f.size()
	if err != nil {
		return false, err
	}

	return size > budget, nil
}

// allowedIPTooLargeAlone reports whether a single allowed IP entry, as the
// sole content of an otherwise-empty continuation peer, would exceed
// budget on its own.
func allowedIPTooLargeAlone(ifnameAttr netlink.Attribute, pub wgtypes.Key, ipAttr netlink.Attribute, budget int) (bool, error) {
	b, err := marshalAttrs([]netlink.Attribute{ipAttr})
	if err != nil {
		return false, err
	}

	entry := append(continuationPeerAttrs(pub), netlink.Attribute{
		Type: wgh.PeerAAllowedips | netlink.Nested,
		Data: b,
	})

	return entryTooLargeAlone(ifnameAttr, entry, budget)
}

// marshalAttrs wraps netlink.MarshalAttributes, turning the one error it can
// return (the encoded length overflowing the attribute header's u16 field)
// into ErrOverflow.
func marshalAttrs(attrs []netlink.Attribute) ([]byte, error) {
	b, err := netlink.MarshalAttributes(attrs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOverflow, err)
	}

	return b, nil
}

// continuationPeerAttrs builds the attribute list for a peer continuation
// entry: only the public key.
func continuationPeerAttrs(pub wgtypes.Key) []netlink.Attribute {
	return []netlink.Attribute{{
		Type: wgh.PeerAPublicKey,
		Data: append([]byte(nil), pub[:]...),
	}}
}

// deviceHeaderAttrs builds the device-level attributes that belong in the
// first message only.
func deviceHeaderAttrs(cfg wgtypes.Config) ([]netlink.Attribute, error) {
	var attrs []netlink.Attribute

	if cfg.PrivateKey != nil {
		attrs = append(attrs, netlink.Attribute{
			Type: wgh.DeviceAPrivateKey,
			Data: append([]byte(nil), cfg.PrivateKey[:]...),
		})
	}

	if cfg.ListenPort != nil {
		if *cfg.ListenPort < 0 || *cfg.ListenPort > 0xffff {
			return nil, fmt.Errorf("wgnl: invalid listen port: %d", *cfg.ListenPort)
		}
		attrs = append(attrs, netlink.Attribute{
			Type: wgh.DeviceAListenPort,
			Data: nlenc.Uint16Bytes(uint16(*cfg.ListenPort)),
		})
	}

	if cfg.FirewallMark != nil {
		attrs = append(attrs, netlink.Attribute{
			Type: wgh.DeviceAFwmark,
			Data: nlenc.Uint32Bytes(uint32(*cfg.FirewallMark)),
		})
	}

	// FLAGS is emitted on a SetDevice iff replace_peers is set, and only on
	// the first fragment.
	if cfg.ReplacePeers {
		attrs = append(attrs, netlink.Attribute{
			Type: wgh.DeviceAFlags,
			Data: nlenc.Uint32Bytes(wgh.DeviceFReplacePeers),
		})
	}

	return attrs, nil
}

// peerHeaderAttrs builds the fixed-size (non-allowed-IP) attributes of a
// peer. withFlags controls whether PeerConfig-derived flags are emitted;
// continuation fragments of a split peer never carry flags and are built
// via continuationPeerAttrs instead.
func peerHeaderAttrs(p wgtypes.PeerConfig, withFlags bool) ([]netlink.Attribute, error) {
	attrs := []netlink.Attribute{{
		Type: wgh.PeerAPublicKey,
		Data: append([]byte(nil), p.PublicKey[:]...),
	}}

	var flags uint32
	if p.Remove {
		flags |= wgh.PeerFRemoveMe
	}
	if p.UpdateOnly {
		flags |= wgh.PeerFUpdateOnly
	}
	if p.ReplaceAllowedIPs {
		flags |= wgh.PeerFReplaceAllowedips
	}

	if withFlags && flags != 0 {
		attrs = append(attrs, netlink.Attribute{
			Type: wgh.PeerAFlags,
			Data: nlenc.Uint32Bytes(flags),
		})
	}

	if p.PresharedKey != nil {
		attrs = append(attrs, netlink.Attribute{
			Type: wgh.PeerAPresharedKey,
			Data: append([]byte(nil), p.PresharedKey[:]...),
		})
	}

	if p.Endpoint != nil {
		sa, err := sockaddrBytes(p.Endpoint)
		if err != nil {
			return nil, err
		}

		attrs = append(attrs, netlink.Attribute{
			Type: wgh.PeerAEndpoint,
			Data: sa,
		})
	}

	if p.PersistentKeepaliveInterval != nil {
		secs := int(p.PersistentKeepaliveInterval.Seconds())
		if secs < 0 || secs > 0xffff {
			return nil, fmt.Errorf("wgnl: invalid persistent keepalive interval: %s", p.PersistentKeepaliveInterval)
		}

		attrs = append(attrs, netlink.Attribute{
			Type: wgh.PeerAPersistentKeepaliveInterval,
			Data: nlenc.Uint16Bytes(uint16(secs)),
		})
	}

	return attrs, nil
}

// allowedIPAttr builds a single indexed WGPEER_A_ALLOWEDIPS child attribute.
func allowedIPAttr(ipn net.IPNet, index uint16) (netlink.Attribute, error) {
	family, addr, err := familyAndAddr(ipn)
	if err != nil {
		return netlink.Attribute{}, err
	}

	ones, bits := ipn.Mask.Size()
	if bits == 0 {
		if family == unix.AF_INET {
			ones = 32
		} else {
			ones = 128
		}
	}

	b, err := netlink.MarshalAttributes([]netlink.Attribute{
		{
			Type: wgh.AllowedipAFamily,
			Data: nlenc.Uint16Bytes(family),
		},
		{
			Type: wgh.AllowedipAIpaddr,
			Data: addr,
		},
		{
			Type: wgh.AllowedipACidrMask,
			Data: nlenc.Uint8Bytes(uint8(ones)),
		},
	})
	if err != nil {
		return netlink.Attribute{}, err
	}

	return netlink.Attribute{Type: index | netlink.Nested, Data: b}, nil
}

func familyAndAddr(ipn net.IPNet) (uint16, []byte, error) {
	if ip4 := ipn.IP.To4(); ip4 != nil {
		return unix.AF_INET, ip4, nil
	}

	if ip6 := ipn.IP.To16(); ip6 != nil {
		return unix.AF_INET6, ip6, nil
	}

	return 0, nil, fmt.Errorf("wgnl: invalid allowed IP address: %v", ipn.IP)
}

// sockaddrBytes renders a *net.UDPAddr into raw sockaddr_in or sockaddr_in6
// bytes, the wire form of WGPEER_A_ENDPOINT.
func sockaddrBytes(addr *net.UDPAddr) ([]byte, error) {
	if ip4 := addr.IP.To4(); ip4 != nil {
		sa := unix.RawSockaddrInet4{
			Family: unix.AF_INET,
			Port:   sockaddrPort(addr.Port),
		}
		copy(sa.Addr[:], ip4)

		return rawSockaddr4Bytes(sa), nil
	}

	if ip6 := addr.IP.To16(); ip6 != nil {
		sa := unix.RawSockaddrInet6{
			Family: unix.AF_INET6,
			Port:   sockaddrPort(addr.Port),
		}
		copy(sa.Addr[:], ip6)
		if addr.Zone != "" {
			if ifi, err := net.InterfaceByName(addr.Zone); err == nil {
				sa.Scope_id = uint32(ifi.Index)
			}
		}

		return rawSockaddr6Bytes(sa), nil
	}

	return nil, fmt.Errorf("wgnl: invalid endpoint address: %v", addr.IP)
}
