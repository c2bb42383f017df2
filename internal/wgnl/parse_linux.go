//go:build linux
// +build linux

package wgnl

import (
	"fmt"
	"net"
	"time"
	"unsafe"

	"github.com/mdlayher/genetlink"
	"github.com/mdlayher/netlink"
	"github.com/returntoreality/wireguard-uapi-go/internal/wgnl/internal/wgh"
	"github.com/returntoreality/wireguard-uapi-go/wgtypes"
	"golang.org/x/sys/unix"
)

// parseDevice parses a Device from a slice of generic netlink messages,
// merging any peer list continuations produced by a dump response.
func parseDevice(msgs []genetlink.Message) (*wgtypes.Device, error) {
	var dev wgtypes.Device
	for i, m := range msgs {
		partial, err := parseDeviceLoop(m)
		if err != nil {
			return nil, err
		}

		if i == 0 {
			dev = *partial
			continue
		}

		extendDevice(&dev, partial)
	}

	return &dev, nil
}

// extendDevice merges the peers of a dump fragment into the accumulator:
// when the last peer already present shares its public key with the first
// peer of the fragment, their allowed IPs are concatenated instead of
// creating a new peer entry. Any further peers in the fragment are appended
// as-is. This is the merge rule for dump-fragment peer continuations.
func extendDevice(dev *wgtypes.Device, partial *wgtypes.Device) {
	if len(partial.Peers) == 0 {
		return
	}

	rest := partial.Peers
	if n := len(dev.Peers); n > 0 {
		last := &dev.Peers[n-1]
		if last.PublicKey == partial.Peers[0].PublicKey {
			last.AllowedIPs = append(last.AllowedIPs, partial.Peers[0].AllowedIPs...)
			rest = partial.Peers[1:]
		}
	}

	dev.Peers = append(dev.Peers, rest...)
}

// parseDeviceLoop parses a Device from a single generic netlink message.
func parseDeviceLoop(m genetlink.Message) (*wgtypes.Device, error) {
	ad, err := netlink.NewAttributeDecoder(m.Data)
	if err != nil {
		return nil, err
	}
	var d wgtypes.Device
	for ad.Next() {
		switch ad.Type() {
		case wgh.DeviceAIfindex:
			// Not exposed by the userspace configuration protocol; device
			// name is preferred for cross-platform consistency.
		case wgh.DeviceAIfname:
			d.Name = ad.String()
		case wgh.DeviceAPrivateKey:
			ad.Do(parseKey(&d.PrivateKey))
		case wgh.DeviceAPublicKey:
			ad.Do(parseKey(&d.PublicKey))
		case wgh.DeviceAListenPort:
			d.ListenPort = int(ad.Uint16())
		case wgh.DeviceAFwmark:
			d.FirewallMark = int(ad.Uint32())
		case wgh.DeviceAPeers:
			ad.Do(func(b []byte) error {
				peers, err := parsePeers(b)
				if err != nil {
					return err
				}

				d.Peers = peers
				return nil
			})
		}
	}

	if err := ad.Err(); err != nil {
		return nil, err
	}

	return &d, nil
}

// parsePeers parses a slice of Peers from a WGDEVICE_A_PEERS attribute
// payload, which is a netlink "array": each child attribute's type is an
// index and its payload is a nested peer attribute list.
func parsePeers(b []byte) ([]wgtypes.Peer, error) {
	attrs, err := netlink.UnmarshalAttributes(b)
	if err != nil {
		return nil, err
	}

	ps := make([]wgtypes.Peer, 0, len(attrs))
	for _, a := range attrs {
		ad, err := netlink.NewAttributeDecoder(a.Data)
		if err != nil {
			return nil, err
		}
		var p wgtypes.Peer
		for ad.Next() {
			switch ad.Type() {
			case wgh.PeerAPublicKey:
				ad.Do(parseKey(&p.PublicKey))
			case wgh.PeerAPresharedKey:
				ad.Do(parseKey(&p.PresharedKey))
			case wgh.PeerAEndpoint:
				p.Endpoint = &net.UDPAddr{}
				ad.Do(parseSockaddr(p.Endpoint))
			case wgh.PeerAPersistentKeepaliveInterval:
				p.PersistentKeepaliveInterval = time.Duration(ad.Uint16()) * time.Second
			case wgh.PeerALastHandshakeTime:
				ad.Do(parseTimespec(&p.LastHandshakeTime))
			case wgh.PeerARxBytes:
				p.ReceiveBytes = int64(ad.Uint64())
			case wgh.PeerATxBytes:
				p.TransmitBytes = int64(ad.Uint64())
			case wgh.PeerAProtocolVersion:
				p.ProtocolVersion = int(ad.Uint32())
			case wgh.PeerAAllowedips:
				ad.Do(func(b []byte) error {
					ipns, err := parseAllowedIPs(b)
					if err != nil {
						return err
					}

					p.AllowedIPs = ipns
					return nil
				})
			}
		}

		if err := ad.Err(); err != nil {
			return nil, err
		}

		ps = append(ps, p)
	}

	return ps, nil
}

// parseAllowedIPs parses a slice of net.IPNet from a WGPEER_A_ALLOWEDIPS
// attribute payload.
func parseAllowedIPs(b []byte) ([]net.IPNet, error) {
	attrs, err := netlink.UnmarshalAttributes(b)
	if err != nil {
		return nil, err
	}

	ipns := make([]net.IPNet, 0, len(attrs))
	for _, a := range attrs {
		ad, err := netlink.NewAttributeDecoder(a.Data)
		if err != nil {
			return nil, err
		}
		var (
			ipn    net.IPNet
			mask   int
			family int
		)

		for ad.Next() {
			switch ad.Type() {
			case wgh.AllowedipAIpaddr:
				ad.Do(parseAddr(&ipn.IP))
			case wgh.AllowedipACidrMask:
				mask = int(ad.Uint8())
			case wgh.AllowedipAFamily:
				family = int(ad.Uint16())
			}
		}

		if err := ad.Err(); err != nil {
			return nil, err
		}

		switch family {
		case unix.AF_INET:
			ipn.Mask = net.CIDRMask(mask, 32)
		case unix.AF_INET6:
			ipn.Mask = net.CIDRMask(mask, 128)
		}

		ipns = append(ipns, ipn)
	}

	return ipns, nil
}

// parseKey parses a wgtypes.Key from a byte slice.
func parseKey(key *wgtypes.Key) func(b []byte) error {
	return func(b []byte) error {
		k, err := wgtypes.NewKey(b)
		if err != nil {
			return err
		}

		*key = k
		return nil
	}
}

// parseAddr parses a net.IP from raw in_addr or in6_addr struct bytes.
func parseAddr(ip *net.IP) func(b []byte) error {
	return func(b []byte) error {
		switch len(b) {
		case net.IPv4len, net.IPv6len:
			*ip = make(net.IP, len(b))
			copy(*ip, b)
			return nil
		default:
			return fmt.Errorf("wgnl: unexpected IP address size: %d", len(b))
		}
	}
}

// parseSockaddr parses a *net.UDPAddr from raw sockaddr_in or sockaddr_in6
// bytes.
func parseSockaddr(endpoint *net.UDPAddr) func(b []byte) error {
	return func(b []byte) error {
		switch len(b) {
		case unix.SizeofSockaddrInet4:
			sa := *(*unix.RawSockaddrInet4)(unsafe.Pointer(&b[0]))

			*endpoint = net.UDPAddr{
				IP:   net.IP(sa.Addr[:]).To4(),
				Port: portFromSockaddr(sa.Port),
			}

			return nil
		case unix.SizeofSockaddrInet6:
			sa := *(*unix.RawSockaddrInet6)(unsafe.Pointer(&b[0]))

			*endpoint = net.UDPAddr{
				IP:   net.IP(sa.Addr[:]),
				Zone: zoneFromScope(sa.Scope_id),
				Port: portFromSockaddr(sa.Port),
			}

			return nil
		default:
			return fmt.Errorf("wgnl: unexpected sockaddr size: %d", len(b))
		}
	}
}

func zoneFromScope(scope uint32) string {
	if scope == 0 {
		return ""
	}

	if ifi, err := net.InterfaceByIndex(int(scope)); err == nil {
		return ifi.Name
	}

	return fmt.Sprintf("%d", scope)
}

const sizeofTimespec = int(unsafe.Sizeof(unix.Timespec{}))

// parseTimespec parses a time.Time from raw timespec bytes.
func parseTimespec(t *time.Time) func(b []byte) error {
	return func(b []byte) error {
		if len(b) != sizeofTimespec {
			return fmt.Errorf("wgnl: unexpected timespec size: %d", len(b))
		}

		ts := *(*unix.Timespec)(unsafe.Pointer(&b[0]))
		*t = time.Unix(ts.Sec, ts.Nsec)
		return nil
	}
}
