//go:build linux
// +build linux

package wgnl

import (
	"errors"
	"net"
	"testing"

	"github.com/mdlayher/netlink"
	"github.com/returntoreality/wireguard-uapi-go/internal/wgnl/internal/wgh"
	"github.com/returntoreality/wireguard-uapi-go/internal/wgtest"
	"github.com/returntoreality/wireguard-uapi-go/wgtypes"
)

func TestBuildSetMessagesSingleMessage(t *testing.T) {
	key := wgtest.MustPublicKey()
	port := 51820

	cfg := wgtypes.Config{
		ListenPort:   &port,
		ReplacePeers: true,
		Peers: []wgtypes.PeerConfig{
			{
				PublicKey:         key,
				ReplaceAllowedIPs: true,
				AllowedIPs:        []net.IPNet{wgtest.MustCIDR("10.0.0.1/32")},
			},
		},
	}

	msgs, err := buildSetMessages("wg0", cfg, 0)
	if err != nil {
		t.Fatalf("buildSetMessages: %v", err)
	}

	if len(msgs) != 1 {
		t.Fatalf("expected a single message, got %d", len(msgs))
	}

	attrs := msgs[0]
	if !hasAttr(attrs, wgh.DeviceAIfname) {
		t.Fatal("missing interface name attribute")
	}
	if !hasAttr(attrs, wgh.DeviceAFlags) {
		t.Fatal("missing device flags attribute")
	}
	if !hasAttr(attrs, wgh.DeviceAPeers) {
		t.Fatal("missing peers attribute")
	}
}

// TestBuildSetMessagesSplitsLargePeer verifies that a single peer with many
// allowed IPs and a small budget fragments across multiple messages, with
// device-level attributes and REPLACE_PEERS present only in the first.
func TestBuildSetMessagesSplitsLargePeer(t *testing.T) {
	key := wgtest.MustPublicKey()

	var ipns []net.IPNet
	for i := 0; i < 2000; i++ {
		ipns = append(ipns, net.IPNet{
			IP:   net.IPv4(10, byte(i>>8), byte(i), 1),
			Mask: net.CIDRMask(32, 32),
		})
	}

	cfg := wgtypes.Config{
		ReplacePeers: true,
		Peers: []wgtypes.PeerConfig{
			{
				PublicKey:         key,
				ReplaceAllowedIPs: true,
				AllowedIPs:        ipns,
			},
		},
	}

	const budget = 4096
	msgs, err := buildSetMessages("wg0", cfg, budget)
	if err != nil {
		t.Fatalf("buildSetMessages: %v", err)
	}

	if len(msgs) < 2 {
		t.Fatalf("expected the peer to be split across multiple messages, got %d", len(msgs))
	}

	for i, attrs := range msgs {
		b, err := netlink.MarshalAttributes(attrs)
		if err != nil {
			t.Fatalf("message %d: failed to marshal: %v", i, err)
		}
		if len(b) > budget {
			t.Fatalf("message %d exceeds budget: %d > %d", i, len(b), budget)
		}

		if i == 0 {
			if !hasAttr(attrs, wgh.DeviceAFlags) {
				t.Fatal("first message missing device flags attribute")
			}
		} else {
			if hasAttr(attrs, wgh.DeviceAFlags) {
				t.Fatalf("message %d unexpectedly carries device flags", i)
			}
		}
	}
}

func TestBuildSetMessagesAttributeTooLarge(t *testing.T) {
	key := wgtest.MustPublicKey()

	cfg := wgtypes.Config{
		Peers: []wgtypes.PeerConfig{
			{
				PublicKey: key,
				Endpoint:  wgtest.MustUDPAddr("[abcd:23::33%2]:51820"),
			},
		},
	}

	_, err := buildSetMessages("wg0", cfg, 16)
	if !errors.Is(err, ErrAttributeTooLarge) {
		t.Fatalf("expected ErrAttributeTooLarge, got: %v", err)
	}
}

func hasAttr(attrs []netlink.Attribute, typ uint16) bool {
	for _, a := range attrs {
		if a.Type&^netlink.Nested == typ {
			return true
		}
	}

	return false
}
