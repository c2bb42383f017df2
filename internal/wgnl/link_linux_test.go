//go:build linux
// +build linux

package wgnl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
	"github.com/mdlayher/netlink/nltest"
	"golang.org/x/sys/unix"
)

func marshalLinkMsg(attrs []netlink.Attribute) netlink.Message {
	hdr := ifInfomsg{Family: unix.AF_UNSPEC}
	return netlink.Message{
		Header: netlink.Header{Type: unix.RTM_NEWLINK},
		Data:   append(hdr.marshal(), nltest.MustMarshalAttributes(attrs)...),
	}
}

func TestParseRTNLWireGuardNames(t *testing.T) {
	tests := []struct {
		name  string
		msgs  []netlink.Message
		want  []string
		isErr bool
	}{
		{
			name: "short ifinfomsg",
			msgs: []netlink.Message{{Data: []byte{0xff}}},
			isErr: true,
		},
		{
			name: "empty",
		},
		{
			name: "mixed",
			msgs: []netlink.Message{
				marshalLinkMsg([]netlink.Attribute{
					{Type: unix.IFLA_IFNAME, Data: nlenc.Bytes("br0")},
					{
						Type: unix.IFLA_LINKINFO,
						Data: nltest.MustMarshalAttributes([]netlink.Attribute{{
							Type: unix.IFLA_INFO_KIND,
							Data: nlenc.Bytes("bridge"),
						}}),
					},
				}),
				marshalLinkMsg([]netlink.Attribute{
					{Type: unix.IFLA_IFNAME, Data: nlenc.Bytes("wg0")},
					{
						Type: unix.IFLA_LINKINFO,
						Data: nltest.MustMarshalAttributes([]netlink.Attribute{
							{Type: 255, Data: nlenc.Uint16Bytes(0xff)},
							{Type: unix.IFLA_INFO_KIND, Data: nlenc.Bytes(wgKind)},
						}),
					},
				}),
			},
			want: []string{"wg0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRTNLWireGuardNames(tt.msgs)
			if tt.isErr {
				if err == nil {
					t.Fatal("expected an error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRTNLWireGuardNames: %v", err)
			}

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("unexpected names (-want +got):\n%s", diff)
			}
		})
	}
}
