//go:build linux
// +build linux

package wgnl

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mdlayher/genetlink"
	"github.com/mdlayher/genetlink/genltest"
	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
	"github.com/returntoreality/wireguard-uapi-go/internal/wgnl/internal/wgh"
	"github.com/returntoreality/wireguard-uapi-go/wgtypes"
	"golang.org/x/sys/unix"
)

const familyID = 20

func testClient(t *testing.T, fn genltest.Func) *Client {
	t.Helper()

	family := genetlink.Family{
		ID:      familyID,
		Version: wgh.GenlVersion,
		Name:    wgh.GenlName,
	}

	conn := genltest.Dial(genltest.ServeFamily(family, fn))

	c, err := initClient(conn)
	if err != nil {
		t.Fatalf("failed to open client: %v", err)
	}

	c.dialRTNL = func() (*rtnlConn, error) {
		t.Fatal("unexpected rtnetlink dial")
		return nil, nil
	}

	return c
}

func TestClientDeviceByNameOK(t *testing.T) {
	c := testClient(t, func(_ genetlink.Message, _ netlink.Message) ([]genetlink.Message, error) {
		b, err := netlink.MarshalAttributes([]netlink.Attribute{
			{Type: wgh.DeviceAIfname, Data: nlenc.Bytes("wg0")},
			{Type: wgh.DeviceAListenPort, Data: nlenc.Uint16Bytes(51820)},
		})
		if err != nil {
			t.Fatalf("MarshalAttributes: %v", err)
		}

		return []genetlink.Message{{Data: b}}, nil
	})
	defer c.Close()

	d, err := c.DeviceByName("wg0")
	if err != nil {
		t.Fatalf("DeviceByName: %v", err)
	}

	want := &wgtypes.Device{Name: "wg0", ListenPort: 51820}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Fatalf("unexpected device (-want +got):\n%s", diff)
	}
}

func TestClientIsNotExist(t *testing.T) {
	byIndex := func(c *Client) error {
		_, err := c.DeviceByIndex(1)
		return err
	}

	byName := func(c *Client) error {
		_, err := c.DeviceByName("wg0")
		return err
	}

	configure := func(c *Client) error {
		return c.ConfigureDevice("wg0", wgtypes.Config{})
	}

	tests := []struct {
		name string
		fn   func(c *Client) error
		err  error
	}{
		{name: "index: zero", fn: func(c *Client) error { _, err := c.DeviceByIndex(0); return err }},
		{name: "name: empty", fn: func(c *Client) error { _, err := c.DeviceByName(""); return err }},
		{name: "index: ENODEV", fn: byIndex, err: unix.ENODEV},
		{name: "index: ENOTSUP", fn: byIndex, err: unix.ENOTSUP},
		{name: "name: ENODEV", fn: byName, err: unix.ENODEV},
		{name: "name: ENOTSUP", fn: byName, err: unix.ENOTSUP},
		{name: "configure: ENODEV", fn: configure, err: unix.ENODEV},
		{name: "configure: ENOTSUP", fn: configure, err: unix.ENOTSUP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, func(_ genetlink.Message, _ netlink.Message) ([]genetlink.Message, error) {
				return nil, tt.err
			})
			defer c.Close()

			if err := tt.fn(c); !os.IsNotExist(err) {
				t.Fatalf("expected is-not-exist, got: %v", err)
			}
		})
	}
}

func TestClientConfigureDeviceRequiresName(t *testing.T) {
	c := testClient(t, func(_ genetlink.Message, _ netlink.Message) ([]genetlink.Message, error) {
		t.Fatal("unexpected netlink execute")
		return nil, nil
	})
	defer c.Close()

	if err := c.ConfigureDevice("", wgtypes.Config{}); err == nil {
		t.Fatal("expected an error, got none")
	}
}
