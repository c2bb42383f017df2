//go:build linux
// +build linux

package wgnl

import (
	"errors"
	"fmt"
	"os"

	"github.com/mdlayher/genetlink"
	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
	"github.com/returntoreality/wireguard-uapi-go/internal/wgnl/internal/wgh"
	"github.com/returntoreality/wireguard-uapi-go/wgtypes"
	"golang.org/x/sys/unix"
)

// Client is a Linux WireGuard netlink client. It owns a generic-netlink
// socket session to the WireGuard family; link management and device
// enumeration open a separate, short-lived rtnetlink connection per call.
type Client struct {
	c      *genetlink.Conn
	family genetlink.Family

	budget int

	// dialRTNL is overridden in tests.
	dialRTNL func() (*rtnlConn, error)
}

// New opens a connection to the WireGuard generic-netlink family, resolving
// its family ID via CTRL_CMD_GETFAMILY.
func New() (*Client, error) {
	c, err := genetlink.Dial(nil)
	if err != nil {
		return nil, fmt.Errorf("wgnl: failed to dial generic netlink: %w", err)
	}

	return initClient(c)
}

func initClient(c *genetlink.Conn) (*Client, error) {
	fam, err := resolveFamily(c, wgh.GenlName)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("wgnl: failed to resolve wireguard family: %w", err)
	}

	return &Client{
		c: c,
		family: genetlink.Family{
			ID:      fam.ID,
			Version: uint8(fam.Version),
			Name:    fam.Name,
		},
		dialRTNL: dialRTNL,
	}, nil
}

// Close releases the underlying generic-netlink socket.
func (c *Client) Close() error {
	return c.c.Close()
}

// SetMessageBudget overrides the byte budget used to fragment SetDevice
// requests; a value <= 0 resets it to defaultMessageBudget.
func (c *Client) SetMessageBudget(budget int) {
	c.budget = budget
}

// Devices enumerates every WireGuard interface on the system by listing
// rtnetlink links and filtering to those with IFLA_INFO_KIND ==
// "wireguard", then fetching each one's configuration.
func (c *Client) Devices() ([]*wgtypes.Device, error) {
	names, err := c.interfaceNames()
	if err != nil {
		return nil, err
	}

	ds := make([]*wgtypes.Device, 0, len(names))
	for _, name := range names {
		d, err := c.DeviceByName(name)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}

			return nil, err
		}

		ds = append(ds, d)
	}

	return ds, nil
}

func (c *Client) interfaceNames() ([]string, error) {
	rt, err := c.dialRTNL()
	if err != nil {
		return nil, err
	}
	defer rt.Close()

	return rt.listWireGuardNames()
}

// DeviceByIndex fetches a Device by interface index.
func (c *Client) DeviceByIndex(index int) (*wgtypes.Device, error) {
	return c.getDevice(index, "")
}

// DeviceByName fetches a Device by interface name.
func (c *Client) DeviceByName(name string) (*wgtypes.Device, error) {
	return c.getDevice(0, name)
}

// AddDevice creates a new WireGuard interface named name via rtnetlink.
func (c *Client) AddDevice(name string) error {
	rt, err := c.dialRTNL()
	if err != nil {
		return err
	}
	defer rt.Close()

	return rt.addLink(name)
}

// DeleteDevice removes the WireGuard interface named name via rtnetlink.
func (c *Client) DeleteDevice(name string) error {
	rt, err := c.dialRTNL()
	if err != nil {
		return err
	}
	defer rt.Close()

	return rt.deleteLink(name)
}

// ConfigureDevice applies cfg to the interface named name, fragmenting it
// into as many SetDevice netlink messages as the message budget requires.
func (c *Client) ConfigureDevice(name string, cfg wgtypes.Config) error {
	if name == "" {
		return fmt.Errorf("wgnl: %w", errInvalidInterface)
	}

	msgs, err := buildSetMessages(name, cfg, c.budget)
	if err != nil {
		return err
	}

	flags := netlink.Request | netlink.Acknowledge
	for _, attrs := range msgs {
		if _, err := c.execute(wgh.CmdSetDevice, flags, attrs); err != nil {
			return err
		}
	}

	return nil
}

func (c *Client) getDevice(index int, name string) (*wgtypes.Device, error) {
	var attr netlink.Attribute
	switch {
	case index != 0:
		attr = netlink.Attribute{
			Type: wgh.DeviceAIfindex,
			Data: nlenc.Uint32Bytes(uint32(index)),
		}
	case name != "":
		attr = netlink.Attribute{
			Type: wgh.DeviceAIfname,
			Data: nlenc.Bytes(name),
		}
	default:
		return nil, os.ErrNotExist
	}

	flags := netlink.Request | netlink.Dump
	msgs, err := c.execute(wgh.CmdGetDevice, flags, []netlink.Attribute{attr})
	if err != nil {
		return nil, err
	}

	return parseDevice(msgs)
}

// execute sends a single WireGuard generic-netlink request and returns its
// response messages, converting the kernel's "no such device"/"not
// supported" errno values into an os.IsNotExist-compatible error.
func (c *Client) execute(command uint8, flags netlink.HeaderFlags, attrs []netlink.Attribute) ([]genetlink.Message, error) {
	b, err := netlink.MarshalAttributes(attrs)
	if err != nil {
		return nil, err
	}

	msg := genetlink.Message{
		Header: genetlink.Header{
			Command: command,
			Version: wgh.GenlVersion,
		},
		Data: b,
	}

	msgs, err := c.c.Execute(msg, c.family.ID, flags)
	if err != nil {
		switch {
		case errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENOTSUP):
			return nil, os.ErrNotExist
		default:
			return nil, err
		}
	}

	return msgs, nil
}
