// Package wgctrl provides a platform-independent interface for controlling
// WireGuard interfaces.
//
// On Linux, this package speaks directly to the kernel's Netlink interface
// (see the internal/wgnl package) to create, delete, and configure
// WireGuard devices, and to fetch their current configuration.
package wgctrl

import (
	"github.com/returntoreality/wireguard-uapi-go/wgtypes"
)

// A Client provides access to WireGuard device configuration on the
// current platform. The zero value is not usable; use New to construct a
// Client.
type Client struct {
	cl osClient
}

// osClient is the interface each platform-specific client implementation
// must satisfy. On Linux, wgnl.Client implements this interface directly.
type osClient interface {
	Close() error
	Devices() ([]*wgtypes.Device, error)
	DeviceByIndex(index int) (*wgtypes.Device, error)
	DeviceByName(name string) (*wgtypes.Device, error)
	ConfigureDevice(name string, cfg wgtypes.Config) error
	AddDevice(name string) error
	DeleteDevice(name string) error
}

// New creates a new Client. Operations performed on this Client are
// transparently mapped to the current platform's WireGuard control
// mechanism.
func New() (*Client, error) {
	cl, err := newClient()
	if err != nil {
		return nil, err
	}

	return &Client{cl: cl}, nil
}

// Close releases resources used by a Client.
func (c *Client) Close() error {
	return c.cl.Close()
}

// Devices retrieves all WireGuard devices on this system.
func (c *Client) Devices() ([]*wgtypes.Device, error) {
	return c.cl.Devices()
}

// Device retrieves a WireGuard device by its interface name.
func (c *Client) Device(name string) (*wgtypes.Device, error) {
	return c.cl.DeviceByName(name)
}

// ConfigureDevice configures a WireGuard device by its interface name.
//
// If the device specified by name does not exist or is not a WireGuard
// device, an error is returned which can be checked using os.IsNotExist.
func (c *Client) ConfigureDevice(name string, cfg wgtypes.Config) error {
	return c.cl.ConfigureDevice(name, cfg)
}

// AddDevice creates a new WireGuard interface named name.
func (c *Client) AddDevice(name string) error {
	return c.cl.AddDevice(name)
}

// DeleteDevice removes the WireGuard interface named name.
func (c *Client) DeleteDevice(name string) error {
	return c.cl.DeleteDevice(name)
}
