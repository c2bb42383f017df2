//go:build linux
// +build linux

package wgnl

import (
	"errors"
	"fmt"

	"github.com/mdlayher/genetlink"
	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
)

// Generic-netlink control family: every other family, including WireGuard's,
// is resolved by asking this one for its numeric id.
const (
	ctrlFamilyID  = 0x10
	ctrlCmdGetfam = 3

	ctrlAttrFamilyID    = 1
	ctrlAttrFamilyName  = 2
	ctrlAttrVersion     = 3
	ctrlAttrHdrsize     = 4
	ctrlAttrMaxattr     = 5
	ctrlAttrOps         = 6
	ctrlAttrMcastGroups = 7
)

// ErrFamilyNotFound is returned when a CTRL_CMD_GETFAMILY query for a given
// family name yields a response with no CTRL_ATTR_FAMILY_ID attribute.
var ErrFamilyNotFound = errors.New("wgnl: generic-netlink family not found")

// unknownAttr is a control attribute whose type this package does not
// interpret; its raw bytes are kept so callers reconstructing a message are
// not forced to drop data they don't understand.
type unknownAttr struct {
	Type uint16
	Data []byte
}

// ctrlFamily is the deserialized result of a CTRL_CMD_GETFAMILY query: the
// attributes the control family defines, each decoded, plus any remaining
// ones preserved verbatim for forward compatibility.
type ctrlFamily struct {
	ID              uint16
	Name            string
	Version         uint32
	HeaderSize      uint32
	MaxAttr         uint32
	Operations      []byte
	MulticastGroups []byte
	Unknown         []unknownAttr
}

// resolveFamily issues CTRL_CMD_GETFAMILY for name and decodes the reply,
// retaining any control attribute type it doesn't recognize in Unknown
// instead of discarding it.
func resolveFamily(c *genetlink.Conn, name string) (*ctrlFamily, error) {
	b, err := marshalAttrs([]netlink.Attribute{{
		Type: ctrlAttrFamilyName,
		Data: nlenc.Bytes(name),
	}})
	if err != nil {
		return nil, err
	}

	msg := genetlink.Message{
		Header: genetlink.Header{
			Command: ctrlCmdGetfam,
		},
		Data: b,
	}

	msgs, err := c.Execute(msg, ctrlFamilyID, netlink.Request)
	if err != nil {
		return nil, fmt.Errorf("wgnl: failed to resolve family %q: %w", name, err)
	}

	if len(msgs) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrFamilyNotFound, name)
	}

	fam, err := parseCtrlFamily(msgs[0].Data)
	if err != nil {
		return nil, err
	}

	if fam.ID == 0 {
		return nil, fmt.Errorf("%w: %q", ErrFamilyNotFound, name)
	}

	return fam, nil
}

// parseCtrlFamily decodes a CTRL_CMD_GETFAMILY (or CTRL_CMD_NEWFAMILY)
// response payload.
func parseCtrlFamily(b []byte) (*ctrlFamily, error) {
	ad, err := netlink.NewAttributeDecoder(b)
	if err != nil {
		return nil, err
	}

	var fam ctrlFamily
	for ad.Next() {
		switch ad.Type() {
		case ctrlAttrFamilyID:
			fam.ID = ad.Uint16()
		case ctrlAttrFamilyName:
			fam.Name = ad.String()
		case ctrlAttrVersion:
			fam.Version = ad.Uint32()
		case ctrlAttrHdrsize:
			fam.HeaderSize = ad.Uint32()
		case ctrlAttrMaxattr:
			fam.MaxAttr = ad.Uint32()
		case ctrlAttrOps:
			fam.Operations = append([]byte(nil), ad.Bytes()...)
		case ctrlAttrMcastGroups:
			fam.MulticastGroups = append([]byte(nil), ad.Bytes()...)
		default:
			fam.Unknown = append(fam.Unknown, unknownAttr{
				Type: ad.Type(),
				Data: append([]byte(nil), ad.Bytes()...),
			})
		}
	}

	if err := ad.Err(); err != nil {
		return nil, err
	}

	return &fam, nil
}
