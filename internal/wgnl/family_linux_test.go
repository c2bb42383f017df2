//go:build linux
// +build linux

package wgnl

import (
	"testing"

	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
)

// TestResolveFamilyRequestWire verifies the exact bytes of a
// CTRL_CMD_GETFAMILY request for CTRL_ATTR_FAMILY_NAME="acpi_event"
// against the wire form published for the control protocol: a 4-byte
// genetlink header (command, version, 2 reserved bytes) followed by the
// marshaled attribute list.
func TestResolveFamilyRequestWire(t *testing.T) {
	b, err := marshalAttrs([]netlink.Attribute{{
		Type: ctrlAttrFamilyName,
		Data: nlenc.Bytes("acpi_event"),
	}})
	if err != nil {
		t.Fatalf("marshalAttrs: %v", err)
	}

	got := append([]byte{byte(ctrlCmdGetfam), 0x00, 0x00, 0x00}, b...)

	want := []byte{
		0x03, 0x00, 0x00, 0x00,
		0x0f, 0x00, 0x02, 0x00,
		'a', 'c', 'p', 'i', '_', 'e', 'v', 'e', 'n', 't', 0x00, 0x00,
	}

	if len(got) != len(want) {
		t.Fatalf("unexpected length: got %d, want %d (got=% x)", len(got), len(want), got)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %#x, want %#x (got=% x)", i, got[i], want[i], got)
		}
	}
}

// TestParseCtrlFamilyID verifies that a canonical CTRL_CMD_GETFAMILY reply
// carrying CTRL_ATTR_FAMILY_ID=0x18 decodes to family id 24.
func TestParseCtrlFamilyID(t *testing.T) {
	b, err := netlink.MarshalAttributes([]netlink.Attribute{
		{Type: ctrlAttrFamilyID, Data: nlenc.Uint16Bytes(0x18)},
		{Type: ctrlAttrFamilyName, Data: nlenc.Bytes("acpi_event")},
	})
	if err != nil {
		t.Fatalf("MarshalAttributes: %v", err)
	}

	fam, err := parseCtrlFamily(b)
	if err != nil {
		t.Fatalf("parseCtrlFamily: %v", err)
	}

	if fam.ID != 24 {
		t.Fatalf("expected family id 24, got %d", fam.ID)
	}
	if fam.Name != "acpi_event" {
		t.Fatalf("expected family name acpi_event, got %q", fam.Name)
	}
}

// TestParseCtrlFamilyPreservesUnknown verifies that a control attribute
// with an unrecognized type (9999) round-trips through the Unknown list
// instead of being dropped.
func TestParseCtrlFamilyPreservesUnknown(t *testing.T) {
	const unknownType = 9999
	payload := []byte{0xde, 0xad, 0xbe, 0xef}

	b, err := netlink.MarshalAttributes([]netlink.Attribute{
		{Type: ctrlAttrFamilyID, Data: nlenc.Uint16Bytes(24)},
		{Type: unknownType, Data: payload},
	})
	if err != nil {
		t.Fatalf("MarshalAttributes: %v", err)
	}

	fam, err := parseCtrlFamily(b)
	if err != nil {
		t.Fatalf("parseCtrlFamily: %v", err)
	}

	if len(fam.Unknown) != 1 {
		t.Fatalf("expected exactly one unknown attribute, got %d", len(fam.Unknown))
	}

	got := fam.Unknown[0]
	if got.Type != unknownType {
		t.Fatalf("unexpected unknown attribute type: got %d, want %d", got.Type, unknownType)
	}
	if string(got.Data) != string(payload) {
		t.Fatalf("unexpected unknown attribute payload: got % x, want % x", got.Data, payload)
	}
}
