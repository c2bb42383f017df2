// Package xplatform implements the platform-independent, textual
// configuration protocol used by user-space WireGuard implementations, as
// described at https://www.wireguard.com/xplatform/.
//
// It renders a wgtypes.Config as a sequence of newline-terminated
// "key=value" lines. Wiring the rendered text to a listening UNIX socket
// is left to the caller; this package only implements the codec.
package xplatform

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/returntoreality/wireguard-uapi-go/wgtypes"
)

// Render renders cfg as the sequence of "key=value" lines described by the
// user-space configuration protocol. Keys whose corresponding option is
// absent are omitted entirely; the request is not newline-terminated with a
// trailing blank line here. Callers transmitting it over the user-space
// socket append that terminator themselves.
func Render(cfg wgtypes.Config) string {
	var b strings.Builder

	if cfg.PrivateKey != nil {
		writeHexLine(&b, "private_key", cfg.PrivateKey[:])
	}

	if cfg.ListenPort != nil {
		writeLine(&b, "listen_port", strconv.Itoa(*cfg.ListenPort))
	}

	if cfg.FirewallMark != nil {
		writeLine(&b, "fwmark", strconv.Itoa(*cfg.FirewallMark))
	}

	if cfg.ReplacePeers {
		writeLine(&b, "replace_peers", "true")
	}

	for _, p := range cfg.Peers {
		renderPeer(&b, p)
	}

	return b.String()
}

func renderPeer(b *strings.Builder, p wgtypes.PeerConfig) {
	writeHexLine(b, "public_key", p.PublicKey[:])

	if p.Remove {
		writeLine(b, "remove", "true")
	}

	if p.UpdateOnly {
		writeLine(b, "update_only", "true")
	}

	if p.PresharedKey != nil {
		writeHexLine(b, "preshared_key", p.PresharedKey[:])
	}

	if p.Endpoint != nil {
		writeLine(b, "endpoint", p.Endpoint.String())
	}

	if p.PersistentKeepaliveInterval != nil {
		secs := int(p.PersistentKeepaliveInterval.Seconds())
		writeLine(b, "persistent_keepalive_interval", strconv.Itoa(secs))
	}

	if p.ReplaceAllowedIPs {
		writeLine(b, "replace_allowed_ips", "true")
	}

	for _, ipn := range p.AllowedIPs {
		ones, _ := ipn.Mask.Size()
		writeLine(b, "allowed_ip", fmt.Sprintf("%s/%d", ipn.IP.String(), ones))
	}
}

func writeHexLine(b *strings.Builder, key string, v []byte) {
	writeLine(b, key, hex.EncodeToString(v))
}

func writeLine(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(value)
	b.WriteByte('\n')
}
