//go:build linux
// +build linux

package wgnl

import (
	"encoding/binary"
	"unsafe"

	"golang.org/x/sys/unix"
)

// align4 rounds n up to the next 4-byte boundary, matching the alignment
// the kernel's netlink attribute framing requires.
func align4(n int) int {
	return (n + 3) &^ 3
}

// portFromSockaddr converts a sockaddr_in/in6 Port field, which the kernel
// always stores in network byte order regardless of host endianness, into a
// host-order port number.
func portFromSockaddr(raw uint16) int {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, raw)
	return int(binary.BigEndian.Uint16(b))
}

// sockaddrPort is the inverse of portFromSockaddr: it converts a host-order
// port number into the raw value a sockaddr_in/in6 Port field expects.
func sockaddrPort(port int) uint16 {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(port))
	return binary.LittleEndian.Uint16(b)
}

// rawSockaddr4Bytes renders sa as its raw sockaddr_in wire bytes.
func rawSockaddr4Bytes(sa unix.RawSockaddrInet4) []byte {
	b := (*(*[unix.SizeofSockaddrInet4]byte)(unsafe.Pointer(&sa)))[:]
	return append([]byte(nil), b...)
}

// rawSockaddr6Bytes renders sa as its raw sockaddr_in6 wire bytes.
func rawSockaddr6Bytes(sa unix.RawSockaddrInet6) []byte {
	b := (*(*[unix.SizeofSockaddrInet6]byte)(unsafe.Pointer(&sa)))[:]
	return append([]byte(nil), b...)
}
