//go:build linux
// +build linux

package wgnl

import "errors"

// errInvalidInterface is returned when an operation is attempted without a
// usable interface selector.
var errInvalidInterface = errors.New("no interface specified")
