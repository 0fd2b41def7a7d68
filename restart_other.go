//go:build !unix

package main

import "errors"

var errRestartUnsupported = errors.New("restart is not supported on this platform")

// restart is unavailable without exec; the caller exits instead
func restart() error {
	return errRestartUnsupported
}
