//go:build unix

package main

import (
	"fmt"
	"os"
	"syscall"
)

var execProcess = syscall.Exec

// restart replaces the process image with a fresh copy of itself. It only
// returns on failure.
func restart() error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	return execProcess(executable, os.Args, os.Environ())
}
