//go:build unix

package main

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestartExecsCurrentBinary(t *testing.T) {
	original := execProcess
	defer func() { execProcess = original }()

	var (
		gotPath string
		gotArgs []string
	)
	execProcess = func(argv0 string, argv []string, envv []string) error {
		gotPath, gotArgs = argv0, argv
		return errors.New("exec format error")
	}

	err := restart()
	require.Error(t, err)
	assert.EqualError(t, err, "exec format error")

	executable, err := os.Executable()
	require.NoError(t, err)
	assert.Equal(t, executable, gotPath)
	assert.Equal(t, os.Args, gotArgs)
}
