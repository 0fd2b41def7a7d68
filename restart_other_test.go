//go:build !unix

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRestartUnsupported(t *testing.T) {
	assert.ErrorIs(t, restart(), errRestartUnsupported)
}
