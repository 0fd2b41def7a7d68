package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealmungchi/offerwatcher/services/store"
)

func TestRunCommands(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	var out bytes.Buffer

	require.NoError(t, run(ctx, s, "create", []string{"-url", "https://www.otomoto.pl/osobowe/audi", "-target", "redis:audi"}, &out))
	assert.Contains(t, out.String(), "created subscription 1")

	out.Reset()
	require.NoError(t, run(ctx, s, "list", nil, &out))
	assert.Contains(t, out.String(), "redis:audi")
	assert.Contains(t, out.String(), "https://www.otomoto.pl/osobowe/audi")

	out.Reset()
	require.NoError(t, run(ctx, s, "offers", []string{"-id", "1"}, &out))
	assert.Contains(t, out.String(), "POSTED AT")

	out.Reset()
	require.NoError(t, run(ctx, s, "delete", []string{"-id", "1"}, &out))
	assert.Contains(t, out.String(), "deleted subscription 1")

	err := run(ctx, s, "delete", []string{"-id", "1"}, &out)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	var out bytes.Buffer

	assert.Error(t, run(ctx, s, "create", nil, &out))
	assert.Error(t, run(ctx, s, "create", []string{"-url", "https://www.otomoto.pl", "-target", "nowhere"}, &out))
	assert.Error(t, run(ctx, s, "frobnicate", nil, &out))

	subs, _ := s.List(ctx)
	assert.Empty(t, subs)
}

func TestRunSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscriptions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("subscriptions:\n  - url: https://www.otomoto.pl/osobowe\n    target: \"log:\"\n"), 0o644))

	ctx := context.Background()
	s := store.NewMemoryStore()
	var out bytes.Buffer

	require.NoError(t, run(ctx, s, "seed", []string{"-file", path}, &out))
	assert.Contains(t, out.String(), "created 1 of 1 subscriptions")

	out.Reset()
	require.NoError(t, run(ctx, s, "seed", []string{"-file", path}, &out))
	assert.Contains(t, out.String(), "created 0 of 1 subscriptions")
}
