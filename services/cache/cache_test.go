package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mc := NewMemoryCache()
	mc.nowFunc = func() time.Time { return now }

	_, err := mc.Get("missing")
	assert.True(t, IsMiss(err))

	require.NoError(t, mc.Set("blocked", []byte("300"), 5*time.Minute))
	value, err := mc.Get("blocked")
	require.NoError(t, err)
	assert.Equal(t, "300", string(value))

	// Expire
	now = now.Add(5 * time.Minute)
	_, err = mc.Get("blocked")
	assert.True(t, IsMiss(err))

	require.NoError(t, mc.Set("forever", []byte("1"), 0))
	now = now.Add(24 * time.Hour)
	_, err = mc.Get("forever")
	assert.NoError(t, err)

	assert.NoError(t, mc.Delete("forever"))
	assert.True(t, IsMiss(mc.Delete("forever")))
}
