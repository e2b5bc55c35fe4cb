package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instrupro-backend/internal/cache"
)

func TestClearKeys(t *testing.T) {
	files, err := cache.NewFileStore(t.TempDir())
	require.NoError(t, err)
	for _, k := range []string{cache.KeyDashboard, cache.KeyHistory, cache.KeyPLCRequest} {
		require.NoError(t, files.SetItem(k, `{"data":null,"timestamp":"2025-01-01T00:00:00Z"}`))
	}

	removed, err := clearKeys(files, []string{cache.KeyHistory})
	require.NoError(t, err)
	assert.Equal(t, []string{cache.KeyHistory}, removed)

	var out bytes.Buffer
	require.NoError(t, listKeys(&out, files))
	assert.NotContains(t, out.String(), cache.KeyHistory+"\n")
	assert.Contains(t, out.String(), cache.KeyDashboard)

	removed, err = clearKeys(files, nil)
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	keys, err := files.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}
