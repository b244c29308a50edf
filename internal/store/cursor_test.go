package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghsweep/ghsweep/internal/config"
)

func TestCursorLoadMissingReturnsNotFound(t *testing.T) {
	c, err := OpenCursor(config.CursorConfig{Dir: filepath.Join(t.TempDir(), "cursor")})
	require.NoError(t, err)
	defer c.Close()

	_, found, err := c.Load("filename:foo")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCursorSaveAndLoadRoundTrip(t *testing.T) {
	c, err := OpenCursor(config.CursorConfig{Dir: filepath.Join(t.TempDir(), "cursor")})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Save("filename:foo", CursorPosition{Lo: 500, Width: 200}))

	pos, found, err := c.Load("filename:foo")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(500), pos.Lo)
	assert.Equal(t, int64(200), pos.Width)
}

func TestCursorKeyedPerQuery(t *testing.T) {
	c, err := OpenCursor(config.CursorConfig{Dir: filepath.Join(t.TempDir(), "cursor")})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Save("filename:foo", CursorPosition{Lo: 500, Width: 200}))

	_, found, err := c.Load("filename:bar")
	require.NoError(t, err)
	assert.False(t, found, "a different query must not see another query's cursor")
}
