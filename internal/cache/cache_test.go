package cache

import (
	"os"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyStableAcrossParamOrder(t *testing.T) {
	a := Key(Request{Endpoint: "/repos/o/r", Params: map[string]string{"b": "2", "a": "1"}})
	b := Key(Request{Endpoint: "/repos/o/r", Params: map[string]string{"a": "1", "b": "2"}})
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestKeyDiffersOnMethodOrBody(t *testing.T) {
	base := Key(Request{Endpoint: "/repos/o/r"})
	withMethod := Key(Request{Endpoint: "/repos/o/r", Method: "POST"})
	withBody := Key(Request{Endpoint: "/repos/o/r", Body: "x"})
	assert.NotEqual(t, base, withMethod)
	assert.NotEqual(t, base, withBody)
	assert.NotEqual(t, withMethod, withBody)
}

func TestGraphKeyIncludesQueryText(t *testing.T) {
	a := GraphKey("query { viewer { login } }", nil)
	b := GraphKey("query { viewer { id } }", nil)
	assert.NotEqual(t, a, b)
}

func TestBareRoundTrip(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	key := Key(Request{Endpoint: "/blob/abc"})
	_, ok := c.GetBare(key, false)
	assert.False(t, ok)

	body := json.RawMessage(`{"sha":"abc"}`)
	require.NoError(t, c.PutBare(key, body))

	got, ok := c.GetBare(key, false)
	require.True(t, ok)
	assert.JSONEq(t, string(body), string(got))
}

func TestBareNeverExpires(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	key := Key(Request{Endpoint: "/blob/abc"})
	require.NoError(t, c.PutBare(key, json.RawMessage(`{}`)))

	time.Sleep(10 * time.Millisecond)
	_, ok := c.GetBare(key, false)
	assert.True(t, ok)
}

func TestSkipCacheMissesReadButStillWrites(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	key := Key(Request{Endpoint: "/repos/o/r"})
	require.NoError(t, c.PutWrapped(key, WrappedEntry{Status: 200, Body: json.RawMessage(`{}`)}))

	_, ok := c.GetWrapped(key, 0, true)
	assert.False(t, ok, "skip_cache must force a miss on read")

	_, ok = c.GetWrapped(key, 0, false)
	assert.True(t, ok, "a subsequent call without skip_cache must see the cached entry")
}

func TestWrappedExpiresAfterTTL(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	key := Key(Request{Endpoint: "/repos/o/r"})
	entry := WrappedEntry{Status: 200, Body: json.RawMessage(`{}`), CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, c.PutWrapped(key, entry))

	_, ok := c.GetWrapped(key, time.Minute, false)
	assert.False(t, ok)

	_, ok = c.GetWrapped(key, 24*time.Hour, false)
	assert.True(t, ok)
}

func TestWrappedAndBareSchemasDoNotCrossRead(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	key := Key(Request{Endpoint: "/x"})
	require.NoError(t, c.PutBare(key, json.RawMessage(`{"a":1}`)))

	_, ok := c.GetWrapped(key, 0, false)
	assert.False(t, ok, "a key written under the bare schema must not satisfy a wrapped read")
}

func TestCorruptEntryDegradesToMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)

	key := Key(Request{Endpoint: "/y"})
	require.NoError(t, c.PutBare(key, json.RawMessage(`{}`)))

	// Corrupt the file directly to simulate a torn write or bad race.
	require.NoError(t, os.WriteFile(c.entryPath(key), []byte("not json"), 0o644))

	_, ok := c.GetBare(key, false)
	assert.False(t, ok)
}
