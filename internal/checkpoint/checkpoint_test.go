package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreSetGet(t *testing.T) {
	s := NewStore()
	_, ok := s.Get("www.example.test")
	require.False(t, ok)

	s.Set(Entry{Domain: "www.example.test", State: InProgress})
	e, ok := s.Get("www.example.test")
	require.True(t, ok)
	require.Equal(t, InProgress, e.State)

	s.Set(Entry{Domain: "www.example.test", State: Finished})
	e, ok = s.Get("www.example.test")
	require.True(t, ok)
	require.Equal(t, Finished, e.State)
	require.Equal(t, 1, s.Len())
}

func TestEntryJSONRoundTrip(t *testing.T) {
	e := Entry{Domain: "api.example.test", State: Failed, Retry: 3}
	data, err := e.MarshalJSON()
	require.NoError(t, err)
	require.Contains(t, string(data), `"state":"Failed"`)

	var back Entry
	require.NoError(t, back.UnmarshalJSON(data))
	require.Equal(t, e, back)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".rusub-state.json")

	s := NewStore()
	s.Set(Entry{Domain: "a.test", State: Finished})
	s.Set(Entry{Domain: "b.test", State: Failed, Retry: 2})
	require.NoError(t, SaveFile(s, path))

	loaded := LoadFile(path)
	require.Equal(t, 2, loaded.Len())
	e, ok := loaded.Get("b.test")
	require.True(t, ok)
	require.Equal(t, Failed, e.State)
	require.Equal(t, uint(2), e.Retry)
}

func TestLoadMissingOrCorruptIsEmpty(t *testing.T) {
	missing := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Equal(t, 0, missing.Len())

	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	corrupt := LoadFile(path)
	require.Equal(t, 0, corrupt.Len())
}

func TestStateStringRoundTrip(t *testing.T) {
	for _, s := range []State{Pending, InProgress, Finished, Failed} {
		require.Equal(t, s, parseState(s.String()))
	}
}
