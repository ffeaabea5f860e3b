package storage

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorage_RoundTrip(t *testing.T) {
	s, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Store("mentions-2025-06-01.json", []byte(`{"ok":true}`)))

	data, err := s.Retrieve("mentions-2025-06-01.json")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))
}

func TestFileStorage_RetrieveMissing(t *testing.T) {
	s, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Retrieve("nope.json")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFileStorage_ListByPrefix(t *testing.T) {
	s, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Store("mentions-b.json", []byte("b")))
	require.NoError(t, s.Store("mentions-a.json", []byte("a")))
	require.NoError(t, s.Store("reports.json", []byte("r")))

	names, err := s.List("mentions-")
	require.NoError(t, err)
	assert.Equal(t, []string{"mentions-a.json", "mentions-b.json"}, names)
}

func TestFileStorage_DeleteIdempotent(t *testing.T) {
	s, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Store("x.json", []byte("x")))
	assert.NoError(t, s.Delete("x.json"))
	assert.NoError(t, s.Delete("x.json"))
}

func TestFileStorage_OverwriteReplaces(t *testing.T) {
	s, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Store("x.json", []byte("one")))
	require.NoError(t, s.Store("x.json", []byte("two")))

	data, err := s.Retrieve("x.json")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}
