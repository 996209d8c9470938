package raft

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPersistentLogOpenClose(t *testing.T) {
	dir := t.TempDir()
	log := NewPersistentLog(dir)

	require.False(t, log.IsOpen())
	require.NoError(t, log.Open())
	require.True(t, log.IsOpen())
	require.Equal(t, 0, log.Size())

	require.NoError(t, log.Close())
	require.False(t, log.IsOpen())
}

func TestPersistentLogAppendAndReload(t *testing.T) {
	dir := t.TempDir()
	log := NewPersistentLog(dir)
	require.NoError(t, log.Open())

	entry1 := NewLogEntry(1, 1, []byte("entry1"))
	entry2 := NewLogEntry(2, 1, []byte("entry2"))

	_, err := log.AppendEntries(entry1, entry2)
	require.NoError(t, err)
	require.Equal(t, 2, log.Size())

	require.NoError(t, log.Close())
	require.NoError(t, log.Open())

	require.Equal(t, 2, log.Size())
	reloaded, err := log.GetEntry(1)
	require.NoError(t, err)
	validateLogEntry(t, reloaded, 1, 1, []byte("entry1"))

	reloaded, err = log.GetEntry(2)
	require.NoError(t, err)
	validateLogEntry(t, reloaded, 2, 1, []byte("entry2"))
}

func TestPersistentLogConflictTruncates(t *testing.T) {
	dir := t.TempDir()
	log := NewPersistentLog(dir)
	require.NoError(t, log.Open())

	_, err := log.AppendEntries(
		NewLogEntry(1, 1, []byte("entry1")),
		NewLogEntry(2, 1, []byte("entry2")),
		NewLogEntry(3, 1, []byte("entry3")),
	)
	require.NoError(t, err)

	_, err = log.AppendEntries(
		NewLogEntry(2, 2, []byte("entry2-b")),
		NewLogEntry(3, 2, []byte("entry3-b")),
	)
	require.NoError(t, err)
	require.Equal(t, 3, log.Size())

	entry, err := log.GetEntry(2)
	require.NoError(t, err)
	validateLogEntry(t, entry, 2, 2, []byte("entry2-b"))

	require.NoError(t, log.Close())
	require.NoError(t, log.Open())

	entry, err = log.GetEntry(2)
	require.NoError(t, err)
	validateLogEntry(t, entry, 2, 2, []byte("entry2-b"))
}

func TestPersistentLogTruncate(t *testing.T) {
	dir := t.TempDir()
	log := NewPersistentLog(dir)
	require.NoError(t, log.Open())

	_, err := log.AppendEntries(
		NewLogEntry(1, 1, []byte("entry1")),
		NewLogEntry(2, 1, []byte("entry2")),
	)
	require.NoError(t, err)

	require.NoError(t, log.Truncate(2))
	require.Equal(t, 1, log.Size())
	require.False(t, log.Contains(2))
}

func TestPersistentLogCompact(t *testing.T) {
	dir := t.TempDir()
	log := NewPersistentLog(dir)
	require.NoError(t, log.Open())

	_, err := log.AppendEntries(
		NewLogEntry(1, 1, []byte("entry1")),
		NewLogEntry(2, 1, []byte("entry2")),
		NewLogEntry(3, 1, []byte("entry3")),
	)
	require.NoError(t, err)

	require.NoError(t, log.Compact(1))
	require.Equal(t, 2, log.Size())
	require.Equal(t, uint64(2), log.FirstIndex())
	require.Equal(t, uint64(3), log.LastIndex())

	entry, err := log.GetEntry(2)
	require.NoError(t, err)
	validateLogEntry(t, entry, 2, 1, []byte("entry2"))
}
