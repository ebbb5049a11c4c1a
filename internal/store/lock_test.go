package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLock_TryLock_SecondCallerFails(t *testing.T) {
	dir := t.TempDir()

	l1 := newWriterLock(dir)
	acquired, err := l1.TryLock()
	require.NoError(t, err)
	assert.True(t, acquired)

	l2 := newWriterLock(dir)
	acquired2, err := l2.TryLock()
	require.NoError(t, err)
	assert.False(t, acquired2)

	require.NoError(t, l1.Unlock())

	acquired3, err := l2.TryLock()
	require.NoError(t, err)
	assert.True(t, acquired3)
}

func TestWriterLock_Unlock_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	l := newWriterLock(dir)

	assert.NoError(t, l.Unlock())

	_, err := l.TryLock()
	require.NoError(t, err)
	assert.NoError(t, l.Unlock())
	assert.NoError(t, l.Unlock())
}
