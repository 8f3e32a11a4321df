package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespaceLockExclusion(t *testing.T) {
	dir := t.TempDir()

	a := NewNamespaceLock(dir)
	ok, err := a.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer a.Unlock()

	b := NewNamespaceLock(dir)
	ok, err = b.TryLock()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNamespaceLockUnlockAllowsReacquire(t *testing.T) {
	dir := t.TempDir()

	a := NewNamespaceLock(dir)
	ok, err := a.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, a.Unlock())

	b := NewNamespaceLock(dir)
	ok, err = b.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.Unlock())
}

func TestNamespaceLockContextTimeout(t *testing.T) {
	dir := t.TempDir()

	a := NewNamespaceLock(dir)
	ok, err := a.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer a.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	b := NewNamespaceLock(dir)
	err = b.Lock(ctx)
	assert.Error(t, err)
}
