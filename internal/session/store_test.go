package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	store := NewStore(time.Minute)

	_, ok := store.Get(1)
	assert.False(t, ok)

	store.Put(Session{UserID: 1, Action: ActionAdd})
	store.Put(Session{UserID: 2, Action: ActionDelete})
	store.Put(Session{UserID: 1, Action: ActionEdit})

	got, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, ActionEdit, got.Action)
	assert.Equal(t, 2, store.Len())

	store.Delete(1)
	_, ok = store.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 1, store.Len())
}

func TestStore_Expiry(t *testing.T) {
	store := NewStore(10 * time.Millisecond)
	store.Put(Session{UserID: 1, Action: ActionAdd})

	assert.Eventually(t, func() bool {
		_, ok := store.Get(1)
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestStore_NoExpiry(t *testing.T) {
	store := NewStore(0)
	store.Put(Session{UserID: 1, Action: ActionAdd})

	_, ok := store.Get(1)
	assert.True(t, ok)
}
