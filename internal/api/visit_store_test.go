package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/investio/investio/internal/gate"
)

func TestVisitStoreLifecycle(t *testing.T) {
	store := NewVisitStore()
	defer store.Close()

	store.Create("token-1", time.Hour)

	state, ok := store.Lookup("token-1")
	require.True(t, ok, "fresh visit must be found")
	assert.False(t, state.LoggedIn)
	assert.False(t, state.IsAdmin)

	state.LoggedIn = true
	state.UserEmail = "user@example.com"
	store.Save("token-1", state)

	got, ok := store.Lookup("token-1")
	require.True(t, ok)
	assert.True(t, got.LoggedIn)
	assert.Equal(t, "user@example.com", got.UserEmail)

	store.Delete("token-1")
	_, ok = store.Lookup("token-1")
	assert.False(t, ok, "deleted visit must not be found")
}

func TestVisitStoreUnknownToken(t *testing.T) {
	store := NewVisitStore()
	defer store.Close()

	_, ok := store.Lookup("never-created")
	assert.False(t, ok)

	// saving against an unknown token is a no-op
	store.Save("never-created", gate.VisitState{LoggedIn: true})
	_, ok = store.Lookup("never-created")
	assert.False(t, ok, "save must not create a visit for an unknown token")
}

func TestVisitStoreExpiration(t *testing.T) {
	store := NewVisitStore()
	defer store.Close()

	store.Create("short", time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	_, ok := store.Lookup("short")
	assert.False(t, ok, "expired visit must not be valid")
}

func TestVisitStoreLookupReturnsCopy(t *testing.T) {
	store := NewVisitStore()
	defer store.Close()

	store.Create("token-1", time.Hour)
	state, _ := store.Lookup("token-1")
	state.IsAdmin = true

	got, _ := store.Lookup("token-1")
	assert.False(t, got.IsAdmin, "mutating a looked-up state must not leak into the store")
}
