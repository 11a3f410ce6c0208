package services

import (
	"testing"

	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	f.user(t, "bob", false)

	user, err := f.accounts.UpdateSettings(f.ctx, alice.ID, models.UpdateSettingsRequest{
		Bio:       strPtr("hi there"),
		IsPrivate: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", user.Bio)
	assert.True(t, user.IsPrivate)
	assert.Equal(t, "alice", user.Username)

	_, err = f.accounts.UpdateSettings(f.ctx, alice.ID, models.UpdateSettingsRequest{Username: strPtr("BOB")})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "username already taken", ReasonOf(err))

	_, err = f.accounts.UpdateSettings(f.ctx, alice.ID, models.UpdateSettingsRequest{Username: strPtr("  ")})
	assert.ErrorIs(t, err, ErrValidation)

	me, err := f.accounts.Me(f.ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, me.IsPrivate)
}

func TestGoingPublicKeepsPendingRequests(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	carol := f.user(t, "carol", true)

	_, err := f.graph.ToggleFollow(f.ctx, alice.ID, carol.ID)
	require.NoError(t, err)
	_, err = f.accounts.UpdateSettings(f.ctx, carol.ID, models.UpdateSettingsRequest{IsPrivate: boolPtr(false)})
	require.NoError(t, err)

	pending, _ := f.follows.HasFollowRequest(f.ctx, alice.ID, carol.ID)
	assert.True(t, pending)
	following, _ := f.follows.IsFollowing(f.ctx, alice.ID, carol.ID)
	assert.False(t, following)
}

func TestFollowAfterGoingPublicClearsPendingRequest(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	carol := f.user(t, "carol", true)

	_, err := f.graph.ToggleFollow(f.ctx, alice.ID, carol.ID)
	require.NoError(t, err)
	_, err = f.accounts.UpdateSettings(f.ctx, carol.ID, models.UpdateSettingsRequest{IsPrivate: boolPtr(false)})
	require.NoError(t, err)

	res, err := f.graph.ToggleFollow(f.ctx, alice.ID, carol.ID)
	require.NoError(t, err)
	assert.Equal(t, FollowResult{Following: true}, *res)

	following, _ := f.follows.IsFollowing(f.ctx, alice.ID, carol.ID)
	assert.True(t, following)
	pending, _ := f.follows.HasFollowRequest(f.ctx, alice.ID, carol.ID)
	assert.False(t, pending)
	requests, err := f.graph.ListFollowRequests(f.ctx, carol.ID)
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", false)
	f.user(t, "alina", true)
	f.user(t, "bob", false)

	_, err := f.accounts.Search(f.ctx, "a")
	assert.ErrorIs(t, err, ErrValidation)

	cards, err := f.accounts.Search(f.ctx, "ALI")
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "alice", cards[0].Username)
	assert.Equal(t, "alina", cards[1].Username)
}

func TestIsOnline(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)

	online, err := f.accounts.IsOnline(f.ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, online)

	require.NoError(t, f.presence.Connected(f.ctx, alice.ID))
	online, err = f.accounts.IsOnline(f.ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, online)

	_, err = f.accounts.IsOnline(f.ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveFirebaseUID(t *testing.T) {
	f := newFixture(t)
	uid := "firebase-uid-1"
	u := &models.User{Username: "fb", Email: "fb@saylink.test", FirebaseUID: &uid}
	require.NoError(t, f.users.CreateUser(f.ctx, u))

	found, err := f.accounts.ResolveFirebaseUID(f.ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = f.accounts.ResolveFirebaseUID(f.ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestErrorKinds(t *testing.T) {
	err := storeError(assert.AnError, "user not found")
	assert.ErrorIs(t, err, ErrOperational)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "store failure", ReasonOf(err))
	assert.Equal(t, "internal error", ReasonOf(assert.AnError))
	assert.Nil(t, storeError(nil, "x"))

	wrapped := newError(ErrPrivacy, "this account is private")
	assert.Same(t, wrapped, storeError(wrapped, "ignored"))
}
