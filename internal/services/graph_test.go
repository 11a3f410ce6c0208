package services

import (
	"testing"

	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/anonto42/saylink/backend/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleFollowPublicIsIdempotent(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	key := models.NotificationKey{Type: models.NotificationFollow, SenderID: alice.ID, RecipientID: bob.ID}

	res, err := f.graph.ToggleFollow(f.ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, res.Following)
	assert.False(t, res.Requested)
	assert.Equal(t, 1, f.notifications.Count(key))

	following, _ := f.follows.IsFollowing(f.ctx, alice.ID, bob.ID)
	assert.True(t, following)
	followers, _ := f.follows.GetFollowerIDs(f.ctx, bob.ID)
	assert.Equal(t, []uint{alice.ID}, followers)

	res, err = f.graph.ToggleFollow(f.ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, res.Following)
	assert.Equal(t, 0, f.notifications.Count(key))

	following, _ = f.follows.IsFollowing(f.ctx, alice.ID, bob.ID)
	assert.False(t, following)
	followers, _ = f.follows.GetFollowerIDs(f.ctx, bob.ID)
	assert.Empty(t, followers)

	assert.Len(t, f.events.ofType(realtime.EventNewNotification), 1)
	removed := f.events.ofType(realtime.EventRemoveNotification)
	require.Len(t, removed, 1)
	assert.Equal(t, bob.ID, removed[0].UserID)
}

func TestToggleFollowAgainNeverDuplicatesNotification(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	key := models.NotificationKey{Type: models.NotificationFollow, SenderID: alice.ID, RecipientID: bob.ID}

	for i := 0; i < 5; i++ {
		_, err := f.graph.ToggleFollow(f.ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.LessOrEqual(t, f.notifications.Count(key), 1)
	}
	assert.Equal(t, 1, f.notifications.Count(key))
}

func TestToggleFollowPrivateFilesOneRequest(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	carol := f.user(t, "carol", true)
	key := models.NotificationKey{Type: models.NotificationFollowRequest, SenderID: alice.ID, RecipientID: carol.ID}

	for i := 0; i < 3; i++ {
		res, err := f.graph.ToggleFollow(f.ctx, alice.ID, carol.ID)
		require.NoError(t, err)
		assert.True(t, res.Requested)
		assert.False(t, res.Following)
	}

	assert.Equal(t, 1, f.notifications.Count(key))
	assert.Len(t, f.events.ofType(realtime.EventNewNotification), 1)
	requests, err := f.graph.ListFollowRequests(f.ctx, carol.ID)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "alice", requests[0].Username)

	following, _ := f.follows.IsFollowing(f.ctx, alice.ID, carol.ID)
	assert.False(t, following)
}

func TestToggleFollowErrors(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)

	_, err := f.graph.ToggleFollow(f.ctx, alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrSelfReference)

	_, err = f.graph.ToggleFollow(f.ctx, alice.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "user not found", ReasonOf(err))

	_, err = f.graph.ToggleFollow(f.ctx, 999, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAcceptFollowRequest(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	carol := f.user(t, "carol", true)

	_, err := f.graph.ToggleFollow(f.ctx, alice.ID, carol.ID)
	require.NoError(t, err)
	f.events.reset()

	require.NoError(t, f.graph.AcceptFollowRequest(f.ctx, carol.ID, alice.ID))

	following, _ := f.follows.IsFollowing(f.ctx, alice.ID, carol.ID)
	assert.True(t, following)
	pending, _ := f.follows.HasFollowRequest(f.ctx, alice.ID, carol.ID)
	assert.False(t, pending)
	assert.Empty(t, f.events.ofType(realtime.EventNewNotification), "accepting notifies nobody")

	err = f.graph.AcceptFollowRequest(f.ctx, carol.ID, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "follow request not found", ReasonOf(err))

	err = f.graph.AcceptFollowRequest(f.ctx, carol.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	// an accepted follower toggles into an unfollow
	res, err := f.graph.ToggleFollow(f.ctx, alice.ID, carol.ID)
	require.NoError(t, err)
	assert.False(t, res.Following)
	assert.False(t, res.Requested)
}

func TestRejectFollowRequest(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	carol := f.user(t, "carol", true)

	_, err := f.graph.ToggleFollow(f.ctx, alice.ID, carol.ID)
	require.NoError(t, err)

	require.NoError(t, f.graph.RejectFollowRequest(f.ctx, carol.ID, alice.ID))
	pending, _ := f.follows.HasFollowRequest(f.ctx, alice.ID, carol.ID)
	assert.False(t, pending)
	following, _ := f.follows.IsFollowing(f.ctx, alice.ID, carol.ID)
	assert.False(t, following)

	// rejecting again is a no-op
	assert.NoError(t, f.graph.RejectFollowRequest(f.ctx, carol.ID, alice.ID))
}

func TestIsFriend(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	dave := f.user(t, "dave", false)

	f.follow(t, alice.ID, bob.ID)
	friend, err := f.graph.IsFriend(f.ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, friend)

	f.follow(t, bob.ID, alice.ID)
	f.follow(t, alice.ID, dave.ID)
	friend, err = f.graph.IsFriend(f.ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, friend)

	friends, err := f.graph.Friends(f.ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{bob.ID}, friends)

	friend, _ = f.graph.IsFriend(f.ctx, alice.ID, alice.ID)
	assert.False(t, friend)
}

func TestFollowersAndFollowing(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	dave := f.user(t, "dave", false)
	f.follow(t, bob.ID, alice.ID)
	f.follow(t, dave.ID, alice.ID)

	followers, err := f.graph.Followers(f.ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{bob.ID, dave.ID}, []uint{followers[0].ID, followers[1].ID})

	following, err := f.graph.Following(f.ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, "alice", following[0].Username)

	_, err = f.graph.Followers(f.ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
