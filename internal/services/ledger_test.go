package services

import (
	"testing"
	"time"

	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/anonto42/saylink/backend/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerNotifyReplacesLiveEntry(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	key := models.NotificationKey{Type: models.NotificationLike, SenderID: alice.ID, RecipientID: bob.ID, PostID: "65f0c0ffee0000000000abcd"}

	first, err := f.ledger.Notify(f.ctx, key, nil)
	require.NoError(t, err)
	require.NoError(t, f.ledger.MarkRead(f.ctx, bob.ID, first.ID))

	f.advance(time.Hour)
	second, err := f.ledger.Notify(f.ctx, key, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, second.IsRead)
	assert.Equal(t, f.now, second.CreatedAt)
	assert.Equal(t, 1, f.notifications.Count(key))

	pushed := f.events.ofType(realtime.EventNewNotification)
	require.Len(t, pushed, 2)
	view, ok := pushed[1].Event.Payload.(NotificationView)
	require.True(t, ok)
	require.NotNil(t, view.Sender)
	assert.Equal(t, "alice", view.Sender.Username)
	assert.Equal(t, bob.ID, pushed[1].UserID)

	removed := f.events.ofType(realtime.EventRemoveNotification)
	require.Len(t, removed, 1)
	assert.Equal(t, bob.ID, removed[0].UserID)
	assert.Equal(t, realtime.NotificationRemoved{NotificationID: first.ID}, removed[0].Event.Payload)
}

func TestLedgerIgnoresSelfNotifications(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	key := models.NotificationKey{Type: models.NotificationFollow, SenderID: alice.ID, RecipientID: alice.ID}

	n, err := f.ledger.Notify(f.ctx, key, nil)
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Equal(t, 0, f.notifications.Count(key))
	assert.Empty(t, f.events.ofType(realtime.EventNewNotification))
}

func TestLedgerRetract(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	key := models.NotificationKey{Type: models.NotificationFollow, SenderID: alice.ID, RecipientID: bob.ID}

	removed, err := f.ledger.Retract(f.ctx, key)
	require.NoError(t, err)
	assert.False(t, removed, "retracting nothing is a no-op")
	assert.Empty(t, f.events.ofType(realtime.EventRemoveNotification))

	n, err := f.ledger.Notify(f.ctx, key, nil)
	require.NoError(t, err)
	removed, err = f.ledger.Retract(f.ctx, key)
	require.NoError(t, err)
	assert.True(t, removed)

	pushed := f.events.ofType(realtime.EventRemoveNotification)
	require.Len(t, pushed, 1)
	assert.Equal(t, realtime.NotificationRemoved{NotificationID: n.ID}, pushed[0].Event.Payload)
}

func TestLedgerRetractByCommentAndPost(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	postID := "65f0c0ffee0000000000abcd"
	commentID := uint(7)

	like := models.NotificationKey{Type: models.NotificationLike, SenderID: alice.ID, RecipientID: bob.ID, PostID: postID}
	comment := models.NotificationKey{Type: models.NotificationComment, SenderID: alice.ID, RecipientID: bob.ID, PostID: postID}
	_, err := f.ledger.Notify(f.ctx, like, nil)
	require.NoError(t, err)
	_, err = f.ledger.Notify(f.ctx, comment, &commentID)
	require.NoError(t, err)

	require.NoError(t, f.ledger.RetractComment(f.ctx, commentID))
	assert.Equal(t, 0, f.notifications.Count(comment))
	assert.Equal(t, 1, f.notifications.Count(like))

	require.NoError(t, f.ledger.RetractPost(f.ctx, postID))
	assert.Equal(t, 0, f.notifications.Count(like))
	assert.Len(t, f.events.ofType(realtime.EventRemoveNotification), 2)
}

func TestLedgerListAndRead(t *testing.T) {
	f := newFixture(t)
	bob := f.user(t, "bob", false)
	var senders []*models.User
	for _, name := range []string{"alice", "carol", "dave"} {
		senders = append(senders, f.user(t, name, false))
	}
	for _, s := range senders {
		_, err := f.ledger.Notify(f.ctx, models.NotificationKey{Type: models.NotificationFollow, SenderID: s.ID, RecipientID: bob.ID}, nil)
		require.NoError(t, err)
		f.advance(time.Minute)
	}

	page, err := f.ledger.List(f.ctx, bob.ID, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.True(t, page.HasMore)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, "dave", page.Notifications[0].Sender.Username)

	unread, err := f.ledger.UnreadCount(f.ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, unread)

	require.NoError(t, f.ledger.MarkRead(f.ctx, bob.ID, page.Notifications[0].ID))
	err = f.ledger.MarkRead(f.ctx, senders[0].ID, page.Notifications[1].ID)
	assert.ErrorIs(t, err, ErrNotFound, "only the recipient can mark a notification")
	assert.ErrorIs(t, f.ledger.MarkRead(f.ctx, bob.ID, 9999), ErrNotFound)

	n, err := f.ledger.MarkAllRead(f.ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	unread, _ = f.ledger.UnreadCount(f.ctx, bob.ID)
	assert.Zero(t, unread)
}

func TestLedgerGrouped(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	carol := f.user(t, "carol", false)

	f.now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	_, err := f.ledger.Notify(f.ctx, models.NotificationKey{Type: models.NotificationFollow, SenderID: carol.ID, RecipientID: bob.ID}, nil)
	require.NoError(t, err)
	f.now = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	_, err = f.ledger.Notify(f.ctx, models.NotificationKey{Type: models.NotificationFollow, SenderID: alice.ID, RecipientID: bob.ID}, nil)
	require.NoError(t, err)

	f.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	g, err := f.ledger.Grouped(f.ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, g.Today, 1)
	assert.Equal(t, alice.ID, g.Today[0].SenderID)
	assert.Empty(t, g.Yesterday)
	assert.Len(t, g.ThisWeek, 1)
	assert.Empty(t, g.Older)
}
