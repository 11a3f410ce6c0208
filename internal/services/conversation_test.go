package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/anonto42/saylink/backend/internal/realtime"
	"github.com/anonto42/saylink/backend/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartConversationOnePerPair(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)

	first, isRequest, err := f.conversations.StartConversation(f.ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, isRequest)
	assert.False(t, first.IsAccepted)
	require.NotNil(t, first.RequestedBy)
	assert.Equal(t, alice.ID, *first.RequestedBy)
	assert.Equal(t, models.PairKey(alice.ID, bob.ID), first.PairKey)

	second, isRequest, err := f.conversations.StartConversation(f.ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, isRequest)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.convStore.Len())
}

func TestStartConversationConcurrentInitiations(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)

	const workers = 16
	ids := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor, target := alice.ID, bob.ID
			if i%2 == 1 {
				actor, target = target, actor
			}
			conv, _, err := f.conversations.StartConversation(context.Background(), actor, target)
			errs[i] = err
			if err == nil {
				ids[i] = conv.ID.Hex()
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, 1, f.convStore.Len())
}

// racingConversations lets a competing insert win right before every create
type racingConversations struct {
	*memory.ConversationStore
	competitor uint
}

func (r *racingConversations) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	rival := &models.Conversation{
		Participants: []uint{r.competitor, conv.Participants[0]},
		PairKey:      conv.PairKey,
		RequestedBy:  &r.competitor,
	}
	if err := r.ConversationStore.CreateConversation(ctx, rival); err != nil {
		return err
	}
	return r.ConversationStore.CreateConversation(ctx, conv)
}

func TestStartConversationRecoversFromLostRace(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)

	racing := &racingConversations{ConversationStore: f.convStore, competitor: bob.ID}
	svc := NewConversationService(f.users, f.graph, racing, f.messages, f.posts, f.stories, f.events, discardLogger())

	conv, isRequest, err := svc.StartConversation(f.ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, isRequest)
	require.NotNil(t, conv.RequestedBy)
	assert.Equal(t, bob.ID, *conv.RequestedBy, "the competing row is returned")
	assert.Equal(t, 1, f.convStore.Len())
}

func TestStartConversationBetweenFriendsIsAccepted(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	f.follow(t, alice.ID, bob.ID)
	f.follow(t, bob.ID, alice.ID)

	conv, isRequest, err := f.conversations.StartConversation(f.ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, isRequest)
	assert.True(t, conv.IsAccepted)
	assert.Nil(t, conv.RequestedBy)

	view, err := f.conversations.SendMessage(f.ctx, bob.ID, conv.ID.Hex(), "hey")
	require.NoError(t, err)
	assert.Equal(t, models.MessageText, view.Type)
	require.NotNil(t, view.Sender)
	assert.Equal(t, "bob", view.Sender.Username)

	pushed := f.events.ofType(realtime.EventNewMessage)
	require.Len(t, pushed, 1)
	assert.Equal(t, conv.ID.Hex(), pushed[0].ConversationID)
}

func TestStartConversationPrivateTarget(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	carol := f.user(t, "carol", true)

	_, _, err := f.conversations.StartConversation(f.ctx, alice.ID, carol.ID)
	assert.ErrorIs(t, err, ErrPrivacy)
	assert.Equal(t, 0, f.convStore.Len())

	_, err = f.graph.ToggleFollow(f.ctx, alice.ID, carol.ID)
	require.NoError(t, err)
	require.NoError(t, f.graph.AcceptFollowRequest(f.ctx, carol.ID, alice.ID))

	conv, isRequest, err := f.conversations.StartConversation(f.ctx, alice.ID, carol.ID)
	require.NoError(t, err)
	assert.True(t, isRequest, "following one way is not friendship")
	assert.False(t, conv.IsAccepted)
}

func TestStartConversationErrors(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)

	_, _, err := f.conversations.StartConversation(f.ctx, alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrSelfReference)

	_, _, err = f.conversations.StartConversation(f.ctx, alice.ID, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPendingConversationIsGated(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	eve := f.user(t, "eve", false)

	conv, _, err := f.conversations.StartConversation(f.ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	id := conv.ID.Hex()

	for _, uid := range []uint{alice.ID, bob.ID} {
		_, err = f.conversations.SendMessage(f.ctx, uid, id, "hello")
		assert.ErrorIs(t, err, ErrConsent)
		_, err = f.conversations.GetMessages(f.ctx, uid, id)
		assert.ErrorIs(t, err, ErrConsent)
	}

	_, err = f.conversations.SendMessage(f.ctx, eve.ID, id, "hello")
	assert.ErrorIs(t, err, ErrAuthorization)
	assert.NotErrorIs(t, err, ErrConsent)

	_, err = f.conversations.SendMessage(f.ctx, alice.ID, id, "   ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.conversations.SendMessage(f.ctx, alice.ID, "000000000000000000000000", "hello")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAcceptRequest(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	eve := f.user(t, "eve", false)

	conv, _, err := f.conversations.StartConversation(f.ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	id := conv.ID.Hex()

	requests, err := f.conversations.ListRequests(f.ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Len(t, requests[0].Users, 2)

	_, err = f.conversations.AcceptRequest(f.ctx, eve.ID, id)
	assert.ErrorIs(t, err, ErrAuthorization)

	accepted, err := f.conversations.AcceptRequest(f.ctx, bob.ID, id)
	require.NoError(t, err)
	assert.True(t, accepted.IsAccepted)
	assert.Nil(t, accepted.RequestedBy)

	_, err = f.conversations.SendMessage(f.ctx, alice.ID, id, "thanks")
	require.NoError(t, err)

	// accepted is terminal
	err = f.conversations.RejectRequest(f.ctx, bob.ID, id)
	assert.ErrorIs(t, err, ErrConflict)

	list, err := f.conversations.ListConversations(f.ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "thanks", list[0].LastMessage)
}

func TestRejectRequestReturnsPairToNone(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	eve := f.user(t, "eve", false)

	conv, _, err := f.conversations.StartConversation(f.ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.conversations.RejectRequest(f.ctx, eve.ID, conv.ID.Hex()), ErrAuthorization)
	require.NoError(t, f.conversations.RejectRequest(f.ctx, bob.ID, conv.ID.Hex()))
	assert.Equal(t, 0, f.convStore.Len())

	fresh, isRequest, err := f.conversations.StartConversation(f.ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, isRequest)
	assert.NotEqual(t, conv.ID, fresh.ID)
	assert.Equal(t, bob.ID, *fresh.RequestedBy)
}

func TestSharePostBypassesPendingState(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	post := f.post(t, bob.ID, "sunset")

	pending, _, err := f.conversations.StartConversation(f.ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.False(t, pending.IsAccepted)

	view, err := f.conversations.SharePost(f.ctx, alice.ID, bob.ID, post.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.MessagePost, view.Type)
	assert.Equal(t, pending.ID, view.ConversationID)

	conv, err := f.convStore.GetConversationByID(f.ctx, pending.ID.Hex())
	require.NoError(t, err)
	assert.True(t, conv.IsAccepted)
	assert.Nil(t, conv.RequestedBy)
	assert.Equal(t, "Shared a post", conv.LastMessage)
	assert.Equal(t, 1, f.convStore.Len())

	pushed := f.events.ofType(realtime.EventNewMessage)
	require.Len(t, pushed, 1)
	assert.Equal(t, bob.ID, pushed[0].UserID)

	_, err = f.conversations.SharePost(f.ctx, alice.ID, alice.ID, post.ID.Hex())
	assert.ErrorIs(t, err, ErrSelfReference)
	_, err = f.conversations.SharePost(f.ctx, alice.ID, bob.ID, "000000000000000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "post not found", ReasonOf(err))
}

func TestReplyToStory(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	story := f.story(t, bob.ID)

	view, err := f.conversations.ReplyToStory(f.ctx, alice.ID, story.ID.Hex(), "nice")
	require.NoError(t, err)
	assert.Equal(t, models.MessageStoryReply, view.Type)
	assert.Equal(t, story.ID.Hex(), view.StoryID)

	conv, err := f.convStore.GetConversationByPairKey(f.ctx, models.PairKey(alice.ID, bob.ID))
	require.NoError(t, err)
	assert.True(t, conv.IsAccepted)
	assert.Equal(t, "Replied to your story", conv.LastMessage)

	_, err = f.conversations.ReplyToStory(f.ctx, bob.ID, story.ID.Hex(), "me")
	assert.ErrorIs(t, err, ErrSelfReference)
	_, err = f.conversations.ReplyToStory(f.ctx, alice.ID, story.ID.Hex(), "")
	assert.ErrorIs(t, err, ErrValidation)

	f.advance(models.StoryLifetime + time.Second)
	_, err = f.conversations.ReplyToStory(f.ctx, alice.ID, story.ID.Hex(), "late")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkSeen(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	f.follow(t, alice.ID, bob.ID)
	f.follow(t, bob.ID, alice.ID)

	conv, _, err := f.conversations.StartConversation(f.ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	id := conv.ID.Hex()
	_, err = f.conversations.SendMessage(f.ctx, alice.ID, id, "one")
	require.NoError(t, err)
	_, err = f.conversations.SendMessage(f.ctx, alice.ID, id, "two")
	require.NoError(t, err)

	n, err := f.conversations.MarkSeen(f.ctx, alice.ID, id)
	require.NoError(t, err)
	assert.Zero(t, n, "own messages are never marked")

	n, err = f.conversations.MarkSeen(f.ctx, bob.ID, id)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	acks := f.events.ofType(realtime.EventMessagesSeenAck)
	require.Len(t, acks, 1)
	assert.Equal(t, realtime.MessagesSeen{ConversationID: id, UserID: bob.ID}, acks[0].Event.Payload)

	n, err = f.conversations.MarkSeen(f.ctx, bob.ID, id)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.events.ofType(realtime.EventMessagesSeenAck), 1)

	msgs, err := f.conversations.GetMessages(f.ctx, alice.ID, id)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, []uint{bob.ID}, msgs[0].SeenBy)
}

func TestShareCandidatesAndCanJoin(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	dave := f.user(t, "dave", false)
	eve := f.user(t, "eve", false)
	post := f.post(t, alice.ID, "hi")

	_, err := f.conversations.SharePost(f.ctx, alice.ID, dave.ID, post.ID.Hex())
	require.NoError(t, err)
	f.follow(t, alice.ID, bob.ID)
	f.follow(t, alice.ID, dave.ID)

	cards, err := f.conversations.ShareCandidates(f.ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "dave", cards[0].Username)
	assert.Equal(t, "bob", cards[1].Username)

	conv, err := f.convStore.GetConversationByPairKey(f.ctx, models.PairKey(alice.ID, dave.ID))
	require.NoError(t, err)
	assert.True(t, f.conversations.CanJoin(f.ctx, dave.ID, conv.ID.Hex()))
	assert.False(t, f.conversations.CanJoin(f.ctx, eve.ID, conv.ID.Hex()))
	assert.False(t, f.conversations.CanJoin(f.ctx, dave.ID, "missing"))
}
