package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/anonto42/saylink/backend/internal/realtime"
	"github.com/anonto42/saylink/backend/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

type published struct {
	UserID         uint
	ConversationID string
	Event          realtime.Event
}

// recorder is a realtime.Publisher that keeps every event
type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) PublishToUser(userID uint, event realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{UserID: userID, Event: event})
}

func (r *recorder) PublishToConversation(conversationID string, event realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{ConversationID: conversationID, Event: event})
}

func (r *recorder) ofType(eventType string) []published {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []published
	for _, p := range r.events {
		if p.Event.Type == eventType {
			out = append(out, p)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type fixture struct {
	ctx      context.Context
	now      time.Time
	events   *recorder
	presence *fakePresence

	users         *memory.UserStore
	follows       *memory.FollowStore
	notifications *memory.NotificationStore
	posts         *memory.PostStore
	likes         *memory.LikeStore
	comments      *memory.CommentStore
	saves         *memory.SavedPostStore
	stories       *memory.StoryStore
	convStore     *memory.ConversationStore
	messages      *memory.MessageStore

	ledger        *Ledger
	graph         *GraphService
	visibility    *VisibilityService
	conversations *ConversationService
	content       *ContentService
	accounts      *AccountService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:           context.Background(),
		now:           time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		events:        &recorder{},
		presence:      &fakePresence{online: map[uint]bool{}},
		users:         memory.NewUserStore(),
		follows:       memory.NewFollowStore(),
		notifications: memory.NewNotificationStore(),
		posts:         memory.NewPostStore(),
		likes:         memory.NewLikeStore(),
		comments:      memory.NewCommentStore(),
		saves:         memory.NewSavedPostStore(),
		stories:       memory.NewStoryStore(),
		convStore:     memory.NewConversationStore(),
		messages:      memory.NewMessageStore(),
	}
	logger := discardLogger()
	clock := func() time.Time { return f.now }

	f.ledger = NewLedger(f.notifications, f.users, f.events, logger)
	f.ledger.now = clock
	f.graph = NewGraphService(f.users, f.follows, f.ledger, logger)
	f.visibility = NewVisibilityService(f.users, f.graph, f.posts, f.likes, f.saves, f.stories, f.events, logger)
	f.visibility.now = clock
	f.conversations = NewConversationService(f.users, f.graph, f.convStore, f.messages, f.posts, f.stories, f.events, logger)
	f.conversations.now = clock
	f.content = NewContentService(f.users, f.posts, f.likes, f.saves, f.comments, f.stories, f.visibility, f.ledger, logger)
	f.content.now = clock
	f.accounts = NewAccountService(f.users, f.presence, logger)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) user(t *testing.T, username string, private bool) *models.User {
	t.Helper()
	u := &models.User{Username: username, Name: username, Email: username + "@saylink.test", IsPrivate: private}
	require.NoError(t, f.users.CreateUser(f.ctx, u))
	return u
}

func (f *fixture) follow(t *testing.T, follower, following uint) {
	t.Helper()
	require.NoError(t, f.follows.CreateFollow(f.ctx, follower, following))
}

func (f *fixture) post(t *testing.T, author uint, caption string) *models.Post {
	t.Helper()
	post, err := f.content.CreatePost(f.ctx, author, models.CreatePostRequest{Caption: caption})
	require.NoError(t, err)
	f.advance(time.Minute)
	return post
}

func (f *fixture) story(t *testing.T, owner uint) *models.Story {
	t.Helper()
	story, err := f.content.CreateStory(f.ctx, owner, models.CreateStoryRequest{MediaURL: "https://cdn.saylink.test/s.jpg", Type: "image"})
	require.NoError(t, err)
	return story
}

type fakePresence struct {
	online map[uint]bool
}

func (p *fakePresence) Connected(_ context.Context, userID uint) error {
	p.online[userID] = true
	return nil
}

func (p *fakePresence) Disconnected(_ context.Context, userID uint) error {
	delete(p.online, userID)
	return nil
}

func (p *fakePresence) Refresh(context.Context, uint) error { return nil }

func (p *fakePresence) IsOnline(_ context.Context, userID uint) (bool, error) {
	return p.online[userID], nil
}
