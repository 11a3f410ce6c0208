package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/anonto42/saylink/backend/internal/realtime"
	"github.com/anonto42/saylink/backend/internal/repositories"
)

// FeedPageSize is the number of posts per feed page
const FeedPageSize = 10

// PostView is a post as seen by one viewer
type PostView struct {
	models.Post
	Author *models.UserCompact `json:"author,omitempty"`
	Liked  bool                `json:"liked"`
	Saved  bool                `json:"saved"`
}

type FeedPage struct {
	Posts   []PostView `json:"posts"`
	Page    int        `json:"page"`
	HasMore bool       `json:"has_more"`
}

// Relationship describes how a viewer relates to a profile
type Relationship struct {
	IsOwner         bool `json:"is_owner"`
	IsFollower      bool `json:"is_follower"`
	IsPrivate       bool `json:"is_private"`
	FollowRequested bool `json:"follow_requested"`
}

type ProfileView struct {
	User           models.User  `json:"user"`
	Posts          []PostView   `json:"posts"`
	Relationship   Relationship `json:"relationship"`
	FollowersCount int64        `json:"followers_count"`
	FollowingCount int64        `json:"following_count"`
	HasActiveStory bool         `json:"has_active_story"`
	HasUnseenStory bool         `json:"has_unseen_story"`
}

// StoryView is a live story with its owner's card. Seen reports whether the
// requesting viewer is among its viewers.
type StoryView struct {
	models.Story
	Owner *models.UserCompact `json:"owner,omitempty"`
	Seen  bool                `json:"seen"`
}

// StoryViewed is the payload of realtime.EventStoryViewed
type StoryViewed struct {
	StoryID string             `json:"storyId"`
	Viewer  models.UserCompact `json:"viewer"`
}

// VisibilityService answers who may see what. Apart from recording story
// views it never writes.
type VisibilityService struct {
	users     repositories.UserRepository
	graph     *GraphService
	posts     repositories.PostRepository
	likes     repositories.LikeRepository
	saves     repositories.SavedPostRepository
	stories   repositories.StoryRepository
	publisher realtime.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewVisibilityService(
	users repositories.UserRepository,
	graph *GraphService,
	posts repositories.PostRepository,
	likes repositories.LikeRepository,
	saves repositories.SavedPostRepository,
	stories repositories.StoryRepository,
	publisher realtime.Publisher,
	logger *slog.Logger,
) *VisibilityService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VisibilityService{
		users:     users,
		graph:     graph,
		posts:     posts,
		likes:     likes,
		saves:     saves,
		stories:   stories,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// CanSeeContent reports whether viewerID may see owner's posts and stories:
// the owner, approved followers, or anyone when the account is public.
func (s *VisibilityService) CanSeeContent(ctx context.Context, viewerID uint, owner *models.User) (bool, error) {
	if !owner.IsPrivate || owner.ID == viewerID {
		return true, nil
	}
	return s.graph.IsFollower(ctx, viewerID, owner.ID)
}

// FeedAuthors is the viewer, everyone the viewer follows, and every public
// account not already covered, each exactly once.
func (s *VisibilityService) FeedAuthors(ctx context.Context, viewerID uint) ([]uint, error) {
	following, err := s.graph.follows.GetFollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	public, err := s.users.GetPublicUserIDs(ctx)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	authors := make([]uint, 0, 1+len(following)+len(public))
	authors = append(authors, viewerID)
	authors = append(authors, following...)
	authors = append(authors, public...)
	return dedupe(authors), nil
}

func (s *VisibilityService) Feed(ctx context.Context, viewerID uint, page int) (*FeedPage, error) {
	if page < 1 {
		page = 1
	}
	authors, err := s.FeedAuthors(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	skip := int64((page - 1) * FeedPageSize)
	posts, err := s.posts.GetPostsByAuthorIDs(ctx, authors, skip, FeedPageSize)
	if err != nil {
		return nil, storeError(err, "post not found")
	}
	views, err := s.postViews(ctx, viewerID, posts)
	if err != nil {
		return nil, err
	}
	return &FeedPage{Posts: views, Page: page, HasMore: len(posts) == FeedPageSize}, nil
}

// Profile shows username's account to viewerID. Posts of a private account
// are withheld from anyone but the owner and approved followers.
func (s *VisibilityService) Profile(ctx context.Context, viewerID uint, username string) (*ProfileView, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	view := &ProfileView{User: *user, Posts: []PostView{}}
	view.Relationship.IsOwner = user.ID == viewerID
	view.Relationship.IsPrivate = user.IsPrivate
	if !view.Relationship.IsOwner {
		if view.Relationship.IsFollower, err = s.graph.IsFollower(ctx, viewerID, user.ID); err != nil {
			return nil, err
		}
		if !view.Relationship.IsFollower && user.IsPrivate {
			requested, err := s.graph.follows.HasFollowRequest(ctx, viewerID, user.ID)
			if err != nil {
				return nil, storeError(err, "user not found")
			}
			view.Relationship.FollowRequested = requested
		}
	}

	if view.FollowersCount, err = s.graph.follows.GetFollowersCount(ctx, user.ID); err != nil {
		return nil, storeError(err, "user not found")
	}
	if view.FollowingCount, err = s.graph.follows.GetFollowingCount(ctx, user.ID); err != nil {
		return nil, storeError(err, "user not found")
	}

	if !user.IsPrivate || view.Relationship.IsOwner || view.Relationship.IsFollower {
		posts, err := s.posts.GetPostsByAuthorIDs(ctx, []uint{user.ID}, 0, 0)
		if err != nil {
			return nil, storeError(err, "post not found")
		}
		if view.Posts, err = s.postViews(ctx, viewerID, posts); err != nil {
			return nil, err
		}
	}

	stories, err := s.stories.GetActiveStoriesByUserIDs(ctx, []uint{user.ID}, s.now())
	if err != nil {
		return nil, storeError(err, "story not found")
	}
	view.HasActiveStory = len(stories) > 0
	for i := range stories {
		if !stories[i].ViewedBy(viewerID) {
			view.HasUnseenStory = true
			break
		}
	}
	return view, nil
}

// StoryAuthors is everyone viewerID follows, their friends, and viewerID
func (s *VisibilityService) StoryAuthors(ctx context.Context, viewerID uint) ([]uint, error) {
	following, err := s.graph.follows.GetFollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	friends, err := s.graph.Friends(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	authors := append(append(following, friends...), viewerID)
	return dedupe(authors), nil
}

// StoryFeed returns the live stories of StoryAuthors, oldest first
func (s *VisibilityService) StoryFeed(ctx context.Context, viewerID uint) ([]StoryView, error) {
	authors, err := s.StoryAuthors(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	stories, err := s.stories.GetActiveStoriesByUserIDs(ctx, authors, s.now())
	if err != nil {
		return nil, storeError(err, "story not found")
	}
	return s.storyViews(ctx, viewerID, stories)
}

// UserStories returns ownerID's live stories when viewerID may see them
func (s *VisibilityService) UserStories(ctx context.Context, viewerID, ownerID uint) ([]StoryView, error) {
	owner, err := s.users.GetUserByID(ctx, ownerID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	ok, err := s.CanSeeContent(ctx, viewerID, owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(ErrPrivacy, "this account is private")
	}
	stories, err := s.stories.GetActiveStoriesByUserIDs(ctx, []uint{ownerID}, s.now())
	if err != nil {
		return nil, storeError(err, "story not found")
	}
	return s.storyViews(ctx, viewerID, stories)
}

// ViewStory records viewerID as a viewer and tells the owner on the first
// view only. It reports ignored=true when the owner views their own story.
func (s *VisibilityService) ViewStory(ctx context.Context, viewerID uint, storyID string) (bool, error) {
	story, err := s.stories.GetStoryByID(ctx, storyID)
	if err != nil {
		return false, storeError(err, "story not found")
	}
	if !story.ExpiresAt.After(s.now()) {
		return false, newError(ErrNotFound, "story not found")
	}
	if story.UserID == viewerID {
		return true, nil
	}
	owner, err := s.users.GetUserByID(ctx, story.UserID)
	if err != nil {
		return false, storeError(err, "user not found")
	}
	ok, err := s.CanSeeContent(ctx, viewerID, owner)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, newError(ErrPrivacy, "this account is private")
	}

	added, err := s.stories.AddViewer(ctx, storyID, viewerID)
	if err != nil {
		return false, storeError(err, "story not found")
	}
	if added {
		payload := StoryViewed{StoryID: storyID, Viewer: models.UserCompact{ID: viewerID}}
		if viewer, err := s.users.GetUserByID(ctx, viewerID); err == nil {
			payload.Viewer = viewer.ToCompact()
		}
		s.publisher.PublishToUser(story.UserID, realtime.Event{Type: realtime.EventStoryViewed, Payload: payload})
	}
	return false, nil
}

func (s *VisibilityService) postViews(ctx context.Context, viewerID uint, posts []models.Post) ([]PostView, error) {
	views := make([]PostView, 0, len(posts))
	if len(posts) == 0 {
		return views, nil
	}
	authorIDs := make([]uint, 0, len(posts))
	postIDs := make([]string, 0, len(posts))
	for i := range posts {
		authorIDs = append(authorIDs, posts[i].AuthorID)
		postIDs = append(postIDs, posts[i].ID.Hex())
	}
	cards, err := userCards(ctx, s.users, authorIDs)
	if err != nil {
		return nil, err
	}
	liked, err := s.likes.GetLikedPostIDs(ctx, viewerID, postIDs)
	if err != nil {
		return nil, storeError(err, "post not found")
	}
	saved, err := s.saves.GetSavedPostIDs(ctx, viewerID, postIDs)
	if err != nil {
		return nil, storeError(err, "post not found")
	}
	for _, p := range posts {
		v := PostView{Post: p, Liked: liked[p.ID.Hex()], Saved: saved[p.ID.Hex()]}
		if card, ok := cards[p.AuthorID]; ok {
			v.Author = &card
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *VisibilityService) storyViews(ctx context.Context, viewerID uint, stories []models.Story) ([]StoryView, error) {
	ids := make([]uint, 0, len(stories))
	for i := range stories {
		ids = append(ids, stories[i].UserID)
	}
	cards, err := userCards(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}
	views := make([]StoryView, 0, len(stories))
	for _, st := range stories {
		v := StoryView{Story: st, Seen: st.ViewedBy(viewerID)}
		if card, ok := cards[st.UserID]; ok {
			v.Owner = &card
		}
		views = append(views, v)
	}
	return views, nil
}
