package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/anonto42/saylink/backend/internal/repositories"
)

// LikeResult reports the state of a like after a toggle
type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

// CommentView is a comment with its author's card
type CommentView struct {
	models.Comment
	Author *models.UserCompact `json:"author,omitempty"`
}

// ContentService covers posts, likes, comments and stories, and keeps the
// ledger in step with each of them.
type ContentService struct {
	users      repositories.UserRepository
	posts      repositories.PostRepository
	likes      repositories.LikeRepository
	saves      repositories.SavedPostRepository
	comments   repositories.CommentRepository
	stories    repositories.StoryRepository
	visibility *VisibilityService
	ledger     *Ledger
	logger     *slog.Logger
	now        func() time.Time
}

func NewContentService(
	users repositories.UserRepository,
	posts repositories.PostRepository,
	likes repositories.LikeRepository,
	saves repositories.SavedPostRepository,
	comments repositories.CommentRepository,
	stories repositories.StoryRepository,
	visibility *VisibilityService,
	ledger *Ledger,
	logger *slog.Logger,
) *ContentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentService{
		users:      users,
		posts:      posts,
		likes:      likes,
		saves:      saves,
		comments:   comments,
		stories:    stories,
		visibility: visibility,
		ledger:     ledger,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *ContentService) CreatePost(ctx context.Context, authorID uint, req models.CreatePostRequest) (*models.Post, error) {
	if strings.TrimSpace(req.Caption) == "" && req.ImageURL == "" {
		return nil, newError(ErrValidation, "post must contain a caption or an image")
	}
	now := s.now()
	post := &models.Post{
		AuthorID:  authorID,
		Caption:   req.Caption,
		ImageURL:  req.ImageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, storeError(err, "post not found")
	}
	return post, nil
}

// visiblePost loads a post and checks that viewerID may see its author's content
func (s *ContentService) visiblePost(ctx context.Context, viewerID uint, postID string) (*models.Post, error) {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, storeError(err, "post not found")
	}
	if post.AuthorID == viewerID {
		return post, nil
	}
	author, err := s.users.GetUserByID(ctx, post.AuthorID)
	if err != nil {
		return nil, storeError(err, "post not found")
	}
	ok, err := s.visibility.CanSeeContent(ctx, viewerID, author)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(ErrPrivacy, "this account is private")
	}
	return post, nil
}

func (s *ContentService) GetPost(ctx context.Context, viewerID uint, postID string) (*PostView, error) {
	post, err := s.visiblePost(ctx, viewerID, postID)
	if err != nil {
		return nil, err
	}
	views, err := s.visibility.postViews(ctx, viewerID, []models.Post{*post})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// DeletePost removes a post with everything that hangs off it, including
// every notification pointing at it
func (s *ContentService) DeletePost(ctx context.Context, userID uint, postID string) error {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return storeError(err, "post not found")
	}
	if post.AuthorID != userID {
		return newError(ErrAuthorization, "not authorized to delete this post")
	}
	if err := s.comments.DeleteCommentsByPostID(ctx, postID); err != nil {
		return storeError(err, "post not found")
	}
	if err := s.likes.DeleteLikesByPostID(ctx, postID); err != nil {
		return storeError(err, "post not found")
	}
	if err := s.saves.DeleteSavesByPostID(ctx, postID); err != nil {
		return storeError(err, "post not found")
	}
	if err := s.ledger.RetractPost(ctx, postID); err != nil {
		s.logger.Warn("failed to retract post notifications", "post_id", postID, "error", err)
	}
	if err := s.posts.DeletePost(ctx, postID); err != nil {
		return storeError(err, "post not found")
	}
	return nil
}

// ToggleLike likes or unlikes a post for userID. Liking your own post raises
// no notification, so unliking it has nothing to retract.
func (s *ContentService) ToggleLike(ctx context.Context, userID uint, postID string) (*LikeResult, error) {
	post, err := s.visiblePost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	key := models.NotificationKey{Type: models.NotificationLike, SenderID: userID, RecipientID: post.AuthorID, PostID: postID}

	removed, err := s.likes.DeleteLike(ctx, postID, userID)
	if err != nil {
		return nil, storeError(err, "post not found")
	}
	if removed {
		if err := s.posts.DecrementLikesCount(ctx, postID); err != nil {
			s.logger.Warn("failed to decrement likes count", "post_id", postID, "error", err)
		}
		if _, err := s.ledger.Retract(ctx, key); err != nil {
			s.logger.Warn("failed to retract like notification", "post_id", postID, "sender_id", userID, "error", err)
		}
		return &LikeResult{Liked: false, LikesCount: max(post.LikesCount-1, 0)}, nil
	}

	err = s.likes.CreateLike(ctx, &models.Like{PostID: postID, UserID: userID, CreatedAt: s.now()})
	if errors.Is(err, repositories.ErrDuplicate) {
		return &LikeResult{Liked: true, LikesCount: post.LikesCount}, nil
	}
	if err != nil {
		return nil, storeError(err, "post not found")
	}
	if err := s.posts.IncrementLikesCount(ctx, postID); err != nil {
		s.logger.Warn("failed to increment likes count", "post_id", postID, "error", err)
	}
	if _, err := s.ledger.Notify(ctx, key, nil); err != nil {
		s.logger.Warn("failed to notify like", "post_id", postID, "sender_id", userID, "error", err)
	}
	return &LikeResult{Liked: true, LikesCount: post.LikesCount + 1}, nil
}

// ToggleSave bookmarks or un-bookmarks a post and reports whether it is now saved
func (s *ContentService) ToggleSave(ctx context.Context, userID uint, postID string) (bool, error) {
	if _, err := s.visiblePost(ctx, userID, postID); err != nil {
		return false, err
	}
	removed, err := s.saves.UnsavePost(ctx, userID, postID)
	if err != nil {
		return false, storeError(err, "post not found")
	}
	if removed {
		return false, nil
	}
	if _, err := s.saves.SavePost(ctx, &models.SavedPost{UserID: userID, PostID: postID, CreatedAt: s.now()}); err != nil {
		return false, storeError(err, "post not found")
	}
	return true, nil
}

// SavedPosts lists userID's bookmarks, newest first. Posts that were deleted
// or became invisible since are skipped.
func (s *ContentService) SavedPosts(ctx context.Context, userID uint) ([]PostView, error) {
	ids, err := s.saves.GetSavedPostIDsByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "post not found")
	}
	posts := make([]models.Post, 0, len(ids))
	for _, id := range ids {
		post, err := s.visiblePost(ctx, userID, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrPrivacy) {
				continue
			}
			return nil, err
		}
		posts = append(posts, *post)
	}
	return s.visibility.postViews(ctx, userID, posts)
}

func (s *ContentService) AddComment(ctx context.Context, userID uint, postID, text string) (*CommentView, error) {
	if strings.TrimSpace(text) == "" {
		return nil, newError(ErrValidation, "comment cannot be empty")
	}
	post, err := s.visiblePost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	comment := &models.Comment{PostID: postID, AuthorID: userID, Text: text, CreatedAt: s.now()}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, storeError(err, "post not found")
	}
	if err := s.posts.IncrementCommentsCount(ctx, postID); err != nil {
		s.logger.Warn("failed to increment comments count", "post_id", postID, "error", err)
	}
	key := models.NotificationKey{Type: models.NotificationComment, SenderID: userID, RecipientID: post.AuthorID, PostID: postID}
	if _, err := s.ledger.Notify(ctx, key, &comment.ID); err != nil {
		s.logger.Warn("failed to notify comment", "post_id", postID, "comment_id", comment.ID, "error", err)
	}

	view := &CommentView{Comment: *comment}
	if author, err := s.users.GetUserByID(ctx, userID); err == nil {
		card := author.ToCompact()
		view.Author = &card
	}
	return view, nil
}

// DeleteComment lets the comment's author or the post's owner remove it
func (s *ContentService) DeleteComment(ctx context.Context, userID uint, postID string, commentID uint) error {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return storeError(err, "post not found")
	}
	comment, err := s.comments.GetCommentByID(ctx, commentID)
	if err != nil || comment.PostID != postID {
		if err == nil {
			err = repositories.ErrNotFound
		}
		return storeError(err, "comment not found")
	}
	if comment.AuthorID != userID && post.AuthorID != userID {
		return newError(ErrAuthorization, "not authorized to delete this comment")
	}
	if err := s.comments.DeleteComment(ctx, commentID); err != nil {
		return storeError(err, "comment not found")
	}
	if err := s.posts.DecrementCommentsCount(ctx, postID); err != nil {
		s.logger.Warn("failed to decrement comments count", "post_id", postID, "error", err)
	}
	if err := s.ledger.RetractComment(ctx, commentID); err != nil {
		s.logger.Warn("failed to retract comment notification", "comment_id", commentID, "error", err)
	}
	return nil
}

func (s *ContentService) ListComments(ctx context.Context, viewerID uint, postID string) ([]CommentView, error) {
	if _, err := s.visiblePost(ctx, viewerID, postID); err != nil {
		return nil, err
	}
	comments, err := s.comments.GetCommentsByPostID(ctx, postID)
	if err != nil {
		return nil, storeError(err, "post not found")
	}
	ids := make([]uint, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.AuthorID)
	}
	cards, err := userCards(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}
	views := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		v := CommentView{Comment: c}
		if card, ok := cards[c.AuthorID]; ok {
			v.Author = &card
		}
		views = append(views, v)
	}
	return views, nil
}

// CreateStory publishes a story that expires after models.StoryLifetime
func (s *ContentService) CreateStory(ctx context.Context, userID uint, req models.CreateStoryRequest) (*models.Story, error) {
	now := s.now()
	story := &models.Story{
		UserID:    userID,
		Media:     models.StoryMedia{URL: req.MediaURL, Type: req.Type},
		Viewers:   []uint{},
		ExpiresAt: now.Add(models.StoryLifetime),
		CreatedAt: now,
	}
	if err := s.stories.CreateStory(ctx, story); err != nil {
		return nil, storeError(err, "story not found")
	}
	return story, nil
}

func (s *ContentService) DeleteStory(ctx context.Context, userID uint, storyID string) error {
	story, err := s.stories.GetStoryByID(ctx, storyID)
	if err != nil {
		return storeError(err, "story not found")
	}
	if story.UserID != userID {
		return newError(ErrAuthorization, "not authorized")
	}
	if err := s.stories.DeleteStory(ctx, storyID); err != nil {
		return storeError(err, "story not found")
	}
	return nil
}
