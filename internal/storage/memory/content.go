package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/anonto42/saylink/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PostStore struct {
	mu    sync.RWMutex
	posts map[string]*models.Post
}

func NewPostStore() *PostStore {
	return &PostStore{posts: make(map[string]*models.Post)}
}

func (s *PostStore) CreatePost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post.ID = primitive.NewObjectID()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	post.UpdatedAt = post.CreatedAt
	p := *post
	s.posts[post.ID.Hex()] = &p
	return nil
}

func (s *PostStore) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	post := *p
	return &post, nil
}

func (s *PostStore) GetPostsByAuthorIDs(_ context.Context, authorIDs []uint, skip, limit int64) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	authors := make(map[uint]bool, len(authorIDs))
	for _, id := range authorIDs {
		authors[id] = true
	}
	posts := []models.Post{}
	for _, p := range s.posts {
		if authors[p.AuthorID] {
			posts = append(posts, *p)
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID.Hex() > posts[j].ID.Hex()
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	if skip >= int64(len(posts)) {
		return []models.Post{}, nil
	}
	posts = posts[skip:]
	if limit > 0 && int64(len(posts)) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (s *PostStore) DeletePost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *PostStore) adjust(id string, likes, comments int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return repositories.ErrNotFound
	}
	p.LikesCount += likes
	p.CommentsCount += comments
	return nil
}

func (s *PostStore) IncrementLikesCount(_ context.Context, postID string) error {
	return s.adjust(postID, 1, 0)
}

func (s *PostStore) DecrementLikesCount(_ context.Context, postID string) error {
	return s.adjust(postID, -1, 0)
}

func (s *PostStore) IncrementCommentsCount(_ context.Context, postID string) error {
	return s.adjust(postID, 0, 1)
}

func (s *PostStore) DecrementCommentsCount(_ context.Context, postID string) error {
	return s.adjust(postID, 0, -1)
}

type likeKey struct {
	postID string
	userID uint
}

type LikeStore struct {
	mu    sync.RWMutex
	likes map[likeKey]models.Like
	next  uint
}

func NewLikeStore() *LikeStore {
	return &LikeStore{likes: make(map[likeKey]models.Like)}
}

func (s *LikeStore) CreateLike(_ context.Context, like *models.Like) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := likeKey{like.PostID, like.UserID}
	if _, ok := s.likes[k]; ok {
		return repositories.ErrDuplicate
	}
	s.next++
	like.ID = s.next
	like.CreatedAt = time.Now()
	s.likes[k] = *like
	return nil
}

func (s *LikeStore) DeleteLike(_ context.Context, postID string, userID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := likeKey{postID, userID}
	if _, ok := s.likes[k]; !ok {
		return false, nil
	}
	delete(s.likes, k)
	return true, nil
}

func (s *LikeStore) HasUserLikedPost(_ context.Context, postID string, userID uint) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.likes[likeKey{postID, userID}]
	return ok, nil
}

func (s *LikeStore) GetLikedPostIDs(_ context.Context, userID uint, postIDs []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]bool)
	for _, id := range postIDs {
		if _, ok := s.likes[likeKey{id, userID}]; ok {
			result[id] = true
		}
	}
	return result, nil
}

func (s *LikeStore) DeleteLikesByPostID(_ context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.likes {
		if k.postID == postID {
			delete(s.likes, k)
		}
	}
	return nil
}

type CommentStore struct {
	mu       sync.RWMutex
	comments map[uint]models.Comment
	next     uint
}

func NewCommentStore() *CommentStore {
	return &CommentStore{comments: make(map[uint]models.Comment)}
}

func (s *CommentStore) CreateComment(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	comment.ID = s.next
	comment.CreatedAt = time.Now()
	s.comments[comment.ID] = *comment
	return nil
}

func (s *CommentStore) GetCommentByID(_ context.Context, id uint) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (s *CommentStore) GetCommentsByPostID(_ context.Context, postID string) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comments := []models.Comment{}
	for _, c := range s.comments {
		if c.PostID == postID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })
	return comments, nil
}

func (s *CommentStore) DeleteComment(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

func (s *CommentStore) DeleteCommentsByPostID(_ context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.comments {
		if c.PostID == postID {
			delete(s.comments, id)
		}
	}
	return nil
}

type SavedPostStore struct {
	mu    sync.RWMutex
	saves []models.SavedPost
	next  uint
}

func NewSavedPostStore() *SavedPostStore {
	return &SavedPostStore{}
}

func (s *SavedPostStore) indexOf(userID uint, postID string) int {
	for i, sp := range s.saves {
		if sp.UserID == userID && sp.PostID == postID {
			return i
		}
	}
	return -1
}

func (s *SavedPostStore) SavePost(_ context.Context, savedPost *models.SavedPost) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(savedPost.UserID, savedPost.PostID) >= 0 {
		return false, nil
	}
	s.next++
	savedPost.ID = s.next
	if savedPost.CreatedAt.IsZero() {
		savedPost.CreatedAt = time.Now()
	}
	s.saves = append(s.saves, *savedPost)
	return true, nil
}

func (s *SavedPostStore) UnsavePost(_ context.Context, userID uint, postID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(userID, postID)
	if i < 0 {
		return false, nil
	}
	s.saves = append(s.saves[:i], s.saves[i+1:]...)
	return true, nil
}

func (s *SavedPostStore) GetSavedPostIDsByUser(_ context.Context, userID uint) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := []string{}
	for i := len(s.saves) - 1; i >= 0; i-- {
		if s.saves[i].UserID == userID {
			ids = append(ids, s.saves[i].PostID)
		}
	}
	return ids, nil
}

func (s *SavedPostStore) GetSavedPostIDs(_ context.Context, userID uint, postIDs []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]bool)
	for _, id := range postIDs {
		if s.indexOf(userID, id) >= 0 {
			result[id] = true
		}
	}
	return result, nil
}

func (s *SavedPostStore) DeleteSavesByPostID(_ context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.saves[:0]
	for _, sp := range s.saves {
		if sp.PostID != postID {
			kept = append(kept, sp)
		}
	}
	s.saves = kept
	return nil
}
