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

type StoryStore struct {
	mu      sync.RWMutex
	stories map[string]*models.Story
}

func NewStoryStore() *StoryStore {
	return &StoryStore{stories: make(map[string]*models.Story)}
}

func copyStory(s *models.Story) models.Story {
	story := *s
	story.Viewers = append([]uint{}, s.Viewers...)
	return story
}

func (s *StoryStore) CreateStory(_ context.Context, story *models.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	story.ID = primitive.NewObjectID()
	if story.Viewers == nil {
		story.Viewers = []uint{}
	}
	st := copyStory(story)
	s.stories[story.ID.Hex()] = &st
	return nil
}

func (s *StoryStore) GetStoryByID(_ context.Context, id string) (*models.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stories[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	story := copyStory(st)
	return &story, nil
}

func (s *StoryStore) GetActiveStoriesByUserIDs(_ context.Context, userIDs []uint, now time.Time) ([]models.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owners := make(map[uint]bool, len(userIDs))
	for _, id := range userIDs {
		owners[id] = true
	}
	stories := []models.Story{}
	for _, st := range s.stories {
		if owners[st.UserID] && st.ExpiresAt.After(now) {
			stories = append(stories, copyStory(st))
		}
	}
	sort.Slice(stories, func(i, j int) bool {
		if stories[i].CreatedAt.Equal(stories[j].CreatedAt) {
			return stories[i].ID.Hex() < stories[j].ID.Hex()
		}
		return stories[i].CreatedAt.Before(stories[j].CreatedAt)
	})
	return stories, nil
}

func (s *StoryStore) AddViewer(_ context.Context, storyID string, viewerID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stories[storyID]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if st.ViewedBy(viewerID) {
		return false, nil
	}
	st.Viewers = append(st.Viewers, viewerID)
	return true, nil
}

func (s *StoryStore) DeleteStory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stories[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.stories, id)
	return nil
}
