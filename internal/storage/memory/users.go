// Package memory holds mutex-guarded in-memory implementations of the
// repository interfaces. They back the "memory" store mode and the tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/anonto42/saylink/backend/internal/repositories"
)

type UserStore struct {
	mu     sync.RWMutex
	users  map[uint]*models.User
	nextID uint
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[uint]*models.User)}
}

func (s *UserStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflicts(user) {
		return repositories.ErrDuplicate
	}
	if user.ID == 0 {
		s.nextID++
		user.ID = s.nextID
	} else if user.ID > s.nextID {
		s.nextID = user.ID
	}
	if _, ok := s.users[user.ID]; ok {
		return repositories.ErrDuplicate
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	u := *user
	s.users[user.ID] = &u
	return nil
}

// conflicts reports whether another account already holds user's unique fields
func (s *UserStore) conflicts(user *models.User) bool {
	for _, u := range s.users {
		if u.ID == user.ID {
			continue
		}
		if user.Username != "" && strings.EqualFold(u.Username, user.Username) {
			return true
		}
		if user.Email != "" && u.Email == user.Email {
			return true
		}
	}
	return false
}

func (s *UserStore) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	user := *u
	return &user, nil
}

func (s *UserStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			user := *u
			return &user, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *UserStore) GetUserByFirebaseUID(_ context.Context, firebaseUID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.FirebaseUID != nil && *u.FirebaseUID == firebaseUID {
			user := *u
			return &user, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *UserStore) GetUsersByIDs(_ context.Context, ids []uint) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := []models.User{}
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (s *UserStore) GetPublicUserIDs(_ context.Context) ([]uint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := []uint{}
	for id, u := range s.users {
		if !u.IsPrivate {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *UserStore) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	if s.conflicts(user) {
		return repositories.ErrDuplicate
	}
	user.UpdatedAt = time.Now()
	u := *user
	s.users[user.ID] = &u
	return nil
}

func (s *UserStore) SearchUsers(_ context.Context, query string, limit int) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(query)
	users := []models.User{}
	for _, u := range s.users {
		if strings.Contains(strings.ToLower(u.Username), q) {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}
