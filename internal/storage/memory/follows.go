package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/anonto42/saylink/backend/internal/repositories"
)

type edge struct {
	from, to uint
}

// FollowStore keeps follow edges and pending follow requests under one lock,
// so accepting a request is atomic.
type FollowStore struct {
	mu       sync.RWMutex
	follows  map[edge]uint64
	requests map[edge]uint64
	seq      uint64
}

func NewFollowStore() *FollowStore {
	return &FollowStore{
		follows:  make(map[edge]uint64),
		requests: make(map[edge]uint64),
	}
}

func (s *FollowStore) CreateFollow(_ context.Context, followerID, followingID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := edge{followerID, followingID}
	if _, ok := s.follows[e]; ok {
		return repositories.ErrDuplicate
	}
	s.seq++
	s.follows[e] = s.seq
	delete(s.requests, e)
	return nil
}

func (s *FollowStore) DeleteFollow(_ context.Context, followerID, followingID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := edge{followerID, followingID}
	if _, ok := s.follows[e]; !ok {
		return false, nil
	}
	delete(s.follows, e)
	return true, nil
}

func (s *FollowStore) IsFollowing(_ context.Context, followerID, followingID uint) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.follows[edge{followerID, followingID}]
	return ok, nil
}

// collect returns the ids on one side of matching edges, oldest first
func collect(set map[edge]uint64, match func(edge) (uint, bool)) []uint {
	type entry struct {
		id  uint
		seq uint64
	}
	var entries []entry
	for e, seq := range set {
		if id, ok := match(e); ok {
			entries = append(entries, entry{id, seq})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	ids := make([]uint, 0, len(entries))
	for _, en := range entries {
		ids = append(ids, en.id)
	}
	return ids
}

func (s *FollowStore) GetFollowerIDs(_ context.Context, userID uint) ([]uint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.follows, func(e edge) (uint, bool) { return e.from, e.to == userID }), nil
}

func (s *FollowStore) GetFollowingIDs(_ context.Context, userID uint) ([]uint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.follows, func(e edge) (uint, bool) { return e.to, e.from == userID }), nil
}

func (s *FollowStore) GetFollowersCount(ctx context.Context, userID uint) (int64, error) {
	ids, err := s.GetFollowerIDs(ctx, userID)
	return int64(len(ids)), err
}

func (s *FollowStore) GetFollowingCount(ctx context.Context, userID uint) (int64, error) {
	ids, err := s.GetFollowingIDs(ctx, userID)
	return int64(len(ids)), err
}

func (s *FollowStore) CreateFollowRequest(_ context.Context, requesterID, ownerID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := edge{requesterID, ownerID}
	if _, ok := s.requests[e]; ok {
		return false, nil
	}
	s.seq++
	s.requests[e] = s.seq
	return true, nil
}

func (s *FollowStore) HasFollowRequest(_ context.Context, requesterID, ownerID uint) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.requests[edge{requesterID, ownerID}]
	return ok, nil
}

func (s *FollowStore) DeleteFollowRequest(_ context.Context, requesterID, ownerID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := edge{requesterID, ownerID}
	if _, ok := s.requests[e]; !ok {
		return false, nil
	}
	delete(s.requests, e)
	return true, nil
}

func (s *FollowStore) GetFollowRequesterIDs(_ context.Context, ownerID uint) ([]uint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := collect(s.requests, func(e edge) (uint, bool) { return e.from, e.to == ownerID })
	// newest first
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids, nil
}

func (s *FollowStore) AcceptFollowRequest(_ context.Context, requesterID, ownerID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := edge{requesterID, ownerID}
	if _, ok := s.requests[e]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.requests, e)
	if _, ok := s.follows[e]; !ok {
		s.seq++
		s.follows[e] = s.seq
	}
	return nil
}
