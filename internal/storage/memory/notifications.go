package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/saylink/backend/internal/models"
)

type NotificationStore struct {
	mu            sync.RWMutex
	notifications []models.Notification
	nextID        uint
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

func (s *NotificationStore) CreateNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	n.ID = s.nextID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	s.notifications = append(s.notifications, *n)
	return nil
}

// deleteWhere removes and returns every notification matching pred
func (s *NotificationStore) deleteWhere(pred func(*models.Notification) bool) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted []models.Notification
	kept := s.notifications[:0]
	for i := range s.notifications {
		if pred(&s.notifications[i]) {
			deleted = append(deleted, s.notifications[i])
			continue
		}
		kept = append(kept, s.notifications[i])
	}
	s.notifications = kept
	return deleted
}

func (s *NotificationStore) DeleteByKey(_ context.Context, key models.NotificationKey) ([]models.Notification, error) {
	return s.deleteWhere(func(n *models.Notification) bool { return n.Key() == key }), nil
}

func (s *NotificationStore) DeleteByCommentID(_ context.Context, commentID uint) ([]models.Notification, error) {
	return s.deleteWhere(func(n *models.Notification) bool {
		return n.Type == models.NotificationComment && n.CommentID != nil && *n.CommentID == commentID
	}), nil
}

func (s *NotificationStore) DeleteByPostID(_ context.Context, postID string) ([]models.Notification, error) {
	return s.deleteWhere(func(n *models.Notification) bool { return n.PostID == postID }), nil
}

// forRecipient returns the recipient's notifications, newest first
func (s *NotificationStore) forRecipient(recipientID uint) []models.Notification {
	var out []models.Notification
	for _, n := range s.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *NotificationStore) GetByRecipientID(_ context.Context, recipientID uint, page, limit int) ([]models.Notification, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.forRecipient(recipientID)
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []models.Notification{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *NotificationStore) GetGrouped(_ context.Context, recipientID uint, now time.Time) (today, yesterday, thisWeek, older []models.Notification, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterdayStart := todayStart.AddDate(0, 0, -1)
	weekStart := todayStart.AddDate(0, 0, -7)
	for _, n := range s.forRecipient(recipientID) {
		switch {
		case !n.CreatedAt.Before(todayStart):
			today = append(today, n)
		case !n.CreatedAt.Before(yesterdayStart):
			yesterday = append(yesterday, n)
		case !n.CreatedAt.Before(weekStart):
			thisWeek = append(thisWeek, n)
		case len(older) < 50:
			older = append(older, n)
		}
	}
	return today, yesterday, thisWeek, older, nil
}

func (s *NotificationStore) GetUnreadCount(_ context.Context, recipientID uint) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, n := range s.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *NotificationStore) MarkAsRead(_ context.Context, recipientID, notificationID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.ID == notificationID && n.RecipientID == recipientID {
			n.IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (s *NotificationStore) MarkAllAsRead(_ context.Context, recipientID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			updated++
		}
	}
	return updated, nil
}

// Count reports how many live notifications match key
func (s *NotificationStore) Count(key models.NotificationKey) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications {
		if n.Key() == key {
			count++
		}
	}
	return count
}
