package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/anonto42/saylink/backend/internal/realtime"
	"github.com/anonto42/saylink/backend/internal/repositories"
)

// NotificationView is a notification with its sender's card attached
type NotificationView struct {
	models.Notification
	Sender *models.UserCompact `json:"sender,omitempty"`
}

// NotificationPage is one page of a recipient's notifications, newest first
type NotificationPage struct {
	Notifications []NotificationView `json:"notifications"`
	Total         int64              `json:"total"`
	Page          int                `json:"page"`
	HasMore       bool               `json:"has_more"`
}

// GroupedNotifications buckets notifications by age relative to now
type GroupedNotifications struct {
	Today     []NotificationView `json:"today"`
	Yesterday []NotificationView `json:"yesterday"`
	ThisWeek  []NotificationView `json:"this_week"`
	Older     []NotificationView `json:"older"`
}

// Ledger keeps at most one live notification per key and pushes every
// create and retraction to the recipient.
type Ledger struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	publisher     realtime.Publisher
	logger        *slog.Logger
	now           func() time.Time
}

func NewLedger(notifications repositories.NotificationRepository, users repositories.UserRepository, publisher realtime.Publisher, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		notifications: notifications,
		users:         users,
		publisher:     publisher,
		logger:        logger,
		now:           time.Now,
	}
}

// Notify replaces any live notification under key with a fresh unread one
// and pushes it. Replaced entries are announced as removed first. A key whose sender is its recipient is ignored.
func (l *Ledger) Notify(ctx context.Context, key models.NotificationKey, commentID *uint) (*models.Notification, error) {
	if key.SenderID == key.RecipientID {
		return nil, nil
	}
	removed, err := l.notifications.DeleteByKey(ctx, key)
	if err != nil {
		return nil, storeError(err, "notification not found")
	}
	l.announceRemoved(removed)
	n := &models.Notification{
		Type:        key.Type,
		SenderID:    key.SenderID,
		RecipientID: key.RecipientID,
		PostID:      key.PostID,
		CommentID:   commentID,
		CreatedAt:   l.now(),
	}
	if err := l.notifications.CreateNotification(ctx, n); err != nil {
		return nil, storeError(err, "notification not found")
	}

	view := NotificationView{Notification: *n}
	if sender, err := l.users.GetUserByID(ctx, n.SenderID); err == nil {
		card := sender.ToCompact()
		view.Sender = &card
	}
	l.publisher.PublishToUser(n.RecipientID, realtime.Event{Type: realtime.EventNewNotification, Payload: view})
	return n, nil
}

// Retract deletes the live notification under key. Nothing to delete is not an error.
func (l *Ledger) Retract(ctx context.Context, key models.NotificationKey) (bool, error) {
	if key.SenderID == key.RecipientID {
		return false, nil
	}
	removed, err := l.notifications.DeleteByKey(ctx, key)
	if err != nil {
		return false, storeError(err, "notification not found")
	}
	l.announceRemoved(removed)
	return len(removed) > 0, nil
}

// RetractComment removes the notification raised by a comment
func (l *Ledger) RetractComment(ctx context.Context, commentID uint) error {
	removed, err := l.notifications.DeleteByCommentID(ctx, commentID)
	if err != nil {
		return storeError(err, "notification not found")
	}
	l.announceRemoved(removed)
	return nil
}

// RetractPost removes every notification that references a post
func (l *Ledger) RetractPost(ctx context.Context, postID string) error {
	removed, err := l.notifications.DeleteByPostID(ctx, postID)
	if err != nil {
		return storeError(err, "notification not found")
	}
	l.announceRemoved(removed)
	return nil
}

func (l *Ledger) announceRemoved(removed []models.Notification) {
	for _, n := range removed {
		l.publisher.PublishToUser(n.RecipientID, realtime.Event{
			Type:    realtime.EventRemoveNotification,
			Payload: realtime.NotificationRemoved{NotificationID: n.ID},
		})
	}
}

func (l *Ledger) List(ctx context.Context, recipientID uint, page, limit int) (*NotificationPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	items, total, err := l.notifications.GetByRecipientID(ctx, recipientID, page, limit)
	if err != nil {
		return nil, storeError(err, "notifications not found")
	}
	views, err := l.hydrate(ctx, items)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{
		Notifications: views,
		Total:         total,
		Page:          page,
		HasMore:       int64(page*limit) < total,
	}, nil
}

func (l *Ledger) Grouped(ctx context.Context, recipientID uint) (*GroupedNotifications, error) {
	today, yesterday, week, older, err := l.notifications.GetGrouped(ctx, recipientID, l.now())
	if err != nil {
		return nil, storeError(err, "notifications not found")
	}
	var g GroupedNotifications
	for _, bucket := range []struct {
		in  []models.Notification
		out *[]NotificationView
	}{{today, &g.Today}, {yesterday, &g.Yesterday}, {week, &g.ThisWeek}, {older, &g.Older}} {
		if *bucket.out, err = l.hydrate(ctx, bucket.in); err != nil {
			return nil, err
		}
	}
	return &g, nil
}

func (l *Ledger) UnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	n, err := l.notifications.GetUnreadCount(ctx, recipientID)
	return n, storeError(err, "notifications not found")
}

func (l *Ledger) MarkRead(ctx context.Context, recipientID, notificationID uint) error {
	ok, err := l.notifications.MarkAsRead(ctx, recipientID, notificationID)
	if err != nil {
		return storeError(err, "notification not found")
	}
	if !ok {
		return newError(ErrNotFound, "notification not found")
	}
	return nil
}

func (l *Ledger) MarkAllRead(ctx context.Context, recipientID uint) (int64, error) {
	n, err := l.notifications.MarkAllAsRead(ctx, recipientID)
	return n, storeError(err, "notifications not found")
}

func (l *Ledger) hydrate(ctx context.Context, items []models.Notification) ([]NotificationView, error) {
	views := make([]NotificationView, 0, len(items))
	if len(items) == 0 {
		return views, nil
	}
	cards, err := userCards(ctx, l.users, senderIDs(items))
	if err != nil {
		return nil, err
	}
	for _, n := range items {
		v := NotificationView{Notification: n}
		if card, ok := cards[n.SenderID]; ok {
			v.Sender = &card
		}
		views = append(views, v)
	}
	return views, nil
}

func senderIDs(items []models.Notification) []uint {
	ids := make([]uint, 0, len(items))
	for _, n := range items {
		ids = append(ids, n.SenderID)
	}
	return ids
}

// userCards loads the compact cards of ids, skipping accounts that no longer exist
func userCards(ctx context.Context, users repositories.UserRepository, ids []uint) (map[uint]models.UserCompact, error) {
	cards := make(map[uint]models.UserCompact, len(ids))
	if len(ids) == 0 {
		return cards, nil
	}
	found, err := users.GetUsersByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	for i := range found {
		cards[found[i].ID] = found[i].ToCompact()
	}
	return cards, nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
