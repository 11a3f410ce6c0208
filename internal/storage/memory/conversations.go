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

// ConversationStore enforces pair key uniqueness the way the MongoDB unique index does.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
	byPairKey     map[string]string
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]*models.Conversation),
		byPairKey:     make(map[string]string),
	}
}

func copyConversation(c *models.Conversation) models.Conversation {
	conv := *c
	conv.Participants = append([]uint{}, c.Participants...)
	if c.RequestedBy != nil {
		by := *c.RequestedBy
		conv.RequestedBy = &by
	}
	return conv
}

func (s *ConversationStore) CreateConversation(_ context.Context, conversation *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byPairKey[conversation.PairKey]; ok {
		return repositories.ErrDuplicate
	}
	conversation.ID = primitive.NewObjectID()
	c := copyConversation(conversation)
	s.conversations[c.ID.Hex()] = &c
	s.byPairKey[c.PairKey] = c.ID.Hex()
	return nil
}

func (s *ConversationStore) GetConversationByID(_ context.Context, id string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	conv := copyConversation(c)
	return &conv, nil
}

func (s *ConversationStore) GetConversationByPairKey(ctx context.Context, pairKey string) (*models.Conversation, error) {
	s.mu.RLock()
	id, ok := s.byPairKey[pairKey]
	s.mu.RUnlock()
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return s.GetConversationByID(ctx, id)
}

func (s *ConversationStore) UpsertAcceptedConversation(_ context.Context, participants [2]uint, now time.Time) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pairKey := models.PairKey(participants[0], participants[1])
	c, ok := s.conversations[s.byPairKey[pairKey]]
	if !ok {
		c = &models.Conversation{
			ID:           primitive.NewObjectID(),
			Participants: []uint{participants[0], participants[1]},
			PairKey:      pairKey,
			CreatedAt:    now,
		}
		s.conversations[c.ID.Hex()] = c
		s.byPairKey[pairKey] = c.ID.Hex()
	}
	c.IsAccepted = true
	c.RequestedBy = nil
	c.UpdatedAt = now
	conv := copyConversation(c)
	return &conv, nil
}

func (s *ConversationStore) AcceptConversation(_ context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.IsAccepted = true
	c.RequestedBy = nil
	c.UpdatedAt = now
	return nil
}

func (s *ConversationStore) DeleteConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return repositories.ErrNotFound
	}
	delete(s.byPairKey, c.PairKey)
	delete(s.conversations, id)
	return nil
}

func (s *ConversationStore) UpdateLastMessage(_ context.Context, id, preview string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.LastMessage = preview
	c.UpdatedAt = now
	return nil
}

func (s *ConversationStore) filter(pred func(*models.Conversation) bool) []models.Conversation {
	out := []models.Conversation{}
	for _, c := range s.conversations {
		if pred(c) {
			out = append(out, copyConversation(c))
		}
	}
	return out
}

func (s *ConversationStore) GetAcceptedConversations(_ context.Context, userID uint) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.filter(func(c *models.Conversation) bool { return c.IsAccepted && c.HasParticipant(userID) })
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *ConversationStore) GetPendingRequests(_ context.Context, userID uint) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.filter(func(c *models.Conversation) bool {
		return !c.IsAccepted && c.HasParticipant(userID) && (c.RequestedBy == nil || *c.RequestedBy != userID)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Len reports how many conversations are stored
func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

type MessageStore struct {
	mu       sync.RWMutex
	messages []*models.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

func (s *MessageStore) CreateMessage(_ context.Context, message *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	message.ID = primitive.NewObjectID()
	if message.SeenBy == nil {
		message.SeenBy = []uint{}
	}
	m := *message
	m.SeenBy = append([]uint{}, message.SeenBy...)
	s.messages = append(s.messages, &m)
	return nil
}

func (s *MessageStore) GetMessagesByConversationID(_ context.Context, conversationID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Message{}
	for _, m := range s.messages {
		if m.ConversationID.Hex() == conversationID {
			msg := *m
			msg.SeenBy = append([]uint{}, m.SeenBy...)
			out = append(out, msg)
		}
	}
	return out, nil
}

func (s *MessageStore) MarkSeen(_ context.Context, conversationID string, userID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for _, m := range s.messages {
		if m.ConversationID.Hex() != conversationID || m.SenderID == userID {
			continue
		}
		seen := false
		for _, id := range m.SeenBy {
			if id == userID {
				seen = true
				break
			}
		}
		if !seen {
			m.SeenBy = append(m.SeenBy, userID)
			updated++
		}
	}
	return updated, nil
}
