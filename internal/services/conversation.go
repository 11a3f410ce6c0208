package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/anonto42/saylink/backend/internal/models"
	"github.com/anonto42/saylink/backend/internal/realtime"
	"github.com/anonto42/saylink/backend/internal/repositories"
)

const (
	previewSharedPost = "Shared a post"
	previewStoryReply = "Replied to your story"
	recentShareLimit  = 10
)

// ConversationView is a conversation with both participants' cards
type ConversationView struct {
	models.Conversation
	Users []models.UserCompact `json:"users"`
}

// MessageView is a message with its sender's card
type MessageView struct {
	models.Message
	Sender *models.UserCompact `json:"sender,omitempty"`
}

// ConversationService gates direct messages behind the consent state machine:
// no conversation, pending request, accepted. A pending request ends either
// accepted or deleted.
type ConversationService struct {
	users         repositories.UserRepository
	graph         *GraphService
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	posts         repositories.PostRepository
	stories       repositories.StoryRepository
	publisher     realtime.Publisher
	logger        *slog.Logger
	now           func() time.Time
}

func NewConversationService(
	users repositories.UserRepository,
	graph *GraphService,
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	posts repositories.PostRepository,
	stories repositories.StoryRepository,
	publisher realtime.Publisher,
	logger *slog.Logger,
) *ConversationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationService{
		users:         users,
		graph:         graph,
		conversations: conversations,
		messages:      messages,
		posts:         posts,
		stories:       stories,
		publisher:     publisher,
		logger:        logger,
		now:           time.Now,
	}
}

// StartConversation returns the pair's conversation, creating it on first
// contact. Friends get an accepted conversation; anyone else opens a request.
// isRequest reports whether the returned conversation still awaits consent.
func (s *ConversationService) StartConversation(ctx context.Context, actorID, targetID uint) (*models.Conversation, bool, error) {
	if actorID == targetID {
		return nil, false, newError(ErrSelfReference, "you cannot message yourself")
	}
	target, err := s.users.GetUserByID(ctx, targetID)
	if err != nil {
		return nil, false, storeError(err, "user not found")
	}
	if target.IsPrivate {
		follower, err := s.graph.IsFollower(ctx, actorID, targetID)
		if err != nil {
			return nil, false, err
		}
		if !follower {
			return nil, false, newError(ErrPrivacy, "this account is private")
		}
	}

	pairKey := models.PairKey(actorID, targetID)
	existing, err := s.conversations.GetConversationByPairKey(ctx, pairKey)
	if err == nil {
		return existing, !existing.IsAccepted, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, false, storeError(err, "conversation not found")
	}

	friend, err := s.graph.IsFriend(ctx, actorID, targetID)
	if err != nil {
		return nil, false, err
	}
	now := s.now()
	conv := &models.Conversation{
		Participants: []uint{actorID, targetID},
		PairKey:      pairKey,
		IsAccepted:   friend,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !friend {
		requester := actorID
		conv.RequestedBy = &requester
	}

	if err := s.conversations.CreateConversation(ctx, conv); err != nil {
		if !errors.Is(err, repositories.ErrDuplicate) {
			return nil, false, storeError(err, "conversation not found")
		}
		// lost the race to the other participant; their row wins
		winner, err := s.conversations.GetConversationByPairKey(ctx, pairKey)
		if err != nil {
			return nil, false, storeError(err, "conversation not found")
		}
		s.logger.Debug("conversation start raced", "pair_key", pairKey)
		return winner, !winner.IsAccepted, nil
	}
	return conv, !friend, nil
}

// participantOf loads a conversation userID takes part in
func (s *ConversationService) participantOf(ctx context.Context, userID uint, conversationID string) (*models.Conversation, error) {
	conv, err := s.conversations.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, storeError(err, "conversation not found")
	}
	if !conv.HasParticipant(userID) {
		return nil, newError(ErrAuthorization, "not authorized")
	}
	return conv, nil
}

// accepted is participantOf plus the consent gate
func (s *ConversationService) accepted(ctx context.Context, userID uint, conversationID string) (*models.Conversation, error) {
	conv, err := s.participantOf(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsAccepted {
		return nil, newError(ErrConsent, "conversation not accepted yet")
	}
	return conv, nil
}

func (s *ConversationService) AcceptRequest(ctx context.Context, userID uint, conversationID string) (*models.Conversation, error) {
	conv, err := s.participantOf(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.conversations.AcceptConversation(ctx, conversationID, now); err != nil {
		return nil, storeError(err, "conversation not found")
	}
	conv.IsAccepted = true
	conv.RequestedBy = nil
	conv.UpdatedAt = now
	return conv, nil
}

// RejectRequest deletes a pending conversation. An accepted conversation
// cannot be rejected.
func (s *ConversationService) RejectRequest(ctx context.Context, userID uint, conversationID string) error {
	conv, err := s.participantOf(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	if conv.IsAccepted {
		return newError(ErrConflict, "conversation already accepted")
	}
	if err := s.conversations.DeleteConversation(ctx, conversationID); err != nil {
		return storeError(err, "conversation not found")
	}
	return nil
}

func (s *ConversationService) SendMessage(ctx context.Context, userID uint, conversationID, text string) (*MessageView, error) {
	if strings.TrimSpace(text) == "" {
		return nil, newError(ErrValidation, "message cannot be empty")
	}
	conv, err := s.accepted(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       userID,
		Type:           models.MessageText,
		Text:           text,
		SeenBy:         []uint{},
		CreatedAt:      s.now(),
	}
	view, err := s.deliver(ctx, msg, text)
	if err != nil {
		return nil, err
	}
	s.publisher.PublishToConversation(conversationID, realtime.Event{Type: realtime.EventNewMessage, Payload: view})
	return view, nil
}

func (s *ConversationService) GetMessages(ctx context.Context, userID uint, conversationID string) ([]MessageView, error) {
	if _, err := s.accepted(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.GetMessagesByConversationID(ctx, conversationID)
	if err != nil {
		return nil, storeError(err, "conversation not found")
	}
	ids := make([]uint, 0, 2)
	for _, m := range msgs {
		ids = append(ids, m.SenderID)
	}
	cards, err := userCards(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}
	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		v := MessageView{Message: m}
		if card, ok := cards[m.SenderID]; ok {
			v.Sender = &card
		}
		views = append(views, v)
	}
	return views, nil
}

// MarkSeen records that userID has seen every message the other side sent
func (s *ConversationService) MarkSeen(ctx context.Context, userID uint, conversationID string) (int64, error) {
	if _, err := s.accepted(ctx, userID, conversationID); err != nil {
		return 0, err
	}
	n, err := s.messages.MarkSeen(ctx, conversationID, userID)
	if err != nil {
		return 0, storeError(err, "conversation not found")
	}
	if n > 0 {
		s.publisher.PublishToConversation(conversationID, realtime.Event{
			Type:    realtime.EventMessagesSeenAck,
			Payload: realtime.MessagesSeen{ConversationID: conversationID, UserID: userID},
		})
	}
	return n, nil
}

// SharePost sends postID to receiverID. Sharing opens or accepts the pair's
// conversation without a request step.
func (s *ConversationService) SharePost(ctx context.Context, actorID, receiverID uint, postID string) (*MessageView, error) {
	if actorID == receiverID {
		return nil, newError(ErrSelfReference, "you cannot share a post with yourself")
	}
	if _, err := s.users.GetUserByID(ctx, receiverID); err != nil {
		return nil, storeError(err, "user not found")
	}
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, storeError(err, "post not found")
	}
	conv, err := s.conversations.UpsertAcceptedConversation(ctx, [2]uint{actorID, receiverID}, s.now())
	if err != nil {
		return nil, storeError(err, "conversation not found")
	}
	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       actorID,
		Type:           models.MessagePost,
		PostID:         postID,
		SeenBy:         []uint{},
		CreatedAt:      s.now(),
	}
	view, err := s.deliver(ctx, msg, previewSharedPost)
	if err != nil {
		return nil, err
	}
	s.publisher.PublishToUser(receiverID, realtime.Event{Type: realtime.EventNewMessage, Payload: view})
	return view, nil
}

// ReplyToStory answers a live story in a direct message to its owner.
// Like SharePost it bypasses the request step.
func (s *ConversationService) ReplyToStory(ctx context.Context, actorID uint, storyID, text string) (*MessageView, error) {
	if strings.TrimSpace(text) == "" {
		return nil, newError(ErrValidation, "reply cannot be empty")
	}
	story, err := s.stories.GetStoryByID(ctx, storyID)
	if err != nil {
		return nil, storeError(err, "story not found")
	}
	if !story.ExpiresAt.After(s.now()) {
		return nil, newError(ErrNotFound, "story not found")
	}
	if story.UserID == actorID {
		return nil, newError(ErrSelfReference, "cannot reply to your own story")
	}
	conv, err := s.conversations.UpsertAcceptedConversation(ctx, [2]uint{actorID, story.UserID}, s.now())
	if err != nil {
		return nil, storeError(err, "conversation not found")
	}
	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       actorID,
		Type:           models.MessageStoryReply,
		Text:           text,
		StoryID:        storyID,
		SeenBy:         []uint{},
		CreatedAt:      s.now(),
	}
	view, err := s.deliver(ctx, msg, previewStoryReply)
	if err != nil {
		return nil, err
	}
	s.publisher.PublishToUser(story.UserID, realtime.Event{Type: realtime.EventNewMessage, Payload: view})
	return view, nil
}

// deliver stores msg and moves the conversation's preview to it
func (s *ConversationService) deliver(ctx context.Context, msg *models.Message, preview string) (*MessageView, error) {
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, storeError(err, "conversation not found")
	}
	convID := msg.ConversationID.Hex()
	if err := s.conversations.UpdateLastMessage(ctx, convID, preview, msg.CreatedAt); err != nil {
		s.logger.Warn("failed to update last message", "conversation_id", convID, "error", err)
	}
	view := &MessageView{Message: *msg}
	if sender, err := s.users.GetUserByID(ctx, msg.SenderID); err == nil {
		card := sender.ToCompact()
		view.Sender = &card
	}
	return view, nil
}

// ListConversations returns userID's accepted conversations, most recent first
func (s *ConversationService) ListConversations(ctx context.Context, userID uint) ([]ConversationView, error) {
	convs, err := s.conversations.GetAcceptedConversations(ctx, userID)
	if err != nil {
		return nil, storeError(err, "conversation not found")
	}
	return s.views(ctx, convs)
}

// ListRequests returns pending conversations other users opened with userID
func (s *ConversationService) ListRequests(ctx context.Context, userID uint) ([]ConversationView, error) {
	convs, err := s.conversations.GetPendingRequests(ctx, userID)
	if err != nil {
		return nil, storeError(err, "conversation not found")
	}
	return s.views(ctx, convs)
}

// ShareCandidates lists userID's recent conversation partners, then the
// accounts userID follows, without repeats
func (s *ConversationService) ShareCandidates(ctx context.Context, userID uint) ([]models.UserCompact, error) {
	convs, err := s.conversations.GetAcceptedConversations(ctx, userID)
	if err != nil {
		return nil, storeError(err, "conversation not found")
	}
	if len(convs) > recentShareLimit {
		convs = convs[:recentShareLimit]
	}
	ids := make([]uint, 0, len(convs))
	for i := range convs {
		ids = append(ids, convs[i].Other(userID))
	}
	following, err := s.graph.follows.GetFollowingIDs(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	return s.graph.cardsInOrder(ctx, dedupe(append(ids, following...)))
}

// CanJoin reports whether userID may join the live room of a conversation
func (s *ConversationService) CanJoin(ctx context.Context, userID uint, conversationID string) bool {
	_, err := s.participantOf(ctx, userID, conversationID)
	if err != nil && errors.Is(err, ErrOperational) {
		s.logger.Warn("failed to authorize room join", "user_id", userID, "conversation_id", conversationID, "error", err)
	}
	return err == nil
}

func (s *ConversationService) views(ctx context.Context, convs []models.Conversation) ([]ConversationView, error) {
	ids := make([]uint, 0, len(convs)*2)
	for i := range convs {
		ids = append(ids, convs[i].Participants...)
	}
	cards, err := userCards(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}
	views := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		v := ConversationView{Conversation: c, Users: make([]models.UserCompact, 0, 2)}
		for _, id := range c.Participants {
			if card, ok := cards[id]; ok {
				v.Users = append(v.Users, card)
			}
		}
		views = append(views, v)
	}
	return views, nil
}
