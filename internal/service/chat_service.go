package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"queueaway/internal/domain"
	"queueaway/internal/events"
	"queueaway/internal/metrics"
	"queueaway/internal/models"
	"queueaway/internal/realtime"

	"github.com/rs/zerolog"
)

// RateLimiter counts actions per key inside a fixed window.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type SendMessageInput struct {
	SenderID   string `json:"-"`
	SenderName string `json:"-"`
	ReceiverID string `json:"receiverId"`
	Body       string `json:"message"`
	Type       string `json:"type"`
}

type ChatService struct {
	repo     domain.ChatRepository
	limiter  RateLimiter
	hub      *realtime.Hub
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

// NewChatService accepts a nil limiter, which disables send rate limiting.
func NewChatService(repo domain.ChatRepository, limiter RateLimiter, hub *realtime.Hub, eventBus domain.EventPublisher, logger *zerolog.Logger) *ChatService {
	return &ChatService{repo: repo, limiter: limiter, hub: hub, eventBus: eventBus, logger: logger}
}

// ChatID is the id shared by both directions of a conversation.
func ChatID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, models.ChatIDSeparator)
}

// SendMessage stores the message and then updates the chat summary. The message is kept
// even if the summary update fails.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	if in.SenderID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if in.ReceiverID == "" || in.ReceiverID == in.SenderID {
		return nil, fmt.Errorf("receiver %q: %w", in.ReceiverID, domain.ErrInvalidInput)
	}
	if strings.TrimSpace(in.Body) == "" {
		return nil, fmt.Errorf("empty message: %w", domain.ErrInvalidInput)
	}
	if in.Type == "" {
		in.Type = models.MessageText
	}
	if !models.IsValidMessageType(in.Type) {
		return nil, fmt.Errorf("message type %q: %w", in.Type, domain.ErrInvalidInput)
	}
	if err := s.checkRate(ctx, in.SenderID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		SenderID:   in.SenderID,
		SenderName: in.SenderName,
		ReceiverID: in.ReceiverID,
		Body:       strings.TrimSpace(in.Body),
		Type:       in.Type,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	chatID := ChatID(msg.SenderID, msg.ReceiverID)
	if err := s.repo.UpsertChat(ctx, chatID, msg); err != nil {
		return nil, err
	}

	metrics.IncMessageSent()
	if s.eventBus != nil {
		payload := events.MessageEventPayload{
			ChatID:     chatID,
			MessageID:  msg.ID,
			SenderID:   msg.SenderID,
			ReceiverID: msg.ReceiverID,
		}
		if err := s.eventBus.PublishJSON(events.EventMessageSent, payload); err != nil {
			s.logger.Error().Err(err).Str("chat_id", chatID).Msg("publish event error")
		}
	}
	return msg, nil
}

func (s *ChatService) Conversation(ctx context.Context, a, b string) ([]*models.Message, error) {
	return s.repo.ListConversation(ctx, a, b)
}

func (s *ChatService) Chats(ctx context.Context, uid string) ([]models.ChatSummary, error) {
	chats, err := s.repo.ListUserChats(ctx, uid)
	if err != nil {
		return nil, err
	}
	return summaries(chats, uid), nil
}

// SubscribeMessages streams the conversation between a and b, oldest first.
func (s *ChatService) SubscribeMessages(ctx context.Context, a, b string, onSnapshot func([]*models.Message), onError func(error)) *realtime.Subscription {
	return realtime.Watch(ctx, s.hub, events.CollectionMessages, func(ctx context.Context) ([]*models.Message, error) {
		return s.repo.ListConversation(ctx, a, b)
	}, onSnapshot, onError)
}

// SubscribeUserChats streams uid's chat summaries, most recent first.
func (s *ChatService) SubscribeUserChats(ctx context.Context, uid string, onSnapshot func([]models.ChatSummary), onError func(error)) *realtime.Subscription {
	return realtime.Watch(ctx, s.hub, events.CollectionChats, func(ctx context.Context) ([]models.ChatSummary, error) {
		chats, err := s.repo.ListUserChats(ctx, uid)
		if err != nil {
			return nil, err
		}
		return summaries(chats, uid), nil
	}, onSnapshot, onError)
}

// MarkRead clears uid's unread counter for the chat with other. Failures are only logged.
func (s *ChatService) MarkRead(ctx context.Context, uid, other string) {
	chatID := ChatID(uid, other)
	err := s.repo.MarkChatRead(ctx, chatID, uid)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		s.logger.Debug().Str("chat_id", chatID).Msg("mark read on missing chat")
	default:
		s.logger.Error().Err(err).Str("chat_id", chatID).Msg("mark chat read")
	}
}

func (s *ChatService) checkRate(ctx context.Context, uid string) error {
	if s.limiter == nil {
		return nil
	}
	allowed, err := s.limiter.CheckRateLimit(ctx, "chat:"+uid, models.RateLimitMessages, models.RateLimitWindow*time.Second)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", uid).Msg("rate limit check failed, allowing message")
		return nil
	}
	if !allowed {
		return domain.ErrRateLimited
	}
	return nil
}

func summaries(chats []*models.Chat, uid string) []models.ChatSummary {
	out := make([]models.ChatSummary, 0, len(chats))
	for _, c := range chats {
		out = append(out, c.SummaryFor(uid))
	}
	return out
}
