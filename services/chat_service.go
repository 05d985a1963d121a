package services

import (
	"log/slog"

	"github.com/samber/lo"

	"pairchat/contract"
	"pairchat/domain"
	"pairchat/errors"
	"pairchat/repositories"
	"pairchat/runtime"
)

type IChatService interface {
	// StartConversation resolves the one conversation between the caller
	// and the other user, creating it on first contact.
	StartConversation(callerID, otherUserID string) (ConversationSummary, error)
	ListConversations(callerID string) ([]ConversationSummary, error)
	// History returns the full message history, oldest first. The caller
	// must be a participant.
	History(callerID string, conversationID domain.ConversationID) ([]domain.Message, error)
}

// ConversationSummary is the list-view shape: the thread plus the profile
// of the other participant and whether they currently have a live session.
type ConversationSummary struct {
	ID          domain.ConversationID
	Other       Profile
	OtherOnline bool
	LastMessage *domain.Message
}

type ChatService struct {
	log           *slog.Logger
	resolver      *runtime.Resolver
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	users         repositories.IUserRepository
	registry      contract.IRegistry
}

func NewChatService(log *slog.Logger,
	resolver *runtime.Resolver,
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	users repositories.IUserRepository,
	registry contract.IRegistry) *ChatService {
	return &ChatService{
		log:           log,
		resolver:      resolver,
		conversations: conversations,
		messages:      messages,
		users:         users,
		registry:      registry,
	}
}

func (s *ChatService) StartConversation(callerID, otherUserID string) (ConversationSummary, error) {
	conv, err := s.resolver.Resolve(callerID, otherUserID)
	if err != nil {
		return ConversationSummary{}, err
	}
	return s.summarize(callerID, conv)
}

func (s *ChatService) ListConversations(callerID string) ([]ConversationSummary, error) {
	convs, err := s.conversations.ListFor(callerID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summary, err := s.summarize(callerID, conv)
		if err != nil {
			// A participant whose record vanished should not hide the
			// caller's other threads.
			s.log.Warn("skipping conversation with unreadable participant",
				"conversation_id", conv.ID, "error", err)
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *ChatService) History(callerID string, conversationID domain.ConversationID) ([]domain.Message, error) {
	conv, err := s.conversations.Get(conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.Contains(callerID) {
		// Same answer as a missing conversation so outsiders cannot probe.
		return nil, errors.ErrNotFound
	}
	return s.messages.List(conversationID)
}

func (s *ChatService) summarize(callerID string, conv domain.Conversation) (ConversationSummary, error) {
	other, err := s.users.GetByID(conv.Other(callerID))
	if err != nil {
		return ConversationSummary{}, err
	}

	history, err := s.messages.List(conv.ID)
	if err != nil {
		return ConversationSummary{}, err
	}
	last, _ := lo.Last(history)

	summary := ConversationSummary{
		ID:          conv.ID,
		Other:       toProfile(other),
		OtherOnline: len(s.registry.ConnectionsOf(other.ID)) > 0,
	}
	if len(history) > 0 {
		summary.LastMessage = &last
	}
	return summary, nil
}
