package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/counseldesk/apiserver/internal/events"
	"github.com/counseldesk/apiserver/types"
)

// ConversationRepository defines persistence operations for conversations.
type ConversationRepository interface {
	CreateConversation(ctx context.Context, conversation types.Conversation) (types.Conversation, error)
	GetConversation(ctx context.Context, id int) (types.Conversation, error)
	ListForUser(ctx context.Context, userID int) ([]types.Conversation, error)
	IsMember(ctx context.Context, conversationID, userID int) (bool, error)
	CreateMessage(ctx context.Context, message types.Message) (types.Message, error)
	ListMessages(ctx context.Context, conversationID int) ([]types.Message, error)
}

// MessagingUserLookup resolves conversation members to user records.
type MessagingUserLookup interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// MessagingService handles conversations and messages between users.
type MessagingService struct {
	repo  ConversationRepository
	users MessagingUserLookup
	feed  *events.Feed
}

func NewMessagingService(repo ConversationRepository, users MessagingUserLookup, feed *events.Feed) *MessagingService {
	return &MessagingService{repo: repo, users: users, feed: feed}
}

// StartConversation opens a thread between the creator and the given members.
func (s *MessagingService) StartConversation(ctx context.Context, creator types.User, memberIDs []int, topic string) (types.Conversation, error) {
	if len(memberIDs) == 0 {
		return types.Conversation{}, fmt.Errorf("%w: at least one member is required", ErrInvalidInput)
	}

	members := make([]int, 0, len(memberIDs)+1)
	seen := map[int]bool{creator.ID: true}
	members = append(members, creator.ID)
	for _, memberID := range memberIDs {
		if seen[memberID] {
			continue
		}
		if _, err := s.users.GetByID(ctx, memberID); err != nil {
			return types.Conversation{}, err
		}
		seen[memberID] = true
		members = append(members, memberID)
	}

	conversation, err := s.repo.CreateConversation(ctx, types.Conversation{
		CreatedBy: creator.ID,
		Topic:     strings.TrimSpace(topic),
		MemberIDs: members,
	})
	if err != nil {
		return types.Conversation{}, err
	}

	if err := s.feed.PublishChange(ctx, events.Change{
		Entity: events.ChannelMessages,
		Action: events.ActionCreated,
		ID:     conversation.ID,
	}); err != nil {
		log.Printf("change event for conversation %d failed: %v", conversation.ID, err)
	}
	return conversation, nil
}

// SendMessage appends a message; the sender must be a member.
func (s *MessagingService) SendMessage(ctx context.Context, conversationID int, sender types.User, content string) (types.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return types.Message{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}

	if _, err := s.repo.GetConversation(ctx, conversationID); err != nil {
		return types.Message{}, err
	}
	isMember, err := s.repo.IsMember(ctx, conversationID, sender.ID)
	if err != nil {
		return types.Message{}, err
	}
	if !isMember {
		return types.Message{}, ErrNotAuthorized
	}

	message, err := s.repo.CreateMessage(ctx, types.Message{
		ConversationID: conversationID,
		SenderID:       sender.ID,
		Content:        content,
	})
	if err != nil {
		return types.Message{}, err
	}

	if err := s.feed.PublishChange(ctx, events.Change{
		Entity: events.ChannelMessages,
		Action: events.ActionCreated,
		ID:     message.ID,
	}); err != nil {
		log.Printf("change event for message %d failed: %v", message.ID, err)
	}
	return message, nil
}

// ListMessages returns the thread; the requester must be a member.
func (s *MessagingService) ListMessages(ctx context.Context, conversationID int, requester types.User) ([]types.Message, error) {
	if _, err := s.repo.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	isMember, err := s.repo.IsMember(ctx, conversationID, requester.ID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotAuthorized
	}
	return s.repo.ListMessages(ctx, conversationID)
}

// ListConversations returns the threads the user belongs to.
func (s *MessagingService) ListConversations(ctx context.Context, user types.User) ([]types.Conversation, error) {
	return s.repo.ListForUser(ctx, user.ID)
}
