package services

import (
	"context"
	"errors"
	"testing"

	"github.com/counseldesk/apiserver/internal/store"
)

func TestStartConversation(t *testing.T) {
	counselor := approvedCounselor(1)
	student := approvedStudent(2)
	service := NewMessagingService(newFakeConversationRepo(), newFakeUserRepo(counselor, student), disabledFeed())

	conversation, err := service.StartConversation(context.Background(), counselor, []int{student.ID}, "  Intake follow-up ")
	if err != nil {
		t.Fatalf("start conversation: %v", err)
	}
	if conversation.Topic != "Intake follow-up" {
		t.Fatalf("expected trimmed topic, got %q", conversation.Topic)
	}
	if len(conversation.MemberIDs) != 2 {
		t.Fatalf("expected creator plus member, got %v", conversation.MemberIDs)
	}
	if conversation.CreatedBy != counselor.ID {
		t.Fatalf("unexpected creator: %d", conversation.CreatedBy)
	}
}

func TestStartConversationDedupesMembers(t *testing.T) {
	counselor := approvedCounselor(1)
	student := approvedStudent(2)
	service := NewMessagingService(newFakeConversationRepo(), newFakeUserRepo(counselor, student), disabledFeed())

	conversation, err := service.StartConversation(context.Background(), counselor, []int{student.ID, student.ID, counselor.ID}, "")
	if err != nil {
		t.Fatalf("start conversation: %v", err)
	}
	if len(conversation.MemberIDs) != 2 {
		t.Fatalf("expected deduped member list, got %v", conversation.MemberIDs)
	}
}

func TestStartConversationValidation(t *testing.T) {
	counselor := approvedCounselor(1)
	service := NewMessagingService(newFakeConversationRepo(), newFakeUserRepo(counselor), disabledFeed())

	if _, err := service.StartConversation(context.Background(), counselor, nil, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty member list, got %v", err)
	}
	if _, err := service.StartConversation(context.Background(), counselor, []int{42}, ""); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown member, got %v", err)
	}
}

func TestSendMessage(t *testing.T) {
	counselor := approvedCounselor(1)
	student := approvedStudent(2)
	outsider := approvedStudent(3)
	service := NewMessagingService(newFakeConversationRepo(), newFakeUserRepo(counselor, student, outsider), disabledFeed())

	conversation, err := service.StartConversation(context.Background(), counselor, []int{student.ID}, "")
	if err != nil {
		t.Fatalf("start conversation: %v", err)
	}

	message, err := service.SendMessage(context.Background(), conversation.ID, student, "Hi, about tomorrow.")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if message.SenderID != student.ID || message.ConversationID != conversation.ID {
		t.Fatalf("unexpected message: %+v", message)
	}

	// Non-members may neither write nor read.
	if _, err := service.SendMessage(context.Background(), conversation.ID, outsider, "Let me in"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for non-member send, got %v", err)
	}
	if _, err := service.ListMessages(context.Background(), conversation.ID, outsider); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for non-member read, got %v", err)
	}

	messages, err := service.ListMessages(context.Background(), conversation.ID, counselor)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 1 || messages[0].Content != "Hi, about tomorrow." {
		t.Fatalf("unexpected thread: %+v", messages)
	}
}

func TestSendMessageValidation(t *testing.T) {
	counselor := approvedCounselor(1)
	student := approvedStudent(2)
	service := NewMessagingService(newFakeConversationRepo(), newFakeUserRepo(counselor, student), disabledFeed())

	conversation, err := service.StartConversation(context.Background(), counselor, []int{student.ID}, "")
	if err != nil {
		t.Fatalf("start conversation: %v", err)
	}

	if _, err := service.SendMessage(context.Background(), conversation.ID, counselor, "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank content, got %v", err)
	}
	if _, err := service.SendMessage(context.Background(), 99, counselor, "Hello?"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing conversation, got %v", err)
	}
}

func TestListConversations(t *testing.T) {
	counselor := approvedCounselor(1)
	student := approvedStudent(2)
	other := approvedStudent(3)
	service := NewMessagingService(newFakeConversationRepo(), newFakeUserRepo(counselor, student, other), disabledFeed())

	if _, err := service.StartConversation(context.Background(), counselor, []int{student.ID}, ""); err != nil {
		t.Fatalf("start conversation: %v", err)
	}
	if _, err := service.StartConversation(context.Background(), counselor, []int{other.ID}, ""); err != nil {
		t.Fatalf("start conversation: %v", err)
	}

	mine, err := service.ListConversations(context.Background(), student)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("expected 1 conversation for the student, got %d", len(mine))
	}

	all, err := service.ListConversations(context.Background(), counselor)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 conversations for the counselor, got %d", len(all))
	}
}
