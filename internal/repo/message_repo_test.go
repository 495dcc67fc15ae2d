package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/cfci-lab/intake-backend/internal/domain"
)

func TestCreateMessage_PersistsSenderAndSequence(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{}, &domain.Message{})
	conv, err := CreateConversation(context.Background(), db, "u1", "t")
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	m, err := CreateMessage(db, conv.ID, domain.SenderAgent, "hello", 0)
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if m.ID == 0 || m.ConversationID != conv.ID || m.Sender != domain.SenderAgent || m.MessageNum != 0 {
		t.Fatalf("unexpected message fields: %+v", m)
	}

	var got domain.Message
	if err := db.First(&got, "id = ?", m.ID).Error; err != nil {
		t.Fatalf("round-trip: %v", err)
	}
	if got.Content != "hello" {
		t.Fatalf("content mismatch: %q", got.Content)
	}
}

func TestCreateMessage_DuplicateSequence_Rejected(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{}, &domain.Message{})
	conv, _ := CreateConversation(context.Background(), db, "u1", "t")

	if _, err := CreateMessage(db, conv.ID, domain.SenderUser, "a", 1); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := CreateMessage(db, conv.ID, domain.SenderAgent, "b", 1); err == nil {
		t.Fatalf("expected unique violation for duplicate (conversation, message_num)")
	}
	// The same sequence number in another conversation is fine.
	other, _ := CreateConversation(context.Background(), db, "u1", "t2")
	if _, err := CreateMessage(db, other.ID, domain.SenderUser, "c", 1); err != nil {
		t.Fatalf("same seq in other conversation: %v", err)
	}
}

func TestMaxMessageNum_EmptyAndPopulated(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{}, &domain.Message{})
	conv, _ := CreateConversation(context.Background(), db, "u1", "t")

	n, err := MaxMessageNum(db, conv.ID)
	if err != nil || n != -1 {
		t.Fatalf("MaxMessageNum empty = %d, %v; want -1", n, err)
	}

	for i := 0; i <= 4; i++ {
		sender := domain.SenderUser
		if i%2 == 0 {
			sender = domain.SenderAgent
		}
		if _, err := CreateMessage(db, conv.ID, sender, "m", i); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	n, err = MaxMessageNum(db, conv.ID)
	if err != nil || n != 4 {
		t.Fatalf("MaxMessageNum = %d, %v; want 4", n, err)
	}
}

func TestListMessages_OrderedBySequence(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{}, &domain.Message{})
	conv, _ := CreateConversation(context.Background(), db, "u1", "t")

	// Insert out of order on purpose.
	for _, i := range []int{2, 0, 1} {
		if _, err := CreateMessage(db, conv.ID, domain.SenderUser, "m", i); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	msgs, err := ListMessages(db, conv.ID, 10)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, m := range msgs {
		if m.MessageNum != i {
			t.Fatalf("message %d has message_num %d", i, m.MessageNum)
		}
	}
}

func TestListRecentMessages_WindowOldestFirst(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{}, &domain.Message{})
	conv, _ := CreateConversation(context.Background(), db, "u1", "t")

	for i := 0; i < 6; i++ {
		if _, err := CreateMessage(db, conv.ID, domain.SenderUser, "m", i); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	recent, err := ListRecentMessages(db, conv.ID, 4)
	if err != nil {
		t.Fatalf("ListRecentMessages: %v", err)
	}
	if len(recent) != 4 {
		t.Fatalf("expected window of 4, got %d", len(recent))
	}
	// Window keeps the newest 4 but returns them oldest-first.
	want := []int{2, 3, 4, 5}
	for i, m := range recent {
		if m.MessageNum != want[i] {
			t.Fatalf("recent[%d].MessageNum = %d, want %d", i, m.MessageNum, want[i])
		}
	}
}

func TestCountMessages_And_ListMessagesPage(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{}, &domain.Message{})
	conv, _ := CreateConversation(context.Background(), db, "u1", "t")

	for i := 0; i < 5; i++ {
		if _, err := CreateMessage(db, conv.ID, domain.SenderUser, "m", i); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	n, err := CountMessages(db, conv.ID)
	if err != nil || n != 5 {
		t.Fatalf("CountMessages = %d, %v; want 5", n, err)
	}

	page, err := ListMessagesPage(db, conv.ID, 2, 2)
	if err != nil || len(page) != 2 {
		t.Fatalf("ListMessagesPage = %d items, %v; want 2", len(page), err)
	}
	if page[0].MessageNum != 2 || page[1].MessageNum != 3 {
		t.Fatalf("unexpected page contents: %d, %d", page[0].MessageNum, page[1].MessageNum)
	}
}

func TestGetMessage_FoundAndMissing(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{}, &domain.Message{})
	conv, _ := CreateConversation(context.Background(), db, "u1", "t")
	m, _ := CreateMessage(db, conv.ID, domain.SenderAgent, "hi", 0)

	got, err := GetMessage(db, m.ID)
	if err != nil || got.ID != m.ID {
		t.Fatalf("GetMessage: %+v, %v", got, err)
	}
	if _, err := GetMessage(db, 4242); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing message, got %v", err)
	}
}
