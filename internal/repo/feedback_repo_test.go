package repo

import (
	"context"
	"testing"

	"github.com/cfci-lab/intake-backend/internal/domain"
)

func TestCreateFeedback_Success(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{}, &domain.Message{}, &domain.Feedback{})
	ctx := context.Background()

	conv, _ := CreateConversation(ctx, db, "u1", "t")
	m, _ := CreateMessage(db, conv.ID, domain.SenderAgent, "reply", 1)

	if err := CreateFeedback(ctx, db, m.ID, "u1", 1); err != nil {
		t.Fatalf("CreateFeedback: %v", err)
	}

	var fb domain.Feedback
	if err := db.First(&fb, "message_id = ? AND user_id = ?", m.ID, "u1").Error; err != nil {
		t.Fatalf("load feedback: %v", err)
	}
	if fb.Value != 1 {
		t.Fatalf("value mismatch: %d", fb.Value)
	}
}

func TestCreateFeedback_DuplicatePerUserAndMessage(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{}, &domain.Message{}, &domain.Feedback{})
	ctx := context.Background()

	conv, _ := CreateConversation(ctx, db, "u1", "t")
	m, _ := CreateMessage(db, conv.ID, domain.SenderAgent, "reply", 1)

	if err := CreateFeedback(ctx, db, m.ID, "u1", 1); err != nil {
		t.Fatalf("first feedback: %v", err)
	}
	if err := CreateFeedback(ctx, db, m.ID, "u1", -1); err == nil {
		t.Fatalf("expected unique violation for second feedback by same user")
	}
	// Another user can still rate the same message.
	if err := CreateFeedback(ctx, db, m.ID, "u2", -1); err != nil {
		t.Fatalf("other user's feedback: %v", err)
	}
}
