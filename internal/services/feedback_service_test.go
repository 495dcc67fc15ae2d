package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/cfci-lab/intake-backend/internal/domain"
	"github.com/cfci-lab/intake-backend/internal/repo"
)

// seedAgentMessage creates a conversation for owner with one agent message
// and returns the message id.
func seedAgentMessage(t *testing.T, db *gorm.DB, owner string) uint {
	t.Helper()
	c, err := repo.CreateConversation(context.Background(), db, owner, "seed")
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	m, err := repo.CreateMessage(db, c.ID, domain.SenderAgent, "hello!", 0)
	if err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return m.ID
}

func TestFeedbackLeave_PersistsValue(t *testing.T) {
	db := newServiceDB(t)
	svc := &FeedbackService{DB: db}
	msgID := seedAgentMessage(t, db, "u1")

	if err := svc.Leave(context.Background(), "u1", msgID, 1); err != nil {
		t.Fatalf("Leave: %v", err)
	}

	var fb domain.Feedback
	if err := db.Where("message_id = ? AND user_id = ?", msgID, "u1").First(&fb).Error; err != nil {
		t.Fatalf("feedback not persisted: %v", err)
	}
	if fb.Value != 1 {
		t.Fatalf("value = %d, want 1", fb.Value)
	}
}

func TestFeedbackLeave_RejectsOutOfRangeValues(t *testing.T) {
	db := newServiceDB(t)
	svc := &FeedbackService{DB: db}
	msgID := seedAgentMessage(t, db, "u1")

	for _, v := range []int{0, 2, -2, 5} {
		if err := svc.Leave(context.Background(), "u1", msgID, v); !errors.Is(err, ErrInvalidFeedback) {
			t.Fatalf("value %d: expected ErrInvalidFeedback, got %v", v, err)
		}
	}

	var n int64
	db.Model(&domain.Feedback{}).Count(&n)
	if n != 0 {
		t.Fatalf("invalid values must not persist, found %d rows", n)
	}
}

func TestFeedbackLeave_MissingMessage(t *testing.T) {
	db := newServiceDB(t)
	svc := &FeedbackService{DB: db}

	if err := svc.Leave(context.Background(), "u1", 999, 1); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestFeedbackLeave_ForeignConversationForbidden(t *testing.T) {
	db := newServiceDB(t)
	svc := &FeedbackService{DB: db}
	msgID := seedAgentMessage(t, db, "owner")

	if err := svc.Leave(context.Background(), "intruder", msgID, 1); !errors.Is(err, ErrForbiddenFeedback) {
		t.Fatalf("expected ErrForbiddenFeedback, got %v", err)
	}
}

func TestFeedbackLeave_UserTurnForbidden(t *testing.T) {
	db := newServiceDB(t)
	svc := &FeedbackService{DB: db}

	c, err := repo.CreateConversation(context.Background(), db, "u1", "seed")
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	m, err := repo.CreateMessage(db, c.ID, domain.SenderUser, "my own words", 0)
	if err != nil {
		t.Fatalf("seed message: %v", err)
	}

	if err := svc.Leave(context.Background(), "u1", m.ID, -1); !errors.Is(err, ErrForbiddenFeedback) {
		t.Fatalf("expected ErrForbiddenFeedback for user turn, got %v", err)
	}
}

func TestFeedbackLeave_DuplicatePerUserMessage(t *testing.T) {
	db := newServiceDB(t)
	svc := &FeedbackService{DB: db}
	msgID := seedAgentMessage(t, db, "u1")

	if err := svc.Leave(context.Background(), "u1", msgID, 1); err != nil {
		t.Fatalf("first feedback: %v", err)
	}
	if err := svc.Leave(context.Background(), "u1", msgID, -1); !errors.Is(err, ErrDuplicateFeedback) {
		t.Fatalf("expected ErrDuplicateFeedback, got %v", err)
	}

	var n int64
	db.Model(&domain.Feedback{}).Count(&n)
	if n != 1 {
		t.Fatalf("expected a single feedback row, got %d", n)
	}
}
