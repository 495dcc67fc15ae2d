// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
package repo

import (
	"time"

	"gorm.io/gorm"

	"github.com/cfci-lab/intake-backend/internal/domain"
)

// CreateMessage inserts a new message row at the given turn position.
// The composite unique index on (conversation_id, message_num) rejects
// duplicate positions at the store level.
func CreateMessage(db *gorm.DB, conversationID uint, sender, content string, messageNum int) (*domain.Message, error) {
	m := &domain.Message{
		ConversationID: conversationID,
		Sender:         sender,
		MessageNum:     messageNum,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	return m, db.Create(m).Error
}

// MaxMessageNum returns the highest message_num in a conversation, or -1 when
// the conversation has no messages yet. Call it inside the same transaction
// that appends the next turn so the derived position cannot race.
func MaxMessageNum(db *gorm.DB, conversationID uint) (int, error) {
	var row struct {
		Max *int
	}
	err := db.Raw("SELECT MAX(message_num) AS max FROM messages WHERE conversation_id = ? AND deleted_at IS NULL", conversationID).
		Scan(&row).Error
	if err != nil {
		return 0, err
	}
	if row.Max == nil {
		return -1, nil
	}
	return *row.Max, nil
}

// ListMessages returns messages ordered by turn position ascending.
func ListMessages(db *gorm.DB, conversationID uint, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := db.Where("conversation_id = ?", conversationID).Order("message_num ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ListRecentMessages returns the most recent limit messages of a conversation
// in chronological order (oldest first). Older history is silently dropped;
// the prompt composer only ever sees this window.
func ListRecentMessages(db *gorm.DB, conversationID uint, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.
		Where("conversation_id = ?", conversationID).
		Order("message_num DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error (as tests expect).
func CountMessages(db *gorm.DB, conversationID uint) (int64, error) {
	var total int64
	err := db.Raw("SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND deleted_at IS NULL", conversationID).Scan(&total).Error
	return total, err
}

// ListMessagesPage returns a paginated slice ordered by turn position ascending.
func ListMessagesPage(db *gorm.DB, conversationID uint, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.
		Where("conversation_id = ?", conversationID).
		Order("message_num ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetMessage fetches a message by ID.
func GetMessage(db *gorm.DB, id uint) (*domain.Message, error) {
	var m domain.Message
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
