// Package services – ConversationService
//
// This file implements the ConversationService, which manages the lifecycle of
// persisted intake conversations. Initiate creates a conversation together
// with its opening agent turn (message_num 0) in one transaction, so a
// conversation can never exist without its greeting. Listing is paginated.
//
// Service-level errors (e.g., ErrConversationNotFound) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/cfci-lab/intake-backend/internal/domain"
	"github.com/cfci-lab/intake-backend/internal/repo"
	"golang.org/x/text/language"
)

// InitMessage is the opening agent turn written at message_num 0 when a
// conversation is initiated.
const InitMessage = "Hi! I'm an AI assistant here to help you with your questions about the " +
	"Christensen Family Center for Innovation. How can I assist you today?"

// defaultConversationTitle is the placeholder title applied at initiation;
// the advancer replaces it from the first user message.
const defaultConversationTitle = "Product Brief intake"

// ConversationRepo defines the repository contract required by ConversationService.
// Implementations are responsible for persistence of conversation aggregates.
type ConversationRepo interface {
	// CreateConversation inserts a new conversation row for the given user.
	CreateConversation(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Conversation, error)

	// GetConversation fetches a conversation by ID ensuring it belongs to the user.
	GetConversation(ctx context.Context, db *gorm.DB, id uint, userID string) (*domain.Conversation, error)

	// CountConversations returns the total number of conversations for pagination.
	CountConversations(ctx context.Context, db *gorm.DB, userID string) (int64, error)

	// ListConversationsPage returns a page of conversations belonging to the user.
	ListConversationsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Conversation, error)
}

// ConversationService provides conversation-level operations: initiating a
// new intake dialogue and listing existing ones. It enforces title rules and
// ownership constraints.
type ConversationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the conversation repository used by this service.
	Repo ConversationRepo

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
	// TitleLocale selects the casing locale for generated titles.
	TitleLocale language.Tag
}

// NewConversationService constructs a ConversationService with sane defaults
// for title handling.
func NewConversationService(db *gorm.DB, r ConversationRepo) *ConversationService {
	return &ConversationService{
		DB:          db,
		Repo:        r,
		TitleMaxLen: 60,
		TitleLocale: language.Und,
	}
}

// Initiate creates a conversation owned by userID and its opening agent turn
// at message_num 0 atomically. It returns the conversation and the greeting
// message. Store failures are reported as ErrPersistence.
func (s *ConversationService) Initiate(ctx context.Context, userID string) (*domain.Conversation, *domain.Message, error) {
	var (
		conv *domain.Conversation
		msg  *domain.Message
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.Repo.CreateConversation(ctx, tx, userID, s.clip(defaultConversationTitle))
		if err != nil {
			return err
		}
		m, err := repo.CreateMessage(tx, c.ID, domain.SenderAgent, InitMessage, 0)
		if err != nil {
			return err
		}
		conv, msg = c, m
		return nil
	})
	if err != nil {
		return nil, nil, wrapPersistence(err)
	}
	return conv, msg, nil
}

// Get returns the conversation identified by id when owned by userID, or
// ErrConversationNotFound otherwise.
func (s *ConversationService) Get(ctx context.Context, userID string, id uint) (*domain.Conversation, error) {
	conv, err := s.Repo.GetConversation(ctx, s.DB, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return conv, nil
}

// ListPage returns a page of conversations for a user (paginated).
// It applies defaults for invalid page/pageSize and returns the total count.
func (s *ConversationService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Conversation, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountConversations(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Conversation{}, 0, nil
	}

	items, err := s.Repo.ListConversationsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// clip truncates a conversation title to the configured maximum rune length.
func (s *ConversationService) clip(title string) string {
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return string([]rune(title)[:s.TitleMaxLen])
	}
	return title
}

// normalizeTitle trims whitespace and collapses multiple spaces to one.
func normalizeTitle(s string) string {
	s = whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
	return s
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
