// Chat HTTP handlers.
//
// This file exposes REST endpoints for the conversational intake flow:
//   - POST /chat/simple                          (guest chat, no identity)
//   - GET  /chat/greeting                        (static opening message)
//   - POST /chat/initiate                        (create conversation + greeting)
//   - POST /chat/advance                         (append turn, generate reply)
//   - GET  /chat/conversations                   (list, paginated, ETag support)
//   - GET  /chat/conversations/{id}/messages     (list, paginated, ETag support)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cfci-lab/intake-backend/internal/domain"
	"github.com/cfci-lab/intake-backend/internal/http/middleware"
	"github.com/cfci-lab/intake-backend/internal/repo"
	"github.com/cfci-lab/intake-backend/internal/services"
	"github.com/cfci-lab/intake-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ConversationService defines conversation lifecycle operations consumed by
// HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ConversationService interface {
	// Initiate starts a conversation for userID and writes the opening agent
	// message at sequence number 0. Both records are returned.
	Initiate(ctx context.Context, userID string) (*domain.Conversation, *domain.Message, error)
	// ListPage returns a page of conversations for a user and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Conversation, int64, error)
}

// AdvanceService defines the turn-taking operations of a persisted
// conversation.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AdvanceService interface {
	// Advance appends the user's turn, generates the agent reply, and persists
	// it. The returned message is the new agent turn.
	Advance(ctx context.Context, userID string, conversationID uint, userMessage string, clientStepNum int) (*domain.Message, error)
	// ListPage returns a page of messages within a conversation owned by
	// userID, plus the total count.
	ListPage(ctx context.Context, userID string, conversationID uint, page, pageSize int) ([]domain.Message, int64, error)
}

// GuestService defines the stateless-identity chat operations backed by an
// in-memory session store.
type GuestService interface {
	// SimpleChat runs one guest turn and returns (sessionID, reply).
	// A fresh session id is minted when sessionID is empty.
	SimpleChat(ctx context.Context, sessionID, userMessage string) (string, string, error)
}

// FeedbackService defines operations to capture user feedback on messages.
type FeedbackService interface {
	// Leave submits a feedback value (-1 or 1) for messageID by userID.
	Leave(ctx context.Context, userID string, messageID uint, value int) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for guest chat, conversations, and feedback.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	convSvc  ConversationService
	advSvc   AdvanceService
	guestSvc GuestService
	fbSvc    FeedbackService

	// IdempotencyTTL bounds how long an Idempotency-Key on /chat/advance can
	// replay a prior reply. Zero disables recording.
	IdempotencyTTL time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
func New(convSvc ConversationService, advSvc AdvanceService, guestSvc GuestService, fbSvc FeedbackService) *Handlers {
	return &Handlers{convSvc: convSvc, advSvc: advSvc, guestSvc: guestSvc, fbSvc: fbSvc}
}

// userID extracts the caller identity from Gin context (set by upstream
// middleware). If absent, it falls back to the "X-User-ID" header. The second
// return value is false when no identity is available; persisted endpoints
// translate that into 401.
func userID(c *gin.Context) (string, bool) {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h, true
		}
	}
	return "", false
}

// requireUser resolves the caller identity or fails the request with 401.
func requireUser(c *gin.Context) (string, bool) {
	uid, ok := userID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing user identity")
	}
	return uid, ok
}

//
// DTOs
//

// SimpleChatRequest is the JSON payload for a guest chat turn.
type SimpleChatRequest struct {
	// SessionID continues an existing guest session; empty starts a new one.
	SessionID string `json:"session_id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	// UserMessage is the guest's message text.
	UserMessage string `json:"user_message" binding:"required" example:"What does the Product Lab build?"`
}

// SimpleChatResponse carries the assistant reply for a guest turn.
type SimpleChatResponse struct {
	SessionID    string `json:"session_id"`
	ResponseText string `json:"response_text"`
}

// GreetingResponse carries the static opening message.
type GreetingResponse struct {
	Greeting string `json:"greeting"`
}

// InitiateChatResponse describes a freshly created conversation and its
// opening agent message.
type InitiateChatResponse struct {
	ConversationID uint   `json:"conversation_id"`
	Greeting       string `json:"greeting"`
	MessageNum     int    `json:"message_num"`
}

// AdvanceChatRequest is the JSON payload for advancing a conversation.
//
// MessageStepNum is the client's view of the last sequence number it has seen.
// The server derives the authoritative numbering itself; the field is accepted
// for wire compatibility and logged when stale.
type AdvanceChatRequest struct {
	ConversationID uint   `json:"conversation_id" binding:"required" example:"42"`
	UserMessage    string `json:"user_message" binding:"required" example:"We need a mobile app for campus food trucks"`
	MessageStepNum int    `json:"message_step_num" example:"0"`
}

// AdvanceChatResponse carries the generated agent turn.
type AdvanceChatResponse struct {
	ConversationID uint   `json:"conversation_id"`
	ResponseText   string `json:"response_text"`
	MessageNum     int    `json:"message_num"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListConversationsResponse wraps a page of conversations and pagination info.
type ListConversationsResponse struct {
	Conversations []domain.Conversation `json:"conversations"`
	Pagination    Pagination            `json:"pagination"`
}

// ListMessagesResponse wraps a page of messages and pagination information.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// advanceDB exposes the underlying *gorm.DB when the advance service is the
// concrete implementation (ETag stats and idempotency records are best
// effort; they are skipped under test fakes).
func (h *Handlers) advanceDB() *gorm.DB {
	if svc, ok := h.advSvc.(*services.AdvanceService); ok {
		return svc.DB
	}
	return nil
}

// conversationDB is the ConversationService counterpart of advanceDB.
func (h *Handlers) conversationDB() *gorm.DB {
	if svc, ok := h.convSvc.(*services.ConversationService); ok {
		return svc.DB
	}
	return nil
}

//
// Handlers
//

// SimpleChat godoc
// @ID          simpleChat
// @Summary     Guest chat turn
// @Description Runs one guest chat turn against an in-memory session. No identity required; an omitted session_id starts a new session.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.SimpleChatRequest  true  "Guest turn payload"
//
// @Success     200  {object}  handlers.SimpleChatResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Generation failed"
// @Router      /chat/simple [post]
func (h *Handlers) SimpleChat(c *gin.Context) {
	var req SimpleChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserMessage) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_message required")
		return
	}

	sid, reply, err := h.guestSvc.SimpleChat(c.Request.Context(), strings.TrimSpace(req.SessionID), req.UserMessage)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeGenerationFailed, "could not generate a reply")
		return
	}
	ok(c, http.StatusOK, SimpleChatResponse{SessionID: sid, ResponseText: reply})
}

// Greeting godoc
// @ID          greeting
// @Summary     Opening message
// @Description Returns the static greeting shown before any conversation exists.
// @Tags        Chat
// @Produce     json
//
// @Success     200  {object}  handlers.GreetingResponse
// @Router      /chat/greeting [get]
func (h *Handlers) Greeting(c *gin.Context) {
	ok(c, http.StatusOK, GreetingResponse{Greeting: services.InitMessage})
}

// InitiateChat godoc
// @ID          initiateChat
// @Summary     Start a conversation
// @Description Creates a conversation for the current user, writes the opening agent message at sequence 0, and returns both.
// @Tags        Chat
// @Produce     json
//
// @Param       X-User-ID  header  string  true "User ID"  example(user123)
//
// @Success     201  {object}  handlers.InitiateChatResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chat/initiate [post]
func (h *Handlers) InitiateChat(c *gin.Context) {
	uid, okID := requireUser(c)
	if !okID {
		return
	}

	conv, greeting, err := h.convSvc.Initiate(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInitiateFailed, "could not start a conversation")
		return
	}
	ok(c, http.StatusCreated, InitiateChatResponse{
		ConversationID: conv.ID,
		Greeting:       greeting.Content,
		MessageNum:     greeting.MessageNum,
	})
}

// AdvanceChat godoc
// @ID          advanceChat
// @Summary     Advance a conversation
// @Description Appends the user's turn, generates the agent reply from the form state and recent history, and persists it. Supports Idempotency-Key replay.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true  "User ID"                      example(user123)
// @Param       Idempotency-Key  header  string  false "Replay key for safe retries"  example(adv-42-3)
// @Param       body             body    handlers.AdvanceChatRequest  true  "Advance payload"
//
// @Success     200  {object}  handlers.AdvanceChatResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     404  {object}  handlers.ErrorResponse  "Conversation not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Persistence or generation failure"
// @Router      /chat/advance [post]
func (h *Handlers) AdvanceChat(c *gin.Context) {
	uid, okID := requireUser(c)
	if !okID {
		return
	}

	var req AdvanceChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation_id and user_message required")
		return
	}

	ctx := c.Request.Context()
	key, hasKey := middleware.GetIdempotencyKey(c)

	// Replay a previously persisted reply when the same key was already used
	// for this conversation (best effort).
	if hasKey {
		if resp, found := h.replayAdvance(ctx, uid, req.ConversationID, key); found {
			ok(c, http.StatusOK, resp)
			return
		}
	}

	msg, err := h.advSvc.Advance(ctx, uid, req.ConversationID, req.UserMessage, req.MessageStepNum)
	if err != nil {
		h.failAdvance(c, err)
		return
	}

	if hasKey && h.IdempotencyTTL > 0 {
		if db := h.advanceDB(); db != nil {
			// Duplicate insertion races are benign; the first record wins.
			_, _ = repo.CreateIdempotency(ctx, db, uid, req.ConversationID, key, msg.ID, http.StatusOK, h.IdempotencyTTL)
		}
	}

	ok(c, http.StatusOK, AdvanceChatResponse{
		ConversationID: req.ConversationID,
		ResponseText:   msg.Content,
		MessageNum:     msg.MessageNum,
	})
}

// replayAdvance looks up a stored idempotency record and reloads the agent
// message it points at. It reports found=false on any miss or lookup error so
// the request proceeds normally.
func (h *Handlers) replayAdvance(ctx context.Context, uid string, conversationID uint, key string) (AdvanceChatResponse, bool) {
	db := h.advanceDB()
	if db == nil {
		return AdvanceChatResponse{}, false
	}
	rec, err := repo.GetIdempotency(ctx, db, uid, conversationID, key, time.Now().UTC())
	if err != nil || rec == nil {
		return AdvanceChatResponse{}, false
	}
	msg, err := repo.GetMessage(db.WithContext(ctx), rec.MessageID)
	if err != nil {
		return AdvanceChatResponse{}, false
	}
	return AdvanceChatResponse{
		ConversationID: conversationID,
		ResponseText:   msg.Content,
		MessageNum:     msg.MessageNum,
	}, true
}

// failAdvance maps service error kinds onto HTTP statuses and stable codes.
func (h *Handlers) failAdvance(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyMessage), errors.Is(err, services.ErrTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrConversationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
	case errors.Is(err, services.ErrGeneration):
		fail(c, http.StatusInternalServerError, ErrCodeGenerationFailed, "could not generate a reply")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not save the conversation turn")
	}
}

// ListConversations godoc
// @ID          listConversations
// @Summary     List conversations (paginated)
// @Description Returns a page of the user's conversations. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Chat
// @Produce     json
//
// @Param       X-User-ID      header  string  true  "User ID"                     example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListConversationsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Missing identity"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chat/conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	uid, okID := requireUser(c)
	if !okID {
		return
	}
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if db := h.conversationDB(); db != nil {
		count, maxTS, err := repo.ConversationsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"conversations:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.convSvc.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list conversations")
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListConversationsResponse{
		Conversations: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// ListConversationMessages godoc
// @ID          listConversationMessages
// @Summary     List messages in a conversation (paginated)
// @Description Returns messages ordered by sequence number. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Chat
// @Produce     json
//
// @Param       X-User-ID      header  string  true  "User ID"                     example(user123)
// @Param       id             path    int     true  "Conversation ID"             example(42)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Missing identity"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chat/conversations/{id}/messages [get]
func (h *Handlers) ListConversationMessages(c *gin.Context) {
	uid, okID := requireUser(c)
	if !okID {
		return
	}
	convID, err := parseUintParam(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a positive integer")
		return
	}
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if db := h.advanceDB(); db != nil {
		count, maxTS, err := repo.MessagesStats(ctx, db, convID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"messages:%d:%d:%d"`, convID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.advSvc.ListPage(ctx, uid, convID, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrConversationNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list messages")
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// parseUintParam parses a positive integer path parameter.
func parseUintParam(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(v), nil
}
