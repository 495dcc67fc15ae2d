// Package services – AdvanceService
//
// This file implements AdvanceService, the application-level component that
// drives one authenticated turn of a persisted conversation to completion:
// ownership check, user-turn append, context assembly, LLM invocation, and
// agent-turn append. The partial-failure contract is deliberate and narrow:
//
//   - a store failure before the LLM call aborts the turn with no LLM request
//     spent (ErrPersistence);
//   - an LLM failure leaves the user's turn persisted with no agent reply —
//     an orphaned turn the caller tolerates and may retry (ErrGeneration);
//   - a store failure after the LLM call loses the generated reply; a retry
//     re-invokes the model (ErrPersistence).
//
// There is no automatic retry, rollback, or compensation anywhere in this
// path. Turn numbering is derived server-side inside the append transaction,
// so concurrent advances on one conversation serialize on the store's unique
// (conversation_id, message_num) index instead of trusting the client value.
//
// Optional enhancement: the first user turn auto-generates the conversation
// title when the title is still a placeholder.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// conversation/user identifiers.
package services

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/cfci-lab/intake-backend/internal/domain"
	"github.com/cfci-lab/intake-backend/internal/llm"
	"github.com/cfci-lab/intake-backend/internal/prompt"
	"github.com/cfci-lab/intake-backend/internal/repo"

	"github.com/rs/zerolog/log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// placeholder titles eligible for auto-generation from the first user turn
const defaultTitleUntitled = "Untitled"

// AdvanceService coordinates conversation advancement: message persistence,
// prompt composition, and LLM-backed reply generation.
type AdvanceService struct {
	DB       *gorm.DB
	LLM      llm.Client
	Composer *prompt.Composer

	// HistoryWindow caps how many recent turns the composer sees (default 20).
	HistoryWindow int

	// Optional guards
	MaxMessageRunes int

	// Title generation config
	TitleLocale language.Tag
	TitleMaxLen int
}

// Advance drives one turn of the conversation: it validates the user message,
// verifies ownership, appends the user turn at the next server-derived
// message_num, composes the prompt from form state and recent history, invokes
// the LLM for a structured reply, and appends the agent turn.
//
// clientStepNum is the caller's last-seen turn number, kept on the wire for
// compatibility; the server-derived value wins and a stale client value only
// logs a warning.
func (s *AdvanceService) Advance(ctx context.Context, userID string, conversationID uint, userMessage string, clientStepNum int) (*domain.Message, error) {
	tr := otel.Tracer("services/AdvanceService")
	ctx, span := tr.Start(ctx, "Advance",
		trace.WithAttributes(
			attribute.Int64("conversation.id", int64(conversationID)),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	// Normalize & validate message
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(userMessage) > s.MaxMessageRunes {
		return nil, ErrTooLong
	}

	// Ensure the conversation exists and belongs to the user
	conv, err := repo.GetConversation(ctx, s.DB, conversationID, userID)
	if err != nil {
		return nil, ErrConversationNotFound
	}

	// Persist the user turn first so an LLM failure still leaves it
	// retrievable. The next message_num is derived inside the transaction.
	var userMsg *domain.Message
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		maxNum, terr := repo.MaxMessageNum(tx, conv.ID)
		if terr != nil {
			return terr
		}
		next := maxNum + 1
		if clientStepNum >= 0 && clientStepNum+1 != next {
			log.Warn().
				Uint("conversation_id", conv.ID).
				Int("client_step_num", clientStepNum).
				Int("server_next", next).
				Msg("stale client step number; server value wins")
		}
		m, terr := repo.CreateMessage(tx, conv.ID, domain.SenderUser, userMessage, next)
		if terr != nil {
			return terr
		}
		userMsg = m

		// Auto-title if placeholder
		if s.shouldAutoTitle(conv.Title) {
			gen := s.generateTitleFromMessage(userMessage)
			if gen != "" {
				gen = s.clipTitle(gen)
				if uerr := tx.Model(&domain.Conversation{}).Where("id = ?", conv.ID).Update("title", gen).Error; uerr == nil {
					conv.Title = gen
				}
			}
		}
		return nil
	})
	if err != nil {
		// Fail fast before spending an LLM request.
		return nil, wrapPersistence(err)
	}

	// Assemble context from the just-updated conversation.
	fullPrompt, err := s.composeContext(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	// Invoke the LLM. On failure the user turn stays persisted (orphaned).
	raw, err := s.LLM.StructuredComplete(ctx, "", fullPrompt, llm.DefaultOutputSchema)
	if err != nil {
		return nil, wrapGeneration(err)
	}
	var out llm.DefaultOutput
	if err := json.Unmarshal(raw, &out); err != nil || strings.TrimSpace(out.ResponseText) == "" {
		return nil, ErrGeneration
	}

	// Persist the agent turn directly after the user turn.
	var agentMsg *domain.Message
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, terr := repo.CreateMessage(tx, conv.ID, domain.SenderAgent, out.ResponseText, userMsg.MessageNum+1)
		if terr != nil {
			return terr
		}
		agentMsg = m
		return nil
	})
	if err != nil {
		// The generated reply is lost; a retry re-invokes the LLM.
		return nil, wrapPersistence(err)
	}

	return agentMsg, nil
}

// ListPage returns paginated messages for a conversation owned by userID.
func (s *AdvanceService) ListPage(ctx context.Context, userID string, conversationID uint, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/AdvanceService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int64("conversation.id", int64(conversationID)),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	// Ensure the conversation exists and belongs to the user
	if _, err := repo.GetConversation(ctx, s.DB, conversationID, userID); err != nil {
		return nil, 0, ErrConversationNotFound
	}

	total, err := repo.CountMessages(s.DB.WithContext(ctx), conversationID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListMessagesPage(s.DB.WithContext(ctx), conversationID, offset, pageSize)
	return items, total, err
}

// composeContext loads the form (best effort) and the recent history window,
// then renders the prompt. A form-load failure degrades to an empty form
// section: losing form context is preferable to losing the ability to chat.
// A history-load failure is a hard store failure.
func (s *AdvanceService) composeContext(ctx context.Context, conversationID uint) (string, error) {
	tr := otel.Tracer("services/AdvanceService")
	ctx, span := tr.Start(ctx, "composeContext",
		trace.WithAttributes(attribute.Int64("conversation.id", int64(conversationID))),
	)
	defer span.End()

	form, err := repo.GetConversationForm(ctx, s.DB, conversationID)
	if err != nil {
		log.Warn().
			Uint("conversation_id", conversationID).
			Err(err).
			Msg("could not load form context; degrading to empty form section")
		form = nil
	}

	window := s.HistoryWindow
	if window <= 0 {
		window = 20
	}
	recent, err := repo.ListRecentMessages(s.DB.WithContext(ctx), conversationID, window)
	if err != nil {
		return "", wrapPersistence(err)
	}

	return s.Composer.Compose(form, recent), nil
}

// shouldAutoTitle reports whether the current title is a placeholder.
func (s *AdvanceService) shouldAutoTitle(current string) bool {
	t := strings.TrimSpace(strings.ToLower(current))
	return t == "" || t == strings.ToLower(defaultConversationTitle) || t == strings.ToLower(defaultTitleUntitled)
}

// generateTitleFromMessage derives a concise title from the first user message.
func (s *AdvanceService) generateTitleFromMessage(msg string) string {
	msg = normalizeTitle(msg)
	if msg == "" {
		return ""
	}
	toks := titleWordRE.FindAllString(strings.ToLower(msg), -1)
	if len(toks) == 0 {
		return ""
	}

	titleCaser := cases.Title(s.titleLocaleOrDefault())
	out := make([]string, 0, 8)

	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, titleCaser.String(w))
		if len(out) >= 8 {
			break
		}
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, " ")
}

// clipTitle truncates a generated title to the configured maximum rune length.
func (s *AdvanceService) clipTitle(title string) string {
	max := s.TitleMaxLen
	if max <= 0 {
		max = 60
	}
	if utf8.RuneCountInString(title) > max {
		return string([]rune(title)[:max])
	}
	return title
}

// titleLocaleOrDefault returns the configured locale for casing or English if unset.
func (s *AdvanceService) titleLocaleOrDefault() language.Tag {
	if s.TitleLocale == language.Und {
		return language.English
	}
	return s.TitleLocale
}

// --- Title generation helpers ---

// Extract Unicode letters with optional trailing numbers (e.g., "brief2025").
var titleWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

// Minimal English stop-words set for compact titles.
var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
}
