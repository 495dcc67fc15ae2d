// Package services – GuestService
//
// This file implements the unauthenticated guest chat loop. Guest sessions
// have no Conversation/Message identity at all: history lives in a process-
// local TTL cache keyed by an opaque session id, bounded to a sliding window
// of recent turns, and is lost on restart. That is accepted for guest mode.
//
// Concurrency: a striped per-session lock serializes read-modify-write cycles
// on one session (including the LLM call), so concurrent requests with the
// same session id cannot interleave history mutation. History is committed
// only after a successful LLM reply; a failed turn leaves the session exactly
// as it was.
package services

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"github.com/cfci-lab/intake-backend/internal/llm"
)

// GuestSystemPrompt is the fixed persona prepended to every guest completion.
const GuestSystemPrompt = `You are a friendly and professional AI assistant representing Duke University's Christensen Family Center for Innovation (CFCI). You help potential clients submit project proposals to CFCI's Product Lab.

Your personality:
- Warm, welcoming, and professional
- Curious about the client's ideas and genuinely interested in helping
- Clear and concise in your communication
- Encouraging and supportive of entrepreneurial endeavors

Your goal is to guide the conversation to collect information for a Product Brief submission:
1. Basic Info: Contact name, organization/startup name
2. Project Overview: What they want to build and why
3. Problem Statement: What problem they're solving
4. Target Audience: Who will use this product
5. Timeline & Resources: When do they need it, what resources do they have

Guidelines:
- Ask ONE question at a time to avoid overwhelming the user
- Acknowledge what they've shared before asking for more
- If they seem unsure, offer helpful examples or clarifications
- Be encouraging - startups and new ideas deserve support!
- Keep responses concise but friendly (2-3 sentences max)

Start by warmly greeting the user and asking about their project idea.`

// lockStripes bounds the number of session mutexes; sessions hash onto them.
const lockStripes = 64

// GuestService provides a zero-setup, unauthenticated chat loop with bounded
// in-memory history and no persistence guarantees.
type GuestService struct {
	// LLM is the language-model backend used in free-form chat mode.
	LLM llm.Client
	// SystemPrompt is prepended to every completion; defaults to GuestSystemPrompt.
	SystemPrompt string
	// HistoryLimit bounds the per-session sliding window (default 20 entries).
	HistoryLimit int

	sessions *cache.Cache
	locks    [lockStripes]sync.Mutex
}

// NewGuestService constructs a GuestService whose idle sessions expire after
// ttl. A non-positive ttl keeps sessions until process exit.
func NewGuestService(client llm.Client, ttl time.Duration) *GuestService {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &GuestService{
		LLM:          client,
		SystemPrompt: GuestSystemPrompt,
		HistoryLimit: 20,
		sessions:     cache.New(ttl, 10*time.Minute),
	}
}

// SimpleChat advances one guest turn. A missing sessionID mints a fresh
// opaque identifier. The reply and the user message are committed to the
// session history only when the LLM call succeeds, and the history is then
// truncated to the sliding window.
//
// It returns the (possibly new) session id and the agent reply. LLM failures
// surface as ErrGeneration with no session state committed.
func (s *GuestService) SimpleChat(ctx context.Context, sessionID, userMessage string) (string, string, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	mu := &s.locks[stripeFor(sessionID)]
	mu.Lock()
	defer mu.Unlock()

	history := s.history(sessionID)

	// Optimistic copy: the stored history is only replaced on success.
	attempt := make([]llm.ChatMessage, 0, len(history)+2)
	attempt = append(attempt, history...)
	attempt = append(attempt, llm.ChatMessage{Role: llm.RoleUser, Content: userMessage})

	reply, err := s.LLM.ChatComplete(ctx, attempt, s.systemPrompt())
	if err != nil {
		return sessionID, "", wrapGeneration(err)
	}

	attempt = append(attempt, llm.ChatMessage{Role: llm.RoleAssistant, Content: reply})

	// Sliding window: keep only the most recent entries.
	limit := s.historyLimit()
	if len(attempt) > limit {
		attempt = attempt[len(attempt)-limit:]
	}
	s.sessions.SetDefault(sessionID, attempt)

	return sessionID, reply, nil
}

// History returns a copy of the current in-memory history for a session.
// It exists for observability and tests; an unknown session yields nil.
func (s *GuestService) History(sessionID string) []llm.ChatMessage {
	mu := &s.locks[stripeFor(sessionID)]
	mu.Lock()
	defer mu.Unlock()

	h := s.history(sessionID)
	if h == nil {
		return nil
	}
	out := make([]llm.ChatMessage, len(h))
	copy(out, h)
	return out
}

// history returns the stored window for a session. Caller must hold the
// session's stripe lock.
func (s *GuestService) history(sessionID string) []llm.ChatMessage {
	if v, ok := s.sessions.Get(sessionID); ok {
		if h, ok := v.([]llm.ChatMessage); ok {
			return h
		}
	}
	return nil
}

func (s *GuestService) systemPrompt() string {
	if s.SystemPrompt != "" {
		return s.SystemPrompt
	}
	return GuestSystemPrompt
}

func (s *GuestService) historyLimit() int {
	if s.HistoryLimit > 0 {
		return s.HistoryLimit
	}
	return 20
}

// stripeFor hashes a session id onto a lock stripe.
func stripeFor(sessionID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return h.Sum32() % lockStripes
}
