// Package services defines the business logic for conversations, guest
// sessions, and feedback. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// The three core error kinds of the intake protocol are ErrConversationNotFound
// (conversation missing or not owned — deliberately indistinguishable),
// ErrPersistence (a store write failed), and ErrGeneration (the LLM call
// failed or returned unusable output). Translation into user-facing messages
// or HTTP status codes is performed at the handler layer.
package services

import (
	"errors"
	"fmt"
)

// Conversation-advancement errors.
var (
	// ErrConversationNotFound indicates that the requested conversation does
	// not exist or is not accessible to the current user. The two cases are
	// not distinguished, so callers cannot probe for other users' data.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrPersistence indicates that a store write failed. When it occurs
	// before the LLM call, no LLM request was spent; when it occurs after,
	// the generated reply is lost and a retry will re-invoke the model.
	ErrPersistence = errors.New("persistence failure")

	// ErrGeneration indicates that the LLM call failed or returned output
	// that could not be used. The user's turn, if already persisted, remains
	// in the store as an orphaned turn.
	ErrGeneration = errors.New("generation failure")

	// ErrEmptyMessage is returned when a request to advance a conversation
	// carries an empty user message.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrTooLong is returned when a user message exceeds the maximum
	// configured length limit.
	ErrTooLong = errors.New("message too long")
)

// wrapPersistence tags a store failure with the ErrPersistence kind while
// preserving the underlying cause text for logs.
func wrapPersistence(err error) error {
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

// wrapGeneration tags an LLM failure with the ErrGeneration kind while
// preserving the underlying cause text for logs.
func wrapGeneration(err error) error {
	return fmt.Errorf("%w: %v", ErrGeneration, err)
}

// Feedback errors.
var (
	// ErrInvalidFeedback is returned when a feedback value is outside the
	// allowed set (currently -1 or 1).
	ErrInvalidFeedback = errors.New("feedback value must be -1 or 1")

	// ErrMessageNotFound indicates that the requested message does not exist
	// or is not accessible to the current user.
	ErrMessageNotFound = errors.New("message not found")

	// ErrForbiddenFeedback is returned when a user attempts to leave feedback
	// on a message they are not permitted to rate.
	ErrForbiddenFeedback = errors.New("cannot leave feedback on this message")

	// ErrDuplicateFeedback is returned when a user attempts to leave feedback
	// on a message that they have already rated.
	ErrDuplicateFeedback = errors.New("feedback already exists")
)
