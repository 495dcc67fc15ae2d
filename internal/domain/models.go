// Package domain defines the persistence models for conversations, messages,
// and intake forms. These types are mapped with GORM and form the core data
// layer of the Product Brief intake backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Sender values for Message. The sequence of senders within a conversation
// alternates between the two by caller discipline; the type does not enforce it.
const (
	SenderUser  = "user"
	SenderAgent = "agent"
)

// Conversation represents a persisted intake dialogue owned by a user. A
// conversation is created once on initiate and never mutated afterwards except
// through its relationship to Messages and an optional Form.
//
// Fields:
//   - ID: auto-increment primary key.
//   - UserID: identifier of the owner; indexed for efficient retrieval.
//   - Title: human-readable title assigned at creation.
//   - Form: optional intake form being filled over the course of the dialogue.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Conversation struct {
	ID        uint           `json:"id"         gorm:"primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_conversations"`
	Title     string         `json:"title"      gorm:"type:varchar(255);not null;default:'New conversation'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	// Form is the optional intake form attached to this conversation.
	Form *Form `json:"-" gorm:"foreignKey:ConversationID"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message represents a single turn within a conversation, authored either by
// the "user" or the "agent". Messages are append-only: once created they are
// never updated, deleted, or renumbered.
//
// Fields:
//   - ID: auto-increment primary key.
//   - ConversationID: foreign key to the owning conversation (indexed).
//   - Sender: "user" or "agent" (enforced by DB constraint).
//   - MessageNum: strictly increasing per-conversation position starting at 0,
//     unique within a conversation (composite unique index).
//   - Content: full text content of the turn.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
//   - Conversation: FK association, ensures cascade delete/update.
type Message struct {
	ID             uint           `json:"id"              gorm:"primaryKey"`
	ConversationID uint           `json:"conversation_id" gorm:"not null;uniqueIndex:ux_conv_msg_num,priority:1;index:idx_conv_msgs"`
	Sender         string         `json:"sender"          gorm:"type:varchar(16);not null;check:sender IN ('user','agent')"`
	MessageNum     int            `json:"message_num"     gorm:"not null;uniqueIndex:ux_conv_msg_num,priority:2"`
	Content        string         `json:"content"         gorm:"type:text;not null"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"               gorm:"index"`

	// Conversation is the parent dialogue. Messages are cascade-deleted
	// if their conversation is removed.
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Form attaches a template-driven intake form to a conversation. The dialogue
// elicits values for the template's fields; collected values live in
// Submissions, at most one per field template.
type Form struct {
	ID             uint           `json:"id"               gorm:"primaryKey"`
	ConversationID uint           `json:"conversation_id"  gorm:"not null;uniqueIndex"`
	FormTemplateID uint           `json:"form_template_id" gorm:"not null;index"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"                gorm:"index"`

	// Template defines the ordered set of fields this form collects.
	Template FormTemplate `json:"-" gorm:"foreignKey:FormTemplateID;references:ID"`
	// Submissions holds the values recorded so far, at most one per field.
	Submissions []FieldSubmission `json:"-" gorm:"foreignKey:FormID"`
}

// TableName returns the database table name for Form.
func (Form) TableName() string { return "forms" }

// FormTemplate is a named, ordered set of field definitions describing the
// information a Product Brief submission needs.
type FormTemplate struct {
	ID        uint           `json:"id"   gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(255);not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"    gorm:"index"`

	// Fields are the template's field definitions in template-defined order.
	Fields []FieldTemplate `json:"-" gorm:"foreignKey:FormTemplateID"`
}

// TableName returns the database table name for FormTemplate.
func (FormTemplate) TableName() string { return "form_templates" }

// FieldTemplate defines one field of a form template: its name, a data type
// tag, human-readable collection instructions, and its position within the
// template's ordering.
type FieldTemplate struct {
	ID             uint           `json:"id"               gorm:"primaryKey"`
	FormTemplateID uint           `json:"form_template_id" gorm:"not null;index"`
	FieldName      string         `json:"field_name"       gorm:"type:varchar(255);not null"`
	FieldType      string         `json:"field_type"       gorm:"type:varchar(64);not null"`
	Description    string         `json:"description"      gorm:"type:text"`
	Position       int            `json:"position"         gorm:"not null;default:0"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"                gorm:"index"`
}

// TableName returns the database table name for FieldTemplate.
func (FieldTemplate) TableName() string { return "field_templates" }

// FieldSubmission is the value currently recorded for one FieldTemplate within
// one Form. Absence of a submission means "not yet collected" and is rendered
// by the prompt composer as the sentinel "NONE", never as an empty string.
type FieldSubmission struct {
	ID              uint           `json:"id"                gorm:"primaryKey"`
	FormID          uint           `json:"form_id"           gorm:"not null;uniqueIndex:ux_form_field,priority:1"`
	FieldTemplateID uint           `json:"field_template_id" gorm:"not null;uniqueIndex:ux_form_field,priority:2"`
	Value           string         `json:"value"             gorm:"type:text;not null"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-"                 gorm:"index"`
}

// TableName returns the database table name for FieldSubmission.
func (FieldSubmission) TableName() string { return "field_submissions" }

// Feedback represents a user-provided rating on a specific agent message.
// A user can only leave one feedback entry per message (enforced by unique index).
//
// Fields:
//   - ID: auto-increment primary key.
//   - MessageID: foreign key to the rated message (unique per user).
//   - UserID: identifier of the feedback author (unique per message).
//   - Value: +1 (positive) or -1 (negative).
type Feedback struct {
	ID        uint           `json:"id"         gorm:"primaryKey"`
	MessageID uint           `json:"message_id" gorm:"not null;index;uniqueIndex:ux_feedback_message_user"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index;uniqueIndex:ux_feedback_message_user"`
	Value     int            `json:"value"      gorm:"not null;check:value IN (-1,1)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	// Message is the rated agent message. Feedback is cascade-deleted
	// if the underlying message is removed.
	Message Message `json:"-" gorm:"foreignKey:MessageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "feedback" }
