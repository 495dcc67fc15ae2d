// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for intake forms
// and their templates.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cfci-lab/intake-backend/internal/domain"
)

// GetConversationForm loads the form attached to a conversation together with
// its template, the template's field definitions in template-defined order,
// and any recorded submissions. It returns (nil, nil) when the conversation
// has no form; callers treat that as "no form section in the prompt", not as
// an error.
func GetConversationForm(ctx context.Context, db *gorm.DB, conversationID uint) (*domain.Form, error) {
	var f domain.Form
	err := db.WithContext(ctx).
		Preload("Template").
		Preload("Template.Fields", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC, id ASC")
		}).
		Preload("Submissions").
		Where("conversation_id = ?", conversationID).
		First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateForm attaches a new form for the given template to a conversation.
func CreateForm(ctx context.Context, db *gorm.DB, conversationID, templateID uint) (*domain.Form, error) {
	f := &domain.Form{
		ConversationID: conversationID,
		FormTemplateID: templateID,
	}
	if err := db.WithContext(ctx).Create(f).Error; err != nil {
		return nil, err
	}
	return f, nil
}

// UpsertFieldSubmission records (or replaces) the value collected for one
// field of a form. At most one submission exists per (form, field_template).
func UpsertFieldSubmission(ctx context.Context, db *gorm.DB, formID, fieldTemplateID uint, value string) (*domain.FieldSubmission, error) {
	var existing domain.FieldSubmission
	err := db.WithContext(ctx).
		Where("form_id = ? AND field_template_id = ?", formID, fieldTemplateID).
		First(&existing).Error
	switch {
	case err == nil:
		existing.Value = value
		if uerr := db.WithContext(ctx).Save(&existing).Error; uerr != nil {
			return nil, uerr
		}
		return &existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		s := &domain.FieldSubmission{
			FormID:          formID,
			FieldTemplateID: fieldTemplateID,
			Value:           value,
		}
		if cerr := db.WithContext(ctx).Create(s).Error; cerr != nil {
			return nil, cerr
		}
		return s, nil
	default:
		return nil, err
	}
}
