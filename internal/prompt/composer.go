// Package prompt renders the textual context block sent to the language
// model when advancing a conversation. The composer is deterministic and
// side-effect free: all I/O (loading messages, loading the form) is the
// caller's responsibility and arrives here as plain input data.
package prompt

import (
	_ "embed"
	"os"
	"strings"

	"github.com/cfci-lab/intake-backend/internal/domain"
)

// Placeholders substituted into the template.
const (
	placeholderForm    = "{{FORM_CONTEXT}}"
	placeholderHistory = "{{CHAT_HISTORY}}"
)

// SentinelNone marks a form field whose value has not been collected yet.
// It is deliberately distinct from an empty string, so the model can tell
// "not yet collected" from "collected but blank".
const SentinelNone = "NONE"

//go:embed generate_response.md
var defaultTemplate string

// Composer substitutes a form-state summary and a windowed chat history into
// a fixed template. The template is injected at construction; the composer
// does not own or reload it.
type Composer struct {
	template string
}

// NewComposer returns a Composer over the built-in template.
func NewComposer() *Composer {
	return &Composer{template: defaultTemplate}
}

// NewComposerFromFile returns a Composer over a template loaded from path.
// The file must contain the {{FORM_CONTEXT}} and {{CHAT_HISTORY}} placeholders.
func NewComposerFromFile(path string) (*Composer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Composer{template: string(raw)}, nil
}

// Compose renders the full prompt for one advance call. A nil form produces
// an empty form section; both placeholders are always substituted, so no
// literal {{...}} survives in the output.
func (c *Composer) Compose(form *domain.Form, recent []domain.Message) string {
	out := strings.ReplaceAll(c.template, placeholderForm, RenderFormContext(form))
	out = strings.ReplaceAll(out, placeholderHistory, RenderHistory(recent))
	return out
}

// RenderFormContext renders the latest state of the intake form: every field
// of the template in template-defined order with its name, data type tag,
// collection instructions, and the current value or the SentinelNone literal
// when no submission exists. A nil form renders as an empty section.
func RenderFormContext(form *domain.Form) string {
	if form == nil {
		return ""
	}

	// Index submissions by field template for O(1) lookup.
	byField := make(map[uint]string, len(form.Submissions))
	for _, s := range form.Submissions {
		byField[s.FieldTemplateID] = s.Value
	}

	var b strings.Builder
	b.WriteString("### LATEST STATE OF THE FORM\n\n")
	for _, ft := range form.Template.Fields {
		b.WriteString("Field name: " + ft.FieldName + "\n")
		b.WriteString("Field data type: " + ft.FieldType + "\n")
		b.WriteString("Field instructions: " + ft.Description + "\n")
		value, ok := byField[ft.ID]
		if !ok {
			value = SentinelNone
		}
		b.WriteString("Current value: " + value + "\n")
		b.WriteString("--\n")
	}
	return b.String()
}

// RenderHistory renders messages one per line, oldest first, as
// "User: <content>" or "Agent: <content>". The caller supplies the window;
// this function does not truncate.
func RenderHistory(msgs []domain.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		role := "Agent"
		if m.Sender == domain.SenderUser {
			role = "User"
		}
		b.WriteString(role + ": " + m.Content + "\n")
	}
	return b.String()
}
