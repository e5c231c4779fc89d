package usecase

import (
	"regexp"

	"donorcast-service/internal/domain/entity"
	"donorcast-service/pkg/htmltext"
)

var placeholderRegex = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// RenderedEmail is the output of rendering a template against a contact
type RenderedEmail struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// TemplateRenderer substitutes {{field}} placeholders with contact fields.
// Unknown placeholders are left as literal text.
type TemplateRenderer struct {
	converter *htmltext.Converter
}

// NewTemplateRenderer creates a new template renderer
func NewTemplateRenderer() *TemplateRenderer {
	return &TemplateRenderer{
		converter: htmltext.NewConverter(),
	}
}

// Render fills in the template for one contact and synthesizes the
// plain-text fallback from the HTML body
func (r *TemplateRenderer) Render(template *entity.EmailTemplate, contact *entity.Contact) RenderedEmail {
	subject := r.substitute(template.Subject, contact)
	body := r.substitute(template.Body, contact)

	return RenderedEmail{
		Subject:  subject,
		HTMLBody: body,
		TextBody: r.converter.Convert(body),
	}
}

// RenderText fills placeholders in a bare string, for callers that are not
// working with a stored template
func (r *TemplateRenderer) RenderText(text string, contact *entity.Contact) string {
	return r.substitute(text, contact)
}

func (r *TemplateRenderer) substitute(text string, contact *entity.Contact) string {
	return placeholderRegex.ReplaceAllStringFunc(text, func(token string) string {
		name := placeholderRegex.FindStringSubmatch(token)[1]
		if value, ok := contact.Field(name); ok {
			return value
		}
		return token
	})
}
