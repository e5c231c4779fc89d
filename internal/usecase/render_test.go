package usecase

import (
	"strings"
	"testing"

	"donorcast-service/internal/domain/entity"
)

func TestRenderSubstitutesContactFields(t *testing.T) {
	renderer := NewTemplateRenderer()
	template := &entity.EmailTemplate{
		ID:      "tpl-1",
		Subject: "Hi {{firstName}}, {{organization}} needs you",
		Body:    "<p>Dear {{fullName}},</p><p>Reply to {{email}}.</p>",
	}
	contact := &entity.Contact{
		Email:        "jane@example.org",
		FirstName:    "Jane",
		LastName:     "Doe",
		Organization: "City Hospital",
	}

	rendered := renderer.Render(template, contact)

	if rendered.Subject != "Hi Jane, City Hospital needs you" {
		t.Errorf("unexpected subject: %q", rendered.Subject)
	}
	if !strings.Contains(rendered.HTMLBody, "Dear Jane Doe,") {
		t.Errorf("body missing full name: %q", rendered.HTMLBody)
	}
	if !strings.Contains(rendered.HTMLBody, "jane@example.org") {
		t.Errorf("body missing email: %q", rendered.HTMLBody)
	}
}

func TestRenderLeavesUnknownPlaceholdersLiteral(t *testing.T) {
	renderer := NewTemplateRenderer()
	template := &entity.EmailTemplate{
		Subject: "Hello {{firstName}}",
		Body:    "Your code is {{donorCode}}",
	}
	contact := &entity.Contact{Email: "a@b.org", FirstName: "Ann"}

	rendered := renderer.Render(template, contact)

	if !strings.Contains(rendered.HTMLBody, "{{donorCode}}") {
		t.Errorf("unknown placeholder should stay literal, got %q", rendered.HTMLBody)
	}
}

func TestRenderResolvesCustomFields(t *testing.T) {
	renderer := NewTemplateRenderer()
	contact := &entity.Contact{
		Email:        "a@b.org",
		FirstName:    "Ann",
		CustomFields: map[string]string{"city": "Springfield"},
	}

	out := renderer.RenderText("Drive in {{city}} on Saturday", contact)
	if out != "Drive in Springfield on Saturday" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestRenderBuildsTextBodyFromHTML(t *testing.T) {
	renderer := NewTemplateRenderer()
	template := &entity.EmailTemplate{
		Subject: "s",
		Body:    "<h1>Blood Drive</h1><p>Hi {{firstName}}</p>",
	}
	contact := &entity.Contact{Email: "a@b.org", FirstName: "Ann"}

	rendered := renderer.Render(template, contact)

	if strings.Contains(rendered.TextBody, "<") {
		t.Errorf("text body should not contain tags: %q", rendered.TextBody)
	}
	if !strings.Contains(rendered.TextBody, "Blood Drive") || !strings.Contains(rendered.TextBody, "Hi Ann") {
		t.Errorf("text body missing content: %q", rendered.TextBody)
	}
}

func TestRenderTolerantOfPlaceholderSpacing(t *testing.T) {
	renderer := NewTemplateRenderer()
	contact := &entity.Contact{Email: "a@b.org", FirstName: "Ann"}

	out := renderer.RenderText("Hi {{ firstName }}", contact)
	if out != "Hi Ann" {
		t.Errorf("spaced placeholder not resolved: %q", out)
	}
}
