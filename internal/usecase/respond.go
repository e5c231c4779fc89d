package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"donorcast-service/internal/domain/entity"
	"donorcast-service/pkg/logger"
	"donorcast-service/pkg/metrics"
)

// ResponseTemplate is a canned reply with a trigger predicate. Empty trigger
// slices match anything.
type ResponseTemplate struct {
	ID               string
	Name             string
	Priority         int
	Sentiments       []string
	Urgencies        []string
	Keywords         []string
	Subject          string
	Body             string
	RequiresApproval bool
}

// Matches reports whether the template's trigger fires for the reply
func (t *ResponseTemplate) Matches(score *entity.SentimentScore, body string) bool {
	if len(t.Sentiments) > 0 && !containsString(t.Sentiments, score.Sentiment) {
		return false
	}
	if len(t.Urgencies) > 0 && !containsString(t.Urgencies, score.Urgency) {
		return false
	}
	if len(t.Keywords) > 0 {
		lower := strings.ToLower(body)
		found := false
		for _, kw := range t.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ResponseRouter picks the highest-priority template whose trigger matches
type ResponseRouter interface {
	Register(template ResponseTemplate)
	Match(score *entity.SentimentScore, body string) *ResponseTemplate
}

// ResponseBackend generates a candidate response for a classified reply.
// The contact may be nil when the sender could not be resolved.
type ResponseBackend interface {
	Generate(ctx context.Context, reply *entity.EmailReply, score *entity.SentimentScore, contact *entity.Contact) (*entity.GeneratedResponse, error)
}

// TemplateResponder selects from a priority-ordered template list and falls
// back to a built-in response derived from sentiment alone
type TemplateResponder struct {
	router   ResponseRouter
	renderer *TemplateRenderer
	logger   logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewTemplateResponder creates a new template-strategy responder
func NewTemplateResponder(router ResponseRouter, renderer *TemplateRenderer, logger logger.Logger, m *metrics.Metrics) *TemplateResponder {
	return &TemplateResponder{
		router:   router,
		renderer: renderer,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// Generate builds a response from the first matching template
func (r *TemplateResponder) Generate(ctx context.Context, reply *entity.EmailReply, score *entity.SentimentScore, contact *entity.Contact) (*entity.GeneratedResponse, error) {
	renderContact := contact
	if renderContact == nil {
		renderContact = &entity.Contact{FirstName: "there", Email: reply.FromEmail}
	}

	template := r.router.Match(score, reply.Body)

	var subject, body, templateUsed string
	templateApproval := false
	priority := 0

	if template != nil {
		subject = r.renderer.RenderText(template.Subject, renderContact)
		body = r.renderer.RenderText(template.Body, renderContact)
		templateUsed = template.Name
		templateApproval = template.RequiresApproval
		priority = template.Priority
	} else {
		subject, body = defaultResponse(score.Sentiment, renderContact.FirstName)
	}

	if subject == "" {
		subject = replySubject(reply.Subject)
	}

	requiresApproval := templateApproval ||
		score.Urgency == entity.UrgencyHigh ||
		(contact == nil && score.Sentiment == entity.SentimentNegative)

	response := &entity.GeneratedResponse{
		ID:               uuid.NewString(),
		ReplyToEmailID:   reply.ID,
		Subject:          subject,
		Body:             body,
		TemplateUsed:     templateUsed,
		Confidence:       responseConfidence(score, priority),
		RequiresApproval: requiresApproval,
		GeneratedAt:      r.now(),
	}

	if r.metrics != nil {
		label := "auto"
		if requiresApproval {
			label = "pending"
		}
		r.metrics.ResponsesGenerated.WithLabelValues(label).Inc()
	}

	return response, nil
}

// responseConfidence derives send confidence from classifier confidence,
// discounted by urgency and nudged by template priority, clamped to [0.1, 1.0]
func responseConfidence(score *entity.SentimentScore, priority int) float64 {
	confidence := score.Confidence
	switch score.Urgency {
	case entity.UrgencyHigh:
		confidence *= 0.7
	case entity.UrgencyMedium:
		confidence *= 0.85
	}
	confidence += float64(priority) * 0.01

	if confidence < 0.1 {
		confidence = 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

func defaultResponse(sentiment, firstName string) (string, string) {
	switch sentiment {
	case entity.SentimentPositive:
		return "Thank you for your interest!",
			fmt.Sprintf("Hi %s,\n\nThank you for your reply! We're thrilled you're interested. A member of our team will follow up shortly with the details.\n\nBest regards,\nThe Blood Drive Team", firstName)
	case entity.SentimentNegative:
		return "We appreciate your feedback",
			fmt.Sprintf("Hi %s,\n\nThank you for letting us know. We've noted your response and won't trouble you further about this drive.\n\nBest regards,\nThe Blood Drive Team", firstName)
	case entity.SentimentQuestion:
		return "Re: your question",
			fmt.Sprintf("Hi %s,\n\nThanks for reaching out! A coordinator will get back to you with an answer shortly.\n\nBest regards,\nThe Blood Drive Team", firstName)
	default:
		return "Thank you for your reply",
			fmt.Sprintf("Hi %s,\n\nThank you for getting back to us. We'll be in touch.\n\nBest regards,\nThe Blood Drive Team", firstName)
	}
}

// ModelResponder delegates response drafting to an external text-generation
// API and falls back to the template strategy on any failure
type ModelResponder struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	fallback   *TemplateResponder
	logger     logger.Logger
	metrics    *metrics.Metrics
}

// NewModelResponder creates a new model-backed responder. The API key is
// required; choosing this backend without one is a configuration error.
func NewModelResponder(endpoint, apiKey, model string, fallback *TemplateResponder, logger logger.Logger, m *metrics.Metrics) (*ModelResponder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("model responder requires an API key")
	}
	return &ModelResponder{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		fallback:   fallback,
		logger:     logger,
		metrics:    m,
	}, nil
}

const responderPrompt = `Draft a short, friendly reply to the email below on behalf of a blood-drive outreach team. The reply sentiment was classified as %s with %s urgency. Respond with only a JSON object of the shape {"subject":"...","body":"..."}.

Email:
%s`

// Generate drafts a response via the model, falling back to templates
func (r *ModelResponder) Generate(ctx context.Context, reply *entity.EmailReply, score *entity.SentimentScore, contact *entity.Contact) (*entity.GeneratedResponse, error) {
	draft, err := r.callModel(ctx, reply, score)
	if err != nil {
		r.logger.Warn("Model response generation failed, falling back to templates", "error", err)
		if r.metrics != nil {
			r.metrics.BackendFallbacks.WithLabelValues("response").Inc()
		}
		return r.fallback.Generate(ctx, reply, score, contact)
	}

	requiresApproval := score.Urgency == entity.UrgencyHigh ||
		score.Sentiment == entity.SentimentNegative ||
		(contact == nil && score.Sentiment == entity.SentimentNegative)

	return &entity.GeneratedResponse{
		ID:               uuid.NewString(),
		ReplyToEmailID:   reply.ID,
		Subject:          draft.Subject,
		Body:             draft.Body,
		TemplateUsed:     "model",
		Confidence:       responseConfidence(score, 0),
		RequiresApproval: requiresApproval,
		GeneratedAt:      time.Now(),
	}, nil
}

type modelDraft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (r *ModelResponder) callModel(ctx context.Context, reply *entity.EmailReply, score *entity.SentimentScore) (*modelDraft, error) {
	body := map[string]interface{}{
		"model":  r.model,
		"prompt": fmt.Sprintf(responderPrompt, score.Sentiment, score.Urgency, reply.Body),
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call generation API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation API returned status %d", resp.StatusCode)
	}

	var response struct {
		Completion string `json:"completion"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var draft modelDraft
	if err := json.Unmarshal([]byte(strings.TrimSpace(response.Completion)), &draft); err != nil {
		return nil, fmt.Errorf("malformed generation JSON: %w", err)
	}
	if draft.Body == "" {
		return nil, fmt.Errorf("model returned an empty draft")
	}
	return &draft, nil
}
