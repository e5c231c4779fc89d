package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"donorcast-service/internal/domain/entity"
	"donorcast-service/internal/domain/repository"
	"donorcast-service/pkg/logger"
	"donorcast-service/pkg/metrics"
)

// AutomationEngine wires sending, monitoring, classification, response
// generation and follow-up scheduling into campaigns
type AutomationEngine struct {
	campaigns  repository.CampaignRepository
	sentEmails repository.SentEmailRepository
	replies    repository.ReplyRepository
	responses  repository.ResponseRepository
	rules      repository.RuleRepository

	sender     *EmailSender
	monitor    *ReplyMonitor
	scheduler  *FollowUpScheduler
	classifier *SentimentClassifier
	responder  ResponseBackend
	renderer   *TemplateRenderer
	transport  Transport

	loopInterval time.Duration
	logger       logger.Logger
	metrics      *metrics.Metrics
	now          func() time.Time

	mu        sync.RWMutex
	templates map[string]*entity.EmailTemplate
}

// NewAutomationEngine creates the campaign orchestrator and hooks the reply
// pipeline onto the monitor
func NewAutomationEngine(
	campaigns repository.CampaignRepository,
	sentEmails repository.SentEmailRepository,
	replies repository.ReplyRepository,
	responses repository.ResponseRepository,
	rules repository.RuleRepository,
	sender *EmailSender,
	monitor *ReplyMonitor,
	scheduler *FollowUpScheduler,
	classifier *SentimentClassifier,
	responder ResponseBackend,
	renderer *TemplateRenderer,
	transport Transport,
	loopInterval time.Duration,
	logger logger.Logger,
	m *metrics.Metrics,
) *AutomationEngine {
	engine := &AutomationEngine{
		campaigns:    campaigns,
		sentEmails:   sentEmails,
		replies:      replies,
		responses:    responses,
		rules:        rules,
		sender:       sender,
		monitor:      monitor,
		scheduler:    scheduler,
		classifier:   classifier,
		responder:    responder,
		renderer:     renderer,
		transport:    transport,
		loopInterval: loopInterval,
		logger:       logger,
		metrics:      m,
		now:          time.Now,
		templates:    make(map[string]*entity.EmailTemplate),
	}
	monitor.OnReplyReceived(engine.handleReply)
	return engine
}

// RegisterTemplate makes a template available to campaigns and follow-ups
func (e *AutomationEngine) RegisterTemplate(template *entity.EmailTemplate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[template.ID] = template
}

// Template returns a registered template by ID
func (e *AutomationEngine) Template(id string) (*entity.EmailTemplate, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	template, ok := e.templates[id]
	return template, ok
}

// CreateCampaign assembles a draft campaign from contacts, a template and
// optional follow-up rules
func (e *AutomationEngine) CreateCampaign(ctx context.Context, name string, contacts []entity.Contact, template *entity.EmailTemplate, rules []*entity.FollowUpRule) (*entity.EmailCampaign, error) {
	if len(contacts) == 0 {
		return nil, fmt.Errorf("campaign needs at least one contact")
	}
	if template == nil {
		return nil, fmt.Errorf("campaign needs a template")
	}

	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	e.RegisterTemplate(template)

	for _, rule := range rules {
		if rule.ID == "" {
			rule.ID = uuid.NewString()
		}
		if err := e.rules.Save(ctx, rule); err != nil {
			return nil, fmt.Errorf("failed to save rule: %w", err)
		}
	}

	campaign := &entity.EmailCampaign{
		ID:            uuid.NewString(),
		Name:          name,
		Contacts:      contacts,
		TemplateID:    template.ID,
		FollowUpRules: rules,
		Status:        entity.CampaignStatusDraft,
		CreatedAt:     e.now(),
	}
	if err := e.campaigns.Save(ctx, campaign); err != nil {
		return nil, err
	}

	e.logger.Info("Campaign created",
		"campaignId", campaign.ID,
		"name", name,
		"contacts", len(contacts),
		"rules", len(rules))
	return campaign, nil
}

// StartCampaign moves a draft campaign to running and sends to every
// contact, scheduling the initial follow-up after each send. Sending stops
// early when the campaign is paused; resuming picks up the remainder.
func (e *AutomationEngine) StartCampaign(ctx context.Context, id string) error {
	campaign, err := e.campaigns.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if campaign.Status != entity.CampaignStatusDraft {
		return fmt.Errorf("campaign %s is %s, expected draft", id, campaign.Status)
	}

	if err := e.campaigns.UpdateStatus(ctx, id, entity.CampaignStatusRunning, e.now()); err != nil {
		return err
	}
	e.logger.Info("Campaign started", "campaignId", id)

	return e.runCampaign(ctx, campaign)
}

// PauseCampaign halts a running campaign
func (e *AutomationEngine) PauseCampaign(ctx context.Context, id string) error {
	campaign, err := e.campaigns.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if campaign.Status != entity.CampaignStatusRunning {
		return fmt.Errorf("campaign %s is %s, expected running", id, campaign.Status)
	}
	if err := e.campaigns.UpdateStatus(ctx, id, entity.CampaignStatusPaused, e.now()); err != nil {
		return err
	}
	e.logger.Info("Campaign paused", "campaignId", id)
	return nil
}

// ResumeCampaign continues a paused campaign with the contacts that have
// not been sent to yet
func (e *AutomationEngine) ResumeCampaign(ctx context.Context, id string) error {
	campaign, err := e.campaigns.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if campaign.Status != entity.CampaignStatusPaused {
		return fmt.Errorf("campaign %s is %s, expected paused", id, campaign.Status)
	}
	if err := e.campaigns.UpdateStatus(ctx, id, entity.CampaignStatusRunning, e.now()); err != nil {
		return err
	}
	e.logger.Info("Campaign resumed", "campaignId", id)

	return e.runCampaign(ctx, campaign)
}

// runCampaign sends to the campaign's remaining contacts, one at a time
// with the sender's pacing, and marks the campaign completed once every
// contact has a send record
func (e *AutomationEngine) runCampaign(ctx context.Context, campaign *entity.EmailCampaign) error {
	template, ok := e.Template(campaign.TemplateID)
	if !ok {
		return fmt.Errorf("campaign template %s is not registered", campaign.TemplateID)
	}

	already, err := e.sentContactSet(ctx, campaign.ID)
	if err != nil {
		return err
	}

	sends := 0
	for i := range campaign.Contacts {
		contact := &campaign.Contacts[i]
		if already[strings.ToLower(contact.Email)] {
			continue
		}

		// Re-read status so a pause takes effect mid-run
		current, err := e.campaigns.FindByID(ctx, campaign.ID)
		if err != nil {
			return err
		}
		if current.Status != entity.CampaignStatusRunning {
			e.logger.Info("Campaign no longer running, stopping send loop",
				"campaignId", campaign.ID,
				"status", current.Status)
			return nil
		}

		if err := e.sender.Pace(ctx, sends, campaign.ID); err != nil {
			return err
		}

		sent, err := e.sender.SendOne(ctx, contact, template, campaign.ID)
		if err != nil {
			return err
		}
		sends++
		already[strings.ToLower(contact.Email)] = true

		if _, err := e.scheduler.ScheduleForEmail(ctx, sent); err != nil {
			e.logger.Error("Failed to schedule initial follow-up",
				"sentEmailId", sent.ID,
				"error", err)
		}
	}

	if len(already) >= len(campaign.Contacts) {
		if err := e.campaigns.UpdateStatus(ctx, campaign.ID, entity.CampaignStatusCompleted, e.now()); err != nil {
			return err
		}
		e.logger.Info("Campaign completed", "campaignId", campaign.ID)
	}
	return nil
}

func (e *AutomationEngine) sentContactSet(ctx context.Context, campaignID string) (map[string]bool, error) {
	sent, err := e.sentEmails.FindByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(sent))
	for _, record := range sent {
		set[strings.ToLower(record.ContactEmail)] = true
	}
	return set, nil
}

// Run drives the follow-up loop until the context is cancelled
func (e *AutomationEngine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.loopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Automation engine stopped")
			return
		case <-ticker.C:
			if err := e.ProcessDueFollowUps(ctx); err != nil {
				e.logger.Error("Error processing due follow-ups", "error", err)
				if e.metrics != nil {
					e.metrics.ErrorsCount.WithLabelValues("followup_loop").Inc()
				}
			}
		}
	}
}

// ProcessDueFollowUps executes one scheduler tick and dispatches the
// follow-up email for every executed event
func (e *AutomationEngine) ProcessDueFollowUps(ctx context.Context) error {
	executed, err := e.scheduler.Tick(ctx)
	if err != nil {
		return err
	}
	for _, event := range executed {
		e.dispatchFollowUp(ctx, event)
	}
	return nil
}

// dispatchFollowUp sends the follow-up email for an executed event, bumps
// the sent email's follow-up bookkeeping and lines up the next follow-up
func (e *AutomationEngine) dispatchFollowUp(ctx context.Context, event *entity.FollowUpEvent) {
	sent, err := e.sentEmails.FindByID(ctx, event.SentEmailID)
	if err != nil {
		e.logger.Error("Follow-up references unknown sent email",
			"eventId", event.ID,
			"sentEmailId", event.SentEmailID)
		return
	}

	template, ok := e.Template(event.TemplateID)
	if !ok {
		template, ok = e.Template(sent.TemplateID)
	}
	if !ok {
		e.logger.Error("No template registered for follow-up",
			"eventId", event.ID,
			"templateId", event.TemplateID)
		return
	}

	contact := e.resolveContact(ctx, sent)
	if contact == nil {
		contact = &entity.Contact{Email: sent.ContactEmail, FirstName: placeholderFirstName}
	}

	rendered := e.renderer.Render(template, contact)
	if _, err := e.transport.Send(ctx, SendParams{
		To:       sent.ContactEmail,
		Subject:  rendered.Subject,
		HTMLBody: rendered.HTMLBody,
		TextBody: rendered.TextBody,
	}); err != nil {
		// Recorded, not retried; the event already counts as executed
		e.logger.Error("Follow-up send failed",
			"eventId", event.ID,
			"to", sent.ContactEmail,
			"error", err)
		if e.metrics != nil {
			e.metrics.SendFailures.Inc()
		}
	}

	executedAt := e.now()
	if event.ExecutedAt != nil {
		executedAt = *event.ExecutedAt
	}
	if err := e.sentEmails.RecordFollowUp(ctx, sent.ID, executedAt); err != nil {
		e.logger.Error("Failed to record follow-up", "sentEmailId", sent.ID, "error", err)
		return
	}

	// Line up the next touch in the sequence
	updated, err := e.sentEmails.FindByID(ctx, sent.ID)
	if err == nil {
		if _, err := e.scheduler.ScheduleForEmail(ctx, updated); err != nil {
			e.logger.Error("Failed to schedule next follow-up", "sentEmailId", sent.ID, "error", err)
		}
	}

	e.logger.Info("Follow-up dispatched",
		"eventId", event.ID,
		"to", sent.ContactEmail)
}

// handleReply is the monitor callback: classify, maybe escalate, generate a
// response and either auto-send it or queue it for approval
func (e *AutomationEngine) handleReply(ctx context.Context, reply *entity.EmailReply) {
	score := e.classifier.Classify(ctx, reply)
	if err := e.replies.SetSentiment(ctx, reply.ID, score.Sentiment); err != nil {
		e.logger.Error("Failed to record sentiment", "replyId", reply.ID, "error", err)
	}
	reply.Sentiment = score.Sentiment

	e.logger.Info("Reply classified",
		"replyId", reply.ID,
		"sentiment", score.Sentiment,
		"confidence", score.Confidence,
		"urgency", score.Urgency)

	sent, err := e.sentEmails.FindByID(ctx, reply.OriginalEmailID)
	if err != nil {
		e.logger.Error("Reply references unknown sent email", "replyId", reply.ID, "error", err)
		return
	}

	// Sentiment-gated escalation rules may now apply
	if _, err := e.scheduler.ScheduleForEmail(ctx, sent); err != nil {
		e.logger.Error("Failed to evaluate escalation rules", "sentEmailId", sent.ID, "error", err)
	}

	contact := e.resolveContact(ctx, sent)

	response, err := e.responder.Generate(ctx, reply, score, contact)
	if err != nil {
		e.logger.Error("Response generation failed", "replyId", reply.ID, "error", err)
		return
	}
	if err := e.responses.Save(ctx, response); err != nil {
		e.logger.Error("Failed to save response", "responseId", response.ID, "error", err)
		return
	}

	if response.RequiresApproval {
		e.logger.Info("Response queued for approval",
			"responseId", response.ID,
			"replyId", reply.ID)
	} else {
		e.sendResponse(ctx, response, reply.FromEmail)
	}

	if err := e.replies.MarkProcessed(ctx, reply.ID); err != nil {
		e.logger.Error("Failed to mark reply processed", "replyId", reply.ID, "error", err)
	}
}

func (e *AutomationEngine) sendResponse(ctx context.Context, response *entity.GeneratedResponse, to string) {
	if _, err := e.transport.Send(ctx, SendParams{
		To:       to,
		Subject:  response.Subject,
		HTMLBody: response.Body,
		TextBody: response.Body,
	}); err != nil {
		e.logger.Error("Response send failed",
			"responseId", response.ID,
			"to", to,
			"error", err)
		return
	}
	if err := e.responses.MarkSent(ctx, response.ID, e.now()); err != nil {
		e.logger.Error("Failed to mark response sent", "responseId", response.ID, "error", err)
	}
	e.logger.Info("Response sent", "responseId", response.ID, "to", to)
}

// resolveContact finds the campaign contact record behind a sent email
func (e *AutomationEngine) resolveContact(ctx context.Context, sent *entity.SentEmail) *entity.Contact {
	campaign, err := e.campaigns.FindByID(ctx, sent.CampaignID)
	if err != nil {
		return nil
	}
	for i := range campaign.Contacts {
		if strings.EqualFold(campaign.Contacts[i].Email, sent.ContactEmail) {
			return &campaign.Contacts[i]
		}
	}
	return nil
}

// GetPendingResponses returns responses awaiting operator approval
func (e *AutomationEngine) GetPendingResponses(ctx context.Context) ([]*entity.GeneratedResponse, error) {
	return e.responses.FindPending(ctx)
}

// ApproveResponse approves a pending response and sends it. Returns false
// when the response was not pending.
func (e *AutomationEngine) ApproveResponse(ctx context.Context, id string) (bool, error) {
	ok, err := e.responses.MarkApproved(ctx, id)
	if err != nil || !ok {
		return false, err
	}

	response, err := e.responses.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	reply, err := e.replies.FindByID(ctx, response.ReplyToEmailID)
	if err != nil {
		return false, fmt.Errorf("approved response references unknown reply: %w", err)
	}

	e.sendResponse(ctx, response, reply.FromEmail)
	e.logger.Info("Response approved", "responseId", id)
	return true, nil
}

// ListCampaigns returns every campaign
func (e *AutomationEngine) ListCampaigns(ctx context.Context) ([]*entity.EmailCampaign, error) {
	return e.campaigns.List(ctx)
}

// GetCampaign returns one campaign by ID
func (e *AutomationEngine) GetCampaign(ctx context.Context, id string) (*entity.EmailCampaign, error) {
	return e.campaigns.FindByID(ctx, id)
}

// GetScheduledFollowUps returns every follow-up still awaiting execution
func (e *AutomationEngine) GetScheduledFollowUps(ctx context.Context) ([]*entity.FollowUpEvent, error) {
	return e.scheduler.ScheduledEvents(ctx)
}

// GetCampaignAnalytics aggregates delivery, reply and follow-up metrics for
// one campaign
func (e *AutomationEngine) GetCampaignAnalytics(ctx context.Context, id string) (*entity.CampaignAnalytics, error) {
	if _, err := e.campaigns.FindByID(ctx, id); err != nil {
		return nil, err
	}
	sent, err := e.sentEmails.FindByCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	analytics := &entity.CampaignAnalytics{
		CampaignID:         id,
		SentCount:          len(sent),
		SentimentBreakdown: make(map[string]int),
	}
	if len(sent) == 0 {
		return analytics, nil
	}

	opened := 0
	replied := 0
	var totalResponseHours float64

	for _, record := range sent {
		if record.Status == entity.EmailStatusOpened || record.Status == entity.EmailStatusReplied {
			opened++
		}
		if record.ReplyReceived {
			replied++
		}

		replies, err := e.replies.FindBySentEmail(ctx, record.ID)
		if err != nil {
			continue
		}
		if len(replies) > 0 {
			totalResponseHours += replies[0].ReceivedAt.Sub(record.SentAt).Hours()
		}
		for _, reply := range replies {
			if reply.Sentiment != "" {
				analytics.SentimentBreakdown[reply.Sentiment]++
			}
		}

		events, err := e.scheduler.EventsForEmail(ctx, record.ID)
		if err != nil {
			continue
		}
		for _, event := range events {
			switch event.Status {
			case entity.FollowUpStatusScheduled:
				analytics.FollowUpMetrics.Scheduled++
			case entity.FollowUpStatusSent:
				analytics.FollowUpMetrics.Executed++
			case entity.FollowUpStatusCancelled:
				analytics.FollowUpMetrics.Cancelled++
			case entity.FollowUpStatusSkipped:
				analytics.FollowUpMetrics.Skipped++
			}
		}
	}

	analytics.OpenRate = float64(opened) / float64(len(sent))
	analytics.ReplyRate = float64(replied) / float64(len(sent))
	if replied > 0 {
		analytics.AvgResponseTimeHours = totalResponseHours / float64(replied)
	}
	return analytics, nil
}
