package router

import (
	"sort"

	"donorcast-service/internal/domain/entity"
	"donorcast-service/internal/usecase"
	"donorcast-service/pkg/logger"
)

// TriggerRouter routes replies to response templates by trigger predicate,
// highest priority first
type TriggerRouter struct {
	templates []usecase.ResponseTemplate
	logger    logger.Logger
}

// NewTriggerRouter creates a new trigger router
func NewTriggerRouter(logger logger.Logger) *TriggerRouter {
	return &TriggerRouter{
		templates: make([]usecase.ResponseTemplate, 0),
		logger:    logger,
	}
}

// Register adds a response template, keeping the list sorted by priority
func (r *TriggerRouter) Register(template usecase.ResponseTemplate) {
	r.templates = append(r.templates, template)
	sort.SliceStable(r.templates, func(i, j int) bool {
		return r.templates[i].Priority > r.templates[j].Priority
	})
	r.logger.Info("Registered response template", "name", template.Name, "priority", template.Priority)
}

// Match returns the highest-priority template whose trigger fires, or nil
func (r *TriggerRouter) Match(score *entity.SentimentScore, body string) *usecase.ResponseTemplate {
	for i := range r.templates {
		if r.templates[i].Matches(score, body) {
			return &r.templates[i]
		}
	}
	return nil
}
