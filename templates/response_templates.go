package templates

import (
	"donorcast-service/internal/domain/entity"
	"donorcast-service/internal/usecase"
)

// DefaultResponseTemplates returns the built-in canned responses, highest
// priority first. Negative and urgent triggers always require approval.
func DefaultResponseTemplates() []usecase.ResponseTemplate {
	return []usecase.ResponseTemplate{
		{
			ID:               "urgent-escalation",
			Name:             "Urgent escalation",
			Priority:         100,
			Urgencies:        []string{entity.UrgencyHigh},
			Subject:          "Re: your message",
			Body:             "Hi {{firstName}},\n\nThank you for flagging this as urgent. A coordinator is looking at your message right now and will reach out to you directly.\n\nBest regards,\nThe Blood Drive Team",
			RequiresApproval: true,
		},
		{
			ID:               "opt-out",
			Name:             "Opt-out acknowledgement",
			Priority:         90,
			Sentiments:       []string{entity.SentimentNegative},
			Keywords:         []string{"unsubscribe", "remove me", "stop"},
			Subject:          "You've been removed from our list",
			Body:             "Hi {{firstName}},\n\nWe've removed you from this outreach list and you won't hear from us about this drive again. Thank you for letting us know.\n\nBest regards,\nThe Blood Drive Team",
			RequiresApproval: true,
		},
		{
			ID:               "negative-reply",
			Name:             "Negative reply",
			Priority:         80,
			Sentiments:       []string{entity.SentimentNegative},
			Subject:          "We appreciate your feedback",
			Body:             "Hi {{firstName}},\n\nThank you for taking the time to respond. We've noted your feedback and won't trouble you further about this drive.\n\nBest regards,\nThe Blood Drive Team",
			RequiresApproval: true,
		},
		{
			ID:         "scheduling-question",
			Name:       "Scheduling question",
			Priority:   70,
			Sentiments: []string{entity.SentimentQuestion},
			Keywords:   []string{"when", "time", "schedule", "where", "location"},
			Subject:    "Drive details",
			Body:       "Hi {{firstName}},\n\nGreat question! The drive details, including times and location, are on the signup page we sent you. If anything is still unclear, just reply here and a coordinator will help you out.\n\nBest regards,\nThe Blood Drive Team",
		},
		{
			ID:         "general-question",
			Name:       "General question",
			Priority:   60,
			Sentiments: []string{entity.SentimentQuestion},
			Subject:    "Re: your question",
			Body:       "Hi {{firstName}},\n\nThanks for reaching out! A coordinator will get back to you with an answer shortly.\n\nBest regards,\nThe Blood Drive Team",
		},
		{
			ID:         "positive-reply",
			Name:       "Positive reply",
			Priority:   50,
			Sentiments: []string{entity.SentimentPositive},
			Subject:    "Wonderful - next steps",
			Body:       "Hi {{firstName}},\n\nThat's wonderful to hear! We'll send your appointment details shortly. Please remember to eat well and stay hydrated before donating.\n\nBest regards,\nThe Blood Drive Team",
		},
	}
}
