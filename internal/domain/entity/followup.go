package entity

import "time"

// Follow-up event lifecycle. Scheduled is the only non-terminal state.
const (
	FollowUpStatusScheduled = "scheduled"
	FollowUpStatusSent      = "sent"
	FollowUpStatusCancelled = "cancelled"
	FollowUpStatusSkipped   = "skipped"
)

// FollowUpConditions gate when a rule applies to a sent email
type FollowUpConditions struct {
	NoReplyAfterDays int      `json:"noReplyAfterDays" bson:"noReplyAfterDays"`
	MaxFollowUps     int      `json:"maxFollowUps" bson:"maxFollowUps"`
	SentimentFilter  []string `json:"sentimentFilter,omitempty" bson:"sentimentFilter,omitempty"`
}

// FollowUpRule is static configuration describing one follow-up policy
type FollowUpRule struct {
	ID         string             `json:"id" bson:"_id"`
	Name       string             `json:"name" bson:"name"`
	Conditions FollowUpConditions `json:"conditions" bson:"conditions"`
	TemplateID string             `json:"templateId" bson:"templateId"`
	Enabled    bool               `json:"enabled" bson:"enabled"`
}

// HasSentimentFilter reports whether the rule only fires for specific reply sentiments
func (r *FollowUpRule) HasSentimentFilter() bool {
	return len(r.Conditions.SentimentFilter) > 0
}

// MatchesSentiment reports whether the given sentiment passes the rule's filter
func (r *FollowUpRule) MatchesSentiment(sentiment string) bool {
	for _, s := range r.Conditions.SentimentFilter {
		if s == sentiment {
			return true
		}
	}
	return false
}

// FollowUpEvent is one scheduled follow-up for a sent email
type FollowUpEvent struct {
	ID           string     `json:"id" bson:"_id"`
	SentEmailID  string     `json:"sentEmailId" bson:"sentEmailId"`
	RuleID       string     `json:"ruleId" bson:"ruleId"`
	TemplateID   string     `json:"templateId" bson:"templateId"`
	ScheduledFor time.Time  `json:"scheduledFor" bson:"scheduledFor"`
	CreatedAt    time.Time  `json:"createdAt" bson:"createdAt"`
	Status       string     `json:"status" bson:"status"`
	Reason       string     `json:"reason,omitempty" bson:"reason,omitempty"`
	ExecutedAt   *time.Time `json:"executedAt,omitempty" bson:"executedAt,omitempty"`
}
