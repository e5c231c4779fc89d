package entity

import "time"

// Campaign lifecycle states
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusRunning   = "running"
	CampaignStatusPaused    = "paused"
	CampaignStatusCompleted = "completed"
)

// EmailCampaign groups contacts, a template and follow-up rules processed together
type EmailCampaign struct {
	ID            string          `json:"id" bson:"_id"`
	Name          string          `json:"name" bson:"name"`
	Contacts      []Contact       `json:"contacts" bson:"contacts"`
	TemplateID    string          `json:"templateId" bson:"templateId"`
	FollowUpRules []*FollowUpRule `json:"followUpRules,omitempty" bson:"followUpRules,omitempty"`
	Status        string          `json:"status" bson:"status"`
	CreatedAt     time.Time       `json:"createdAt" bson:"createdAt"`
	StartedAt     *time.Time      `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// CampaignAnalytics is the aggregate view exposed to dashboard callers
type CampaignAnalytics struct {
	CampaignID           string           `json:"campaignId"`
	SentCount            int              `json:"sentCount"`
	OpenRate             float64          `json:"openRate"`
	ReplyRate            float64          `json:"replyRate"`
	SentimentBreakdown   map[string]int   `json:"sentimentBreakdown"`
	FollowUpMetrics      FollowUpMetrics  `json:"followUpMetrics"`
	AvgResponseTimeHours float64          `json:"avgResponseTimeHours"`
}

// FollowUpMetrics counts follow-up events by outcome for a campaign
type FollowUpMetrics struct {
	Scheduled int `json:"scheduled"`
	Executed  int `json:"executed"`
	Cancelled int `json:"cancelled"`
	Skipped   int `json:"skipped"`
}
