package entity

import "time"

// Sent email delivery status
const (
	EmailStatusSent      = "sent"
	EmailStatusDelivered = "delivered"
	EmailStatusOpened    = "opened"
	EmailStatusReplied   = "replied"
)

// SentEmail is the append-only record of one outbound send attempt.
// A record exists even when the transport reported failure so the
// scheduler always has something to track follow-ups against.
type SentEmail struct {
	ID            string     `json:"id" bson:"_id"`
	CampaignID    string     `json:"campaignId" bson:"campaignId"`
	ContactEmail  string     `json:"contactEmail" bson:"contactEmail"`
	TemplateID    string     `json:"templateId" bson:"templateId"`
	MessageID     string     `json:"messageId,omitempty" bson:"messageId,omitempty"`
	SentAt        time.Time  `json:"sentAt" bson:"sentAt"`
	Status        string     `json:"status" bson:"status"`
	ReplyReceived bool       `json:"replyReceived" bson:"replyReceived"`
	LastFollowUp  *time.Time `json:"lastFollowUp,omitempty" bson:"lastFollowUp,omitempty"`
	FollowUpCount int        `json:"followUpCount" bson:"followUpCount"`
	SendError     string     `json:"sendError,omitempty" bson:"sendError,omitempty"`
}

// LastContactAt returns the most recent outbound touch for this email
func (s *SentEmail) LastContactAt() time.Time {
	if s.LastFollowUp != nil {
		return *s.LastFollowUp
	}
	return s.SentAt
}
