package entity

import "time"

// GeneratedResponse is a candidate reply produced by the response generator.
// Responses flagged requiresApproval sit in the pending queue until an
// operator approves them; everything else is auto-sendable.
type GeneratedResponse struct {
	ID               string     `json:"id" bson:"_id"`
	ReplyToEmailID   string     `json:"replyToEmailId" bson:"replyToEmailId"`
	Subject          string     `json:"subject" bson:"subject"`
	Body             string     `json:"body" bson:"body"`
	TemplateUsed     string     `json:"templateUsed,omitempty" bson:"templateUsed,omitempty"`
	Confidence       float64    `json:"confidence" bson:"confidence"`
	RequiresApproval bool       `json:"requiresApproval" bson:"requiresApproval"`
	GeneratedAt      time.Time  `json:"generatedAt" bson:"generatedAt"`
	Approved         *bool      `json:"approved,omitempty" bson:"approved,omitempty"`
	SentAt           *time.Time `json:"sentAt,omitempty" bson:"sentAt,omitempty"`
}
