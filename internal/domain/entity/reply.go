package entity

import "time"

// Reply sentiment categories
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentQuestion = "question"
)

// Urgency levels derived from keyword density
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// EmailReply represents an inbound message correlated to a SentEmail
type EmailReply struct {
	ID              string    `json:"id" bson:"_id"`
	OriginalEmailID string    `json:"originalEmailId" bson:"originalEmailId"`
	FromEmail       string    `json:"fromEmail" bson:"fromEmail"`
	Subject         string    `json:"subject" bson:"subject"`
	Body            string    `json:"body" bson:"body"`
	ReceivedAt      time.Time `json:"receivedAt" bson:"receivedAt"`
	Sentiment       string    `json:"sentiment,omitempty" bson:"sentiment,omitempty"`
	Processed       bool      `json:"processed" bson:"processed"`
}

// SentimentScore is the classifier output for a single reply
type SentimentScore struct {
	Sentiment  string   `json:"sentiment"`
	Confidence float64  `json:"confidence"`
	Keywords   []string `json:"keywords,omitempty"`
	IsQuestion bool     `json:"isQuestion"`
	Urgency    string   `json:"urgency"`
}
