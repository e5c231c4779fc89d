package entity

// EmailTemplate represents a reusable subject/body template with {{field}} placeholders
type EmailTemplate struct {
	ID        string   `json:"id" bson:"_id"`
	Name      string   `json:"name" bson:"name"`
	Subject   string   `json:"subject" bson:"subject"`
	Body      string   `json:"body" bson:"body"`
	Variables []string `json:"variables,omitempty" bson:"variables,omitempty"`
}
