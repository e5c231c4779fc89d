package entity

// Contact represents a single outreach recipient imported from a contact list
type Contact struct {
	Email        string            `json:"email" bson:"email"`
	FirstName    string            `json:"firstName" bson:"firstName"`
	LastName     string            `json:"lastName" bson:"lastName"`
	Organization string            `json:"organization,omitempty" bson:"organization,omitempty"`
	CustomFields map[string]string `json:"customFields,omitempty" bson:"customFields,omitempty"`
}

// FullName returns the display name for the contact
func (c *Contact) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Field resolves a template field by name, falling back to custom fields
func (c *Contact) Field(name string) (string, bool) {
	switch name {
	case "email":
		return c.Email, true
	case "firstName":
		return c.FirstName, true
	case "lastName":
		return c.LastName, true
	case "organization":
		return c.Organization, true
	case "fullName":
		return c.FullName(), true
	}
	if v, ok := c.CustomFields[name]; ok {
		return v, true
	}
	return "", false
}
