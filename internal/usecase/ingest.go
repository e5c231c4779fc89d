package usecase

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/badoux/checkmail"

	"donorcast-service/internal/domain/entity"
	"donorcast-service/pkg/logger"
)

// Placeholder first name for rows that carry an email but no name
const placeholderFirstName = "Unknown"

// ContactIngestor parses delimited contact lists into contact records.
// Malformed rows are logged and skipped, never fatal. Duplicate emails
// pass through; de-duplication is the caller's concern.
type ContactIngestor struct {
	logger logger.Logger
}

// NewContactIngestor creates a new contact ingestor
func NewContactIngestor(logger logger.Logger) *ContactIngestor {
	return &ContactIngestor{logger: logger}
}

// Parse reads CSV text with a header row and returns the accepted contacts.
// Quoted fields containing the delimiter are honored. Header keys map
// case-insensitively onto known fields; unrecognized columns become custom
// fields.
func (ci *ContactIngestor) Parse(data string) ([]entity.Contact, error) {
	reader := csv.NewReader(strings.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var contacts []entity.Contact
	rowNum := 1

	for {
		rowNum++
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			ci.logger.Warn("Skipping malformed row", "row", rowNum, "error", err)
			continue
		}
		if len(row) != len(header) {
			ci.logger.Warn("Skipping row with column count mismatch",
				"row", rowNum,
				"expected", len(header),
				"got", len(row))
			continue
		}

		contact, err := ci.buildContact(header, row)
		if err != nil {
			ci.logger.Warn("Skipping invalid row", "row", rowNum, "error", err)
			continue
		}
		contacts = append(contacts, contact)
	}

	ci.logger.Info("Contact list parsed", "accepted", len(contacts))
	return contacts, nil
}

func (ci *ContactIngestor) buildContact(header, row []string) (entity.Contact, error) {
	contact := entity.Contact{
		CustomFields: make(map[string]string),
	}

	for i, key := range header {
		value := strings.TrimSpace(row[i])
		switch key {
		case "email", "e-mail", "email address", "email_address":
			contact.Email = value
		case "first name", "firstname", "first_name":
			contact.FirstName = value
		case "last name", "lastname", "last_name":
			contact.LastName = value
		case "name", "full name", "full_name":
			first, last := splitName(value)
			contact.FirstName = first
			contact.LastName = last
		case "organization", "organisation", "company", "org":
			contact.Organization = value
		default:
			if value != "" {
				contact.CustomFields[key] = value
			}
		}
	}

	if contact.Email == "" {
		return entity.Contact{}, fmt.Errorf("missing email")
	}
	if err := checkmail.ValidateFormat(contact.Email); err != nil {
		return entity.Contact{}, fmt.Errorf("invalid email %q: %w", contact.Email, err)
	}
	if contact.FirstName == "" {
		contact.FirstName = placeholderFirstName
	}
	return contact, nil
}

// splitName divides a full name at the first space
func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	parts := strings.SplitN(name, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}
