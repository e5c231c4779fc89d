package smtp

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"donorcast-service/internal/usecase"
	"donorcast-service/pkg/logger"
)

// Config holds SMTP connection settings
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// Transport delivers mail over SMTP. It implements usecase.Transport.
type Transport struct {
	config Config
	dialer *gomail.Dialer
	logger logger.Logger
}

// NewTransport creates a new SMTP transport
func NewTransport(config Config, log logger.Logger) *Transport {
	return &Transport{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		logger: log,
	}
}

// Send delivers one message. SMTP does not hand back a provider message
// ID, so we generate one and set it as the Message-ID header.
func (t *Transport) Send(ctx context.Context, params usecase.SendParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), t.config.Host)

	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", t.config.FromName, t.config.FromAddress))
	m.SetHeader("To", params.To)
	m.SetHeader("Subject", params.Subject)
	m.SetHeader("Message-ID", messageID)
	if params.TextBody != "" {
		m.SetBody("text/plain", params.TextBody)
		m.AddAlternative("text/html", params.HTMLBody)
	} else {
		m.SetBody("text/html", params.HTMLBody)
	}

	if err := t.dialer.DialAndSend(m); err != nil {
		return "", fmt.Errorf("smtp send to %s: %w", params.To, err)
	}

	return messageID, nil
}

// ValidateCredentials opens and closes a connection to the server
func (t *Transport) ValidateCredentials(ctx context.Context) bool {
	closer, err := t.dialer.Dial()
	if err != nil {
		t.logger.Warn("SMTP credential check failed", "host", t.config.Host, "error", err)
		return false
	}
	closer.Close()
	return true
}
