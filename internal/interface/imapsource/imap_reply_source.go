package imapsource

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"donorcast-service/internal/usecase"
	"donorcast-service/pkg/htmltext"
	"donorcast-service/pkg/logger"
)

// Config holds IMAP connection settings
type Config struct {
	Server      string // host:port
	Username    string
	Password    string
	DialTimeout time.Duration
}

// ReplySource fetches inbound replies over IMAP. It tracks the highest
// seen UID so each poll only fetches new messages. It implements
// usecase.ReplySource.
type ReplySource struct {
	config    Config
	converter *htmltext.Converter
	logger    logger.Logger

	mu        sync.Mutex
	client    *client.Client
	connected bool
	lastUID   uint32
}

// NewReplySource creates a new IMAP reply source
func NewReplySource(config Config, log logger.Logger) *ReplySource {
	if config.DialTimeout == 0 {
		config.DialTimeout = 30 * time.Second
	}
	return &ReplySource{
		config:    config,
		converter: htmltext.NewConverter(),
		logger:    log,
	}
}

// CheckForReplies fetches messages newer than the last seen UID and keeps
// the ones from an outstanding recipient. The first call only establishes
// the UID cursor so old inbox contents are not replayed as replies.
func (s *ReplySource) CheckForReplies(ctx context.Context, outstanding []string) ([]usecase.RawReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}

	if s.lastUID == 0 {
		uid, err := s.highestUID()
		if err != nil {
			s.disconnect()
			return nil, err
		}
		s.lastUID = uid
		return nil, nil
	}

	wanted := make(map[string]bool, len(outstanding))
	for _, addr := range outstanding {
		wanted[strings.ToLower(addr)] = true
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddRange(s.lastUID+1, 0)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 64)
	done := make(chan error, 1)
	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	var replies []usecase.RawReply
	for msg := range messages {
		if msg.Uid <= s.lastUID {
			continue
		}
		if msg.Uid > s.lastUID {
			s.lastUID = msg.Uid
		}
		reply := s.parseMessage(msg, section)
		if reply.FromEmail == "" || !wanted[strings.ToLower(reply.FromEmail)] {
			continue
		}
		replies = append(replies, reply)
	}

	if err := <-done; err != nil {
		s.disconnect()
		return replies, fmt.Errorf("imap fetch: %w", err)
	}

	return replies, nil
}

// SetupPushDelivery is not supported over plain IMAP polling
func (s *ReplySource) SetupPushDelivery(ctx context.Context, callbackURL string) bool {
	return false
}

// Close logs out of the IMAP server
func (s *ReplySource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnect()
}

func (s *ReplySource) ensureConnected(ctx context.Context) error {
	if s.connected && s.client != nil {
		return nil
	}

	s.logger.Info("Connecting to IMAP server", "server", s.config.Server)

	dialer := &net.Dialer{Timeout: s.config.DialTimeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", s.config.Server, nil)
	if err != nil {
		return fmt.Errorf("imap connect: %w", err)
	}

	imapClient, err := client.New(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("imap handshake: %w", err)
	}

	if err := imapClient.Login(s.config.Username, s.config.Password); err != nil {
		imapClient.Logout()
		return fmt.Errorf("imap login: %w", err)
	}

	if _, err := imapClient.Select("INBOX", true); err != nil {
		imapClient.Logout()
		return fmt.Errorf("imap select INBOX: %w", err)
	}

	s.client = imapClient
	s.connected = true
	return nil
}

func (s *ReplySource) disconnect() {
	if s.client != nil {
		s.client.Logout()
		s.client = nil
	}
	s.connected = false
}

func (s *ReplySource) highestUID() (uint32, error) {
	uids, err := s.client.UidSearch(imap.NewSearchCriteria())
	if err != nil {
		return 0, fmt.Errorf("imap search: %w", err)
	}
	var highest uint32
	for _, uid := range uids {
		if uid > highest {
			highest = uid
		}
	}
	return highest, nil
}

func (s *ReplySource) parseMessage(msg *imap.Message, section *imap.BodySectionName) usecase.RawReply {
	reply := usecase.RawReply{}

	if msg.Envelope != nil {
		reply.Subject = msg.Envelope.Subject
		reply.ReceivedAt = msg.Envelope.Date
		reply.MessageID = msg.Envelope.MessageId
		if len(msg.Envelope.From) > 0 {
			reply.FromEmail = msg.Envelope.From[0].Address()
		}
	}
	if reply.MessageID == "" {
		reply.MessageID = fmt.Sprintf("imap-uid-%d", msg.Uid)
	}
	if reply.ReceivedAt.IsZero() {
		reply.ReceivedAt = time.Now()
	}

	bodyReader := msg.GetBody(section)
	if bodyReader == nil {
		return reply
	}

	mr, err := mail.CreateReader(bodyReader)
	if err != nil {
		s.logger.Warn("Failed to read message body", "uid", msg.Uid, "error", err)
		return reply
	}

	var htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.logger.Warn("Failed to read message part", "uid", msg.Uid, "error", err)
			break
		}

		if h, ok := part.Header.(*mail.InlineHeader); ok {
			ct, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			switch {
			case strings.HasPrefix(ct, "text/plain"):
				reply.Body = string(body)
			case strings.HasPrefix(ct, "text/html"):
				htmlBody = string(body)
			}
		}
	}

	if reply.Body == "" && htmlBody != "" {
		reply.Body = s.converter.Convert(htmlBody)
	}

	return reply
}
