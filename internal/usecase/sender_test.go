package usecase

import (
	"context"
	"testing"
	"time"

	"donorcast-service/internal/domain/entity"
	storeRepo "donorcast-service/internal/interface/repository"
	"donorcast-service/pkg/logger"
)

func fastSenderConfig() SenderConfig {
	return SenderConfig{SendDelay: 0, BatchSize: 50, BatchDelay: 0}
}

func TestSendOneRecordsSuccess(t *testing.T) {
	transport := newFakeTransport()
	sentRepo := storeRepo.NewMemorySentEmailRepository()
	sender := NewEmailSender(transport, NewTemplateRenderer(), sentRepo, fastSenderConfig(), logger.NewNop(), nil)

	contact := &entity.Contact{Email: "jane@example.org", FirstName: "Jane"}
	template := &entity.EmailTemplate{ID: "tpl-1", Subject: "Hi {{firstName}}", Body: "Body"}

	sent, err := sender.SendOne(context.Background(), contact, template, "camp-1")
	if err != nil {
		t.Fatalf("SendOne failed: %v", err)
	}
	if sent.MessageID == "" {
		t.Error("expected a message ID on success")
	}
	if sent.SendError != "" {
		t.Errorf("unexpected send error: %q", sent.SendError)
	}
	if sent.Status != entity.EmailStatusSent {
		t.Errorf("unexpected status: %q", sent.Status)
	}

	stored, err := sentRepo.FindByID(context.Background(), sent.ID)
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if stored.ContactEmail != "jane@example.org" {
		t.Errorf("wrong contact on record: %q", stored.ContactEmail)
	}

	if got := transport.sentTo(); len(got) != 1 || got[0] != "jane@example.org" {
		t.Errorf("unexpected transport sends: %v", got)
	}
}

func TestSendOneTransportFailureStillRecorded(t *testing.T) {
	transport := newFakeTransport()
	transport.failOn["bad@example.org"] = true
	sentRepo := storeRepo.NewMemorySentEmailRepository()
	sender := NewEmailSender(transport, NewTemplateRenderer(), sentRepo, fastSenderConfig(), logger.NewNop(), nil)

	contact := &entity.Contact{Email: "bad@example.org", FirstName: "Bad"}
	template := &entity.EmailTemplate{ID: "tpl-1", Subject: "s", Body: "b"}

	sent, err := sender.SendOne(context.Background(), contact, template, "camp-1")
	if err != nil {
		t.Fatalf("SendOne should not return transport errors: %v", err)
	}
	if sent.SendError == "" {
		t.Error("expected SendError to be recorded")
	}
	if sent.MessageID != "" {
		t.Errorf("failed send should have no message ID, got %q", sent.MessageID)
	}

	// The record must exist so follow-ups can still track this contact
	if _, err := sentRepo.FindByID(context.Background(), sent.ID); err != nil {
		t.Errorf("failed send not persisted: %v", err)
	}
}

func TestSendBulkDeliversToAll(t *testing.T) {
	transport := newFakeTransport()
	sentRepo := storeRepo.NewMemorySentEmailRepository()
	sender := NewEmailSender(transport, NewTemplateRenderer(), sentRepo, fastSenderConfig(), logger.NewNop(), nil)

	contacts := []entity.Contact{
		{Email: "a@example.org", FirstName: "A"},
		{Email: "b@example.org", FirstName: "B"},
		{Email: "c@example.org", FirstName: "C"},
	}
	template := &entity.EmailTemplate{ID: "tpl-1", Subject: "Hi {{firstName}}", Body: "b"}

	sent, err := sender.SendBulk(context.Background(), contacts, template, "camp-1")
	if err != nil {
		t.Fatalf("SendBulk failed: %v", err)
	}
	if len(sent) != 3 {
		t.Fatalf("expected 3 records, got %d", len(sent))
	}
	if subj := transport.sent[1].Subject; subj != "Hi B" {
		t.Errorf("personalization lost in bulk send: %q", subj)
	}
}

func TestPaceUsesBatchDelayAtBoundary(t *testing.T) {
	config := SenderConfig{SendDelay: 0, BatchSize: 2, BatchDelay: 60 * time.Millisecond}
	sender := NewEmailSender(newFakeTransport(), NewTemplateRenderer(),
		storeRepo.NewMemorySentEmailRepository(), config, logger.NewNop(), nil)

	start := time.Now()
	if err := sender.Pace(context.Background(), 2, "camp-1"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("boundary pace returned after %v, want the batch delay", elapsed)
	}

	// First send of a run goes out immediately, even on a dead context
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sender.Pace(ctx, 0, "camp-1"); err != nil {
		t.Errorf("first send should not wait or fail: %v", err)
	}

	// A cancelled context interrupts the wait
	if err := sender.Pace(ctx, 2, "camp-1"); err == nil {
		t.Error("expected context error")
	}
}

func TestSendBulkStopsOnCancelledContext(t *testing.T) {
	transport := newFakeTransport()
	sentRepo := storeRepo.NewMemorySentEmailRepository()
	config := SenderConfig{SendDelay: 50 * time.Millisecond, BatchSize: 50, BatchDelay: time.Second}
	sender := NewEmailSender(transport, NewTemplateRenderer(), sentRepo, config, logger.NewNop(), nil)

	contacts := []entity.Contact{
		{Email: "a@example.org", FirstName: "A"},
		{Email: "b@example.org", FirstName: "B"},
	}
	template := &entity.EmailTemplate{ID: "tpl-1", Subject: "s", Body: "b"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sent, err := sender.SendBulk(ctx, contacts, template, "camp-1")
	if err == nil {
		t.Fatal("expected context error")
	}
	if len(sent) != 1 {
		t.Errorf("expected only the first send before the delay, got %d", len(sent))
	}
}
