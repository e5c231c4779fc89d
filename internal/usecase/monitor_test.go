package usecase

import (
	"context"
	"testing"
	"time"

	"donorcast-service/internal/domain/entity"
	"donorcast-service/internal/domain/repository"
	storeRepo "donorcast-service/internal/interface/repository"
	"donorcast-service/pkg/logger"
)

type recordingCanceller struct {
	calls  []string
	onCall func()
}

func (c *recordingCanceller) CancelForEmail(ctx context.Context, sentEmailID, reason string) (int, error) {
	c.calls = append(c.calls, sentEmailID)
	if c.onCall != nil {
		c.onCall()
	}
	return 1, nil
}

func newMonitorFixture(t *testing.T) (*ReplyMonitor, *fakeReplySource, *recordingCanceller, *monitorRepos) {
	t.Helper()
	repos := &monitorRepos{
		sentEmails: storeRepo.NewMemorySentEmailRepository(),
		replies:    storeRepo.NewMemoryReplyRepository(),
	}
	source := &fakeReplySource{}
	canceller := &recordingCanceller{}
	monitor := NewReplyMonitor(source, repos.sentEmails, repos.replies, canceller, time.Minute, logger.NewNop(), nil)
	return monitor, source, canceller, repos
}

type monitorRepos struct {
	sentEmails repository.SentEmailRepository
	replies    repository.ReplyRepository
}

func seedSentEmail(t *testing.T, repos *monitorRepos, id, email string, sentAt time.Time) {
	t.Helper()
	err := repos.sentEmails.Save(context.Background(), &entity.SentEmail{
		ID:           id,
		CampaignID:   "camp-1",
		ContactEmail: email,
		TemplateID:   "tpl-1",
		SentAt:       sentAt,
		Status:       entity.EmailStatusSent,
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

func TestIngestMatchesMostRecentOutstanding(t *testing.T) {
	monitor, _, _, repos := newMonitorFixture(t)
	now := time.Now()
	seedSentEmail(t, repos, "sent-old", "jane@example.org", now.Add(-72*time.Hour))
	seedSentEmail(t, repos, "sent-new", "jane@example.org", now.Add(-1*time.Hour))

	reply, err := monitor.Ingest(context.Background(), RawReply{
		MessageID:  "m1",
		FromEmail:  "jane@example.org",
		Subject:    "Re: drive",
		Body:       "count me in",
		ReceivedAt: now,
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if reply == nil {
		t.Fatal("expected a reply")
	}
	if reply.OriginalEmailID != "sent-new" {
		t.Errorf("matched %q, want the most recent send", reply.OriginalEmailID)
	}

	updated, _ := repos.sentEmails.FindByID(context.Background(), "sent-new")
	if !updated.ReplyReceived || updated.Status != entity.EmailStatusReplied {
		t.Errorf("sent email not marked replied: %+v", updated)
	}
}

func TestIngestMatchIsCaseInsensitive(t *testing.T) {
	monitor, _, _, repos := newMonitorFixture(t)
	seedSentEmail(t, repos, "sent-1", "Jane@Example.org", time.Now().Add(-time.Hour))

	reply, err := monitor.Ingest(context.Background(), RawReply{
		MessageID: "m1", FromEmail: "jane@example.org", Body: "ok", ReceivedAt: time.Now(),
	})
	if err != nil || reply == nil {
		t.Fatalf("expected case-insensitive match, reply=%v err=%v", reply, err)
	}
}

func TestIngestDropsDuplicateWithinWindow(t *testing.T) {
	monitor, _, _, repos := newMonitorFixture(t)
	now := time.Now()
	seedSentEmail(t, repos, "sent-1", "jane@example.org", now.Add(-time.Hour))

	first, err := monitor.Ingest(context.Background(), RawReply{
		MessageID: "m1", FromEmail: "jane@example.org", Body: "yes", ReceivedAt: now,
	})
	if err != nil || first == nil {
		t.Fatalf("first ingest failed: reply=%v err=%v", first, err)
	}

	// Same sender again 30 seconds later: inside the dedup window
	second, err := monitor.Ingest(context.Background(), RawReply{
		MessageID: "m2", FromEmail: "jane@example.org", Body: "yes", ReceivedAt: now.Add(30 * time.Second),
	})
	if err != nil {
		t.Fatalf("second ingest errored: %v", err)
	}
	if second != nil {
		t.Error("duplicate within the window should be dropped")
	}

	replies, _ := repos.replies.FindBySentEmail(context.Background(), "sent-1")
	if len(replies) != 1 {
		t.Errorf("expected 1 stored reply, got %d", len(replies))
	}
}

func TestIngestAcceptsReplyAfterDedupWindow(t *testing.T) {
	monitor, _, _, repos := newMonitorFixture(t)
	now := time.Now()
	seedSentEmail(t, repos, "sent-1", "jane@example.org", now.Add(-48*time.Hour))

	if _, err := monitor.Ingest(context.Background(), RawReply{
		MessageID: "m1", FromEmail: "jane@example.org", Body: "first", ReceivedAt: now.Add(-2 * time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	// sent-1 is no longer outstanding after the first reply, so re-arm it
	// to model a genuine second conversation turn
	seedSentEmail(t, repos, "sent-2", "jane@example.org", now.Add(-time.Hour))

	second, err := monitor.Ingest(context.Background(), RawReply{
		MessageID: "m2", FromEmail: "jane@example.org", Body: "second", ReceivedAt: now,
	})
	if err != nil || second == nil {
		t.Fatalf("reply outside window should be accepted: reply=%v err=%v", second, err)
	}
}

func TestIngestUnmatchedSenderIsIgnored(t *testing.T) {
	monitor, _, canceller, _ := newMonitorFixture(t)

	reply, err := monitor.Ingest(context.Background(), RawReply{
		MessageID: "m1", FromEmail: "stranger@example.org", Body: "hi", ReceivedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Ingest errored: %v", err)
	}
	if reply != nil {
		t.Error("unmatched message should produce no reply")
	}
	if len(canceller.calls) != 0 {
		t.Error("nothing should be cancelled for an unmatched message")
	}
}

func TestIngestCancelsFollowUpsBeforeNotifyingListeners(t *testing.T) {
	monitor, _, canceller, repos := newMonitorFixture(t)
	seedSentEmail(t, repos, "sent-1", "jane@example.org", time.Now().Add(-time.Hour))

	var order []string
	canceller.onCall = func() { order = append(order, "cancel") }
	monitor.OnReplyReceived(func(ctx context.Context, reply *entity.EmailReply) {
		order = append(order, "notify")
		// Listener must observe the replied state
		sent, _ := repos.sentEmails.FindByID(ctx, reply.OriginalEmailID)
		if !sent.ReplyReceived {
			t.Error("listener ran before sent email was marked replied")
		}
	})

	if _, err := monitor.Ingest(context.Background(), RawReply{
		MessageID: "m1", FromEmail: "jane@example.org", Body: "ok", ReceivedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	if len(order) != 2 || order[0] != "cancel" || order[1] != "notify" {
		t.Errorf("expected cancel before notify, got %v", order)
	}
}

func TestPollIngestsInArrivalOrder(t *testing.T) {
	monitor, source, _, repos := newMonitorFixture(t)
	now := time.Now()
	seedSentEmail(t, repos, "sent-a", "a@example.org", now.Add(-3*time.Hour))
	seedSentEmail(t, repos, "sent-b", "b@example.org", now.Add(-3*time.Hour))

	source.replies = []RawReply{
		{MessageID: "m2", FromEmail: "b@example.org", Body: "later", ReceivedAt: now},
		{MessageID: "m1", FromEmail: "a@example.org", Body: "earlier", ReceivedAt: now.Add(-time.Minute)},
	}

	var got []string
	monitor.OnReplyReceived(func(ctx context.Context, reply *entity.EmailReply) {
		got = append(got, reply.FromEmail)
	})

	if err := monitor.Poll(context.Background()); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(got) != 2 || got[0] != "a@example.org" || got[1] != "b@example.org" {
		t.Errorf("replies not processed in arrival order: %v", got)
	}
}
