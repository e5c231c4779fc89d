package usecase

import (
	"context"
	"testing"
	"time"

	"donorcast-service/internal/domain/entity"
	storeRepo "donorcast-service/internal/interface/repository"
	"donorcast-service/pkg/logger"
)

type schedulerFixture struct {
	scheduler  *FollowUpScheduler
	events     *storeRepo.MemoryFollowUpEventRepository
	sentEmails *storeRepo.MemorySentEmailRepository
	replies    *storeRepo.MemoryReplyRepository
	rules      *storeRepo.MemoryRuleRepository
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()
	f := &schedulerFixture{
		events:     storeRepo.NewMemoryFollowUpEventRepository().(*storeRepo.MemoryFollowUpEventRepository),
		sentEmails: storeRepo.NewMemorySentEmailRepository().(*storeRepo.MemorySentEmailRepository),
		replies:    storeRepo.NewMemoryReplyRepository().(*storeRepo.MemoryReplyRepository),
		rules:      storeRepo.NewMemoryRuleRepository().(*storeRepo.MemoryRuleRepository),
	}
	f.scheduler = NewFollowUpScheduler(
		f.events, f.sentEmails, f.replies, f.rules,
		defaultHours(), time.Minute, logger.NewNop(), nil,
	)
	return f
}

func (f *schedulerFixture) addRule(t *testing.T, rule *entity.FollowUpRule) {
	t.Helper()
	if err := f.rules.Save(context.Background(), rule); err != nil {
		t.Fatalf("save rule: %v", err)
	}
}

func noReplyRule(days, max int) *entity.FollowUpRule {
	return &entity.FollowUpRule{
		ID:   "rule-no-reply",
		Name: "no reply",
		Conditions: entity.FollowUpConditions{
			NoReplyAfterDays: days,
			MaxFollowUps:     max,
		},
		TemplateID: "tpl-followup",
		Enabled:    true,
	}
}

func TestScheduleForEmailComputesBusinessHoursTime(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addRule(t, noReplyRule(3, 2))

	// Thursday 2025-06-05 10:00 + 3 days lands on Sunday; must snap to
	// Monday 09:00
	sent := &entity.SentEmail{
		ID:           "sent-1",
		ContactEmail: "jane@example.org",
		SentAt:       time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC),
	}

	event, err := f.scheduler.ScheduleForEmail(context.Background(), sent)
	if err != nil {
		t.Fatalf("ScheduleForEmail failed: %v", err)
	}
	if event == nil {
		t.Fatal("expected an event")
	}

	want := time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC)
	if !event.ScheduledFor.Equal(want) {
		t.Errorf("scheduled for %v, want %v", event.ScheduledFor, want)
	}
	if event.Status != entity.FollowUpStatusScheduled {
		t.Errorf("unexpected status: %q", event.Status)
	}
	if event.TemplateID != "tpl-followup" {
		t.Errorf("unexpected template: %q", event.TemplateID)
	}
}

func TestScheduleForEmailEscalatingBuffer(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addRule(t, noReplyRule(3, 5))

	// Second follow-up measured from the last touch, with the count=2
	// buffer of 7 extra days: 3+7=10 days out
	lastTouch := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC) // Monday
	sent := &entity.SentEmail{
		ID:            "sent-1",
		ContactEmail:  "jane@example.org",
		SentAt:        lastTouch.AddDate(0, 0, -9),
		LastFollowUp:  &lastTouch,
		FollowUpCount: 2,
	}

	event, err := f.scheduler.ScheduleForEmail(context.Background(), sent)
	if err != nil {
		t.Fatalf("ScheduleForEmail failed: %v", err)
	}
	if event == nil {
		t.Fatal("expected an event")
	}

	// 2025-06-12 is a Thursday, already inside business hours
	want := time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC)
	if !event.ScheduledFor.Equal(want) {
		t.Errorf("scheduled for %v, want %v", event.ScheduledFor, want)
	}
}

func TestScheduleForEmailAtMostOneScheduledEvent(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addRule(t, noReplyRule(3, 5))

	sent := &entity.SentEmail{ID: "sent-1", ContactEmail: "jane@example.org", SentAt: time.Now()}

	first, err := f.scheduler.ScheduleForEmail(context.Background(), sent)
	if err != nil || first == nil {
		t.Fatalf("first schedule: event=%v err=%v", first, err)
	}
	second, err := f.scheduler.ScheduleForEmail(context.Background(), sent)
	if err != nil {
		t.Fatalf("second schedule errored: %v", err)
	}
	if second != nil {
		t.Error("an email with a scheduled event must not get another")
	}
}

func TestScheduleForEmailRespectsMaxFollowUps(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addRule(t, noReplyRule(3, 2))

	sent := &entity.SentEmail{
		ID:            "sent-1",
		ContactEmail:  "jane@example.org",
		SentAt:        time.Now(),
		FollowUpCount: 2,
	}

	event, err := f.scheduler.ScheduleForEmail(context.Background(), sent)
	if err != nil {
		t.Fatalf("ScheduleForEmail failed: %v", err)
	}
	if event != nil {
		t.Error("cap reached, no event should be created")
	}
}

func TestScheduleForEmailSkipsRepliedForUnfilteredRule(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addRule(t, noReplyRule(3, 2))

	sent := &entity.SentEmail{
		ID:            "sent-1",
		ContactEmail:  "jane@example.org",
		SentAt:        time.Now(),
		ReplyReceived: true,
	}

	event, err := f.scheduler.ScheduleForEmail(context.Background(), sent)
	if err != nil {
		t.Fatalf("ScheduleForEmail failed: %v", err)
	}
	if event != nil {
		t.Error("unfiltered rule must not schedule after a reply")
	}
}

func TestScheduleForEmailSentimentFilterNeedsMatchingReply(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addRule(t, &entity.FollowUpRule{
		ID:   "rule-escalation",
		Name: "negative escalation",
		Conditions: entity.FollowUpConditions{
			NoReplyAfterDays: 1,
			MaxFollowUps:     1,
			SentimentFilter:  []string{entity.SentimentNegative},
		},
		TemplateID: "tpl-concern",
		Enabled:    true,
	})

	sent := &entity.SentEmail{ID: "sent-1", ContactEmail: "jane@example.org", SentAt: time.Now(), ReplyReceived: true}

	// No classified reply yet: the filtered rule must not fire
	event, err := f.scheduler.ScheduleForEmail(context.Background(), sent)
	if err != nil {
		t.Fatal(err)
	}
	if event != nil {
		t.Fatal("filtered rule fired without a matching classified reply")
	}

	if err := f.replies.Save(context.Background(), &entity.EmailReply{
		ID:              "r1",
		OriginalEmailID: "sent-1",
		FromEmail:       "jane@example.org",
		ReceivedAt:      time.Now(),
		Sentiment:       entity.SentimentNegative,
	}); err != nil {
		t.Fatal(err)
	}

	event, err = f.scheduler.ScheduleForEmail(context.Background(), sent)
	if err != nil {
		t.Fatal(err)
	}
	if event == nil {
		t.Fatal("filtered rule should fire once a matching reply is classified")
	}
	if event.RuleID != "rule-escalation" {
		t.Errorf("wrong rule: %q", event.RuleID)
	}
}

func TestCancelForEmailCancelsScheduled(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addRule(t, noReplyRule(3, 2))

	sent := &entity.SentEmail{ID: "sent-1", ContactEmail: "jane@example.org", SentAt: time.Now()}
	event, err := f.scheduler.ScheduleForEmail(context.Background(), sent)
	if err != nil || event == nil {
		t.Fatalf("schedule: event=%v err=%v", event, err)
	}

	cancelled, err := f.scheduler.CancelForEmail(context.Background(), "sent-1", "reply received")
	if err != nil {
		t.Fatalf("CancelForEmail failed: %v", err)
	}
	if cancelled != 1 {
		t.Errorf("expected 1 cancellation, got %d", cancelled)
	}

	stored, _ := f.events.FindByID(context.Background(), event.ID)
	if stored.Status != entity.FollowUpStatusCancelled {
		t.Errorf("unexpected status: %q", stored.Status)
	}
	if stored.Reason != "reply received" {
		t.Errorf("unexpected reason: %q", stored.Reason)
	}
}

func TestTickExecutesDueEvents(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addRule(t, noReplyRule(0, 2))

	// Freeze time inside business hours
	now := time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC)
	f.scheduler.now = func() time.Time { return now }

	sent := &entity.SentEmail{ID: "sent-1", ContactEmail: "jane@example.org", SentAt: now.AddDate(0, 0, -1)}
	if err := f.sentEmails.Save(context.Background(), sent); err != nil {
		t.Fatal(err)
	}
	event, err := f.scheduler.ScheduleForEmail(context.Background(), sent)
	if err != nil || event == nil {
		t.Fatalf("schedule: event=%v err=%v", event, err)
	}

	executed, err := f.scheduler.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if len(executed) != 1 || executed[0].ID != event.ID {
		t.Fatalf("expected the due event to execute, got %v", executed)
	}

	stored, _ := f.events.FindByID(context.Background(), event.ID)
	if stored.Status != entity.FollowUpStatusSent {
		t.Errorf("unexpected status: %q", stored.Status)
	}
	if stored.ExecutedAt == nil || !stored.ExecutedAt.Equal(now) {
		t.Errorf("executedAt not stamped: %v", stored.ExecutedAt)
	}
}

func TestTickSkipsWhenReplyArrivedAfterScheduling(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addRule(t, noReplyRule(0, 2))

	now := time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC)
	f.scheduler.now = func() time.Time { return now.AddDate(0, 0, -2) }

	sent := &entity.SentEmail{ID: "sent-1", ContactEmail: "jane@example.org", SentAt: now.AddDate(0, 0, -3)}
	event, err := f.scheduler.ScheduleForEmail(context.Background(), sent)
	if err != nil || event == nil {
		t.Fatalf("schedule: event=%v err=%v", event, err)
	}

	// Reply lands after the event was created but before execution
	if err := f.replies.Save(context.Background(), &entity.EmailReply{
		ID:              "r1",
		OriginalEmailID: "sent-1",
		FromEmail:       "jane@example.org",
		ReceivedAt:      now.AddDate(0, 0, -1),
	}); err != nil {
		t.Fatal(err)
	}

	f.scheduler.now = func() time.Time { return now }
	executed, err := f.scheduler.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if len(executed) != 0 {
		t.Fatal("event should have been skipped, not executed")
	}

	stored, _ := f.events.FindByID(context.Background(), event.ID)
	if stored.Status != entity.FollowUpStatusSkipped {
		t.Errorf("unexpected status: %q", stored.Status)
	}
}

func TestTickAllowsEscalationEventCreatedAfterReply(t *testing.T) {
	f := newSchedulerFixture(t)

	now := time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC)

	// Reply exists before the event is created: the guard only looks at
	// replies that arrived after event creation
	if err := f.replies.Save(context.Background(), &entity.EmailReply{
		ID:              "r1",
		OriginalEmailID: "sent-1",
		FromEmail:       "jane@example.org",
		ReceivedAt:      now.Add(-2 * time.Hour),
		Sentiment:       entity.SentimentNegative,
	}); err != nil {
		t.Fatal(err)
	}

	if err := f.events.Save(context.Background(), &entity.FollowUpEvent{
		ID:           "evt-escalation",
		SentEmailID:  "sent-1",
		RuleID:       "rule-escalation",
		TemplateID:   "tpl-concern",
		ScheduledFor: now.Add(-time.Minute),
		CreatedAt:    now.Add(-time.Hour),
		Status:       entity.FollowUpStatusScheduled,
	}); err != nil {
		t.Fatal(err)
	}

	f.scheduler.now = func() time.Time { return now }
	executed, err := f.scheduler.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if len(executed) != 1 {
		t.Fatal("escalation event created after the reply should still fire")
	}
}

func TestTickEnforcesDoubleFireWindow(t *testing.T) {
	f := newSchedulerFixture(t)

	now := time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC)
	lastExec := now.Add(-2 * time.Hour)

	// An already-executed event 2h ago
	if err := f.events.Save(context.Background(), &entity.FollowUpEvent{
		ID:           "evt-done",
		SentEmailID:  "sent-1",
		ScheduledFor: lastExec,
		CreatedAt:    now.Add(-48 * time.Hour),
		Status:       entity.FollowUpStatusSent,
		ExecutedAt:   &lastExec,
	}); err != nil {
		t.Fatal(err)
	}
	// A second due event for the same email
	if err := f.events.Save(context.Background(), &entity.FollowUpEvent{
		ID:           "evt-next",
		SentEmailID:  "sent-1",
		ScheduledFor: now.Add(-time.Minute),
		CreatedAt:    now.Add(-24 * time.Hour),
		Status:       entity.FollowUpStatusScheduled,
	}); err != nil {
		t.Fatal(err)
	}

	f.scheduler.now = func() time.Time { return now }
	executed, err := f.scheduler.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if len(executed) != 0 {
		t.Fatal("second follow-up within 24h must not fire")
	}

	stored, _ := f.events.FindByID(context.Background(), "evt-next")
	if stored.Status != entity.FollowUpStatusSkipped {
		t.Errorf("unexpected status: %q", stored.Status)
	}
}

func TestCancelAndRescheduleOnNonScheduledEvent(t *testing.T) {
	f := newSchedulerFixture(t)

	exec := time.Now()
	if err := f.events.Save(context.Background(), &entity.FollowUpEvent{
		ID:           "evt-done",
		SentEmailID:  "sent-1",
		ScheduledFor: exec,
		CreatedAt:    exec.Add(-time.Hour),
		Status:       entity.FollowUpStatusSent,
		ExecutedAt:   &exec,
	}); err != nil {
		t.Fatal(err)
	}

	if f.scheduler.Cancel(context.Background(), "evt-done") {
		t.Error("cancelling an executed event must return false")
	}
	if f.scheduler.Reschedule(context.Background(), "evt-done", exec.Add(time.Hour)) {
		t.Error("rescheduling an executed event must return false")
	}
}

func TestRescheduleSnapsIntoBusinessHours(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addRule(t, noReplyRule(3, 2))

	sent := &entity.SentEmail{ID: "sent-1", ContactEmail: "jane@example.org", SentAt: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)}
	event, err := f.scheduler.ScheduleForEmail(context.Background(), sent)
	if err != nil || event == nil {
		t.Fatalf("schedule: event=%v err=%v", event, err)
	}

	// Saturday 14:00 must land on Monday 09:00
	if !f.scheduler.Reschedule(context.Background(), event.ID, time.Date(2025, 6, 7, 14, 0, 0, 0, time.UTC)) {
		t.Fatal("reschedule failed")
	}
	stored, _ := f.events.FindByID(context.Background(), event.ID)
	want := time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC)
	if !stored.ScheduledFor.Equal(want) {
		t.Errorf("rescheduled to %v, want %v", stored.ScheduledFor, want)
	}
}
