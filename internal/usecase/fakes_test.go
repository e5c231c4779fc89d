package usecase

import (
	"context"
	"fmt"
	"sync"

	"donorcast-service/internal/domain/entity"
)

// fakeTransport records sends and can be told to fail
type fakeTransport struct {
	mu     sync.Mutex
	sent   []SendParams
	failOn map[string]bool
	nextID int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failOn: make(map[string]bool)}
}

func (t *fakeTransport) Send(ctx context.Context, params SendParams) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failOn[params.To] {
		return "", fmt.Errorf("simulated delivery failure to %s", params.To)
	}
	t.sent = append(t.sent, params)
	t.nextID++
	return fmt.Sprintf("msg-%d", t.nextID), nil
}

func (t *fakeTransport) ValidateCredentials(ctx context.Context) bool { return true }

func (t *fakeTransport) sentTo() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.sent))
	for i, p := range t.sent {
		out[i] = p.To
	}
	return out
}

// fakeReplySource serves a canned batch of raw replies
type fakeReplySource struct {
	mu      sync.Mutex
	replies []RawReply
}

func (s *fakeReplySource) CheckForReplies(ctx context.Context, outstanding []string) ([]RawReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.replies
	s.replies = nil
	return out, nil
}

func (s *fakeReplySource) SetupPushDelivery(ctx context.Context, callbackURL string) bool {
	return false
}

// fakeRouter returns a fixed template for every match call
type fakeRouter struct {
	template *ResponseTemplate
}

func (r *fakeRouter) Register(template ResponseTemplate) {}

func (r *fakeRouter) Match(score *entity.SentimentScore, body string) *ResponseTemplate {
	return r.template
}

// countingBackend wraps a classifier backend and counts invocations
type countingBackend struct {
	inner SentimentBackend
	calls int
}

func (b *countingBackend) Analyze(ctx context.Context, text string) (*entity.SentimentScore, error) {
	b.calls++
	return b.inner.Analyze(ctx, text)
}
