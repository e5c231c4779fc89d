package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"donorcast-service/internal/domain/entity"
	"donorcast-service/pkg/logger"
	"donorcast-service/pkg/metrics"
)

// SentimentBackend scores reply text. Strategies are interchangeable; the
// model-backed one must fall back to the rule-based one on any failure so
// classification is never a hard failure point for the pipeline.
type SentimentBackend interface {
	Analyze(ctx context.Context, text string) (*entity.SentimentScore, error)
}

var (
	positiveKeywords = []string{
		"yes", "sure", "interested", "thank", "great", "love", "happy",
		"glad", "definitely", "count me in", "sign me up", "sounds good",
		"i'll be there", "see you", "appreciate",
	}
	negativeKeywords = []string{
		"no thanks", "not interested", "unsubscribe", "stop", "remove me",
		"angry", "furious", "unacceptable", "terrible", "awful", "waste",
		"never", "complaint", "disappointed", "annoyed",
	}
	questionKeywords = []string{
		"what", "when", "where", "who", "why", "how", "which",
		"can you", "could you", "would you", "do you", "is there",
	}
	urgentKeywords = []string{
		"urgent", "asap", "immediately", "emergency", "right away",
		"today", "critical",
	}
)

// RuleBasedClassifier scores replies by keyword tallies. It never fails,
// which makes it the fallback for every other strategy.
type RuleBasedClassifier struct{}

// NewRuleBasedClassifier creates a new rule-based classifier
func NewRuleBasedClassifier() *RuleBasedClassifier {
	return &RuleBasedClassifier{}
}

// Analyze scores the text. The winning tally between positive and negative
// decides the sentiment, ties resolve to neutral, and question signals
// dominate both when they outnumber them.
func (c *RuleBasedClassifier) Analyze(ctx context.Context, text string) (*entity.SentimentScore, error) {
	lower := strings.ToLower(text)

	positive, positiveHits := tally(lower, positiveKeywords)
	negative, negativeHits := tally(lower, negativeKeywords)
	question, _ := tally(lower, questionKeywords)
	urgent, urgentHits := tally(lower, urgentKeywords)

	questionMarks := strings.Count(text, "?")
	questionScore := question + 2*questionMarks

	score := &entity.SentimentScore{
		Sentiment:  entity.SentimentNeutral,
		Confidence: 0.3,
		IsQuestion: questionScore > 0,
		Urgency:    urgencyLevel(urgent),
		Keywords:   append(positiveHits, append(negativeHits, urgentHits...)...),
	}

	switch {
	case questionScore > positive && questionScore > negative:
		score.Sentiment = entity.SentimentQuestion
		score.Confidence = marginConfidence(questionScore, maxInt(positive, negative))
	case positive > negative:
		score.Sentiment = entity.SentimentPositive
		score.Confidence = marginConfidence(positive, negative)
	case negative > positive:
		score.Sentiment = entity.SentimentNegative
		score.Confidence = marginConfidence(negative, positive)
	case positive > 0:
		// Tie with signal on both sides
		score.Confidence = 0.5
	}

	return score, nil
}

func tally(text string, keywords []string) (int, []string) {
	count := 0
	var hits []string
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			count++
			hits = append(hits, kw)
		}
	}
	return count, hits
}

// marginConfidence scales confidence with the winner's margin, capped at 0.95
func marginConfidence(winner, loser int) float64 {
	confidence := 0.5 + 0.15*float64(winner-loser)
	if confidence > 0.95 {
		confidence = 0.95
	}
	return confidence
}

func urgencyLevel(urgentCount int) string {
	switch {
	case urgentCount >= 3:
		return entity.UrgencyHigh
	case urgentCount >= 1:
		return entity.UrgencyMedium
	default:
		return entity.UrgencyLow
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ModelClassifier delegates scoring to an external text-classification API
// expecting the same JSON shape back. Any failure falls back to the
// rule-based strategy.
type ModelClassifier struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	fallback   *RuleBasedClassifier
	logger     logger.Logger
	metrics    *metrics.Metrics
}

// NewModelClassifier creates a new model-backed classifier. The API key is
// required; choosing this backend without one is a configuration error.
func NewModelClassifier(endpoint, apiKey, model string, logger logger.Logger, m *metrics.Metrics) (*ModelClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("model classifier requires an API key")
	}
	return &ModelClassifier{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		fallback:   NewRuleBasedClassifier(),
		logger:     logger,
		metrics:    m,
	}, nil
}

const classifierPrompt = `Classify the sentiment of the email reply below. Respond with only a JSON object of the shape {"sentiment":"positive|negative|neutral|question","confidence":0.0,"keywords":[],"isQuestion":false,"urgency":"low|medium|high"}.

Reply:
%s`

// Analyze calls the classification API and falls back to rule-based scoring
// on any transport or decoding failure
func (c *ModelClassifier) Analyze(ctx context.Context, text string) (*entity.SentimentScore, error) {
	score, err := c.callModel(ctx, text)
	if err != nil {
		c.logger.Warn("Model classification failed, falling back to rule-based", "error", err)
		if c.metrics != nil {
			c.metrics.BackendFallbacks.WithLabelValues("sentiment").Inc()
		}
		return c.fallback.Analyze(ctx, text)
	}
	return score, nil
}

func (c *ModelClassifier) callModel(ctx context.Context, text string) (*entity.SentimentScore, error) {
	body := map[string]interface{}{
		"model":  c.model,
		"prompt": fmt.Sprintf(classifierPrompt, text),
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call classification API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classification API returned status %d", resp.StatusCode)
	}

	var response struct {
		Completion string `json:"completion"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var score entity.SentimentScore
	if err := json.Unmarshal([]byte(strings.TrimSpace(response.Completion)), &score); err != nil {
		return nil, fmt.Errorf("malformed classification JSON: %w", err)
	}
	if !validSentiment(score.Sentiment) {
		return nil, fmt.Errorf("unknown sentiment %q in model output", score.Sentiment)
	}
	return &score, nil
}

func validSentiment(s string) bool {
	switch s {
	case entity.SentimentPositive, entity.SentimentNegative,
		entity.SentimentNeutral, entity.SentimentQuestion:
		return true
	}
	return false
}

// SentimentClassifier wraps a backend with a per-reply cache so reprocessing
// the same reply is idempotent and cheap
type SentimentClassifier struct {
	backend SentimentBackend
	logger  logger.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	cache map[string]*entity.SentimentScore
}

// NewSentimentClassifier creates a new caching classifier
func NewSentimentClassifier(backend SentimentBackend, logger logger.Logger, m *metrics.Metrics) *SentimentClassifier {
	return &SentimentClassifier{
		backend: backend,
		logger:  logger,
		metrics: m,
		cache:   make(map[string]*entity.SentimentScore),
	}
}

// Classify scores a reply, caching the result by reply ID
func (c *SentimentClassifier) Classify(ctx context.Context, reply *entity.EmailReply) *entity.SentimentScore {
	c.mu.Lock()
	if cached, ok := c.cache[reply.ID]; ok {
		c.mu.Unlock()
		return cached
	}
	c.mu.Unlock()

	score, err := c.backend.Analyze(ctx, reply.Body)
	if err != nil {
		// Backends are expected to self-recover; treat this as neutral
		c.logger.Error("Sentiment backend failed", "replyId", reply.ID, "error", err)
		score = &entity.SentimentScore{
			Sentiment:  entity.SentimentNeutral,
			Confidence: 0.1,
			Urgency:    entity.UrgencyLow,
		}
	}

	if c.metrics != nil {
		c.metrics.Classifications.WithLabelValues(score.Sentiment).Inc()
	}

	c.mu.Lock()
	c.cache[reply.ID] = score
	c.mu.Unlock()
	return score
}
