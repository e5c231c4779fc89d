package usecase

import (
	"context"
	"testing"

	"donorcast-service/internal/domain/entity"
	"donorcast-service/pkg/logger"
)

func analyze(t *testing.T, text string) *entity.SentimentScore {
	t.Helper()
	score, err := NewRuleBasedClassifier().Analyze(context.Background(), text)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	return score
}

func TestAnalyzePositiveReply(t *testing.T) {
	score := analyze(t, "Yes, count me in! Thank you for organizing this, sounds good.")
	if score.Sentiment != entity.SentimentPositive {
		t.Errorf("got %q, want positive", score.Sentiment)
	}
	if score.Confidence <= 0.5 {
		t.Errorf("expected confidence above 0.5, got %v", score.Confidence)
	}
	if len(score.Keywords) == 0 {
		t.Error("expected matched keywords")
	}
}

func TestAnalyzeNegativeReply(t *testing.T) {
	score := analyze(t, "Not interested. Please remove me from this list, unsubscribe.")
	if score.Sentiment != entity.SentimentNegative {
		t.Errorf("got %q, want negative", score.Sentiment)
	}
}

func TestAnalyzeQuestionDominates(t *testing.T) {
	score := analyze(t, "What time does it start?")
	if score.Sentiment != entity.SentimentQuestion {
		t.Errorf("got %q, want question", score.Sentiment)
	}
	if !score.IsQuestion {
		t.Error("IsQuestion should be set")
	}
	if score.Confidence < 0.5 {
		t.Errorf("expected confidence >= 0.5, got %v", score.Confidence)
	}
}

func TestAnalyzeNeutralDefault(t *testing.T) {
	score := analyze(t, "Received.")
	if score.Sentiment != entity.SentimentNeutral {
		t.Errorf("got %q, want neutral", score.Sentiment)
	}
	if score.Confidence != 0.3 {
		t.Errorf("neutral default confidence should be 0.3, got %v", score.Confidence)
	}
}

func TestAnalyzeUrgencyLevels(t *testing.T) {
	low := analyze(t, "Hello there.")
	if low.Urgency != entity.UrgencyLow {
		t.Errorf("got %q, want low", low.Urgency)
	}

	medium := analyze(t, "This is urgent.")
	if medium.Urgency != entity.UrgencyMedium {
		t.Errorf("got %q, want medium", medium.Urgency)
	}

	high := analyze(t, "Urgent! This is an emergency, please respond immediately.")
	if high.Urgency != entity.UrgencyHigh {
		t.Errorf("got %q, want high", high.Urgency)
	}
}

func TestAnalyzeConfidenceCapped(t *testing.T) {
	score := analyze(t, "yes sure interested thank you great love it happy glad definitely count me in sign me up sounds good see you")
	if score.Confidence > 0.95 {
		t.Errorf("confidence should cap at 0.95, got %v", score.Confidence)
	}
}

func TestClassifyCachesByReplyID(t *testing.T) {
	backend := &countingBackend{inner: NewRuleBasedClassifier()}
	classifier := NewSentimentClassifier(backend, logger.NewNop(), nil)

	reply := &entity.EmailReply{ID: "r1", Body: "yes, thank you!"}

	first := classifier.Classify(context.Background(), reply)
	second := classifier.Classify(context.Background(), reply)

	if backend.calls != 1 {
		t.Errorf("expected a single backend call, got %d", backend.calls)
	}
	if first != second {
		t.Error("cached result should be returned for the same reply")
	}
	if first.Sentiment != entity.SentimentPositive {
		t.Errorf("unexpected sentiment: %q", first.Sentiment)
	}
}
