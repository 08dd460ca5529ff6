package classifier

import (
	"context"
	"testing"
)

func TestClassifyPositive(t *testing.T) {
	t.Parallel()

	l := NewLexicon("test-model")
	pred, err := l.Classify(context.Background(), "great product, love it")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if pred.Label != LabelPositive {
		t.Fatalf("expected %s, got %s", LabelPositive, pred.Label)
	}
	if pred.Score <= 0.5 || pred.Score > 1.0 {
		t.Fatalf("score out of range: %f", pred.Score)
	}
}

func TestClassifyNegative(t *testing.T) {
	t.Parallel()

	l := NewLexicon("test-model")
	pred, err := l.Classify(context.Background(), "terrible experience, broke after one day")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if pred.Label != LabelNegative {
		t.Fatalf("expected %s, got %s", LabelNegative, pred.Label)
	}
}

func TestClassifyNeutralDefaultsToPositiveTie(t *testing.T) {
	t.Parallel()

	l := NewLexicon("test-model")
	pred, err := l.Classify(context.Background(), "it arrived on tuesday")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if pred.Score != 0.5 {
		t.Fatalf("expected tie score 0.5, got %f", pred.Score)
	}
}

func TestClassifyNoTokens(t *testing.T) {
	t.Parallel()

	l := NewLexicon("test-model")
	if _, err := l.Classify(context.Background(), "!!! ???"); err == nil {
		t.Fatalf("expected error for unscorable text")
	}
}

func TestClassifyCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := NewLexicon("test-model")
	if _, err := l.Classify(ctx, "great"); err == nil {
		t.Fatalf("expected context error")
	}
}
