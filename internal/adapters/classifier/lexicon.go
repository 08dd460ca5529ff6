// Package classifier provides the in-process sentiment model served
// behind the Classifier port. The production model is an external
// collaborator; this lexicon scorer keeps the pipeline runnable and the
// worker loop exercised without it.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/macmajerczyk-dot/ml-pipeline/internal/ports"
)

const (
	LabelPositive = "POSITIVE"
	LabelNegative = "NEGATIVE"
)

var positiveWords = []string{
	"amazing", "awesome", "best", "excellent", "fantastic", "good",
	"great", "happy", "love", "outstanding", "perfect", "recommend",
	"satisfied", "wonderful",
}

var negativeWords = []string{
	"awful", "bad", "broke", "broken", "damaged", "disappointed",
	"hate", "horrible", "never", "poor", "terrible", "waste", "worst",
	"wrong",
}

// Lexicon scores text by counting sentiment-bearing words. Deterministic
// on purpose so round-trip tests can assert exact labels.
type Lexicon struct {
	name     string
	positive map[string]struct{}
	negative map[string]struct{}
}

func NewLexicon(modelName string) *Lexicon {
	if modelName == "" {
		modelName = "lexicon-sentiment"
	}
	l := &Lexicon{
		name:     modelName,
		positive: make(map[string]struct{}, len(positiveWords)),
		negative: make(map[string]struct{}, len(negativeWords)),
	}
	for _, w := range positiveWords {
		l.positive[w] = struct{}{}
	}
	for _, w := range negativeWords {
		l.negative[w] = struct{}{}
	}
	return l
}

func (l *Lexicon) Name() string {
	return l.name
}

func (l *Lexicon) Classify(ctx context.Context, text string) (ports.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return ports.Prediction{}, err
	}
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return ports.Prediction{}, fmt.Errorf("classify: no scorable tokens")
	}

	var pos, neg int
	for _, tok := range tokens {
		if _, ok := l.positive[tok]; ok {
			pos++
		}
		if _, ok := l.negative[tok]; ok {
			neg++
		}
	}

	label := LabelPositive
	lead := pos - neg
	if neg > pos {
		label = LabelNegative
		lead = neg - pos
	}
	// 0.5 for a tie, approaching 1.0 as one polarity dominates.
	score := 0.5 + 0.5*float64(lead)/float64(pos+neg+1)
	return ports.Prediction{Label: label, Score: score}, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '\'')
	})
}

var _ ports.Classifier = (*Lexicon)(nil)
