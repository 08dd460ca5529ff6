package ports

import "context"

type Prediction struct {
	Label string
	Score float64
}

// Classifier is the narrow inference capability the worker loop depends
// on. The real model lives behind it; tests substitute a fake.
type Classifier interface {
	Classify(ctx context.Context, text string) (Prediction, error)
	Name() string
}
