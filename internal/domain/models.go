package domain

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether the status can never change again.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// FailedLabel is the label carried by results of failed inference runs.
const FailedLabel = "ERROR"

// PredictionRequest is the message published to the requests topic.
// Immutable once published.
type PredictionRequest struct {
	RequestID string    `json:"request_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func NewPredictionRequest(text string, now time.Time) PredictionRequest {
	return PredictionRequest{
		RequestID: uuid.NewString(),
		Text:      text,
		CreatedAt: now,
	}
}

// PredictionResult is the message published to the results topic. Its
// RequestID always equals the originating request's id, so both messages
// share a partition key.
type PredictionResult struct {
	RequestID       string     `json:"request_id"`
	Label           string     `json:"label"`
	Score           float64    `json:"score"`
	ModelName       string     `json:"model_name"`
	InferenceTimeMs float64    `json:"inference_time_ms"`
	Status          TaskStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
}

func NewCompletedResult(requestID, label string, score float64, modelName string, inferenceTime time.Duration, now time.Time) PredictionResult {
	return PredictionResult{
		RequestID:       requestID,
		Label:           label,
		Score:           score,
		ModelName:       modelName,
		InferenceTimeMs: float64(inferenceTime.Microseconds()) / 1000.0,
		Status:          TaskStatusCompleted,
		CreatedAt:       now,
	}
}

// NewFailedResult converts an inference failure into a terminal result so
// the requester sees a definitive status instead of indefinite pending.
func NewFailedResult(requestID, modelName string, now time.Time) PredictionResult {
	return PredictionResult{
		RequestID: requestID,
		Label:     FailedLabel,
		Score:     0,
		ModelName: modelName,
		Status:    TaskStatusFailed,
		CreatedAt: now,
	}
}
