package providers

import (
	"context"
	"fmt"

	"news-verify/models"
)

// Classifier is the interface every detection backend must implement.
type Classifier interface {
	// Detect asks the backend for a verdict on the given text and optional URL.
	// Any failure is reported as a *ClassifierError.
	Detect(ctx context.Context, req DetectionRequest) (*Verdict, error)

	// Name returns the backend's unique name (e.g. "http").
	Name() string
}

// DetectionRequest is the payload sent to the detection service.
type DetectionRequest struct {
	Text string  `json:"text"`
	URL  *string `json:"url"`
}

// Verdict is the structured classifier answer.
type Verdict struct {
	Result      string
	Confidence  float64
	Explanation string
	// nil when the service did not report a source credibility
	SourceCredibility *models.CredibilityLevel
}

// FailureKind classifies why a detection call failed.
type FailureKind string

const (
	FailureTimeout   FailureKind = "timeout"
	FailureTransport FailureKind = "transport"
	FailureStatus    FailureKind = "status"
	FailureSchema    FailureKind = "schema"
)

// ClassifierError is returned for every failed detection call.
type ClassifierError struct {
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (e *ClassifierError) Error() string {
	if e.Kind == FailureStatus {
		return fmt.Sprintf("classifier %s: unexpected status %d", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("classifier %s: %v", e.Kind, e.Err)
}

func (e *ClassifierError) Unwrap() error {
	return e.Err
}
