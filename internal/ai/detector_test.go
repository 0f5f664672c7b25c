package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonesrussell/matterscout/internal/domain"
	"github.com/jonesrussell/matterscout/internal/logger"
	"github.com/jonesrussell/matterscout/internal/retry"
)

// fakeCompletion returns scripted responses in order.
type fakeCompletion struct {
	responses []func() (string, error)
	calls     int
}

func (f *fakeCompletion) Complete(ctx context.Context, system, user string) (string, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx]()
}

func testRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2.0,
	}
}

const validExtraction = `{
	"opportunities": [
		{
			"title": "Office lease negotiation",
			"description": "Client needs help negotiating a new office lease",
			"type": "real_estate",
			"confidence": 85,
			"extracted_text": "we need to renegotiate our lease"
		}
	]
}`

func TestDetector_Analyze(t *testing.T) {
	llm := &fakeCompletion{responses: []func() (string, error){
		func() (string, error) { return validExtraction, nil },
	}}
	detector := NewDetector(llm, testRetryConfig(), time.Second, logger.NewNop())

	opps, err := detector.Analyze(context.Background(), "content", "Acme Corp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(opps))
	}
	if opps[0].Type != domain.TypeRealEstate {
		t.Errorf("expected REAL_ESTATE, got %s", opps[0].Type)
	}
	if llm.calls != 1 {
		t.Errorf("expected 1 completion call, got %d", llm.calls)
	}
}

func TestDetector_RetriesTransientFailures(t *testing.T) {
	llm := &fakeCompletion{responses: []func() (string, error){
		func() (string, error) { return "", fmt.Errorf("%w: connection refused", ErrInference) },
		func() (string, error) { return "not json at all", nil },
		func() (string, error) { return validExtraction, nil },
	}}
	detector := NewDetector(llm, testRetryConfig(), time.Second, logger.NewNop())

	opps, err := detector.Analyze(context.Background(), "content", "Acme Corp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(opps))
	}
	if llm.calls != 3 {
		t.Errorf("expected 3 completion calls, got %d", llm.calls)
	}
}

func TestDetector_ExhaustionSurfacesAIServiceError(t *testing.T) {
	llm := &fakeCompletion{responses: []func() (string, error){
		func() (string, error) { return "", fmt.Errorf("%w: upstream 500", ErrInference) },
	}}
	detector := NewDetector(llm, testRetryConfig(), time.Second, logger.NewNop())

	_, err := detector.Analyze(context.Background(), "content", "Acme Corp")
	if !errors.Is(err, ErrAIService) {
		t.Fatalf("expected ErrAIService, got %v", err)
	}
	if !errors.Is(err, ErrInference) {
		t.Fatalf("expected wrapped inference error, got %v", err)
	}
	if llm.calls != 3 {
		t.Errorf("expected 3 completion calls, got %d", llm.calls)
	}
}

func TestDetector_EmptyExtractionIsNotAnError(t *testing.T) {
	llm := &fakeCompletion{responses: []func() (string, error){
		func() (string, error) { return `{"opportunities": []}`, nil },
	}}
	detector := NewDetector(llm, testRetryConfig(), time.Second, logger.NewNop())

	opps, err := detector.Analyze(context.Background(), "content", "Acme Corp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(opps) != 0 {
		t.Fatalf("expected no opportunities, got %d", len(opps))
	}
}

// stalledCompletion blocks until the per-attempt context expires.
type stalledCompletion struct {
	calls int
}

func (s *stalledCompletion) Complete(ctx context.Context, system, user string) (string, error) {
	s.calls++
	<-ctx.Done()
	return "", fmt.Errorf("%w: %v", ErrInference, ctx.Err())
}

func TestDetector_BoundsEachAttemptWithTimeout(t *testing.T) {
	llm := &stalledCompletion{}
	detector := NewDetector(llm, testRetryConfig(), 5*time.Millisecond, logger.NewNop())

	start := time.Now()
	_, err := detector.Analyze(context.Background(), "content", "Acme Corp")
	if !errors.Is(err, ErrAIService) {
		t.Fatalf("expected ErrAIService after timed-out attempts, got %v", err)
	}
	if llm.calls != 3 {
		t.Errorf("each attempt should get a fresh timeout, got %d calls", llm.calls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("attempts were not bounded by the request timeout: %v", elapsed)
	}
}

func TestNewClient_RejectsMissingOrPlaceholderKey(t *testing.T) {
	for _, key := range []string{"", placeholderAPIKey} {
		if _, err := NewClient(ClientConfig{APIKey: key}); !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("NewClient with key %q: expected ErrMissingAPIKey, got %v", key, err)
		}
	}
}
