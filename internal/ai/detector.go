package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/matterscout/internal/domain"
	"github.com/jonesrussell/matterscout/internal/logger"
	"github.com/jonesrussell/matterscout/internal/retry"
)

// DefaultRequestTimeout bounds a single completion attempt. Each retry
// attempt gets a fresh timeout.
const DefaultRequestTimeout = 60 * time.Second

// completionClient performs a single completion call. Satisfied by *Client;
// tests substitute a fake.
type completionClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Detector runs the retry-wrapped extraction pass: completion call, decode,
// per-candidate validation.
type Detector struct {
	llm            completionClient
	retryCfg       retry.Config
	requestTimeout time.Duration
	logger         logger.Logger
}

// NewDetector creates a Detector. A zero-value retry config gets the package
// defaults (three attempts, 2s..10s exponential backoff); a non-positive
// requestTimeout falls back to DefaultRequestTimeout.
func NewDetector(llm completionClient, retryCfg retry.Config, requestTimeout time.Duration, log logger.Logger) *Detector {
	if retryCfg.MaxAttempts <= 0 {
		retryCfg = retry.DefaultConfig()
	}
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	return &Detector{
		llm:            llm,
		retryCfg:       retryCfg,
		requestTimeout: requestTimeout,
		logger:         log,
	}
}

// isTransient reports whether an extraction error is worth retrying.
// Only upstream flakiness qualifies; caller-input problems never reach here.
func isTransient(err error) bool {
	return errors.Is(err, ErrInference) || errors.Is(err, ErrMalformedResponse)
}

// Analyze extracts validated opportunity candidates from a communication.
// Transient upstream failures are retried; exhaustion surfaces ErrAIService
// wrapping the last error. An empty slice is a normal outcome.
func (d *Detector) Analyze(ctx context.Context, content, clientName string) ([]domain.ExtractedOpportunity, error) {
	d.logger.Info("Analyzing communication",
		logger.String("client_name", clientName),
		logger.Int("content_length", len(content)),
	)

	cfg := d.retryCfg
	cfg.IsRetryable = isTransient

	userPrompt := buildUserPrompt(content, clientName)

	var validated []domain.ExtractedOpportunity
	err := retry.Retry(ctx, cfg, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, d.requestTimeout)
		defer cancel()

		text, completeErr := d.llm.Complete(attemptCtx, systemPrompt, userPrompt)
		if completeErr != nil {
			return completeErr
		}

		result, decodeErr := decodeExtraction(text)
		if decodeErr != nil {
			return decodeErr
		}

		validated = validateCandidates(result.Opportunities, d.logger)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAIService, err)
	}

	d.logger.Info("Extraction complete",
		logger.String("client_name", clientName),
		logger.Int("opportunities", len(validated)),
	)

	return validated, nil
}
