// Package service orchestrates the opportunity extraction pipeline for one
// incoming communication: validate input, extract, persist, notify.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonesrussell/matterscout/internal/domain"
	"github.com/jonesrussell/matterscout/internal/logger"
	"github.com/jonesrussell/matterscout/internal/metrics"
	"github.com/jonesrussell/matterscout/internal/notify"
)

// Extractor runs the retry-wrapped extraction pass. Satisfied by *ai.Detector.
type Extractor interface {
	Analyze(ctx context.Context, content, clientName string) ([]domain.ExtractedOpportunity, error)
}

// Store persists a communication with its opportunities atomically.
// Satisfied by *database.Repository.
type Store interface {
	CreateCommunicationWithOpportunities(
		ctx context.Context,
		content, clientName string,
		source domain.SourceType,
		extracted []domain.ExtractedOpportunity,
	) (*domain.Communication, []domain.Opportunity, error)
}

// Broadcaster fans one encoded notification out to live subscribers.
// Satisfied by *hub.Hub.
type Broadcaster interface {
	Broadcast(payload []byte)
	Count() int
}

// Recorder tracks pipeline activity. Satisfied by *metrics.Recorder.
type Recorder interface {
	CommunicationProcessed(ctx context.Context, outcome string)
	OpportunitiesDetected(ctx context.Context, n int)
	NotificationSent(ctx context.Context)
}

// Pipeline sequences extraction, persistence, and notification for incoming
// communications. Runs are independent; the hub and the database are the only
// shared resources and both tolerate concurrent use.
type Pipeline struct {
	store       Store
	extractor   Extractor
	broadcaster Broadcaster
	recorder    Recorder
	logger      logger.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(store Store, extractor Extractor, broadcaster Broadcaster, recorder Recorder, log logger.Logger) *Pipeline {
	return &Pipeline{
		store:       store,
		extractor:   extractor,
		broadcaster: broadcaster,
		recorder:    recorder,
		logger:      log,
	}
}

// CreateCommunicationInput is the inbound trigger for one pipeline run.
type CreateCommunicationInput struct {
	Content    string
	ClientName string
	SourceType domain.SourceType
}

// ProcessCommunication runs the full pipeline for one communication.
// Input problems fail before any external call. An extraction failure
// persists nothing. A persistence failure rolls everything back. Once
// persisted, the result stands even if every notification fails; notification
// is strictly best-effort and never returned as an error.
func (p *Pipeline) ProcessCommunication(ctx context.Context, in CreateCommunicationInput) (*domain.Communication, []domain.Opportunity, error) {
	clientName := strings.TrimSpace(in.ClientName)

	if err := domain.ValidateCommunicationInput(in.Content, clientName); err != nil {
		p.recorder.CommunicationProcessed(ctx, metrics.OutcomeRejectedInput)
		return nil, nil, err
	}

	extracted, err := p.extractor.Analyze(ctx, in.Content, clientName)
	if err != nil {
		p.recorder.CommunicationProcessed(ctx, metrics.OutcomeExtractionFailed)
		return nil, nil, fmt.Errorf("extract opportunities: %w", err)
	}

	comm, opportunities, err := p.store.CreateCommunicationWithOpportunities(
		ctx, in.Content, clientName, in.SourceType, extracted)
	if err != nil {
		p.recorder.CommunicationProcessed(ctx, metrics.OutcomePersistenceFailed)
		return nil, nil, fmt.Errorf("persist communication: %w", err)
	}

	p.logger.Info("Communication persisted",
		logger.String("communication_id", comm.ID.String()),
		logger.String("client_name", comm.ClientName),
		logger.Int("opportunities", len(opportunities)),
	)

	p.recorder.CommunicationProcessed(ctx, metrics.OutcomeProcessed)
	p.recorder.OpportunitiesDetected(ctx, len(opportunities))

	p.notifyHighConfidence(ctx, comm, opportunities)

	return comm, opportunities, nil
}

// notifyHighConfidence encodes and broadcasts every eligible opportunity.
// One opportunity's trouble never blocks the others.
func (p *Pipeline) notifyHighConfidence(ctx context.Context, comm *domain.Communication, opportunities []domain.Opportunity) {
	for _, opp := range opportunities {
		if !notify.ShouldNotify(opp) {
			continue
		}

		payload := notify.Encode(opp, comm.ClientName, time.Now())
		p.broadcaster.Broadcast(payload)
		p.recorder.NotificationSent(ctx)

		p.logger.Info("Notification broadcast",
			logger.String("opportunity_id", opp.ID.String()),
			logger.Float64("confidence", opp.Confidence),
			logger.Int("subscribers", p.broadcaster.Count()),
		)
	}
}
