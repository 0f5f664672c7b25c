package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jonesrussell/matterscout/internal/ai"
	"github.com/jonesrussell/matterscout/internal/database"
	"github.com/jonesrussell/matterscout/internal/domain"
	"github.com/jonesrussell/matterscout/internal/logger"
	"github.com/jonesrussell/matterscout/internal/metrics"
	"github.com/jonesrussell/matterscout/internal/service"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// PipelineRunner triggers one pipeline run. Satisfied by *service.Pipeline.
type PipelineRunner interface {
	ProcessCommunication(ctx context.Context, in service.CreateCommunicationInput) (*domain.Communication, []domain.Opportunity, error)
}

// Reader serves the read paths. Satisfied by *database.Repository.
type Reader interface {
	GetCommunication(ctx context.Context, id uuid.UUID) (*domain.Communication, []domain.Opportunity, error)
	ListCommunications(ctx context.Context, limit, offset int) ([]domain.Communication, int, error)
	ListOpportunities(ctx context.Context, filter database.OpportunityFilter) ([]domain.Opportunity, int, error)
	GetOpportunity(ctx context.Context, id uuid.UUID) (*domain.Opportunity, error)
	UpdateOpportunityStatus(ctx context.Context, id uuid.UUID, status domain.OpportunityStatus) (*domain.Opportunity, error)
	Stats(ctx context.Context) (*database.OpportunityStats, error)
}

// ActivityReader serves the daily activity counters. Satisfied by
// *metrics.Tracker; nil when Redis is disabled.
type ActivityReader interface {
	Daily(ctx context.Context, day time.Time) (*metrics.DailyCounts, error)
}

// Handlers provides the REST handlers.
type Handlers struct {
	pipeline PipelineRunner
	reader   Reader
	activity ActivityReader
	logger   logger.Logger
	version  string
}

// NewHandlers creates a handlers instance. activity may be nil.
func NewHandlers(pipeline PipelineRunner, reader Reader, activity ActivityReader, log logger.Logger, version string) *Handlers {
	return &Handlers{
		pipeline: pipeline,
		reader:   reader,
		activity: activity,
		logger:   log,
		version:  version,
	}
}

// createCommunicationRequest is the inbound trigger payload.
type createCommunicationRequest struct {
	Content    string `json:"content"`
	ClientName string `json:"client_name"`
	SourceType string `json:"source_type"`
}

// CreateCommunication handles POST /api/v1/communications. It validates the
// request, runs the pipeline, and returns the persisted communication with
// its opportunities.
func (h *Handlers) CreateCommunication(c *gin.Context) {
	var req createCommunicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sourceType, err := domain.ParseSourceType(req.SourceType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comm, opportunities, err := h.pipeline.ProcessCommunication(c.Request.Context(), service.CreateCommunicationInput{
		Content:    req.Content,
		ClientName: req.ClientName,
		SourceType: sourceType,
	})
	if err != nil {
		h.respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"communication": comm,
		"opportunities": opportunities,
	})
}

// respondPipelineError maps pipeline failures to HTTP statuses.
func (h *Handlers) respondPipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ai.ErrAIService):
		h.logger.Error("Extraction failed",
			logger.Error(err),
			logger.String("path", c.Request.URL.Path),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "opportunity extraction is temporarily unavailable"})
	default:
		h.logger.Error("Pipeline failed",
			logger.Error(err),
			logger.String("path", c.Request.URL.Path),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process communication"})
	}
}

// GetCommunication handles GET /api/v1/communications/:id.
func (h *Handlers) GetCommunication(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid communication id"})
		return
	}

	comm, opportunities, err := h.reader.GetCommunication(c.Request.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "communication not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get communication", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve communication"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"communication": comm,
		"opportunities": opportunities,
	})
}

// ListCommunications handles GET /api/v1/communications.
func (h *Handlers) ListCommunications(c *gin.Context) {
	limit, offset := pagination(c)

	comms, total, err := h.reader.ListCommunications(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list communications", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve communications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"communications": comms,
		"count":          len(comms),
		"total_count":    total,
	})
}

// ListOpportunities handles GET /api/v1/opportunities with optional
// min_confidence and type filters.
func (h *Handlers) ListOpportunities(c *gin.Context) {
	limit, offset := pagination(c)
	filter := database.OpportunityFilter{Limit: limit, Offset: offset}

	if raw := c.Query("min_confidence"); raw != "" {
		minConfidence, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_confidence must be a number"})
			return
		}
		filter.MinConfidence = &minConfidence
	}

	if raw := c.Query("type"); raw != "" {
		oppType, err := domain.ParseOpportunityType(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Type = &oppType
	}

	opportunities, total, err := h.reader.ListOpportunities(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list opportunities", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve opportunities"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"opportunities": opportunities,
		"count":         len(opportunities),
		"total_count":   total,
	})
}

// GetOpportunity handles GET /api/v1/opportunities/:id.
func (h *Handlers) GetOpportunity(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid opportunity id"})
		return
	}

	opp, err := h.reader.GetOpportunity(c.Request.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "opportunity not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get opportunity", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve opportunity"})
		return
	}

	c.JSON(http.StatusOK, opp)
}

// updateStatusRequest is the PATCH body for a status transition.
type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOpportunityStatus handles PATCH /api/v1/opportunities/:id/status.
func (h *Handlers) UpdateOpportunityStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid opportunity id"})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	status, err := domain.ParseOpportunityStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opp, err := h.reader.UpdateOpportunityStatus(c.Request.Context(), id, status)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "opportunity not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to update opportunity status", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update opportunity"})
		return
	}

	c.JSON(http.StatusOK, opp)
}

// GetStats handles GET /api/v1/stats. Daily activity counters are included
// when the tracker is configured; a counter read failure degrades the
// response rather than failing it.
func (h *Handlers) GetStats(c *gin.Context) {
	stats, err := h.reader.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get stats", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve statistics"})
		return
	}

	payload := gin.H{
		"total_count":           stats.TotalCount,
		"high_confidence_count": stats.HighConfidenceCount,
		"by_type":               stats.ByType,
	}

	if h.activity != nil {
		today, dailyErr := h.activity.Daily(c.Request.Context(), time.Now())
		if dailyErr != nil {
			h.logger.Warn("Failed to read daily activity counters", logger.Error(dailyErr))
		} else {
			payload["today"] = today
		}
	}

	c.JSON(http.StatusOK, payload)
}

// Health handles GET /health.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "matterscout",
		"version": h.version,
	})
}

// pagination reads limit/offset query params with sane bounds.
func pagination(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if err != nil || limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	return limit, offset
}
