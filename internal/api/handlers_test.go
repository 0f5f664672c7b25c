package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
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

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePipeline struct {
	err   error
	calls int
}

func (f *fakePipeline) ProcessCommunication(ctx context.Context, in service.CreateCommunicationInput) (*domain.Communication, []domain.Opportunity, error) {
	f.calls++
	if f.err != nil {
		return nil, nil, f.err
	}

	now := time.Now()
	comm := &domain.Communication{
		ID:         uuid.New(),
		Content:    in.Content,
		ClientName: in.ClientName,
		SourceType: in.SourceType,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return comm, nil, nil
}

type fakeReader struct {
	opportunity *domain.Opportunity
	stats       *database.OpportunityStats
	err         error
}

func (f *fakeReader) GetCommunication(ctx context.Context, id uuid.UUID) (*domain.Communication, []domain.Opportunity, error) {
	return nil, nil, f.err
}

func (f *fakeReader) ListCommunications(ctx context.Context, limit, offset int) ([]domain.Communication, int, error) {
	return nil, 0, f.err
}

func (f *fakeReader) ListOpportunities(ctx context.Context, filter database.OpportunityFilter) ([]domain.Opportunity, int, error) {
	return nil, 0, f.err
}

func (f *fakeReader) GetOpportunity(ctx context.Context, id uuid.UUID) (*domain.Opportunity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.opportunity, nil
}

func (f *fakeReader) UpdateOpportunityStatus(ctx context.Context, id uuid.UUID, status domain.OpportunityStatus) (*domain.Opportunity, error) {
	if f.err != nil {
		return nil, f.err
	}
	opp := *f.opportunity
	opp.Status = status
	return &opp, nil
}

func (f *fakeReader) Stats(ctx context.Context) (*database.OpportunityStats, error) {
	return f.stats, f.err
}

type fakeActivity struct {
	counts *metrics.DailyCounts
	err    error
}

func (f *fakeActivity) Daily(ctx context.Context, day time.Time) (*metrics.DailyCounts, error) {
	return f.counts, f.err
}

func newTestRouter(pipeline PipelineRunner, reader Reader) *gin.Engine {
	return newTestRouterWithActivity(pipeline, reader, nil)
}

func newTestRouterWithActivity(pipeline PipelineRunner, reader Reader, activity ActivityReader) *gin.Engine {
	handlers := NewHandlers(pipeline, reader, activity, logger.NewNop(), "test")

	router := gin.New()
	router.GET("/health", handlers.Health)
	v1 := router.Group("/api/v1")
	v1.POST("/communications", handlers.CreateCommunication)
	v1.GET("/opportunities", handlers.ListOpportunities)
	v1.GET("/opportunities/:id", handlers.GetOpportunity)
	v1.PATCH("/opportunities/:id/status", handlers.UpdateOpportunityStatus)
	v1.GET("/stats", handlers.GetStats)
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateCommunication_Success(t *testing.T) {
	pipeline := &fakePipeline{}
	router := newTestRouter(pipeline, &fakeReader{})

	content := strings.Repeat("Lease renewal details. ", 5)
	body := fmt.Sprintf(`{"content": %q, "client_name": "Acme Corp", "source_type": "EMAIL"}`, content)

	rec := doRequest(router, http.MethodPost, "/api/v1/communications", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if pipeline.calls != 1 {
		t.Errorf("expected 1 pipeline call, got %d", pipeline.calls)
	}
}

func TestCreateCommunication_UnknownSourceType(t *testing.T) {
	pipeline := &fakePipeline{}
	router := newTestRouter(pipeline, &fakeReader{})

	rec := doRequest(router, http.MethodPost, "/api/v1/communications",
		`{"content": "x", "client_name": "Acme", "source_type": "CARRIER_PIGEON"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if pipeline.calls != 0 {
		t.Error("pipeline must not run for an unknown source type")
	}
}

func TestCreateCommunication_InvalidInputMapsTo400(t *testing.T) {
	pipeline := &fakePipeline{err: fmt.Errorf("%w: content too short", domain.ErrInvalidInput)}
	router := newTestRouter(pipeline, &fakeReader{})

	rec := doRequest(router, http.MethodPost, "/api/v1/communications",
		`{"content": "short", "client_name": "Acme", "source_type": "NOTE"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateCommunication_AIServiceErrorMapsTo502(t *testing.T) {
	pipeline := &fakePipeline{err: fmt.Errorf("extract opportunities: %w", ai.ErrAIService)}
	router := newTestRouter(pipeline, &fakeReader{})

	rec := doRequest(router, http.MethodPost, "/api/v1/communications",
		`{"content": "some long enough content", "client_name": "Acme", "source_type": "MEETING"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestCreateCommunication_PersistenceErrorMapsTo500(t *testing.T) {
	pipeline := &fakePipeline{err: errors.New("persist communication: connection lost")}
	router := newTestRouter(pipeline, &fakeReader{})

	rec := doRequest(router, http.MethodPost, "/api/v1/communications",
		`{"content": "some long enough content", "client_name": "Acme", "source_type": "EMAIL"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestGetOpportunity_NotFound(t *testing.T) {
	router := newTestRouter(&fakePipeline{}, &fakeReader{err: domain.ErrNotFound})

	rec := doRequest(router, http.MethodGet, "/api/v1/opportunities/"+uuid.NewString(), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetOpportunity_InvalidID(t *testing.T) {
	router := newTestRouter(&fakePipeline{}, &fakeReader{})

	rec := doRequest(router, http.MethodGet, "/api/v1/opportunities/not-a-uuid", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListOpportunities_RejectsBadFilters(t *testing.T) {
	router := newTestRouter(&fakePipeline{}, &fakeReader{})

	rec := doRequest(router, http.MethodGet, "/api/v1/opportunities?min_confidence=very", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad min_confidence, got %d", rec.Code)
	}

	rec = doRequest(router, http.MethodGet, "/api/v1/opportunities?type=TAX_LAW", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown type, got %d", rec.Code)
	}
}

func TestUpdateOpportunityStatus(t *testing.T) {
	opp := &domain.Opportunity{ID: uuid.New(), Status: domain.StatusNew}
	router := newTestRouter(&fakePipeline{}, &fakeReader{opportunity: opp})

	rec := doRequest(router, http.MethodPatch,
		"/api/v1/opportunities/"+opp.ID.String()+"/status", `{"status": "reviewing"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodPatch,
		"/api/v1/opportunities/"+opp.ID.String()+"/status", `{"status": "LOST"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestGetStats_WithoutActivityTracker(t *testing.T) {
	reader := &fakeReader{stats: &database.OpportunityStats{TotalCount: 4, HighConfidenceCount: 2}}
	router := newTestRouter(&fakePipeline{}, reader)

	rec := doRequest(router, http.MethodGet, "/api/v1/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), `"today"`) {
		t.Errorf("daily counters must be absent without a tracker: %s", rec.Body.String())
	}
}

func TestGetStats_IncludesDailyActivity(t *testing.T) {
	reader := &fakeReader{stats: &database.OpportunityStats{TotalCount: 4, HighConfidenceCount: 2}}
	activity := &fakeActivity{counts: &metrics.DailyCounts{Communications: 7, Opportunities: 3, Notifications: 2}}
	router := newTestRouterWithActivity(&fakePipeline{}, reader, activity)

	rec := doRequest(router, http.MethodGet, "/api/v1/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"today"`) {
		t.Fatalf("daily counters missing from stats: %s", body)
	}
	if !strings.Contains(body, `"communications":7`) {
		t.Errorf("communications counter missing: %s", body)
	}
}

func TestGetStats_DegradesWhenCountersUnavailable(t *testing.T) {
	reader := &fakeReader{stats: &database.OpportunityStats{TotalCount: 1}}
	activity := &fakeActivity{err: errors.New("redis unreachable")}
	router := newTestRouterWithActivity(&fakePipeline{}, reader, activity)

	rec := doRequest(router, http.MethodGet, "/api/v1/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("counter failure must not fail the stats endpoint, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), `"today"`) {
		t.Errorf("failed counters must be omitted: %s", rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&fakePipeline{}, &fakeReader{})

	rec := doRequest(router, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "matterscout") {
		t.Errorf("health body missing service name: %s", rec.Body.String())
	}
}
