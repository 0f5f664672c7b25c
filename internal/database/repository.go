package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/matterscout/internal/domain"
)

// opportunitySelectList is the column list for opportunity reads (single
// source for schema changes).
const opportunitySelectList = `id, communication_id, title, description, opportunity_type,
	confidence, estimated_value, extracted_text, status, detected_at, created_at`

const insertCommunicationQuery = `
	INSERT INTO communications (id, content, client_name, source_type, created_at, updated_at)
	VALUES ($1, $2, $3, $4, NOW(), NOW())
	RETURNING created_at, updated_at`

const insertOpportunityQuery = `
	INSERT INTO opportunities (id, communication_id, title, description, opportunity_type,
		confidence, estimated_value, extracted_text, status, detected_at, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	RETURNING detected_at, created_at`

// Repository provides persistence for communications and their opportunities.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new repository.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// CreateCommunicationWithOpportunities inserts a communication and its
// extracted opportunities as one atomic unit. Any insert failure rolls the
// whole transaction back; no communication is ever left without its
// opportunities and no opportunity is left orphaned. The returned records
// carry database-assigned timestamps.
func (r *Repository) CreateCommunicationWithOpportunities(
	ctx context.Context,
	content, clientName string,
	source domain.SourceType,
	extracted []domain.ExtractedOpportunity,
) (*domain.Communication, []domain.Opportunity, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}

	comm := domain.Communication{
		ID:         uuid.New(),
		Content:    content,
		ClientName: clientName,
		SourceType: source,
	}

	row := tx.QueryRowContext(ctx, insertCommunicationQuery,
		comm.ID, comm.Content, comm.ClientName, comm.SourceType)
	if err := row.Scan(&comm.CreatedAt, &comm.UpdatedAt); err != nil {
		_ = tx.Rollback()
		return nil, nil, fmt.Errorf("insert communication: %w", err)
	}

	opportunities := make([]domain.Opportunity, 0, len(extracted))
	for _, ex := range extracted {
		opp := domain.Opportunity{
			ID:              uuid.New(),
			CommunicationID: comm.ID,
			Title:           ex.Title,
			Description:     ex.Description,
			Type:            ex.Type,
			Confidence:      ex.Confidence,
			EstimatedValue:  ex.EstimatedValue,
			ExtractedText:   ex.ExtractedText,
			Status:          domain.StatusNew,
		}

		row := tx.QueryRowContext(ctx, insertOpportunityQuery,
			opp.ID, opp.CommunicationID, opp.Title, opp.Description, opp.Type,
			opp.Confidence, opp.EstimatedValue, opp.ExtractedText, opp.Status)
		if err := row.Scan(&opp.DetectedAt, &opp.CreatedAt); err != nil {
			_ = tx.Rollback()
			return nil, nil, fmt.Errorf("insert opportunity: %w", err)
		}

		opportunities = append(opportunities, opp)
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return nil, nil, fmt.Errorf("commit transaction: %w", err)
	}

	return &comm, opportunities, nil
}

// GetCommunication returns a communication and its opportunities.
func (r *Repository) GetCommunication(ctx context.Context, id uuid.UUID) (*domain.Communication, []domain.Opportunity, error) {
	var comm domain.Communication
	err := r.db.GetContext(ctx, &comm,
		`SELECT id, content, client_name, source_type, created_at, updated_at
		 FROM communications WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get communication: %w", err)
	}

	var opps []domain.Opportunity
	err = r.db.SelectContext(ctx, &opps,
		`SELECT `+opportunitySelectList+`
		 FROM opportunities WHERE communication_id = $1
		 ORDER BY confidence DESC, detected_at DESC`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get communication opportunities: %w", err)
	}

	return &comm, opps, nil
}

// ListCommunications returns communications newest-first with a total count.
func (r *Repository) ListCommunications(ctx context.Context, limit, offset int) ([]domain.Communication, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM communications`); err != nil {
		return nil, 0, fmt.Errorf("count communications: %w", err)
	}

	var comms []domain.Communication
	err := r.db.SelectContext(ctx, &comms,
		`SELECT id, content, client_name, source_type, created_at, updated_at
		 FROM communications ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list communications: %w", err)
	}

	return comms, total, nil
}

// OpportunityFilter narrows opportunity listings.
type OpportunityFilter struct {
	MinConfidence *float64
	Type          *domain.OpportunityType
	Limit         int
	Offset        int
}

// ListOpportunities returns opportunities ordered by confidence then
// detection time, both descending, plus the total count matching the filter.
func (r *Repository) ListOpportunities(ctx context.Context, filter OpportunityFilter) ([]domain.Opportunity, int, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 4)

	if filter.MinConfidence != nil {
		args = append(args, *filter.MinConfidence)
		where = append(where, "confidence >= $"+strconv.Itoa(len(args)))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		where = append(where, "opportunity_type = $"+strconv.Itoa(len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM opportunities` + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count opportunities: %w", err)
	}

	args = append(args, filter.Limit)
	limitPos := len(args)
	args = append(args, filter.Offset)
	offsetPos := len(args)

	listQuery := `SELECT ` + opportunitySelectList + ` FROM opportunities` + whereClause +
		` ORDER BY confidence DESC, detected_at DESC` +
		` LIMIT $` + strconv.Itoa(limitPos) + ` OFFSET $` + strconv.Itoa(offsetPos)

	var opps []domain.Opportunity
	if err := r.db.SelectContext(ctx, &opps, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list opportunities: %w", err)
	}

	return opps, total, nil
}

// GetOpportunity returns a single opportunity by id.
func (r *Repository) GetOpportunity(ctx context.Context, id uuid.UUID) (*domain.Opportunity, error) {
	var opp domain.Opportunity
	err := r.db.GetContext(ctx, &opp,
		`SELECT `+opportunitySelectList+` FROM opportunities WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get opportunity: %w", err)
	}
	return &opp, nil
}

// UpdateOpportunityStatus moves an opportunity through its review lifecycle.
func (r *Repository) UpdateOpportunityStatus(ctx context.Context, id uuid.UUID, status domain.OpportunityStatus) (*domain.Opportunity, error) {
	var opp domain.Opportunity
	err := r.db.GetContext(ctx, &opp,
		`UPDATE opportunities SET status = $2 WHERE id = $1
		 RETURNING `+opportunitySelectList, id, status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update opportunity status: %w", err)
	}
	return &opp, nil
}

// TypeCount is the number of opportunities in one practice area.
type TypeCount struct {
	Type  domain.OpportunityType `db:"opportunity_type" json:"type"`
	Count int                    `db:"count" json:"count"`
}

// OpportunityStats summarizes the opportunity table for dashboards.
type OpportunityStats struct {
	TotalCount          int         `json:"total_count"`
	HighConfidenceCount int         `json:"high_confidence_count"`
	ByType              []TypeCount `json:"by_type"`
}

// highConfidenceFloor is the dashboard's definition of a high-confidence
// opportunity; distinct from the notification threshold.
const highConfidenceFloor = 80

// Stats returns dashboard statistics.
func (r *Repository) Stats(ctx context.Context) (*OpportunityStats, error) {
	var stats OpportunityStats

	if err := r.db.GetContext(ctx, &stats.TotalCount,
		`SELECT COUNT(*) FROM opportunities`); err != nil {
		return nil, fmt.Errorf("count opportunities: %w", err)
	}

	if err := r.db.GetContext(ctx, &stats.HighConfidenceCount,
		`SELECT COUNT(*) FROM opportunities WHERE confidence >= $1`, highConfidenceFloor); err != nil {
		return nil, fmt.Errorf("count high-confidence opportunities: %w", err)
	}

	if err := r.db.SelectContext(ctx, &stats.ByType,
		`SELECT opportunity_type, COUNT(id) AS count FROM opportunities
		 GROUP BY opportunity_type ORDER BY count DESC`); err != nil {
		return nil, fmt.Errorf("count opportunities by type: %w", err)
	}

	return &stats, nil
}
