package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements create the tables and indexes the service needs.
// Opportunities are owned by their communication: the foreign key cascades
// on delete.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS communications (
		id UUID PRIMARY KEY,
		content TEXT NOT NULL,
		client_name VARCHAR(200) NOT NULL,
		source_type VARCHAR(20) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS opportunities (
		id UUID PRIMARY KEY,
		communication_id UUID NOT NULL REFERENCES communications(id) ON DELETE CASCADE,
		title VARCHAR(200) NOT NULL,
		description TEXT NOT NULL,
		opportunity_type VARCHAR(40) NOT NULL,
		confidence NUMERIC(5,2) NOT NULL,
		estimated_value VARCHAR(50),
		extracted_text TEXT NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'NEW',
		detected_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_communications_created_at ON communications (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_communications_client_name ON communications (client_name)`,
	`CREATE INDEX IF NOT EXISTS idx_opportunities_confidence ON opportunities (confidence)`,
	`CREATE INDEX IF NOT EXISTS idx_opportunities_type ON opportunities (opportunity_type)`,
	`CREATE INDEX IF NOT EXISTS idx_opportunities_detected_at ON opportunities (detected_at)`,
	`CREATE INDEX IF NOT EXISTS idx_opportunities_communication_id ON opportunities (communication_id)`,
}

// EnsureSchema creates tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
