package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Confidence bounds. Candidates below the acceptance floor are discarded at
// validation; persisted opportunities at or above the notify threshold are
// pushed to subscribers.
const (
	MinConfidence                    = 40.0
	MaxConfidence                    = 100.0
	NotifyThreshold                  = 70.0
	MaxTitleLength                   = 200
	MaxOpportunitiesPerCommunication = 5
)

// OpportunityType is the practice area an opportunity falls into.
type OpportunityType string

// Known opportunity types.
const (
	TypeRealEstate             OpportunityType = "REAL_ESTATE"
	TypeEmploymentLaw          OpportunityType = "EMPLOYMENT_LAW"
	TypeMergersAndAcquisitions OpportunityType = "MERGERS_AND_ACQUISITIONS"
	TypeIntellectualProperty   OpportunityType = "INTELLECTUAL_PROPERTY"
	TypeLitigation             OpportunityType = "LITIGATION"
)

// OpportunityTypes lists every known opportunity type.
var OpportunityTypes = []OpportunityType{
	TypeRealEstate,
	TypeEmploymentLaw,
	TypeMergersAndAcquisitions,
	TypeIntellectualProperty,
	TypeLitigation,
}

// ParseOpportunityType converts a request string into an OpportunityType.
func ParseOpportunityType(s string) (OpportunityType, error) {
	t := OpportunityType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range OpportunityTypes {
		if t == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: unknown opportunity type %q", ErrInvalidInput, s)
}

// OpportunityStatus is the review lifecycle tag of an opportunity.
// The pipeline only ever creates opportunities as StatusNew.
type OpportunityStatus string

// Known opportunity statuses.
const (
	StatusNew       OpportunityStatus = "NEW"
	StatusReviewing OpportunityStatus = "REVIEWING"
	StatusContacted OpportunityStatus = "CONTACTED"
	StatusClosed    OpportunityStatus = "CLOSED"
	StatusArchived  OpportunityStatus = "ARCHIVED"
)

// ParseOpportunityStatus converts a request string into an OpportunityStatus.
func ParseOpportunityStatus(s string) (OpportunityStatus, error) {
	switch OpportunityStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusNew:
		return StatusNew, nil
	case StatusReviewing:
		return StatusReviewing, nil
	case StatusContacted:
		return StatusContacted, nil
	case StatusClosed:
		return StatusClosed, nil
	case StatusArchived:
		return StatusArchived, nil
	default:
		return "", fmt.Errorf("%w: unknown opportunity status %q", ErrInvalidInput, s)
	}
}

// Opportunity is a candidate business-development lead derived from a
// communication. It has no lifecycle independent of its communication.
type Opportunity struct {
	ID              uuid.UUID         `db:"id" json:"id"`
	CommunicationID uuid.UUID         `db:"communication_id" json:"communication_id"`
	Title           string            `db:"title" json:"title"`
	Description     string            `db:"description" json:"description"`
	Type            OpportunityType   `db:"opportunity_type" json:"opportunity_type"`
	Confidence      float64           `db:"confidence" json:"confidence"`
	EstimatedValue  *string           `db:"estimated_value" json:"estimated_value,omitempty"`
	ExtractedText   string            `db:"extracted_text" json:"extracted_text"`
	Status          OpportunityStatus `db:"status" json:"status"`
	DetectedAt      time.Time         `db:"detected_at" json:"detected_at"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
}

// ExtractedOpportunity is a validated candidate produced by the extraction
// pass, before persistence assigns identity and timestamps.
type ExtractedOpportunity struct {
	Title          string
	Description    string
	Type           OpportunityType
	Confidence     float64
	EstimatedValue *string
	ExtractedText  string
}
