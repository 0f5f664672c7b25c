// Package domain defines the core entities of the matterscout service.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Content length bounds for an incoming communication.
const (
	MinContentLength = 50
	MaxContentLength = 10000
)

// SourceType identifies the channel a communication arrived through.
type SourceType string

// Known source types.
const (
	SourceEmail   SourceType = "EMAIL"
	SourceMeeting SourceType = "MEETING"
	SourceNote    SourceType = "NOTE"
)

// ParseSourceType converts a request string into a SourceType.
// Matching is case-insensitive; unknown values return an error.
func ParseSourceType(s string) (SourceType, error) {
	switch SourceType(strings.ToUpper(strings.TrimSpace(s))) {
	case SourceEmail:
		return SourceEmail, nil
	case SourceMeeting:
		return SourceMeeting, nil
	case SourceNote:
		return SourceNote, nil
	default:
		return "", fmt.Errorf("%w: unknown source type %q", ErrInvalidInput, s)
	}
}

// Communication is an immutable record of a single incoming client message.
// It owns zero or more opportunities; deleting it cascades to them.
type Communication struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Content    string     `db:"content" json:"content"`
	ClientName string     `db:"client_name" json:"client_name"`
	SourceType SourceType `db:"source_type" json:"source_type"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// ValidateCommunicationInput checks the inbound trigger fields before the
// pipeline does any external work.
func ValidateCommunicationInput(content, clientName string) error {
	n := len([]rune(content))
	if n < MinContentLength || n > MaxContentLength {
		return fmt.Errorf("%w: content must be between %d and %d characters, got %d",
			ErrInvalidInput, MinContentLength, MaxContentLength, n)
	}
	if strings.TrimSpace(clientName) == "" {
		return fmt.Errorf("%w: client name must not be empty", ErrInvalidInput)
	}
	return nil
}
