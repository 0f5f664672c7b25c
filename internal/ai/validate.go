package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonesrussell/matterscout/internal/domain"
	"github.com/jonesrussell/matterscout/internal/logger"
)

// rawOpportunity is one candidate as the model reports it. Confidence is a
// json.Number because models occasionally quote numeric fields.
type rawOpportunity struct {
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Type           string      `json:"type"`
	Confidence     json.Number `json:"confidence"`
	ExtractedText  string      `json:"extracted_text"`
	EstimatedValue *string     `json:"estimated_value"`
}

// extractionResult is the envelope the prompt asks the model to return.
// Candidates stay raw here; each one is unmarshalled on its own during
// validation so a single mistyped field cannot sink its siblings.
type extractionResult struct {
	Opportunities []json.RawMessage `json:"opportunities"`
}

// categoryByToken maps normalized category tokens to domain types.
var categoryByToken = map[string]domain.OpportunityType{
	"real_estate":    domain.TypeRealEstate,
	"employment_law": domain.TypeEmploymentLaw,
	"m&a":            domain.TypeMergersAndAcquisitions,
	"ip":             domain.TypeIntellectualProperty,
	"litigation":     domain.TypeLitigation,
}

// normalizeCategory lowercases the reported category, strips ampersands,
// replaces spaces with underscores, and canonicalizes the bare "ma" token
// back to "m&a".
func normalizeCategory(s string) string {
	t := strings.ToLower(strings.TrimSpace(s))
	t = strings.ReplaceAll(t, "&", "")
	t = strings.ReplaceAll(t, " ", "_")
	if t == "ma" {
		t = "m&a"
	}
	return t
}

// decodeExtraction parses the model's completion text into the extraction
// envelope. Markdown code fences are stripped first; models add them even
// when told not to.
func decodeExtraction(text string) (*extractionResult, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	var result extractionResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return &result, nil
}

// validateCandidates filters and normalizes raw candidates. Each candidate is
// judged independently: a bad one is logged and skipped, never aborting the
// batch. At most domain.MaxOpportunitiesPerCommunication survive, taken in
// response order.
func validateCandidates(raw []json.RawMessage, log logger.Logger) []domain.ExtractedOpportunity {
	validated := make([]domain.ExtractedOpportunity, 0, len(raw))

	for _, entry := range raw {
		if len(validated) >= domain.MaxOpportunitiesPerCommunication {
			break
		}

		var opp rawOpportunity
		if err := json.Unmarshal(entry, &opp); err != nil {
			log.Warn("Rejected candidate with malformed fields",
				logger.Error(err),
			)
			continue
		}

		token := normalizeCategory(opp.Type)
		oppType, ok := categoryByToken[token]
		if !ok {
			log.Warn("Rejected candidate with unknown category",
				logger.String("category", opp.Type),
			)
			continue
		}

		confidence, err := opp.Confidence.Float64()
		if err != nil {
			log.Warn("Rejected candidate with unparseable confidence",
				logger.String("confidence", opp.Confidence.String()),
			)
			continue
		}
		if confidence < domain.MinConfidence || confidence > domain.MaxConfidence {
			log.Warn("Rejected candidate with out-of-range confidence",
				logger.Float64("confidence", confidence),
			)
			continue
		}

		if opp.Title == "" || opp.Description == "" {
			log.Warn("Rejected candidate with missing title or description")
			continue
		}

		title := opp.Title
		if runes := []rune(title); len(runes) > domain.MaxTitleLength {
			title = string(runes[:domain.MaxTitleLength])
		}

		extractedText := opp.ExtractedText
		if extractedText == "" {
			extractedText = opp.Description
		}

		validated = append(validated, domain.ExtractedOpportunity{
			Title:          title,
			Description:    opp.Description,
			Type:           oppType,
			Confidence:     confidence,
			EstimatedValue: opp.EstimatedValue,
			ExtractedText:  extractedText,
		})
	}

	return validated
}
