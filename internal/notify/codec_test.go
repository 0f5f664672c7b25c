package notify

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/jonesrussell/matterscout/internal/domain"
)

func sampleOpportunity(confidence float64) domain.Opportunity {
	return domain.Opportunity{
		ID:          uuid.New(),
		Title:       "Office lease negotiation",
		Description: "Client needs help with a new lease",
		Type:        domain.TypeRealEstate,
		Confidence:  confidence,
		Status:      domain.StatusNew,
	}
}

func TestShouldNotify(t *testing.T) {
	testCases := []struct {
		confidence float64
		want       bool
	}{
		{85, true},
		{70, true},
		{69.99, false},
		{40, false},
	}

	for _, tc := range testCases {
		if got := ShouldNotify(sampleOpportunity(tc.confidence)); got != tc.want {
			t.Errorf("ShouldNotify(confidence=%v) = %v, want %v", tc.confidence, got, tc.want)
		}
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	opp := sampleOpportunity(85)
	capturedAt := time.Unix(1735689600, 0)

	payload := Encode(opp, "Acme Corp", capturedAt)

	decoded, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if decoded.OpportunityID != opp.ID.String() {
		t.Errorf("opportunity id: got %q, want %q", decoded.OpportunityID, opp.ID.String())
	}
	if decoded.Title != opp.Title {
		t.Errorf("title: got %q, want %q", decoded.Title, opp.Title)
	}
	if decoded.TypeString() != "REAL_ESTATE" {
		t.Errorf("type name: got %q, want REAL_ESTATE", decoded.TypeString())
	}
	if decoded.Type != OrdinalRealEstate {
		t.Errorf("type ordinal: got %d, want %d", decoded.Type, OrdinalRealEstate)
	}
	if math.Abs(float64(decoded.Confidence)-opp.Confidence) > 1e-4 {
		t.Errorf("confidence: got %v, want %v", decoded.Confidence, opp.Confidence)
	}
	if decoded.ClientName != "Acme Corp" {
		t.Errorf("client name: got %q, want Acme Corp", decoded.ClientName)
	}
	if decoded.Timestamp != capturedAt.Unix() {
		t.Errorf("timestamp: got %d, want %d", decoded.Timestamp, capturedAt.Unix())
	}
	if decoded.Description != opp.Description {
		t.Errorf("description: got %q, want %q", decoded.Description, opp.Description)
	}
}

func TestTypeOrdinal_AllTypesDistinct(t *testing.T) {
	seen := make(map[int32]domain.OpportunityType)
	for _, oppType := range domain.OpportunityTypes {
		ordinal := TypeOrdinal(oppType)
		if prev, dup := seen[ordinal]; dup {
			t.Errorf("ordinal %d shared by %s and %s", ordinal, prev, oppType)
		}
		if ordinal == OrdinalUnknown {
			t.Errorf("known type %s mapped to UNKNOWN ordinal", oppType)
		}
		seen[ordinal] = oppType
	}
}

func TestTypeOrdinal_UnmappedFallsBackToUnknown(t *testing.T) {
	if got := TypeOrdinal(domain.OpportunityType("TAX_LAW")); got != OrdinalUnknown {
		t.Errorf("expected UNKNOWN ordinal, got %d", got)
	}
}

func TestTypeName_UnrecognizedOrdinal(t *testing.T) {
	if got := TypeName(42); got != "UNKNOWN" {
		t.Errorf("expected UNKNOWN, got %q", got)
	}
}

func TestDecode_SkipsUnknownFields(t *testing.T) {
	payload := Encode(sampleOpportunity(90), "Acme Corp", time.Now())

	// Append a field number this decoder does not know about.
	payload = protowire.AppendTag(payload, 99, protowire.BytesType)
	payload = protowire.AppendString(payload, "future extension")

	decoded, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode failed on unknown field: %v", err)
	}
	if decoded.ClientName != "Acme Corp" {
		t.Errorf("client name lost around unknown field: %q", decoded.ClientName)
	}
}

func TestDecode_Truncated(t *testing.T) {
	payload := Encode(sampleOpportunity(90), "Acme Corp", time.Now())
	if _, err := Decode(payload[:len(payload)-3]); err == nil {
		t.Fatal("expected error for truncated payload")
	}
}
