package notify

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/jonesrussell/matterscout/internal/domain"
)

// Wire type ordinals. Fixed; decoders on other stacks rely on these values.
const (
	OrdinalRealEstate             int32 = 0
	OrdinalEmploymentLaw          int32 = 1
	OrdinalMergersAndAcquisitions int32 = 2
	OrdinalIntellectualProperty   int32 = 3
	OrdinalLitigation             int32 = 4
	OrdinalUnknown                int32 = 5
)

// Field numbers of the OpportunityNotification message.
const (
	fieldOpportunityID = 1
	fieldTitle         = 2
	fieldType          = 3
	fieldConfidence    = 4
	fieldClientName    = 5
	fieldTimestamp     = 6
	fieldDescription   = 7
)

// ordinalByType maps domain types to wire ordinals.
var ordinalByType = map[domain.OpportunityType]int32{
	domain.TypeRealEstate:             OrdinalRealEstate,
	domain.TypeEmploymentLaw:          OrdinalEmploymentLaw,
	domain.TypeMergersAndAcquisitions: OrdinalMergersAndAcquisitions,
	domain.TypeIntellectualProperty:   OrdinalIntellectualProperty,
	domain.TypeLitigation:             OrdinalLitigation,
}

// nameByOrdinal is the stable ordinal-to-name mapping used at decode time.
var nameByOrdinal = map[int32]string{
	OrdinalRealEstate:             "REAL_ESTATE",
	OrdinalEmploymentLaw:          "EMPLOYMENT_LAW",
	OrdinalMergersAndAcquisitions: "MERGERS_AND_ACQUISITIONS",
	OrdinalIntellectualProperty:   "INTELLECTUAL_PROPERTY",
	OrdinalLitigation:             "LITIGATION",
	OrdinalUnknown:                "UNKNOWN",
}

// TypeOrdinal returns the wire ordinal for a domain type, falling back to
// OrdinalUnknown for anything unmapped.
func TypeOrdinal(t domain.OpportunityType) int32 {
	if ordinal, ok := ordinalByType[t]; ok {
		return ordinal
	}
	return OrdinalUnknown
}

// TypeName returns the canonical name for a wire ordinal. Unrecognized
// ordinals map to "UNKNOWN" rather than erroring.
func TypeName(ordinal int32) string {
	if name, ok := nameByOrdinal[ordinal]; ok {
		return name
	}
	return nameByOrdinal[OrdinalUnknown]
}

// Notification is the decoded form of one wire message.
type Notification struct {
	OpportunityID string
	Title         string
	Type          int32
	Confidence    float32
	ClientName    string
	Timestamp     int64
	Description   string
}

// TypeString returns the canonical name of the notification's type ordinal.
func (n *Notification) TypeString() string {
	return TypeName(n.Type)
}

// Encode serializes an opportunity notification using the protobuf wire
// format. The timestamp is capturedAt, not the opportunity's detection time;
// that matches what downstream consumers already expect.
func Encode(opp domain.Opportunity, clientName string, capturedAt time.Time) []byte {
	var b []byte

	b = protowire.AppendTag(b, fieldOpportunityID, protowire.BytesType)
	b = protowire.AppendString(b, opp.ID.String())

	b = protowire.AppendTag(b, fieldTitle, protowire.BytesType)
	b = protowire.AppendString(b, opp.Title)

	b = protowire.AppendTag(b, fieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(TypeOrdinal(opp.Type)))

	b = protowire.AppendTag(b, fieldConfidence, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, math.Float32bits(float32(opp.Confidence)))

	b = protowire.AppendTag(b, fieldClientName, protowire.BytesType)
	b = protowire.AppendString(b, clientName)

	b = protowire.AppendTag(b, fieldTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(capturedAt.Unix()))

	b = protowire.AppendTag(b, fieldDescription, protowire.BytesType)
	b = protowire.AppendString(b, opp.Description)

	return b
}

// Decode parses a wire message back into a Notification. Unknown fields are
// skipped; an unrecognized type ordinal is preserved and surfaces as UNKNOWN
// through TypeString.
func Decode(data []byte) (*Notification, error) {
	var n Notification

	for len(data) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(data)
		if tagLen < 0 {
			return nil, fmt.Errorf("decode notification tag: %w", protowire.ParseError(tagLen))
		}
		data = data[tagLen:]

		switch num {
		case fieldOpportunityID, fieldTitle, fieldClientName, fieldDescription:
			v, valLen := protowire.ConsumeString(data)
			if valLen < 0 {
				return nil, fmt.Errorf("decode notification field %d: %w", num, protowire.ParseError(valLen))
			}
			data = data[valLen:]
			switch num {
			case fieldOpportunityID:
				n.OpportunityID = v
			case fieldTitle:
				n.Title = v
			case fieldClientName:
				n.ClientName = v
			case fieldDescription:
				n.Description = v
			}
		case fieldType:
			v, valLen := protowire.ConsumeVarint(data)
			if valLen < 0 {
				return nil, fmt.Errorf("decode notification type: %w", protowire.ParseError(valLen))
			}
			data = data[valLen:]
			n.Type = int32(v)
		case fieldConfidence:
			v, valLen := protowire.ConsumeFixed32(data)
			if valLen < 0 {
				return nil, fmt.Errorf("decode notification confidence: %w", protowire.ParseError(valLen))
			}
			data = data[valLen:]
			n.Confidence = math.Float32frombits(v)
		case fieldTimestamp:
			v, valLen := protowire.ConsumeVarint(data)
			if valLen < 0 {
				return nil, fmt.Errorf("decode notification timestamp: %w", protowire.ParseError(valLen))
			}
			data = data[valLen:]
			n.Timestamp = int64(v)
		default:
			valLen := protowire.ConsumeFieldValue(num, typ, data)
			if valLen < 0 {
				return nil, fmt.Errorf("skip notification field %d: %w", num, protowire.ParseError(valLen))
			}
			data = data[valLen:]
		}
	}

	return &n, nil
}
