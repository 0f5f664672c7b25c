// Package notify decides which opportunities are pushed to subscribers and
// encodes them into the binary notification wire format.
package notify

import "github.com/jonesrussell/matterscout/internal/domain"

// ShouldNotify reports whether an opportunity is eligible for a push
// notification. The threshold is independent of the validation floor: every
// persisted opportunity is valid, only the high-confidence subset is pushed.
func ShouldNotify(opp domain.Opportunity) bool {
	return opp.Confidence >= domain.NotifyThreshold
}
