package metrics

import "context"

// Recorder fans pipeline events into the Prometheus collectors and, when
// configured, the Redis daily tracker. A nil tracker disables the Redis side.
type Recorder struct {
	collectors *Collectors
	tracker    *Tracker
}

// NewRecorder creates a recorder. tracker may be nil.
func NewRecorder(collectors *Collectors, tracker *Tracker) *Recorder {
	return &Recorder{collectors: collectors, tracker: tracker}
}

// CommunicationProcessed records one pipeline run with its outcome label.
func (r *Recorder) CommunicationProcessed(ctx context.Context, outcome string) {
	r.collectors.CommunicationsProcessed.WithLabelValues(outcome).Inc()
	if r.tracker != nil && outcome == OutcomeProcessed {
		_ = r.tracker.IncrCommunications(ctx)
	}
}

// OpportunitiesDetected records n persisted opportunities.
func (r *Recorder) OpportunitiesDetected(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	r.collectors.OpportunitiesDetected.Add(float64(n))
	if r.tracker != nil {
		_ = r.tracker.IncrOpportunities(ctx, n)
	}
}

// NotificationSent records one broadcast notification.
func (r *Recorder) NotificationSent(ctx context.Context) {
	r.collectors.NotificationsSent.Inc()
	if r.tracker != nil {
		_ = r.tracker.IncrNotifications(ctx)
	}
}

// SubscriberCount updates the live subscriber gauge.
func (r *Recorder) SubscriberCount(n int) {
	r.collectors.Subscribers.Set(float64(n))
}
