package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/matterscout/internal/logger"
)

const (
	keyPrefix  = "matterscout:metrics"
	counterTTL = 30 * 24 * time.Hour
	dayFormat  = "2006-01-02"
)

// Tracker keeps daily activity counters in Redis. Counter failures are logged
// and returned but never block the pipeline.
type Tracker struct {
	client redis.UniversalClient
	logger logger.Logger
}

// NewTracker creates a new tracker.
func NewTracker(client redis.UniversalClient, log logger.Logger) *Tracker {
	return &Tracker{client: client, logger: log}
}

func dayKey(name string, day time.Time) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, name, day.UTC().Format(dayFormat))
}

// incr bumps a daily counter and refreshes its TTL in one pipeline.
func (t *Tracker) incr(ctx context.Context, name string, delta int64) error {
	key := dayKey(name, time.Now())

	pipe := t.client.Pipeline()
	pipe.IncrBy(ctx, key, delta)
	pipe.Expire(ctx, key, counterTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		t.logger.Warn("Failed to increment counter",
			logger.String("redis_key", key),
			logger.Error(err),
		)
		return fmt.Errorf("increment %s counter: %w", name, err)
	}
	return nil
}

// IncrCommunications bumps today's processed-communications counter.
func (t *Tracker) IncrCommunications(ctx context.Context) error {
	return t.incr(ctx, "communications", 1)
}

// IncrOpportunities adds n to today's detected-opportunities counter.
func (t *Tracker) IncrOpportunities(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	return t.incr(ctx, "opportunities", int64(n))
}

// IncrNotifications bumps today's sent-notifications counter.
func (t *Tracker) IncrNotifications(ctx context.Context) error {
	return t.incr(ctx, "notifications", 1)
}

// DailyCounts is one day's activity.
type DailyCounts struct {
	Communications int64 `json:"communications"`
	Opportunities  int64 `json:"opportunities"`
	Notifications  int64 `json:"notifications"`
}

// Daily returns the counters for the given day. Missing keys read as zero.
func (t *Tracker) Daily(ctx context.Context, day time.Time) (*DailyCounts, error) {
	keys := []string{
		dayKey("communications", day),
		dayKey("opportunities", day),
		dayKey("notifications", day),
	}

	values, err := t.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read daily counters: %w", err)
	}

	counts := &DailyCounts{}
	targets := []*int64{&counts.Communications, &counts.Opportunities, &counts.Notifications}
	for i, v := range values {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		if n, parseErr := strconv.ParseInt(s, 10, 64); parseErr == nil {
			*targets[i] = n
		}
	}

	return counts, nil
}
