// Package hub tracks connected realtime subscribers and fans notification
// payloads out to them.
package hub

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonesrussell/matterscout/internal/logger"
)

// DefaultSendTimeout bounds a single subscriber send so one slow connection
// cannot stall the rest of a broadcast indefinitely.
const DefaultSendTimeout = 5 * time.Second

// Conn is the transport-level connection a subscriber sits on.
// The websocket adapter in the api package satisfies it.
type Conn interface {
	// SendBinary writes payload as one binary frame, giving up at deadline.
	SendBinary(payload []byte, deadline time.Time) error
	// Close terminates the underlying connection.
	Close() error
}

// subscriberIDCounter generates unique subscriber identifiers.
var subscriberIDCounter atomic.Int64

// Subscriber is one live connection handle. Identity is the handle itself,
// not any application-level identity.
type Subscriber struct {
	id   string
	conn Conn
}

// NewSubscriber wraps an accepted connection in a subscriber handle.
func NewSubscriber(conn Conn) *Subscriber {
	id := subscriberIDCounter.Add(1)
	return &Subscriber{
		id:   fmt.Sprintf("sub-%d-%d", time.Now().UnixNano(), id),
		conn: conn,
	}
}

// ID returns the subscriber's opaque identifier.
func (s *Subscriber) ID() string {
	return s.id
}

// Hub is the process-wide registry of live subscribers. Membership operations
// and broadcast iterate under a mutex; the raw set is never exposed.
type Hub struct {
	mu            sync.RWMutex
	subscribers   map[*Subscriber]struct{}
	sendTimeout   time.Duration
	onCountChange func(int)
	logger        logger.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithSendTimeout overrides the per-subscriber send deadline.
func WithSendTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.sendTimeout = d
		}
	}
}

// WithCountListener registers a callback invoked with the new subscriber
// count whenever membership changes. Used to keep the subscriber gauge live.
func WithCountListener(fn func(int)) Option {
	return func(h *Hub) {
		h.onCountChange = fn
	}
}

// New creates an empty hub.
func New(log logger.Logger, opts ...Option) *Hub {
	h := &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		sendTimeout: DefaultSendTimeout,
		logger:      log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register marks a handshake-accepted subscriber live. Registering the same
// handle twice is a no-op; duplicates never occur.
func (h *Hub) Register(s *Subscriber) {
	h.mu.Lock()
	h.subscribers[s] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()

	h.notifyCount(count)
	h.logger.Info("Subscriber connected",
		logger.String("subscriber_id", s.id),
		logger.Int("total_subscribers", count),
	)
}

// Unregister removes a subscriber. Safe to call on an already-absent handle.
func (h *Hub) Unregister(s *Subscriber) {
	h.mu.Lock()
	_, present := h.subscribers[s]
	if present {
		delete(h.subscribers, s)
	}
	count := len(h.subscribers)
	h.mu.Unlock()

	if present {
		h.notifyCount(count)
		h.logger.Info("Subscriber disconnected",
			logger.String("subscriber_id", s.id),
			logger.Int("total_subscribers", count),
		)
	}
}

func (h *Hub) notifyCount(n int) {
	if h.onCountChange != nil {
		h.onCountChange(n)
	}
}

// Count returns the current number of live subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Broadcast delivers one encoded payload to every currently-registered
// subscriber. A failed send evicts that subscriber and closes its connection;
// it never aborts delivery to the rest and is never surfaced to the caller.
// Subscribers joining after the snapshot are not retroactively notified.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	snapshot := make([]*Subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		snapshot = append(snapshot, s)
	}
	h.mu.RUnlock()

	sent := 0
	for _, s := range snapshot {
		deadline := time.Now().Add(h.sendTimeout)
		if err := s.conn.SendBinary(payload, deadline); err != nil {
			h.logger.Warn("Broadcast send failed, evicting subscriber",
				logger.String("subscriber_id", s.id),
				logger.Error(err),
			)
			h.Unregister(s)
			_ = s.conn.Close()
			continue
		}
		sent++
	}

	h.logger.Debug("Notification broadcast",
		logger.Int("payload_bytes", len(payload)),
		logger.Int("sent", sent),
		logger.Int("evicted", len(snapshot)-sent),
	)
}

// CloseAll disconnects every subscriber. Used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	snapshot := make([]*Subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		snapshot = append(snapshot, s)
	}
	h.subscribers = make(map[*Subscriber]struct{})
	h.mu.Unlock()

	for _, s := range snapshot {
		_ = s.conn.Close()
	}

	if len(snapshot) > 0 {
		h.notifyCount(0)
		h.logger.Info("All subscribers disconnected",
			logger.Int("count", len(snapshot)),
		)
	}
}
