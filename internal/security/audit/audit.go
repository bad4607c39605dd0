package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event is one audit record. Events are logged and fanned out to live
// subscribers; they are not persisted by this package.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	ActorID    string    `json:"actor_id"`
	BusinessID string    `json:"business_id,omitempty"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id,omitempty"`
	Status     string    `json:"status"`
	Details    string    `json:"details,omitempty"`
}

// Logger writes audit events to the structured log and broadcasts them to
// live subscribers (the websocket audit stream).
type Logger struct {
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewLogger creates an audit logger
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger, subs: map[chan Event]struct{}{}}
}

// Record logs one audit event and fans it out to subscribers
func (al *Logger) Record(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	al.logger.Info("audit",
		slog.String("action", ev.Action),
		slog.String("resource", ev.Resource),
		slog.String("resource_id", ev.ResourceID),
		slog.String("business_id", ev.BusinessID),
		slog.String("actor_id", ev.ActorID),
		slog.String("status", ev.Status),
		slog.String("details", ev.Details),
	)

	al.mu.RLock()
	defer al.mu.RUnlock()
	for ch := range al.subs {
		// Slow subscribers drop events rather than block the request path.
		select {
		case ch <- ev:
		default:
		}
	}
}

// LogDenied records an authorization denial
func (al *Logger) LogDenied(ctx context.Context, actorID, action, reason string) {
	al.Record(ctx, Event{
		ActorID:  actorID,
		Action:   action,
		Resource: "policy",
		Status:   "denied",
		Details:  reason,
	})
}

// Subscribe registers a live event channel. The returned cancel func must be
// called when the subscriber goes away.
func (al *Logger) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	al.mu.Lock()
	al.subs[ch] = struct{}{}
	al.mu.Unlock()

	cancel := func() {
		al.mu.Lock()
		delete(al.subs, ch)
		al.mu.Unlock()
	}
	return ch, cancel
}
