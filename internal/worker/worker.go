// Package worker runs background consumers of the event bus.
package worker

import (
	"context"
	"log/slog"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/opensource-finance/cropadvisor/internal/domain"
)

// Invalidator drops cached catalog state.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Worker consumes catalog change events and invalidates the catalog cache,
// so every replica reloads after a change made on any of them.
type Worker struct {
	bus         domain.EventBus
	invalidator Invalidator

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
	handled       int64
}

// NewWorker creates a new catalog watcher.
func NewWorker(bus domain.EventBus, invalidator Invalidator) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:         bus,
		invalidator: invalidator,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start subscribes to catalog change events.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicCatalogChanged, w.handleCatalogChange)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.subscriptions = append(w.subscriptions, sub)
	w.mu.Unlock()

	slog.Info("catalog watcher started", "topic", domain.TopicCatalogChanged)
	return nil
}

// handleCatalogChange invalidates the cache. An unreadable payload still
// invalidates, since it signals that something changed.
func (w *Worker) handleCatalogChange(ctx context.Context, msg *domain.Message) error {
	var change domain.CatalogChange
	if err := json.Unmarshal(msg.Payload, &change); err != nil {
		slog.Warn("unreadable catalog change payload",
			"message_id", msg.ID,
			"error", err,
		)
	}

	if err := w.invalidator.Invalidate(ctx); err != nil {
		slog.Error("catalog invalidation failed",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	w.mu.Lock()
	w.handled++
	w.mu.Unlock()

	slog.Info("catalog cache invalidated",
		"action", change.Action,
		"crop", change.Crop,
		"message_id", msg.ID,
	)
	return nil
}

// Stop gracefully stops the watcher.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("catalog watcher stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
	Handled           int64    `json:"handled"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
		Handled:           w.handled,
	}
}

// PublishChange announces a catalog change on the bus.
func PublishChange(ctx context.Context, bus domain.EventBus, change domain.CatalogChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return bus.Publish(ctx, domain.TopicCatalogChanged, payload)
}
