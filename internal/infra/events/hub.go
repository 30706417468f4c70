// File: internal/infra/events/hub.go
package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/adapter"
)

const subscriberBuffer = 16

var _ adapter.Notifier = (*Hub)(nil)

// Hub fans pipeline events out to in-process subscribers (the websocket
// handler, mainly). Subscriber channels are bounded; a subscriber that
// cannot keep up loses events rather than blocking the pipeline.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan model.Event]struct{}
	logger zerolog.Logger
}

func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		subs:   make(map[chan model.Event]struct{}),
		logger: logger.With().Str("component", "event_hub").Logger(),
	}
}

// Subscribe returns a receive channel and an unsubscribe func. The channel
// is closed on unsubscribe.
func (h *Hub) Subscribe() (<-chan model.Event, func()) {
	ch := make(chan model.Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (h *Hub) PostingRemoved(_ context.Context, postingID, title, reason string) {
	h.publish(model.Event{
		Type:      model.EventPostingRemoved,
		PostingID: postingID,
		Title:     title,
		Reason:    reason,
		At:        time.Now().UTC(),
	})
}

func (h *Hub) ScanFinished(_ context.Context, summary model.ScanSummary) {
	h.publish(model.Event{
		Type: model.EventScanFinished,
		Scan: &summary,
		At:   time.Now().UTC(),
	})
}

func (h *Hub) publish(ev model.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.logger.Debug().Str("type", string(ev.Type)).Msg("slow subscriber, event dropped")
		}
	}
}

// Multi forwards each event to every wrapped notifier.
type Multi []adapter.Notifier

var _ adapter.Notifier = (Multi)(nil)

func (m Multi) PostingRemoved(ctx context.Context, postingID, title, reason string) {
	for _, n := range m {
		n.PostingRemoved(ctx, postingID, title, reason)
	}
}

func (m Multi) ScanFinished(ctx context.Context, summary model.ScanSummary) {
	for _, n := range m {
		n.ScanFinished(ctx, summary)
	}
}
