package webhooks

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"routeplan/internal/config"
	"routeplan/internal/store"
)

// Publisher queues plan events for every configured subscriber of the event type.
type Publisher struct {
	Store       store.Store
	Subscribers []config.Webhook
	Log         *zap.Logger
}

func NewPublisher(s store.Store, subs []config.Webhook, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{Store: s, Subscribers: subs, Log: log}
}

// Emit enqueues one delivery per matching subscriber. Queue failures are logged.
func (p *Publisher) Emit(ctx context.Context, eventType, planID string, data any) {
	var body []byte
	for _, s := range p.Subscribers {
		if !slices.Contains(s.Events, eventType) && !slices.Contains(s.Events, "*") {
			continue
		}
		if body == nil {
			payload := map[string]any{
				"id":     "evt_" + uuid.New().String(),
				"type":   eventType,
				"planId": planID,
				"ts":     time.Now().UTC().Format(time.RFC3339),
				"data":   data,
			}
			var err error
			if body, err = json.Marshal(payload); err != nil {
				p.Log.Error("webhook payload", zap.String("event", eventType), zap.Error(err))
				return
			}
		}
		if _, err := p.Store.EnqueueWebhook(ctx, eventType, s.URL, s.Secret, body); err != nil {
			p.Log.Warn("enqueue webhook", zap.String("event", eventType), zap.String("url", s.URL), zap.Error(err))
		}
	}
}
