// Package events fans plan progress out to live subscribers.
package events

import (
	"sync"
	"time"
)

const (
	PlanStarted     = "plan.started"
	PlanMatrixReady = "plan.matrix.ready"
	PlanSolved      = "plan.solved"
	PlanFailed      = "plan.failed"
)

type Event struct {
	Type   string         `json:"type"`
	PlanID string         `json:"planId"`
	At     time.Time      `json:"at"`
	Data   map[string]any `json:"data,omitempty"`
}

// Terminal reports whether no further events follow for the plan.
func (e Event) Terminal() bool { return e.Type == PlanSolved || e.Type == PlanFailed }

type Broker interface {
	Subscribe(planID string) chan Event
	Unsubscribe(planID string, ch chan Event)
	Publish(planID string, evt Event)
}

// Memory is the in-process Broker. Slow subscribers miss events rather than block publishers.
type Memory struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{} // planId -> set of channels
}

func NewMemory() *Memory {
	return &Memory{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Memory) Subscribe(planID string) chan Event {
	ch := make(chan Event, 8)
	b.mu.Lock()
	if b.subs[planID] == nil {
		b.subs[planID] = map[chan Event]struct{}{}
	}
	b.subs[planID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Memory) Unsubscribe(planID string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[planID]
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, planID)
	}
	close(ch)
}

func (b *Memory) Publish(planID string, evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[planID] {
		select {
		case ch <- evt:
		default:
		}
	}
}
