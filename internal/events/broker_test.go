package events

import (
	"os"
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewMemory()
	pid := "p1"
	ch := b.Subscribe(pid)

	evt := Event{Type: PlanMatrixReady, PlanID: pid, Data: map[string]any{"x": 1}}
	b.Publish(pid, evt)

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["x"].(int) != 1 {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(pid, ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	// a second unsubscribe is a no-op
	b.Unsubscribe(pid, ch)
}

func TestBrokerIsolatesPlans(t *testing.T) {
	b := NewMemory()
	a := b.Subscribe("a")
	defer b.Unsubscribe("a", a)
	b.Publish("b", Event{Type: PlanStarted})
	select {
	case e := <-a:
		t.Fatalf("unexpected event %+v", e)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBrokerDropsWhenFull(t *testing.T) {
	b := NewMemory()
	ch := b.Subscribe("p")
	for i := 0; i < 20; i++ {
		b.Publish("p", Event{Type: PlanStarted})
	}
	if len(ch) != cap(ch) {
		t.Fatalf("want full buffer, got %d/%d", len(ch), cap(ch))
	}
}

func TestTerminal(t *testing.T) {
	if !(Event{Type: PlanSolved}).Terminal() || !(Event{Type: PlanFailed}).Terminal() {
		t.Fatal("solved and failed are terminal")
	}
	if (Event{Type: PlanStarted}).Terminal() {
		t.Fatal("started is not terminal")
	}
}

func TestRedisBroker(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	b, err := NewRedis(url)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	ch := b.Subscribe("itest")
	defer b.Unsubscribe("itest", ch)
	b.Publish("itest", Event{Type: PlanSolved, PlanID: "itest"})
	select {
	case got := <-ch:
		if got.Type != PlanSolved {
			t.Fatalf("got %s", got.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for redis event")
	}
}
