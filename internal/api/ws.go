package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Plan progress over a websocket, using the graphql-transport-ws message
// envelope: connection_init/ack, ping/pong, subscribe/next/complete.

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type subscribePayload struct {
	PlanID string `json:"planId"`
}

func (s *Server) planSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	var mu sync.Mutex
	write := func(v any) error {
		mu.Lock()
		defer mu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(v)
	}
	errorMsg := func(id, msg string) {
		b, _ := json.Marshal(map[string]string{"message": msg})
		_ = write(wsMessage{Type: "error", ID: id, Payload: b})
		_ = write(wsMessage{Type: "complete", ID: id})
	}

	type sub struct {
		planID string
		stop   func()
	}
	subs := map[string]sub{}
	done := make(chan struct{})
	defer close(done)

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(60 * time.Second)) })

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch msg.Type {
		case "connection_init":
			_ = write(wsMessage{Type: "connection_ack"})
			go func() {
				ticker := time.NewTicker(20 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						if err := write(wsMessage{Type: "ping"}); err != nil {
							return
						}
					}
				}
			}()
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "subscribe":
			var pl subscribePayload
			_ = json.Unmarshal(msg.Payload, &pl)
			if pl.PlanID == "" {
				errorMsg(msg.ID, "planId required")
				continue
			}
			if _, dup := subs[msg.ID]; dup {
				errorMsg(msg.ID, "subscription id already in use")
				continue
			}
			ch := s.Broker.Subscribe(pl.PlanID)
			rec, err := s.Store.GetPlan(r.Context(), pl.PlanID)
			if err != nil {
				s.Broker.Unsubscribe(pl.PlanID, ch)
				errorMsg(msg.ID, err.Error())
				continue
			}
			if evt, finished := terminalEvent(rec); finished {
				s.Broker.Unsubscribe(pl.PlanID, ch)
				payload, _ := json.Marshal(map[string]any{"data": evt})
				_ = write(wsMessage{Type: "next", ID: msg.ID, Payload: payload})
				_ = write(wsMessage{Type: "complete", ID: msg.ID})
				continue
			}
			stop := make(chan struct{})
			var once sync.Once
			subs[msg.ID] = sub{planID: pl.PlanID, stop: func() { once.Do(func() { close(stop) }) }}
			go func(id, planID string) {
				defer s.Broker.Unsubscribe(planID, ch)
				for {
					select {
					case <-stop:
						return
					case evt, ok := <-ch:
						if !ok {
							return
						}
						payload, _ := json.Marshal(map[string]any{"data": evt})
						if err := write(wsMessage{Type: "next", ID: id, Payload: payload}); err != nil {
							return
						}
						if evt.Terminal() {
							_ = write(wsMessage{Type: "complete", ID: id})
							return
						}
					}
				}
			}(msg.ID, pl.PlanID)
		case "complete":
			if s0, ok := subs[msg.ID]; ok {
				s0.stop()
				delete(subs, msg.ID)
			}
		}
	}
	for _, s0 := range subs {
		s0.stop()
	}
}
