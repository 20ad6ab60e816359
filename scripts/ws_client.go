// Package main runs a demo WebSocket client for plan events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const demoPlan = `{
  "locations": [
    {"name": "Depot", "location": {"lat": 40.7128, "lng": -74.0060}},
    {"name": "Harlem", "demand": 120, "location": {"lat": 40.8116, "lng": -73.9465}},
    {"name": "Brooklyn", "demand": 200, "location": {"lat": 40.6782, "lng": -73.9442}},
    {"name": "Queens", "demand": 150, "location": {"lat": 40.7282, "lng": -73.7949}}
  ]
}`

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	token := os.Getenv("TOKEN")
	if token == "" {
		token = "demo:planner"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Start an async plan.
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/plans?async=true", bytes.NewReader([]byte(demoPlan)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var rec struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		log.Fatal(err)
	}
	if rec.ID == "" {
		log.Fatalf("no plan id returned (status %d)", resp.StatusCode)
	}
	log.Printf("Plan ID: %s", rec.ID)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/ws", RawQuery: "access_token=" + url.QueryEscape(token)}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	pl, _ := json.Marshal(map[string]string{"planId": rec.ID})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
			if m.Type == "complete" && m.ID == "1" {
				return
			}
		}
	}()

	select {
	case <-time.After(30 * time.Second):
	case <-done:
	}
}
