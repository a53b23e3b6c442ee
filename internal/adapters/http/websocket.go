package http

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/circlerun/internal/adapters/nats"
	"github.com/samirrijal/circlerun/internal/core/domain"
	"github.com/samirrijal/circlerun/internal/pkg/metrics"
)

const (
	ChannelGenerations = "generations"
	ChannelFavorites   = "favorites"

	wsPingInterval = 30 * time.Second
)

// wsMessage is sent from client to subscribe/unsubscribe to feeds.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Channel string `json:"channel"` // "generations" | "favorites" (default: generations)
	Outcome string `json:"outcome"` // generations only; "" = every outcome
}

// wsSubject maps a client message to a NATS subject.
func wsSubject(m wsMessage) (string, bool) {
	switch m.Channel {
	case "", ChannelGenerations:
		if m.Outcome == "" {
			return natsadapter.SubjectGeneratedAll, true
		}
		switch domain.Outcome(m.Outcome) {
		case domain.OutcomeConverged, domain.OutcomeExhausted, domain.OutcomeFailed:
			return natsadapter.GenerationSubject(domain.Outcome(m.Outcome)), true
		}
		return "", false
	case ChannelFavorites:
		return natsadapter.SubjectFavorites, true
	}
	return "", false
}

// overlaps reports whether two generation subjects would deliver the same event.
func overlaps(a, b string) bool {
	gen := func(s string) bool { return strings.HasPrefix(s, natsadapter.SubjectGeneratedPrefix) }
	if a == b || !gen(a) || !gen(b) {
		return false
	}
	return a == natsadapter.SubjectGeneratedAll || b == natsadapter.SubjectGeneratedAll
}

// wsSubscriptions tracks one client's NATS subscriptions. A generation subject
// replaces any overlapping one, so each event reaches the client once.
type wsSubscriptions struct {
	subscribe func(subject string) (unsubscribe func() error, err error)
	active    map[string]func() error
}

func newWSSubscriptions(subscribe func(string) (func() error, error)) *wsSubscriptions {
	return &wsSubscriptions{subscribe: subscribe, active: make(map[string]func() error)}
}

// add subscribes to subject and returns the subjects it replaced.
func (w *wsSubscriptions) add(subject string) (replaced []string, err error) {
	unsub, err := w.subscribe(subject)
	if err != nil {
		return nil, err
	}
	for existing, drop := range w.active {
		if overlaps(existing, subject) {
			_ = drop()
			delete(w.active, existing)
			replaced = append(replaced, existing)
		}
	}
	w.active[subject] = unsub
	return replaced, nil
}

func (w *wsSubscriptions) has(subject string) bool {
	_, ok := w.active[subject]
	return ok
}

func (w *wsSubscriptions) remove(subject string) bool {
	unsub, ok := w.active[subject]
	if !ok {
		return false
	}
	_ = unsub()
	delete(w.active, subject)
	return true
}

func (w *wsSubscriptions) closeAll() {
	for subject := range w.active {
		w.remove(subject)
	}
}

// WebSocketHandler relays loop events from NATS to a connected client.
// Clients send JSON: {"action":"subscribe","channel":"generations","outcome":"converged"}
// Every client starts subscribed to all generation results; subscribing to a
// single outcome narrows that default.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		logger := slog.Default().With("remote", c.RemoteAddr().String())
		if nc == nil {
			logger.Warn("ws client rejected: nats not configured")
			_ = c.WriteJSON(map[string]string{"error": "event stream unavailable"})
			return
		}

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		logger.Info("ws client connected")

		var mu sync.Mutex

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		relay := func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		}

		subs := newWSSubscriptions(func(subject string) (func() error, error) {
			s, err := nc.Subscribe(subject, relay)
			if err != nil {
				return nil, err
			}
			return s.Unsubscribe, nil
		})
		if _, err := subs.add(natsadapter.SubjectGeneratedAll); err != nil {
			logger.Error("ws default subscribe", "error", err)
			return
		}

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			subject, ok := wsSubject(m)
			if !ok {
				_ = writeJSON(map[string]string{"error": "unknown channel or outcome"})
				continue
			}

			switch m.Action {
			case "subscribe":
				if subs.has(subject) {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				replaced, err := subs.add(subject)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				reply := map[string]interface{}{"status": "subscribed", "subject": subject}
				if len(replaced) > 0 {
					reply["replaced"] = replaced
				}
				_ = writeJSON(reply)

			case "unsubscribe":
				if !subs.remove(subject) {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
					continue
				}
				_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		subs.closeAll()
		logger.Info("ws client disconnected")
	}
}
