package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/circlerun/internal/core/domain"
)

const (
	// SubjectGeneratedPrefix is followed by the outcome, e.g. loops.generated.converged.
	SubjectGeneratedPrefix = "loops.generated."
	SubjectGeneratedAll    = "loops.generated.>"
	SubjectFavorites       = "loops.favorites.updated"
	// SubjectAll matches every loop event; the WebSocket relay listens here.
	SubjectAll = "loops.>"
)

// GenerationSubject returns the subject a result with outcome is published on.
func GenerationSubject(outcome domain.Outcome) string {
	return SubjectGeneratedPrefix + string(outcome)
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "LOOP_GENERATIONS",
			Subjects:  []string{SubjectGeneratedAll},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "LOOP_FAVORITES",
			Subjects:  []string{SubjectFavorites},
			Retention: nats.LimitsPolicy,
			MaxAge:    7 * 24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishGeneration(ctx context.Context, event *domain.GenerationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(GenerationSubject(event.Outcome), data, nats.Context(ctx), nats.MsgId(event.ID))
	return err
}

func (p *Publisher) PublishFavorites(ctx context.Context, event *domain.FavoritesEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectFavorites, data, nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return connect(url)
}

func connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("circlerun"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
