// Package broadcast turns change events into envelopes and fans them out to
// every registered live connection.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"go-live-feed/internal/domain/change"
	"go-live-feed/internal/infrastructure/feed"
	"go-live-feed/internal/infrastructure/hub"
	"go-live-feed/internal/infrastructure/logger"
	"go-live-feed/internal/infrastructure/metrics"
)

// ConnectionSet is the part of the registry the broadcaster needs.
type ConnectionSet interface {
	ForEach(visit func(hub.Connection))
	Unregister(conn hub.Connection)
}

// ClientMessage is a structured message sent by a client, e.g.
// {"type":"new_user","id":"42"}.
type ClientMessage struct {
	Type string          `json:"type" validate:"required"`
	ID   any             `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type Broadcaster struct {
	connections ConnectionSet
	logger      logger.Logger
	metrics     *metrics.FeedMetrics
	reader      feed.DocumentReader
	validate    *validator.Validate
}

type Option func(*Broadcaster)

func WithMetrics(m *metrics.FeedMetrics) Option {
	return func(b *Broadcaster) { b.metrics = m }
}

// WithDocumentReader enables loading the full document for updates that
// only carry the changed fields.
func WithDocumentReader(r feed.DocumentReader) Option {
	return func(b *Broadcaster) { b.reader = r }
}

func WithValidator(v *validator.Validate) Option {
	return func(b *Broadcaster) { b.validate = v }
}

func New(connections ConnectionSet, log logger.Logger, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		connections: connections,
		logger:      log.WithField("component", "broadcaster"),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.validate == nil {
		b.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return b
}

// OnChange maps ev to its envelope and broadcasts it. It returns the number
// of connections the frame was queued on.
func (b *Broadcaster) OnChange(ctx context.Context, ev change.Event) (int, error) {
	if b.metrics != nil {
		b.metrics.FeedEvents.WithLabelValues(change.Kind(ev)).Inc()
	}
	return b.Broadcast(ctx, change.EnvelopeFor(b.enrich(ctx, ev)))
}

// Broadcast serializes env once and sends it to every registered connection.
// A connection whose send fails is unregistered and closed; the others still
// receive the frame.
func (b *Broadcaster) Broadcast(ctx context.Context, env change.Envelope) (int, error) {
	frame, err := env.Marshal()
	if err != nil {
		return 0, fmt.Errorf("marshal %s envelope: %w", env.Type, err)
	}
	b.logger.Debugf("Broadcasting %s", frame)

	delivered := 0
	b.connections.ForEach(func(conn hub.Connection) {
		if err := conn.Send(ctx, frame); err != nil {
			b.dropConnection(conn, err)
			return
		}
		delivered++
	})

	if b.metrics != nil {
		b.metrics.EnvelopesBroadcast.WithLabelValues(env.Type).Inc()
		b.metrics.FramesDelivered.Add(float64(delivered))
	}
	return delivered, nil
}

func (b *Broadcaster) dropConnection(conn hub.Connection, err error) {
	b.logger.WithFields(logger.Fields{
		"connection_id": conn.ID(),
		"transport":     conn.Type(),
	}).Warnf("Removing connection after failed send: %v", err)

	b.connections.Unregister(conn)
	if cerr := conn.Close(); cerr != nil {
		b.logger.Debugf("Close after failed send: %v", cerr)
	}
	if b.metrics != nil {
		b.metrics.SendFailures.Inc()
	}
}

func (b *Broadcaster) enrich(ctx context.Context, ev change.Event) change.Event {
	updated, ok := ev.(change.Updated)
	if !ok || updated.FullDocument != nil || b.reader == nil {
		return ev
	}

	doc, err := b.reader.FindDocument(ctx, updated.EntityType, updated.DocumentID)
	if err != nil {
		b.logger.Warnf("Failed to load %s %v, broadcasting changed fields only: %v",
			updated.EntityType, updated.DocumentID, err)
		return ev
	}
	updated.FullDocument = doc
	return updated
}

// HandleInbound receives text frames from clients. Nothing is ever sent
// back, and a malformed message does not close the connection.
func (b *Broadcaster) HandleInbound(conn hub.Connection, data []byte) {
	log := b.logger.WithField("connection_id", conn.ID())

	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Debugf("Discarding malformed client message: %v", err)
		b.countInbound("malformed")
		return
	}
	if err := b.validate.Struct(msg); err != nil {
		log.Debugf("Discarding invalid client message: %v", err)
		b.countInbound("malformed")
		return
	}

	log.WithFields(logger.Fields{"type": msg.Type, "id": msg.ID}).Info("Client message received")
	b.countInbound("accepted")
}

func (b *Broadcaster) countInbound(outcome string) {
	if b.metrics != nil {
		b.metrics.InboundMessages.WithLabelValues(outcome).Inc()
	}
}

// Run is the dispatch loop: it broadcasts events from sub in feed order until
// ctx is done or the subscription is closed.
func (b *Broadcaster) Run(ctx context.Context, sub feed.Subscription) error {
	b.logger.Info("Change dispatch loop started")
	defer b.logger.Info("Change dispatch loop stopped")

	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, feed.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read change feed: %w", err)
		}

		if _, err := b.OnChange(ctx, ev); err != nil {
			b.logger.Errorf("Failed to broadcast %s event: %v", change.Kind(ev), err)
		}
	}
}
