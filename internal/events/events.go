// Package events publishes user lifecycle events and turns them into email.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coaching-center-api/internal/observability"
)

// NATS subjects for user lifecycle events.
const (
	SubjectUserRegistered    = "users.registered"
	SubjectUserStatusChanged = "users.status_changed"
)

// UserRegistered is emitted after a user and their profile are stored.
type UserRegistered struct {
	UserID     uint      `json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Identifier string    `json:"identifier"`
	OccurredAt time.Time `json:"occurred_at"`
}

// UserStatusChanged is emitted when an admin changes a user's status.
type UserStatusChanged struct {
	UserID     uint      `json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	ChangedBy  uint      `json:"changed_by"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits user lifecycle events.
type Publisher interface {
	UserRegistered(ctx context.Context, event UserRegistered) error
	UserStatusChanged(ctx context.Context, event UserStatusChanged) error
}

// NATSPublisher publishes JSON events on NATS subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewNATSPublisher constructs a publisher over conn.
func NewNATSPublisher(conn *nats.Conn, logger zerolog.Logger) *NATSPublisher {
	return &NATSPublisher{conn: conn, logger: logger.With().Str("component", "event_publisher").Logger()}
}

func (p *NATSPublisher) UserRegistered(ctx context.Context, event UserRegistered) error {
	return p.publish(ctx, SubjectUserRegistered, event)
}

func (p *NATSPublisher) UserStatusChanged(ctx context.Context, event UserStatusChanged) error {
	return p.publish(ctx, SubjectUserStatusChanged, event)
}

func (p *NATSPublisher) publish(ctx context.Context, subject string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(subject)
	msg.Data = payload
	correlationID := observability.CorrelationIDFromContext(ctx)
	if correlationID != "" {
		msg.Header.Set(observability.HeaderCorrelationID, correlationID)
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return err
	}
	p.logger.Debug().Str("subject", subject).Str("correlation_id", correlationID).Msg("event published")
	return nil
}

// LocalPublisher hands events straight to a Dispatcher. It is used when no
// NATS server is configured.
type LocalPublisher struct {
	dispatcher *Dispatcher
}

// NewLocalPublisher constructs an in-process publisher.
func NewLocalPublisher(dispatcher *Dispatcher) *LocalPublisher {
	return &LocalPublisher{dispatcher: dispatcher}
}

func (p *LocalPublisher) UserRegistered(ctx context.Context, event UserRegistered) error {
	go p.dispatcher.registered(context.WithoutCancel(ctx), event)
	return nil
}

func (p *LocalPublisher) UserStatusChanged(ctx context.Context, event UserStatusChanged) error {
	go p.dispatcher.statusChanged(context.WithoutCancel(ctx), event)
	return nil
}
