package events

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coaching-center-api/internal/observability"
	"github.com/noah-isme/coaching-center-api/pkg/mailer"
)

const mailerQueue = "coaching-center-mailer"

// Mailer sends a single email.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Dispatcher turns lifecycle events into email. Delivery failures are logged
// and never propagated back to the request that caused the event.
type Dispatcher struct {
	mailer  Mailer
	appName string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(m Mailer, appName string, logger zerolog.Logger) *Dispatcher {
	if appName == "" {
		appName = "Coaching Center"
	}
	return &Dispatcher{
		mailer:  m,
		appName: appName,
		timeout: 30 * time.Second,
		logger:  logger.With().Str("component", "event_dispatcher").Logger(),
	}
}

// Subscribe attaches the dispatcher to NATS until ctx is cancelled.
func (d *Dispatcher) Subscribe(ctx context.Context, conn *nats.Conn) error {
	subjects := []string{SubjectUserRegistered, SubjectUserStatusChanged}
	subs := make([]*nats.Subscription, 0, len(subjects))
	for _, subject := range subjects {
		sub, err := conn.QueueSubscribe(subject, mailerQueue, d.Handle)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}

	go func() {
		<-ctx.Done()
		for _, sub := range subs {
			if err := sub.Drain(); err != nil {
				d.logger.Warn().Err(err).Str("subject", sub.Subject).Msg("failed to drain subscription")
			}
		}
	}()
	return nil
}

// Handle processes one NATS message.
func (d *Dispatcher) Handle(msg *nats.Msg) {
	ctx := context.Background()
	if msg.Header != nil {
		ctx = observability.ContextWithCorrelation(ctx, msg.Header.Get(observability.HeaderCorrelationID))
	}
	switch msg.Subject {
	case SubjectUserRegistered:
		var event UserRegistered
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			d.logger.Warn().Err(err).Msg("invalid registration event payload")
			return
		}
		d.registered(ctx, event)
	case SubjectUserStatusChanged:
		var event UserStatusChanged
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			d.logger.Warn().Err(err).Msg("invalid status event payload")
			return
		}
		d.statusChanged(ctx, event)
	default:
		d.logger.Debug().Str("subject", msg.Subject).Msg("ignoring unknown subject")
	}
}

func (d *Dispatcher) registered(ctx context.Context, event UserRegistered) {
	body := fmt.Sprintf(`<html><body>
<p>Hello %s,</p>
<p>Your %s account has been created with the role <strong>%s</strong>.</p>
<p>Your ID is <strong>%s</strong>. Sign in with %s and the password given to you by the administrator.</p>
</body></html>`,
		html.EscapeString(event.Name),
		html.EscapeString(d.appName),
		html.EscapeString(event.Role),
		html.EscapeString(event.Identifier),
		html.EscapeString(event.Email),
	)

	d.deliver(ctx, event.UserID, mailer.Message{
		To:      event.Email,
		ToName:  event.Name,
		Subject: fmt.Sprintf("Welcome to %s", d.appName),
		HTML:    body,
	})
}

func (d *Dispatcher) statusChanged(ctx context.Context, event UserStatusChanged) {
	body := fmt.Sprintf(`<html><body>
<p>Hello %s,</p>
<p>Your %s account status changed from <strong>%s</strong> to <strong>%s</strong>.</p>
</body></html>`,
		html.EscapeString(event.Name),
		html.EscapeString(d.appName),
		html.EscapeString(event.From),
		html.EscapeString(event.To),
	)

	d.deliver(ctx, event.UserID, mailer.Message{
		To:      event.Email,
		ToName:  event.Name,
		Subject: fmt.Sprintf("%s account status updated", d.appName),
		HTML:    body,
	})
}

func (d *Dispatcher) deliver(ctx context.Context, userID uint, msg mailer.Message) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.mailer.Send(ctx, msg); err != nil {
		d.logger.Error().
			Err(err).
			Uint("user_id", userID).
			Str("subject", msg.Subject).
			Str("correlation_id", observability.CorrelationIDFromContext(ctx)).
			Msg("failed to send email")
	}
}
