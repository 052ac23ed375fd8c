// Package events publishes credential lifecycle notifications so other CRM
// services can react to connections, refreshes and revocations.
//
// Backends: Redis pub/sub, RabbitMQ, AWS SNS, AWS SQS, Google Cloud Pub/Sub
// and Kafka. Every backend receives the same JSON document; the event type is
// also carried as routing metadata (AMQP routing key, message attribute or
// Kafka header) so consumers can filter without decoding the body.
//
// Events never contain token material.
package events

import (
	"context"
	"encoding/json"
	"time"

	"crm-connect/internal/common/logging"
	"crm-connect/internal/common/utils"
	"crm-connect/internal/models"
)

// Type names a lifecycle transition
type Type string

const (
	CredentialConnected      Type = "credential.connected"
	CredentialRefreshed      Type = "credential.refreshed"
	CredentialReauthRequired Type = "credential.reauth_required"
	CredentialDisconnected   Type = "credential.disconnected"
	RingCentralWebhook       Type = "webhook.ringcentral"
)

// Event is the published document
type Event struct {
	ID         string                 `json:"id"`
	Type       Type                   `json:"type"`
	Provider   string                 `json:"provider"`
	Owner      string                 `json:"owner"`
	AccountID  string                 `json:"account_id,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// New builds an event for a credential owner
func New(eventType Type, owner models.Owner, provider models.Provider) Event {
	return Event{
		ID:         utils.NewNonce(),
		Type:       eventType,
		Provider:   string(provider),
		Owner:      owner.Key(),
		OccurredAt: time.Now().UTC(),
	}
}

// ForCredential builds an event carrying the credential's account identity
func ForCredential(eventType Type, cred *models.Credential) Event {
	ev := New(eventType, cred.Owner, cred.Provider)
	ev.AccountID = cred.AccountID
	return ev
}

// With adds a data field and returns the event
func (e Event) With(key string, value interface{}) Event {
	if e.Data == nil {
		e.Data = make(map[string]interface{})
	}
	e.Data[key] = value
	return e
}

// Encode returns the wire form shared by every backend
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events to one backend
type Publisher interface {
	Name() string
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop drops every event. Used when EVENTS_BACKEND=none.
type Noop struct{}

func (Noop) Name() string                          { return "none" }
func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                          { return nil }

// Emitter publishes on a best-effort basis: failures are logged and never
// reach the caller, and each publish gets its own deadline.
type Emitter struct {
	publisher Publisher
	timeout   time.Duration
	logger    logging.Logger
}

// NewEmitter wraps publisher; a nil publisher behaves like Noop
func NewEmitter(publisher Publisher, logger logging.Logger) *Emitter {
	if publisher == nil {
		publisher = Noop{}
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Emitter{
		publisher: publisher,
		timeout:   5 * time.Second,
		logger:    logger.WithFields(logging.Field{"component", "events"}),
	}
}

// Emit publishes event, detached from ctx cancellation so a finished HTTP
// request does not abort delivery.
func (e *Emitter) Emit(ctx context.Context, event Event) {
	if e == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	if err := e.publisher.Publish(pubCtx, event); err != nil {
		e.logger.Warn("Failed to publish credential event",
			logging.Field{"backend", e.publisher.Name()},
			logging.Field{"type", string(event.Type)},
			logging.Field{"owner", event.Owner},
			logging.Field{"provider", event.Provider},
			logging.Err(err),
		)
		return
	}
	e.logger.Debug("Published credential event",
		logging.Field{"backend", e.publisher.Name()},
		logging.Field{"type", string(event.Type)},
		logging.Field{"event_id", event.ID},
	)
}

// Close closes the underlying publisher
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	return e.publisher.Close()
}
