package events

import (
	"context"
	"encoding/json"
)

// Channels carrying entity-changed events, one per persisted entity.
const (
	ChannelUsers         = "users"
	ChannelNotifications = "notifications"
	ChannelAssignments   = "assignments"
	ChannelMessages      = "messages"
	ChannelAppointments  = "appointments"
)

// Actions recorded on a change event.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Change is the envelope published after a successful write. Consumers use
// it to re-fetch authoritative state; it carries no entity payload.
type Change struct {
	Entity string `json:"entity"`
	Action string `json:"action"`
	ID     int    `json:"id"`
}

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Feed publishes entity-changed events over a backend. A nil backend
// disables the feed; every publish then becomes a no-op.
type Feed struct {
	backend Backend
}

// NewFeed constructs a Feed over the provided backend.
func NewFeed(backend Backend) *Feed {
	return &Feed{backend: backend}
}

// PublishChange sends a change envelope to the entity's channel.
func (f *Feed) PublishChange(ctx context.Context, change Change) error {
	if f == nil || f.backend == nil {
		return nil
	}
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	_, err = f.backend.Publish(ctx, change.Entity, data, map[string]string{
		"action": change.Action,
	})
	return err
}

// Subscribe consumes change envelopes from the named channel.
func (f *Feed) Subscribe(ctx context.Context, channel string, handler func(ctx context.Context, change Change) error) error {
	if f == nil || f.backend == nil {
		return nil
	}
	return f.backend.Subscribe(ctx, channel, func(ctx context.Context, msg Message) error {
		var change Change
		if err := json.Unmarshal(msg.Data, &change); err != nil {
			return err
		}
		return handler(ctx, change)
	})
}

// Close closes the underlying backend.
func (f *Feed) Close() error {
	if f == nil || f.backend == nil {
		return nil
	}
	return f.backend.Close()
}
