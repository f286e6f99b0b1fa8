// Package realtime is the delivery channel: per-user and broadcast event
// fan-out to connected clients. Delivery is fire-and-forget; durability is
// the notification store's job, not the channel's.
package realtime

import "context"

// Channel publishes events to connected clients. Implementations must treat
// publishing with no subscriber as a no-op, not an error. The engine that
// needs realtime delivery receives a Channel at construction; Noop stands in
// when no transport is configured (and in tests).
type Channel interface {
	// EmitToUser publishes an event on the user's private channel.
	EmitToUser(ctx context.Context, userID, event string, payload interface{})
	// EmitAll publishes an event to every connected client.
	EmitAll(ctx context.Context, event string, payload interface{})
}

// Event names on the wire.
const (
	EventTaskCreated        = "task:created"
	EventTaskUpdated        = "task:updated"
	EventTaskDeleted        = "task:deleted"
	EventTaskAssigned       = "task:assigned"
	EventNotification       = "notification"
	EventMissedNotification = "notifications:missed"
)

// Noop is the null channel: every emit is a no-op.
type Noop struct{}

// EmitToUser implements Channel.
func (Noop) EmitToUser(context.Context, string, string, interface{}) {}

// EmitAll implements Channel.
func (Noop) EmitAll(context.Context, string, interface{}) {}

// message is the serialized frame pushed to clients and carried over Redis.
type message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}
