// Package event defines the outbound events pushed to live connections.
// Transport encoding lives with the transport, not here.
package event

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindChat            Kind = "chat"
	KindNewConversation Kind = "new_conversation"
	KindError           Kind = "error"
)

// Outbound is anything deliverable to a live connection.
type Outbound interface {
	Kind() Kind
}

// Chat carries one persisted message to a recipient or back to the sender.
type Chat struct {
	MessageID      uuid.UUID
	ConversationID string
	Sender         string
	Content        string
	CreatedAt      time.Time
}

func (Chat) Kind() Kind { return KindChat }

// NewConversation tells the other participant that a thread now exists.
// Emitted best-effort on first contact; a client that misses it catches up
// by listing its conversations.
type NewConversation struct {
	ConversationID string
	InitiatorID    string
	CreatedAt      time.Time
}

func (NewConversation) Kind() Kind { return KindNewConversation }

// Error reports a failed inbound frame back to the connection it came from.
type Error struct {
	Code    string
	Message string
}

func (Error) Kind() Kind { return KindError }

// ConversationCreated is the internal signal from the resolver to the
// notifier worker. It is not itself pushed on the wire.
type ConversationCreated struct {
	ConversationID string
	InitiatorID    string
	OtherID        string
	CreatedAt      time.Time
}
