package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is an immutable chat entry. Within one conversation messages are
// totally ordered by CreatedAt, ties broken by ID, and never reordered once
// persisted.
type Message struct {
	ID             uuid.UUID
	ConversationID ConversationID
	SenderID       string
	Content        string
	CreatedAt      time.Time
}
