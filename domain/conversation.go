package domain

import "time"

type ConversationID string

func (id ConversationID) String() string { return string(id) }

// Conversation is the single thread between an unordered pair of users.
// Membership is fixed at creation; conversations are never deleted.
type Conversation struct {
	ID           ConversationID
	Participants [2]string // sorted user IDs, see NewPairKey
	CreatedAt    time.Time
}

// Other returns the participant that is not userID.
func (c Conversation) Other(userID string) string {
	if c.Participants[0] == userID {
		return c.Participants[1]
	}
	return c.Participants[0]
}

// Contains reports whether userID is one of the two participants.
func (c Conversation) Contains(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// PairKey is the canonical identity of a conversation: the two participant
// IDs in lexicographic order, so that (A,B) and (B,A) resolve identically.
type PairKey struct {
	Low  string
	High string
}

func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{Low: a, High: b}
}
