package runtime

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"pairchat/domain"
	"pairchat/domain/event"
	"pairchat/errors"
	"pairchat/repositories"
)

// Resolver maps an unordered pair of users to exactly one conversation,
// creating it on first contact. Atomicity comes from the store: the
// existence check and the insert commit in one transaction, so a lost race
// surfaces as ErrConflict and is settled by re-reading the winner's row.
type Resolver struct {
	log           *slog.Logger
	conversations repositories.IConversationRepository
	users         repositories.IUserRepository
	created       chan<- event.ConversationCreated
}

func NewResolver(log *slog.Logger,
	conversations repositories.IConversationRepository,
	users repositories.IUserRepository,
	created chan<- event.ConversationCreated) *Resolver {
	return &Resolver{
		log:           log,
		conversations: conversations,
		users:         users,
		created:       created,
	}
}

// Resolve returns the single conversation between userA and userB,
// creating it if absent. Symmetric: Resolve(A,B) == Resolve(B,A).
func (r *Resolver) Resolve(userA, userB string) (domain.Conversation, error) {
	if userA == "" || userB == "" || userA == userB {
		return domain.Conversation{}, errors.ErrInvalidInput
	}
	for _, userID := range []string{userA, userB} {
		known, err := r.users.Exists(userID)
		if err != nil {
			return domain.Conversation{}, err
		}
		if !known {
			return domain.Conversation{}, fmt.Errorf("%w: user %s", errors.ErrNotFound, userID)
		}
	}

	key := domain.NewPairKey(userA, userB)

	conv, err := r.conversations.FindByPair(key)
	if err == nil {
		return conv, nil
	}
	if !stderrors.Is(err, errors.ErrNotFound) {
		return domain.Conversation{}, err
	}

	conv, err = r.conversations.Create(key)
	if stderrors.Is(err, errors.ErrConflict) {
		// A concurrent first contact won; its row is now visible.
		r.log.Debug("conversation creation raced, re-reading winner",
			"user_a", userA, "user_b", userB)
		return r.conversations.FindByPair(key)
	}
	if err != nil {
		return domain.Conversation{}, err
	}

	r.notifyCreated(conv, userA)
	return conv, nil
}

// notifyCreated hands the fresh conversation to the notifier worker so the
// other participant learns about it while online. Best-effort: a full
// channel drops the signal rather than blocking creation.
func (r *Resolver) notifyCreated(conv domain.Conversation, initiatorID string) {
	evt := event.ConversationCreated{
		ConversationID: conv.ID.String(),
		InitiatorID:    initiatorID,
		OtherID:        conv.Other(initiatorID),
		CreatedAt:      time.Now().UTC(),
	}
	select {
	case r.created <- evt:
	default:
		r.log.Warn("conversation-created channel full, dropping notification",
			"conversation_id", conv.ID)
	}
}
