package workers

import (
	"context"
	"log/slog"
	"time"

	"pairchat/contract"
	"pairchat/domain/event"
)

// NotifierWorker watches for freshly created conversations and tells the
// other participant about them while they are online. Delivery is
// best-effort: an offline participant discovers the thread by listing
// their conversations.
type NotifierWorker struct {
	log         *slog.Logger
	registry    contract.IRegistry
	created     <-chan event.ConversationCreated
	pushTimeout time.Duration
}

func NewNotifierWorker(log *slog.Logger, registry contract.IRegistry,
	created <-chan event.ConversationCreated, pushTimeout time.Duration) *NotifierWorker {
	return &NotifierWorker{
		log:         log,
		registry:    registry,
		created:     created,
		pushTimeout: pushTimeout,
	}
}

func (w *NotifierWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("stopping notifier worker")
			return ctx.Err()
		case evt, ok := <-w.created:
			if !ok {
				return nil
			}
			w.notify(ctx, evt)
		}
	}
}

func (w *NotifierWorker) notify(ctx context.Context, evt event.ConversationCreated) {
	outbound := event.NewConversation{
		ConversationID: evt.ConversationID,
		InitiatorID:    evt.InitiatorID,
		CreatedAt:      evt.CreatedAt,
	}

	for _, conn := range w.registry.ConnectionsOf(evt.OtherID) {
		pushCtx, cancel := context.WithTimeout(ctx, w.pushTimeout)
		if err := conn.Push(pushCtx, outbound); err != nil {
			w.log.Warn("failed to announce new conversation",
				"user_id", evt.OtherID,
				"connection_id", conn.ID(),
				"error", err)
		}
		cancel()
	}
}
