package runtime

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"

	"pairchat/contract"
	"pairchat/domain"
	"pairchat/domain/event"
	"pairchat/errors"
	"pairchat/moderation"
	"pairchat/repositories"
)

// Pipeline turns one inbound chat event into a durable message plus
// best-effort delivery to every live connection of every recipient, and an
// echo to the originating connection.
//
// Persistence is the source of truth: it completes before any push starts,
// and a failed push is logged and skipped, never retried, never fatal to
// sibling deliveries.
type Pipeline struct {
	log             *slog.Logger
	registry        contract.IRegistry
	conversations   repositories.IConversationRepository
	messages        repositories.IMessageRepository
	moderator       *moderation.Moderator
	deliveryTimeout time.Duration
}

func NewPipeline(log *slog.Logger,
	registry contract.IRegistry,
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	moderator *moderation.Moderator,
	deliveryTimeout time.Duration) *Pipeline {
	return &Pipeline{
		log:             log,
		registry:        registry,
		conversations:   conversations,
		messages:        messages,
		moderator:       moderator,
		deliveryTimeout: deliveryTimeout,
	}
}

// HandleChat validates, persists, and fans out one message.
// originConnID identifies the connection the sender wrote on; the echo goes
// back to that connection only, not to the sender's other devices.
func (p *Pipeline) HandleChat(ctx context.Context, senderID, originConnID string,
	conversationID domain.ConversationID, text string) (domain.Message, error) {
	if text == "" || conversationID == "" {
		return domain.Message{}, errors.ErrInvalidInput
	}

	conv, err := p.conversations.Get(conversationID)
	if err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			return domain.Message{}, errors.ErrNotFound
		}
		return domain.Message{}, err
	}
	if !conv.Contains(senderID) {
		return domain.Message{}, errors.ErrNotFound
	}

	text = p.moderate(senderID, text)

	msg := domain.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        text,
		CreatedAt:      time.Now().UTC(),
	}
	if err := p.messages.Append(msg); err != nil {
		return domain.Message{}, err
	}

	// Message is durable from here on; everything below is best-effort.
	chat := event.Chat{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID.String(),
		Sender:         msg.SenderID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	}

	for _, recipientID := range conv.Participants {
		if recipientID == senderID {
			continue
		}
		for _, conn := range p.registry.ConnectionsOf(recipientID) {
			p.push(ctx, conn, chat)
		}
	}

	p.echo(ctx, senderID, originConnID, chat)
	return msg, nil
}

// moderate masks blacklisted words; detection language is logged so the
// moderation lists can be tuned per community.
func (p *Pipeline) moderate(senderID, text string) string {
	if p.moderator == nil {
		return text
	}
	masked, censored := p.moderator.Censor(text)
	if censored {
		info := whatlanggo.Detect(text)
		p.log.Warn("message censored",
			"sender", senderID,
			"lang", info.Lang.Iso6391())
	}
	return masked
}

func (p *Pipeline) echo(ctx context.Context, senderID, originConnID string, chat event.Chat) {
	for _, conn := range p.registry.ConnectionsOf(senderID) {
		if conn.ID() == originConnID {
			p.push(ctx, conn, chat)
			return
		}
	}
	// Origin already closed between send and echo: nothing to do, the
	// client reads the message from history on reconnect.
	p.log.Debug("origin connection gone before echo",
		"sender", senderID, "connection_id", originConnID)
}

// push delivers one event to one connection under a per-push timeout.
// Failure is isolated: logged, not propagated, not retried.
func (p *Pipeline) push(ctx context.Context, conn contract.LiveConnection, e event.Outbound) {
	pushCtx, cancel := context.WithTimeout(ctx, p.deliveryTimeout)
	defer cancel()

	if err := conn.Push(pushCtx, e); err != nil {
		p.log.Error("failed to push event to connection",
			"user_id", conn.UserID(),
			"connection_id", conn.ID(),
			"error", err)
	}
}
