package transport

import (
	"time"

	"pairchat/domain"
	"pairchat/domain/event"
	"pairchat/services"
)

// Inbound websocket frame. Only chat frames exist today; the type field
// leaves room for typing indicators and read receipts later.
type inboundFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

type chatPayload struct {
	Type           string    `json:"type"`
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	Sender         string    `json:"sender"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

type newConversationPayload struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id"`
	InitiatorID    string    `json:"initiator_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type errorPayload struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// encodeOutbound maps a domain event to its JSON wire shape.
func encodeOutbound(e event.Outbound) any {
	switch evt := e.(type) {
	case event.Chat:
		return chatPayload{
			Type:           string(evt.Kind()),
			MessageID:      evt.MessageID.String(),
			ConversationID: evt.ConversationID,
			Sender:         evt.Sender,
			Content:        evt.Content,
			CreatedAt:      evt.CreatedAt,
		}
	case event.NewConversation:
		return newConversationPayload{
			Type:           string(evt.Kind()),
			ConversationID: evt.ConversationID,
			InitiatorID:    evt.InitiatorID,
			CreatedAt:      evt.CreatedAt,
		}
	case event.Error:
		return errorPayload{
			Type:    string(evt.Kind()),
			Code:    evt.Code,
			Message: evt.Message,
		}
	default:
		return errorPayload{Type: string(event.KindError), Code: "unknown_event"}
	}
}

// REST shapes.

type registerRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type profileResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type authResponse struct {
	Token string          `json:"token"`
	User  profileResponse `json:"user"`
}

type startConversationRequest struct {
	UserID string `json:"user_id"`
}

type conversationResponse struct {
	ID          string           `json:"id"`
	Other       profileResponse  `json:"other"`
	OtherOnline bool             `json:"other_online"`
	LastMessage *messageResponse `json:"last_message,omitempty"`
}

type messageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

func newProfileResponse(p services.Profile) profileResponse {
	return profileResponse{
		ID:        p.ID,
		Username:  p.Username,
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
	}
}

func newUserProfileResponse(u domain.User) profileResponse {
	return profileResponse{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
	}
}

func newMessageResponse(m domain.Message) messageResponse {
	return messageResponse{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

func newConversationResponse(s services.ConversationSummary) conversationResponse {
	resp := conversationResponse{
		ID:          s.ID.String(),
		Other:       newProfileResponse(s.Other),
		OtherOnline: s.OtherOnline,
	}
	if s.LastMessage != nil {
		msg := newMessageResponse(*s.LastMessage)
		resp.LastMessage = &msg
	}
	return resp
}
