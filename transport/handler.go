package transport

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"pairchat/contract"
	"pairchat/domain"
	"pairchat/domain/event"
	"pairchat/errors"
	"pairchat/runtime"
	"pairchat/services"
)

const sendBufferSize = 64

type Handler struct {
	log       *slog.Logger
	auth      services.IAuthService
	chat      services.IChatService
	directory services.IDirectoryService
	pipeline  *runtime.Pipeline
	registry  contract.IRegistry
	upgrader  websocket.Upgrader
}

func NewHandler(log *slog.Logger,
	authService services.IAuthService,
	chatService services.IChatService,
	directoryService services.IDirectoryService,
	pipeline *runtime.Pipeline,
	registry contract.IRegistry) *Handler {
	return &Handler{
		log:       log,
		auth:      authService,
		chat:      chatService,
		directory: directoryService,
		pipeline:  pipeline,
		registry:  registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// CORS policy lives on the router; the upgrade itself is open.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	session, err := h.auth.Register(req.Username, req.Name, req.Password)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusCreated, authResponse{
		Token: session.Token,
		User:  newUserProfileResponse(session.User),
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	session, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{
		Token: session.Token,
		User:  newUserProfileResponse(session.User),
	})
}

func (h *Handler) SearchUsers(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return
	}
	profiles, err := h.directory.SearchUsers(c.Request.Context(), claims.UserID, c.Query("q"))
	if err != nil {
		if stderrors.Is(err, errors.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "keyword required"})
			return
		}
		h.respondInternal(c, "user search failed", err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(profiles, func(p services.Profile, _ int) profileResponse {
		return newProfileResponse(p)
	}))
}

func (h *Handler) StartConversation(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return
	}
	var req startConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	summary, err := h.chat.StartConversation(claims.UserID, req.UserID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, newConversationResponse(summary))
	case stderrors.Is(err, errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot start a conversation with yourself"})
	case stderrors.Is(err, errors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	default:
		h.respondInternal(c, "start conversation failed", err)
	}
}

func (h *Handler) ListConversations(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return
	}
	summaries, err := h.chat.ListConversations(claims.UserID)
	if err != nil {
		h.respondInternal(c, "list conversations failed", err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(summaries, func(s services.ConversationSummary, _ int) conversationResponse {
		return newConversationResponse(s)
	}))
}

func (h *Handler) ListMessages(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return
	}
	conversationID := domain.ConversationID(c.Param("id"))
	messages, err := h.chat.History(claims.UserID, conversationID)
	if err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		h.respondInternal(c, "list messages failed", err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(messages, func(m domain.Message, _ int) messageResponse {
		return newMessageResponse(m)
	}))
}

// ServeWS upgrades the request and runs the session: register, read frames
// until the peer goes away, deregister.
func (h *Handler) ServeWS(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return
	}

	socket, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote its own response.
		h.log.Debug("websocket upgrade failed", "user_id", claims.UserID, "error", err)
		return
	}

	conn := NewConn(h.log, socket, claims.UserID, sendBufferSize)
	h.registry.Register(claims.UserID, conn)
	h.log.Info("websocket session opened",
		"user_id", claims.UserID, "connection_id", conn.ID())

	defer func() {
		h.registry.Deregister(claims.UserID, conn)
		conn.Close()
		h.log.Info("websocket session closed",
			"user_id", claims.UserID, "connection_id", conn.ID())
	}()

	go conn.WritePump()
	conn.configureRead()
	h.readLoop(c.Request.Context(), conn)
}

func (h *Handler) readLoop(ctx context.Context, conn *Conn) {
	for {
		var frame inboundFrame
		if err := conn.socket.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("websocket read failed",
					"connection_id", conn.ID(), "error", err)
			}
			return
		}

		switch frame.Type {
		case "chat":
			h.handleChatFrame(ctx, conn, frame)
		default:
			h.pushError(ctx, conn, "unknown_type", "unsupported frame type")
		}
	}
}

func (h *Handler) handleChatFrame(ctx context.Context, conn *Conn, frame inboundFrame) {
	_, err := h.pipeline.HandleChat(ctx, conn.UserID(), conn.ID(),
		domain.ConversationID(frame.ConversationID), frame.Content)
	switch {
	case err == nil:
	case stderrors.Is(err, errors.ErrInvalidInput):
		h.pushError(ctx, conn, "invalid_input", "conversation_id and content are required")
	case stderrors.Is(err, errors.ErrNotFound):
		h.pushError(ctx, conn, "not_found", "conversation not found")
	default:
		h.log.Error("chat frame failed",
			"user_id", conn.UserID(), "connection_id", conn.ID(), "error", err)
		h.pushError(ctx, conn, "internal", "message could not be delivered")
	}
}

// pushError reports a frame failure back on the same connection. A full or
// closed connection just drops it.
func (h *Handler) pushError(ctx context.Context, conn *Conn, code, message string) {
	if err := conn.Push(ctx, event.Error{Code: code, Message: message}); err != nil {
		h.log.Debug("dropping error event", "connection_id", conn.ID(), "error", err)
	}
}

func (h *Handler) respondAuthError(c *gin.Context, err error) {
	switch {
	case stderrors.Is(err, errors.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case stderrors.Is(err, errors.ErrInvalidPassword),
		stderrors.Is(err, errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case stderrors.Is(err, errors.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
	default:
		h.respondInternal(c, "auth operation failed", err)
	}
}

func (h *Handler) respondInternal(c *gin.Context, msg string, err error) {
	h.log.Error(msg, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
