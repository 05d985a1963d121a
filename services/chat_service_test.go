package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"pairchat/domain"
	"pairchat/domain/event"
	"pairchat/errors"
	"pairchat/repositories"
	"pairchat/runtime"
)

type chatFixture struct {
	svc      *ChatService
	registry *runtime.Registry
	messages repositories.MessageRepository
	users    repositories.UserRepository
	alice    domain.User
	bob      domain.User
}

func newChatFixture(t *testing.T) chatFixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	index, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	conversations := repositories.NewConversationRepository(db, log)
	messages := repositories.NewMessageRepository(db, log)
	users := repositories.NewUserRepository(db, index, log)
	registry := runtime.NewRegistry()
	resolver := runtime.NewResolver(log, conversations, users,
		make(chan event.ConversationCreated, 8))

	alice := domain.User{ID: uuid.NewString(), Username: "alice", Name: "Alice", CreatedAt: time.Now().UTC()}
	bob := domain.User{ID: uuid.NewString(), Username: "bob", Name: "Bob", CreatedAt: time.Now().UTC()}
	require.NoError(t, users.Create(alice))
	require.NoError(t, users.Create(bob))

	return chatFixture{
		svc:      NewChatService(log, resolver, conversations, messages, users, registry),
		registry: registry,
		messages: messages,
		users:    users,
		alice:    alice,
		bob:      bob,
	}
}

type presenceConn struct {
	id     string
	userID string
}

func (c presenceConn) ID() string                                 { return c.id }
func (c presenceConn) UserID() string                             { return c.userID }
func (c presenceConn) Push(context.Context, event.Outbound) error { return nil }

func TestChatService_StartConversation_Returns_Other_Profile(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	// When alice starts a conversation with bob, who is online
	f.registry.Register(f.bob.ID, presenceConn{id: uuid.NewString(), userID: f.bob.ID})
	summary, err := f.svc.StartConversation(f.alice.ID, f.bob.ID)

	req.NoError(err)
	req.NotEmpty(summary.ID)
	req.Equal(f.bob.ID, summary.Other.ID)
	req.Equal("bob", summary.Other.Username)
	req.True(summary.OtherOnline)
	req.Nil(summary.LastMessage)
}

func TestChatService_StartConversation_Twice_Returns_Same_Thread(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	first, err := f.svc.StartConversation(f.alice.ID, f.bob.ID)
	req.NoError(err)
	second, err := f.svc.StartConversation(f.bob.ID, f.alice.ID)
	req.NoError(err)

	req.Equal(first.ID, second.ID)
	req.Equal(f.alice.ID, second.Other.ID)
}

func TestChatService_ListConversations_Includes_Last_Message(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	summary, err := f.svc.StartConversation(f.alice.ID, f.bob.ID)
	req.NoError(err)

	// Given a message in the thread
	req.NoError(f.messages.Append(domain.Message{
		ID:             uuid.New(),
		ConversationID: summary.ID,
		SenderID:       f.bob.ID,
		Content:        "hi alice",
		CreatedAt:      time.Now().UTC(),
	}))

	// When alice lists her conversations
	summaries, err := f.svc.ListConversations(f.alice.ID)

	req.NoError(err)
	req.Len(summaries, 1)
	req.Equal(summary.ID, summaries[0].ID)
	req.Equal(f.bob.ID, summaries[0].Other.ID)
	req.False(summaries[0].OtherOnline)
	req.NotNil(summaries[0].LastMessage)
	req.Equal("hi alice", summaries[0].LastMessage.Content)
}

func TestChatService_ListConversations_Empty_For_New_User(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	summaries, err := f.svc.ListConversations(f.alice.ID)

	req.NoError(err)
	req.Empty(summaries)
}

func TestChatService_History_Requires_Membership(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	summary, err := f.svc.StartConversation(f.alice.ID, f.bob.ID)
	req.NoError(err)

	req.NoError(f.messages.Append(domain.Message{
		ID:             uuid.New(),
		ConversationID: summary.ID,
		SenderID:       f.alice.ID,
		Content:        "between us",
		CreatedAt:      time.Now().UTC(),
	}))

	// Participants can read
	history, err := f.svc.History(f.bob.ID, summary.ID)
	req.NoError(err)
	req.Len(history, 1)

	// Outsiders get the same answer as a missing conversation
	_, err = f.svc.History(uuid.NewString(), summary.ID)
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestChatService_History_Unknown_Conversation(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	_, err := f.svc.History(f.alice.ID, domain.ConversationID(uuid.NewString()))

	req.ErrorIs(err, errors.ErrNotFound)
}
